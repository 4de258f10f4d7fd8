// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/image-terrain-mcp/internal/analysis"
)

// Environment variable names.
const (
	EnvLogLevel        = "IMAGE_TERRAIN_LOG_LEVEL"
	EnvClusters        = "IMAGE_TERRAIN_CLUSTERS"
	EnvBands           = "IMAGE_TERRAIN_BANDS"
	EnvEdgeThreshold   = "IMAGE_TERRAIN_EDGE_THRESHOLD"
	EnvAdaptive        = "IMAGE_TERRAIN_ADAPTIVE"
	EnvMaxIterations   = "IMAGE_TERRAIN_MAX_ITERATIONS"
	EnvConvergence     = "IMAGE_TERRAIN_CONVERGENCE"
	EnvMaxDimension    = "IMAGE_TERRAIN_MAX_DIMENSION"
	EnvAnalysisTimeout = "IMAGE_TERRAIN_ANALYSIS_TIMEOUT"
	EnvHost            = "HOST"
	EnvPort            = "PORT"
	EnvMaxRequestBody  = "MAX_REQUEST_BODY_SIZE"
)

// Config holds analysis defaults and transport settings.
type Config struct {
	LogLevel string

	// Analysis defaults, used when a request omits a parameter.
	Clusters      int
	Bands         int
	EdgeThreshold float64
	Adaptive      bool
	MaxIterations int
	Convergence   float64

	// MaxDimension caps the longest image side before analysis; 0 disables it.
	MaxDimension int

	// AnalysisTimeout bounds a single analysis run. The core has no
	// cancellation, so callers enforce it around the worker goroutine.
	AnalysisTimeout time.Duration

	Host               string
	Port               string
	MaxRequestBodySize int64
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:           "info",
		Clusters:           4,
		Bands:              4,
		EdgeThreshold:      0.1,
		Adaptive:           false,
		MaxIterations:      100,
		Convergence:        0.001,
		MaxDimension:       512,
		AnalysisTimeout:    30 * time.Second,
		Host:               "0.0.0.0",
		Port:               "8080",
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
	}
}

// ServerAddress returns host:port for the HTTP listener.
func (c *Config) ServerAddress() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strings.TrimSpace(c.Port))
}

// LoadFromEnv reads the configuration from the environment, falling back to
// Default for unset variables. Malformed or out-of-range values are errors.
func LoadFromEnv() (*Config, error) {
	d := Default()
	cfg := &Config{
		LogLevel: getEnvOrDefault(EnvLogLevel, d.LogLevel),
		Host:     getEnvOrDefault(EnvHost, d.Host),
		Port:     getEnvOrDefault(EnvPort, d.Port),
	}

	var err error
	if cfg.Clusters, err = parseInt(EnvClusters, d.Clusters); err != nil {
		return nil, err
	}
	if cfg.Bands, err = parseInt(EnvBands, d.Bands); err != nil {
		return nil, err
	}
	if cfg.MaxIterations, err = parseInt(EnvMaxIterations, d.MaxIterations); err != nil {
		return nil, err
	}
	if cfg.MaxDimension, err = parseInt(EnvMaxDimension, d.MaxDimension); err != nil {
		return nil, err
	}
	if cfg.EdgeThreshold, err = parseFloat(EnvEdgeThreshold, d.EdgeThreshold); err != nil {
		return nil, err
	}
	if cfg.Convergence, err = parseFloat(EnvConvergence, d.Convergence); err != nil {
		return nil, err
	}
	if cfg.Adaptive, err = parseBool(EnvAdaptive, d.Adaptive); err != nil {
		return nil, err
	}
	if cfg.AnalysisTimeout, err = parseDuration(EnvAnalysisTimeout, d.AnalysisTimeout); err != nil {
		return nil, err
	}
	size, err := parseInt(EnvMaxRequestBody, int(d.MaxRequestBodySize))
	if err != nil {
		return nil, err
	}
	cfg.MaxRequestBodySize = int64(size)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Clusters < 1 || c.Clusters > analysis.MaxClusters {
		return fmt.Errorf("%s must be in [1,%d] (got %d)", EnvClusters, analysis.MaxClusters, c.Clusters)
	}
	if c.Bands < 1 || c.Bands > analysis.MaxBands {
		return fmt.Errorf("%s must be in [1,%d] (got %d)", EnvBands, analysis.MaxBands, c.Bands)
	}
	if c.EdgeThreshold < 0 || c.EdgeThreshold > 1 {
		return fmt.Errorf("%s must be in [0,1] (got %g)", EnvEdgeThreshold, c.EdgeThreshold)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%s must be >= 1 (got %d)", EnvMaxIterations, c.MaxIterations)
	}
	if c.Convergence <= 0 {
		return fmt.Errorf("%s must be > 0 (got %g)", EnvConvergence, c.Convergence)
	}
	if c.MaxDimension < 0 {
		return fmt.Errorf("%s must be >= 0 (got %d)", EnvMaxDimension, c.MaxDimension)
	}
	if c.AnalysisTimeout <= 0 {
		return fmt.Errorf("%s must be > 0 (got %s)", EnvAnalysisTimeout, c.AnalysisTimeout)
	}
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid %s: %q", EnvPort, c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("%s must be > 0 (got %d)", EnvMaxRequestBody, c.MaxRequestBodySize)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, defaultValue float64) (float64, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func parseBool(key string, defaultValue bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
