// Package transport exposes terrain analysis over HTTP.
package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-terrain-mcp/internal/analysis"
	"github.com/ironsheep/image-terrain-mcp/internal/config"
	"github.com/ironsheep/image-terrain-mcp/internal/imaging"
	"github.com/ironsheep/image-terrain-mcp/internal/logger"
	"github.com/ironsheep/image-terrain-mcp/internal/preview"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// AnalysisRequest holds the multipart form fields of POST /analyze.
// Omitted fields fall back to the server configuration.
type AnalysisRequest struct {
	Clusters        *int     `form:"clusters" binding:"omitempty,min=1,max=256"`
	Bands           *int     `form:"bands" binding:"omitempty,min=1,max=256"`
	EdgeThreshold   *float64 `form:"edge_threshold" binding:"omitempty,min=0,max=1"`
	Adaptive        *bool    `form:"adaptive"`
	Seed            *int64   `form:"seed"`
	MaxDimension    *int     `form:"max_dimension" binding:"omitempty,min=0"`
	IncludeMembers  bool     `form:"include_members"`
	IncludePreviews bool     `form:"include_previews"`
}

// AnalysisResponse is the body of a successful POST /analyze.
type AnalysisResponse struct {
	Format       string `json:"format"`
	SourceWidth  int    `json:"source_width"`
	SourceHeight int    `json:"source_height"`
	analysis.Summary
	Previews map[string]*preview.ImageResult `json:"previews,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewHandler builds the gin router serving /health and /analyze.
func NewHandler(cfg *config.Config, log logrus.FieldLogger) http.Handler {
	if cfg == nil {
		cfg = config.Default()
	}
	if log == nil {
		log = logger.Discard()
	}

	r := gin.New()

	// Add middleware
	r.Use(
		gin.Recovery(),
		requestLogger(log),
		requestSizeLimiter(cfg.MaxRequestBodySize),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.POST("/analyze", analyzeImage(cfg, log))

	return r
}

func analyzeImage(cfg *config.Config, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if cfg.AnalysisTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.AnalysisTimeout)
			defer cancel()
		}

		var req AnalysisRequest
		if err := c.ShouldBind(&req); err != nil {
			code := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				code = http.StatusRequestEntityTooLarge
			}
			respondError(c, log, code, "invalid request format", err)
			return
		}

		fh, err := c.FormFile("image")
		if err != nil {
			respondError(c, log, http.StatusBadRequest, "missing image upload", err)
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, log, http.StatusBadRequest, "unreadable image upload", err)
			return
		}
		defer f.Close()

		img, format, err := imaging.Decode(f)
		if err != nil {
			respondError(c, log, http.StatusUnprocessableEntity, "unsupported image", err)
			return
		}

		maxDimension := cfg.MaxDimension
		if req.MaxDimension != nil {
			maxDimension = *req.MaxDimension
		}
		prepared, err := imaging.Prepare(img, imaging.PrepareOptions{MaxDimension: maxDimension})
		if err != nil {
			respondError(c, log, http.StatusUnprocessableEntity, "unsupported image", err)
			return
		}

		p := paramsFor(cfg, &req)
		clusterOpts := []analysis.ClusterOption{
			analysis.WithMaxIterations(cfg.MaxIterations),
			analysis.WithConvergenceThreshold(cfg.Convergence),
		}
		if req.Seed != nil {
			clusterOpts = append(clusterOpts, analysis.WithSeed(*req.Seed))
		}
		analyzer := analysis.New(analysis.WithLogger(log), analysis.WithClusterOptions(clusterOpts...))

		result, err := analyzer.AnalyzeContext(ctx, imaging.FromImage(prepared), p)
		if err != nil {
			respondError(c, log, statusFor(err), "analysis failed", err)
			return
		}

		resp := AnalysisResponse{
			Format:       format,
			SourceWidth:  img.Bounds().Dx(),
			SourceHeight: img.Bounds().Dy(),
			Summary:      result.Summarize(req.IncludeMembers),
		}
		if req.IncludePreviews {
			previews, err := preview.Render(result, preview.Options{})
			if err != nil {
				respondError(c, log, http.StatusInternalServerError, "preview rendering failed", err)
				return
			}
			resp.Previews = previews
		}

		log.WithFields(logrus.Fields{
			"format":     format,
			"width":      result.Width,
			"height":     result.Height,
			"clusters":   p.Clusters,
			"bands":      p.Bands,
			"elapsed_ms": resp.ElapsedMS,
		}).Info("terrain analysis request completed")

		c.JSON(http.StatusOK, resp)
	}
}

// paramsFor fills omitted request fields from the configuration.
func paramsFor(cfg *config.Config, req *AnalysisRequest) analysis.Params {
	p := analysis.Params{
		Clusters:      cfg.Clusters,
		Bands:         cfg.Bands,
		EdgeThreshold: cfg.EdgeThreshold,
		Adaptive:      cfg.Adaptive,
	}
	if req.Clusters != nil {
		p.Clusters = *req.Clusters
	}
	if req.Bands != nil {
		p.Bands = *req.Bands
	}
	if req.EdgeThreshold != nil {
		p.EdgeThreshold = *req.EdgeThreshold
	}
	if req.Adaptive != nil {
		p.Adaptive = *req.Adaptive
	}
	return p
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, ErrorResponse{
					Error:   http.StatusText(http.StatusRequestEntityTooLarge),
					Message: fmt.Sprintf("request body exceeds %d bytes", maxBytes),
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

func requestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"ip":          c.ClientIP(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("request handled")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, log logrus.FieldLogger, code int, message string, err error) {
	log.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Warn("request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
