package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/image-terrain-mcp/internal/config"
	"github.com/ironsheep/image-terrain-mcp/internal/logger"
	"github.com/ironsheep/image-terrain-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("image-terrain-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("image-terrain-mcp - MCP server for terrain analysis of images")
			fmt.Println()
			fmt.Println("Usage: image-terrain-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Printf("  %s=debug|info|warn|error\n", config.EnvLogLevel)
			fmt.Printf("  %s=4             Default color cluster count\n", config.EnvClusters)
			fmt.Printf("  %s=4                Default height band count\n", config.EnvBands)
			fmt.Printf("  %s=0.1     Default edge threshold\n", config.EnvEdgeThreshold)
			fmt.Printf("  %s=false         Equal-population bands by default\n", config.EnvAdaptive)
			fmt.Printf("  %s=512      Downscale limit before analysis\n", config.EnvMaxDimension)
			fmt.Printf("  %s=30s  Per-analysis time limit\n", config.EnvAnalysisTimeout)
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr (stdout is for MCP protocol)
	log := logger.New(cfg.LogLevel, os.Stderr)
	log.WithFields(logrus.Fields{
		"version": Version,
		"built":   BuildTime,
		"commit":  GitCommit,
	}).Debug("image terrain MCP server starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.WithConfig(cfg), server.WithLogger(log))
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatal("server error")
	}
}
