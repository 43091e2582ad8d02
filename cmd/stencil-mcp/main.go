package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/ironsheep/stencil-tools-mcp/internal/server"
	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("stencil-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("stencil-tools-mcp - MCP server that turns photographs into tattoo stencils")
			fmt.Println()
			fmt.Println("Usage: stencil-tools-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  STENCIL_MCP_LOG_LEVEL=debug       Enable debug logging")
			fmt.Println("  STENCIL_MCP_MAX_DIMENSION=1200    Longer-side limit for loaded images")
			fmt.Println("  STENCIL_MCP_DEBOUNCE_MS=120       Delay before a curve-edit preview runs")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			return
		}
	}

	// stdout is the protocol channel
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := server.ConfigFromEnv()
	cfg.Version = Version

	if cfg.Debug() {
		log.Printf("Stencil MCP Server v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
		log.Printf("Max dimension %dpx, preview debounce %v", cfg.MaxDimension, cfg.Debounce)
		stencil.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	srv := server.New(cfg)
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
