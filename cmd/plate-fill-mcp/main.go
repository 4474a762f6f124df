package main

import (
	"fmt"
	"os"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/log"
	"github.com/ironsheep/plate-fill-mcp/internal/server"
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
			fmt.Printf("plate-fill-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			fmt.Println("plate-fill-mcp - MCP server that measures how full a plate or bowl is")
			fmt.Println()
			fmt.Println("Usage: plate-fill-mcp [options]")
			fmt.Println()
			fmt.Println("Options:")
			fmt.Println("  --version, -v    Print version information")
			fmt.Println("  --help, -h       Print this help message")
			fmt.Println()
			fmt.Println("Environment variables:")
			fmt.Println("  PLATE_FILL_LOG_LEVEL=debug       Enable debug logging")
			fmt.Println("  PLATE_FILL_CONFIG=path.yaml      Pipeline configuration file")
			fmt.Println("  PLATE_FILL_UTENSIL=plate         Default utensil (plate, bowl, auto)")
			fmt.Println("  PLATE_FILL_DIAMETER_MM=260       Default utensil diameter")
			fmt.Println("  PLATE_FILL_HEIGHT_MM=15          Default assumed food height")
			fmt.Println("  PLATE_FILL_MIN_RADIUS / _MAX_RADIUS   Utensil radius bounds in pixels")
			fmt.Println()
			fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
			fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
			return
		}
	}

	// Logging goes to stderr (stdout is for MCP protocol)
	log.InitFromEnv()
	log.Debug("starting plate-fill-mcp", "version", Version, "built", BuildTime, "commit", GitCommit)

	cfg, err := config.Resolve("")
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	server.Version = Version
	srv, err := server.New(cfg)
	if err != nil {
		log.Error("failed to create server", "error", err)
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
