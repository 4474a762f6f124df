package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ironsheep/plate-fill-mcp/internal/config"
	"github.com/ironsheep/plate-fill-mcp/internal/log"
	"github.com/ironsheep/plate-fill-mcp/internal/web"
)

func main() {
	configFile := flag.String("config", "", "Path to pipeline YAML config (default $PLATE_FILL_CONFIG)")
	port := flag.String("port", envOr("PORT", "8000"), "Port to listen on")
	flag.Parse()

	log.InitFromEnv()

	cfg, err := config.Resolve(*configFile)
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	srv, err := web.New(cfg)
	if err != nil {
		log.Error("failed to create web server", "error", err)
		os.Exit(1)
	}
	if err := srv.ListenAndServe(fmt.Sprintf("0.0.0.0:%s", *port)); err != nil {
		log.Error("web server stopped", "error", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
