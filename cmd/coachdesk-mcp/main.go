package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/coachdesk/coachdesk/internal/app"
	"github.com/coachdesk/coachdesk/internal/config"
	coachmcp "github.com/coachdesk/coachdesk/internal/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	remote := flag.String("remote", "", "coachdesk server URL; when set, tools call its REST API instead of running locally")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coachdesk-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var ds coachmcp.DataSource
	if *remote != "" {
		ds = coachmcp.NewHTTPClient(*remote)
		log.Info("remote mode", "server", *remote)
	} else {
		cfg, err := config.Load(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		a, err := app.Open(context.Background(), cfg, log)
		if err != nil {
			log.Error("failed to start application", "error", err)
			os.Exit(1)
		}
		defer a.Close()
		ds = coachmcp.NewLocal(a)
	}

	if err := server.ServeStdio(coachmcp.New(ds, Version, log)); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
