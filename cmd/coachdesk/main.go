package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachdesk/coachdesk/internal/app"
	"github.com/coachdesk/coachdesk/internal/config"
	coachmcp "github.com/coachdesk/coachdesk/internal/mcp"
	"github.com/coachdesk/coachdesk/internal/server"
	"github.com/coachdesk/coachdesk/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	migrateOnly := flag.Bool("migrate-only", false, "run audit migrations and exit")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coachdesk", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(*configPath, *migrateOnly, log); err != nil {
		log.Error("coachdesk exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, migrateOnly bool, log *slog.Logger) error {
	log.Info("coachdesk starting", "version", Version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if migrateOnly {
		if !cfg.Database.Enabled() {
			return errors.New("-migrate-only needs database.host")
		}
		v, err := storage.RunMigrations(cfg.Database.DSN())
		if err != nil {
			return err
		}
		log.Info("audit schema migrated", "schema_version", v)
		return nil
	}

	a, err := app.Open(context.Background(), cfg, log)
	if err != nil {
		return fmt.Errorf("opening application: %w", err)
	}
	defer a.Close()

	srv := server.New(a, log)
	if dir := cfg.Server.WebDir; dir != "" {
		srv.SetFrontend(os.DirFS(dir))
		log.Info("serving frontend", "dir", dir)
	}
	if cfg.MCP.Enabled {
		tools := coachmcp.New(coachmcp.NewLocal(a), Version, log)
		srv.MountMCP(mcpserver.NewStreamableHTTPServer(tools))
		log.Info("mcp endpoint mounted", "path", "/mcp")
	}

	ln, cleanup, err := listen(cfg, srv, log)
	if err != nil {
		return err
	}
	defer cleanup()

	httpSrv := &http.Server{Handler: srv, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- httpSrv.Serve(ln) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

// listen opens the tailnet listener when tailscale is enabled and a plain TCP
// listener otherwise. With tailscale, callers are identified by WhoIs.
func listen(cfg *config.Config, srv *server.Server, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := net.JoinHostPort(cfg.Server.Host, fmt.Sprint(cfg.Server.Port))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listening on %s: %w", addr, err)
		}
		log.Info("listening", "addr", addr, "mode", "local")
		return ln, func() {}, nil
	}

	ts := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := ts.Start(); err != nil {
		return nil, nil, fmt.Errorf("starting tsnet: %w", err)
	}
	lc, err := ts.LocalClient()
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet local client: %w", err)
	}
	srv.SetTailscale(lc)

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("listening", "hostname", cfg.Tailscale.Hostname, "mode", "tailnet")
	return ln, func() { ts.Close() }, nil
}
