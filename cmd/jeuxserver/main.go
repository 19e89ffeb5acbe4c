// Command jeuxserver runs the tic-tac-toe session server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jeux/server/internal/config"
	"github.com/jeux/server/internal/player"
	"github.com/jeux/server/internal/session"
)

const defaultConfigPath = "config/jeuxserver.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	port := flag.Int("p", 0, "port to listen on")
	flag.Parse()
	if *port <= 0 || *port > 65535 {
		return fmt.Errorf("missing or invalid -p port")
	}

	cfgPath := defaultConfigPath
	if p := os.Getenv("JEUX_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg.Port = *port

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	})))

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	registry := session.NewClientRegistry(cfg.ClientCapacity, cfg.WriteTimeout)
	players := player.NewRegistry()

	slog.Info("jeux server started", "address", ln.Addr())

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Serve(ctx, ln, registry, players, cfg.ReadTimeout)
	})

	return g.Wait()
}

// parseLogLevel converts a config string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
