// Command netcode-server runs the authoritative world for the netcode demo:
// a single shared platformer world, broadcast on a fixed cadence, with
// server-side velocity-cap cheat detection.
//
// Connection flow:
//  1. Client connects via WebSocket to the root namespace /.
//  2. Client sends a Join action; the server assigns a player id and
//     replies on the join channel.
//  3. Client sends Jump/Move actions; the server applies them to the
//     authoritative world, clamping and flagging anything that exceeds the
//     velocity cap.
//  4. The server broadcasts a full world snapshot on the state channel
//     every StateUpdateInterval.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/borgaar/netcode/internal/config"
	"github.com/borgaar/netcode/internal/metrics"
	"github.com/borgaar/netcode/internal/session"
	"github.com/borgaar/netcode/internal/transport"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := newRootCommand().Execute(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		host       string
		port       int
		enableCORS bool
	)

	cmd := &cobra.Command{
		Use:   "netcode-server",
		Short: "Authoritative world server for the netcode demo",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(configFile)

			// Flags override file/env only when explicitly set on the
			// command line; cobra's Changed tracks that.
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("enable-cors") {
				cfg.EnableCORS = enableCORS
			}

			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "netcode-server.toml", "optional TOML config file")
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides HOST env var and config file)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (overrides PORT env var and config file)")
	cmd.Flags().BoolVar(&enableCORS, "enable-cors", false, "allow cross-origin WebSocket upgrades")

	return cmd
}

// loadConfig layers the optional TOML file, then environment variables, on
// top of the built-in defaults. CLI flags (applied by the caller) take
// final precedence.
func loadConfig(path string) *config.ServerConfig {
	cfg := config.DefaultServerConfig()

	if fc, err := config.LoadFile(path); err != nil {
		log.Printf("warning: failed to load %s: %v", path, err)
	} else {
		fc.Apply(cfg)
	}

	if host := os.Getenv("HOST"); host != "" {
		cfg.Host = host
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Port = p
		}
	}
	if cors := os.Getenv("ENABLE_CORS"); cors == "true" {
		cfg.EnableCORS = true
	}

	return cfg
}

func run(ctx context.Context, cfg *config.ServerConfig) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	registry := session.NewRegistry(m)
	registry.StartBroadcaster(config.StateUpdateInterval)
	defer registry.Stop()

	mux := http.NewServeMux()
	mux.Handle("/", transport.NewUpgrader(registry, cfg.EnableCORS))
	mux.HandleFunc("/health", handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	log.Printf("=================================")
	log.Printf("  netcode server")
	log.Printf("=================================")
	log.Printf("  Host: %s", cfg.Host)
	log.Printf("  Port: %d", cfg.Port)
	log.Printf("  CORS: %v", cfg.EnableCORS)
	log.Printf("  Broadcast interval: %s", config.StateUpdateInterval)
	log.Printf("  Velocity cap: %.2f units/s", config.MaxUnitsPerSecond)
	log.Printf("=================================")

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
