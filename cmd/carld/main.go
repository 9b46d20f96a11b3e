// Command carld hosts the resource core described by this repository:
// it opens a Manager, serves its metrics and health endpoints, and
// blocks until signalled. Cluster assignment, transport and every
// other piece of CARL's business logic are out of scope here (see
// SPEC_FULL.md §1/§7) — this binary exists to demonstrate the core in
// isolation, the way a teacher's cmd/<name>/main.go wires its own
// package together without embedding product logic in main.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eclipse-opendut/opendut-sub003/pkg/config"
	"github.com/eclipse-opendut/opendut-sub003/pkg/log"
	"github.com/eclipse-opendut/opendut-sub003/pkg/manager"
	"github.com/eclipse-opendut/opendut-sub003/pkg/metrics"
)

var (
	// Version information (set via ldflags during build)
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "carld",
		Short:   "Resource core daemon: typed, versioned storage with subscription fan-out",
		Version: Version,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.SetVersionTemplate(fmt.Sprintf("carld version %s\nCommit: %s\n", Version, Commit))

	if err := config.BindFlags(cmd, v); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, cfg config.Config) error {
	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	metrics.SetVersion(Version)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr, err := openManager(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open manager: %w", err)
	}
	defer mgr.Close()
	metrics.RegisterComponent("manager", true, "")

	collector := manager.NewCollector(mgr)
	collector.Start()
	defer collector.Stop()

	server := newHTTPServer(cfg.MetricsAddr)
	go func() {
		log.WithComponent("http").Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics and health endpoints")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent("http").Error().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openManager(ctx context.Context, cfg config.Config) (*manager.Manager, error) {
	if !cfg.PersistenceEnabled {
		return manager.NewInMemory(), nil
	}
	return manager.NewPersistent(ctx, manager.Config{
		Persistent:           true,
		DataPath:             cfg.PersistencePath,
		SubscriptionCapacity: cfg.SubscriptionCapacity,
		HistoryLength:        cfg.HistoryLength,
	})
}

func newHTTPServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		health := metrics.GetHealth()
		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		fmt.Fprintf(w, `{"status":%q}`, health.Status)
	})
	return &http.Server{Addr: addr, Handler: mux}
}
