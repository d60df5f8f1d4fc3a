package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/isitobservable/platform-ops-mcp/pkg/config"
	"github.com/isitobservable/platform-ops-mcp/pkg/gh"
	"github.com/isitobservable/platform-ops-mcp/pkg/helm"
	"github.com/isitobservable/platform-ops-mcp/pkg/k8s"
	mcpserver "github.com/isitobservable/platform-ops-mcp/pkg/mcp"
	"github.com/isitobservable/platform-ops-mcp/pkg/telemetry"
	"github.com/isitobservable/platform-ops-mcp/pkg/tools"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server in stdio or http mode",
	RunE:  serveCmdRun,
}

func serveCmdRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logHandler, logShutdown, err := telemetry.InitLogProvider(ctx, cfg.ClusterName)
	if err != nil {
		return fmt.Errorf("initializing log export: %w", err)
	}
	if logHandler != nil {
		config.SetupLogging(os.Stderr, cfg.LogLevel, logHandler)
	} else {
		config.SetupLogging(os.Stderr, cfg.LogLevel)
	}
	klog.SetSlogLogger(slog.Default())

	slog.Info("starting platform-ops-mcp server",
		"version", VERSION, "transport", cfg.Transport, "cluster", cfg.ClusterName, "read_only", cfg.ReadOnly)

	tracerShutdown, err := telemetry.InitTracer(ctx, cfg.ClusterName)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	meterShutdown, err := telemetry.InitMeterProvider(ctx, cfg.ClusterName)
	if err != nil {
		return fmt.Errorf("initializing meter provider: %w", err)
	}

	kube := k8s.NewFactory(k8s.DefaultLoader(cfg.Kubeconfig, cfg.KubeContext))
	kube.Preload()

	token, ok := config.ResolveCredential(config.GitHubTokenEnvVars...)
	if !ok {
		slog.Warn("github: no credential found, GitHub tools will fail", "env", config.GitHubTokenEnvVars)
	}
	github := gh.NewFactory(gh.Options{Token: token, BaseURL: cfg.GitHubAPIURL})

	base := tools.BaseTool{
		Cfg:    cfg,
		Kube:   kube,
		GitHub: github,
		Helm:   helm.NewClient(helm.NewCLI(cfg.HelmBinary)),
	}
	registry := tools.NewRegistry(cfg.ToolTimeout)
	registry.RegisterAll(tools.AllTools(base), cfg.ReadOnly)

	srv := mcpserver.NewServer(registry, VERSION)

	var serveErr error
	switch cfg.Transport {
	case config.TransportHTTP:
		serveErr = serveHTTP(ctx, cfg, srv, kube)
	default:
		serveErr = srv.Run(ctx)
		if errors.Is(serveErr, context.Canceled) {
			serveErr = nil
		}
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Flush pending OTel signals before exit
	for name, shutdown := range map[string]telemetry.ShutdownFunc{
		"tracer": tracerShutdown,
		"meter":  meterShutdown,
		"logger": logShutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("telemetry shutdown error", "provider", name, "error", err)
		}
	}

	slog.Info("server stopped")
	return serveErr
}

func serveHTTP(ctx context.Context, cfg *config.Config, srv *mcpserver.Server, kube *k8s.Factory) error {
	health := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port+1),
		Handler:           healthMux(kube),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("health check server listening", "addr", health.Addr)
		if err := health.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("health server error", "error", err)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(fmt.Sprintf(":%d", cfg.Port))
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if sErr := srv.Shutdown(shutdownCtx); sErr != nil {
		slog.Error("shutdown error", "error", sErr)
	}
	if sErr := health.Shutdown(shutdownCtx); sErr != nil {
		slog.Error("health server shutdown error", "error", sErr)
	}
	return err
}

// readiness is satisfied by *k8s.Factory.
type readiness interface {
	Ready() bool
}

func healthMux(r readiness) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !r.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "not ready: Kubernetes configuration could not be loaded")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return mux
}
