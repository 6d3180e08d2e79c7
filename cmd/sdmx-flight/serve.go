package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/hugr-lab/sdmx-go"
	"github.com/hugr-lab/sdmx-go/auth"
)

type serveOptions struct {
	addr           string
	publicAddr     string
	metricsAddr    string
	maxMessageSize int
	token          string
}

func newServeCmd(g *globalOptions) *cobra.Command {
	o := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Arrow Flight server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), g, o)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.addr, "addr", envString("SDMX_ADDR", ":50051"), "gRPC listen address (SDMX_ADDR)")
	flags.StringVar(&o.publicAddr, "public-addr", envString("SDMX_PUBLIC_ADDR", ""), "address advertised in flight endpoints (SDMX_PUBLIC_ADDR)")
	flags.StringVar(&o.metricsAddr, "metrics-addr", envString("SDMX_METRICS_ADDR", ":9090"), "prometheus listen address, empty disables (SDMX_METRICS_ADDR)")
	flags.IntVar(&o.maxMessageSize, "max-message-size", envInt("SDMX_MAX_MESSAGE_SIZE", 64<<20), "maximum gRPC message size in bytes (SDMX_MAX_MESSAGE_SIZE)")
	flags.StringVar(&o.token, "token", envString("SDMX_AUTH_TOKEN", ""), "bearer token required from clients, empty disables auth (SDMX_AUTH_TOKEN)")
	return cmd
}

func runServe(ctx context.Context, g *globalOptions, o *serveOptions) error {
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	config, err := g.config(promRegistry)
	if err != nil {
		return err
	}
	config.MaxMessageSize = o.maxMessageSize
	config.Address = o.publicAddr
	if o.token != "" {
		config.Auth = auth.StaticTokens(map[string]string{o.token: "token"})
	}
	logger := config.Logger

	grpcServer := grpc.NewServer(sdmx.ServerOptions(config)...)
	if err := sdmx.NewServer(grpcServer, config); err != nil {
		return err
	}

	lis, err := net.Listen("tcp", o.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", o.addr, err)
	}

	var metricsServer *http.Server
	if o.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: o.metricsAddr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", "error", err)
			}
		}()
		logger.Info("Metrics listening", "address", o.metricsAddr)
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()
	logger.Info("SDMX Flight server listening", "address", lis.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	grpcServer.GracefulStop()
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error shutting down metrics server", "error", err)
		}
	}
	return nil
}
