// Command sdmx-flight serves the SDMX catalog over Arrow Flight and browses
// it from the command line.
//
// Every flag can also be set through the environment variable named in its
// usage text; a .env file in the working directory is loaded first.
//
// Usage:
//
//	sdmx-flight serve --addr :50051 --registry providers.yaml --log-level debug
//	sdmx-flight providers
//	sdmx-flight dataflows ECB exchange
//	sdmx-flight describe ECB EXR
//
// From DuckDB:
//
//	INSTALL airport FROM community;
//	LOAD airport;
//	ATTACH '' AS sdmx (TYPE airport, LOCATION 'grpc://localhost:50051');
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hugr-lab/sdmx-go"
	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

// globalOptions are shared by every command.
type globalOptions struct {
	registryFile string
	logLevel     string
	timeout      time.Duration
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env file: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	serve := newServeCmd(g)

	rootCmd := &cobra.Command{
		Use:           "sdmx-flight",
		Short:         "Arrow Flight server for SDMX statistical data catalogs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.registryFile, "registry", envString("SDMX_REGISTRY", ""), "YAML file with additional or replacement providers (SDMX_REGISTRY)")
	flags.StringVar(&g.logLevel, "log-level", envString("SDMX_LOG_LEVEL", "info"), "debug, info, warn or error (SDMX_LOG_LEVEL)")
	flags.DurationVar(&g.timeout, "timeout", envDuration("SDMX_TIMEOUT", client.DefaultTimeout), "timeout of a single provider request (SDMX_TIMEOUT)")

	rootCmd.AddCommand(
		serve,
		newProvidersCmd(g),
		newDataflowsCmd(g),
		newDescribeCmd(g),
	)
	return rootCmd
}

func (g *globalOptions) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(g.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", g.logLevel, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

// config builds the library configuration. A nil metrics registerer
// leaves the client uninstrumented.
func (g *globalOptions) config(metrics prometheus.Registerer) (sdmx.Config, error) {
	logger, err := g.logger()
	if err != nil {
		return sdmx.Config{}, err
	}

	reg := registry.Default()
	if g.registryFile != "" {
		extra, err := registry.LoadFile(g.registryFile)
		if err != nil {
			return sdmx.Config{}, err
		}
		reg.Merge(extra)
		logger.Debug("Registry overrides loaded", "file", g.registryFile, "providers", len(extra.All()))
	}

	var c client.Client = client.NewREST(client.RESTOptions{
		Timeout: g.timeout,
		Logger:  logger,
	})
	if metrics != nil {
		c = client.Instrument(c, client.NewMetrics(metrics))
	}

	return sdmx.Config{
		Registry: reg,
		Client:   c,
		Logger:   logger,
	}, nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
