package sdmx

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/sdmx-go/auth"
	"github.com/hugr-lab/sdmx-go/catalog"
	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/registry"
)

// Config contains configuration for the SDMX catalog and its Flight server.
type Config struct {
	// Registry lists the providers to browse.
	// OPTIONAL: Uses registry.Default() if nil.
	Registry *registry.Registry

	// Client issues requests against providers.
	// OPTIONAL: Uses client.NewREST with default options if nil.
	Client client.Client

	// Allocator for Arrow memory management.
	// OPTIONAL: Uses memory.DefaultAllocator if nil.
	Allocator memory.Allocator

	// Logger for internal logging.
	// OPTIONAL: Uses slog.Default() if nil.
	// Note: If LogLevel is specified, a new logger will be created with that level.
	Logger *slog.Logger

	// LogLevel sets the logging level.
	// OPTIONAL: If nil, uses Info level.
	// If Logger is also provided, LogLevel is ignored (use pre-configured logger).
	LogLevel *slog.Level

	// MaxMessageSize sets maximum gRPC message size in bytes.
	// OPTIONAL: If 0, uses gRPC default (4MB).
	// Recommended: 16MB or more for long daily series.
	MaxMessageSize int

	// Address is the server's public address (e.g., "localhost:50051").
	// OPTIONAL: If empty, FlightEndpoint locations will not include URI.
	Address string

	// Auth validates bearer tokens on every Flight call.
	// OPTIONAL: If nil, requests are not authenticated.
	Auth auth.Authenticator

	// Now returns the current time; the default start period is the
	// calendar year before it.
	// OPTIONAL: Uses time.Now if nil.
	Now func() time.Time
}

// ErrInvalidConfig indicates Config validation failed.
var ErrInvalidConfig = errors.New("invalid server config")

// withDefaults fills optional fields.
func (c Config) withDefaults() Config {
	if c.Registry == nil {
		c.Registry = registry.Default()
	}
	if c.Allocator == nil {
		c.Allocator = memory.DefaultAllocator
	}
	c.Logger = c.logger()
	if c.Client == nil {
		c.Client = client.NewREST(client.RESTOptions{Logger: c.Logger})
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// logger returns Logger, or a stderr text logger at LogLevel.
func (c Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	if c.LogLevel == nil {
		return slog.Default()
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: *c.LogLevel,
	}))
}

// validateConfig checks that Config fields are valid.
func validateConfig(c Config) error {
	if c.MaxMessageSize < 0 {
		return fmt.Errorf("max message size must not be negative")
	}
	if c.Registry != nil && len(c.Registry.Available()) == 0 {
		return fmt.Errorf("registry has no available providers")
	}
	return nil
}

func (c Config) catalogOptions() catalog.Options {
	return catalog.Options{
		Logger:    c.Logger,
		Allocator: c.Allocator,
		Now:       c.Now,
	}
}
