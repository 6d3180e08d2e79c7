package sdmx

import (
	"fmt"

	"google.golang.org/grpc"

	"github.com/hugr-lab/sdmx-go/auth"
	"github.com/hugr-lab/sdmx-go/catalog"
	"github.com/hugr-lab/sdmx-go/flight"
)

// Open validates config and returns the root of the catalog tree for
// library use. No remote call is made.
func Open(config Config) (*catalog.SourceCatalog, error) {
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	config = config.withDefaults()
	return catalog.NewSourceCatalog(config.Registry, config.Client, config.catalogOptions()), nil
}

// NewServer registers SDMX Flight service handlers on the provided gRPC server.
//
// The function:
//  1. Validates the Config
//  2. Builds the source catalog
//  3. Registers the Flight service on grpcServer
//
// Does NOT start the gRPC server - user controls lifecycle via grpcServer.Serve().
//
// Example:
//
//	config := sdmx.Config{Address: "localhost:50051"}
//	grpcServer := grpc.NewServer(sdmx.ServerOptions(config)...)
//	if err := sdmx.NewServer(grpcServer, config); err != nil {
//	    log.Fatal(err)
//	}
//	lis, _ := net.Listen("tcp", ":50051")
//	grpcServer.Serve(lis)
func NewServer(grpcServer *grpc.Server, config Config) error {
	if err := validateConfig(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	config = config.withDefaults()

	sources := catalog.NewSourceCatalog(config.Registry, config.Client, config.catalogOptions())
	flightServer := flight.NewServer(sources, config.Allocator, config.Logger, config.Address)
	flight.RegisterFlightServer(grpcServer, flightServer)

	config.Logger.Info("SDMX Flight server registered",
		"providers", len(sources.Keys()),
		"address", config.Address,
		"max_message_size", config.MaxMessageSize,
		"auth", config.Auth != nil,
	)

	return nil
}

// ServerOptions returns gRPC server options with the metadata, logging and
// panic recovery interceptors, the authentication interceptor when
// config.Auth is set and the configured message size limits.
//
// Example:
//
//	opts := sdmx.ServerOptions(config)
//	grpcServer := grpc.NewServer(opts...)
//	sdmx.NewServer(grpcServer, config)
func ServerOptions(config Config) []grpc.ServerOption {
	logger := config.logger()

	// Logging wraps auth so rejected calls are logged with their code.
	opts := []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			flight.UnaryServerInterceptor(logger),
			auth.UnaryServerInterceptor(config.Auth),
		),
		grpc.ChainStreamInterceptor(
			flight.StreamServerInterceptor(logger),
			auth.StreamServerInterceptor(config.Auth),
		),
	}

	if config.MaxMessageSize > 0 {
		opts = append(opts,
			grpc.MaxRecvMsgSize(config.MaxMessageSize),
			grpc.MaxSendMsgSize(config.MaxMessageSize),
		)
	}

	return opts
}
