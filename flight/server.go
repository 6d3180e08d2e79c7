// Package flight provides Flight RPC handler implementations.
package flight

import (
	"log/slog"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"google.golang.org/grpc"

	"github.com/hugr-lab/sdmx-go/catalog"
)

// Server implements the Flight service handlers over a source catalog.
// Embeds BaseFlightServer for forward compatibility with protocol changes.
type Server struct {
	flight.BaseFlightServer

	sources   *catalog.SourceCatalog
	allocator memory.Allocator
	logger    *slog.Logger
	address   string // Server's public address for FlightEndpoint locations
}

// NewServer creates a new Flight server browsing the given source catalog.
// The address parameter specifies the server's public address for
// FlightEndpoint locations; empty means clients reuse their connection.
func NewServer(sources *catalog.SourceCatalog, allocator memory.Allocator, logger *slog.Logger, address string) *Server {
	if allocator == nil {
		allocator = memory.DefaultAllocator
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sources:   sources,
		allocator: allocator,
		logger:    logger,
		address:   address,
	}
}

// RegisterFlightServer registers the Flight service on the provided gRPC server.
func RegisterFlightServer(grpcServer *grpc.Server, flightServer *Server) {
	flight.RegisterFlightServiceServer(grpcServer, flightServer)
}

// endpoint returns a single endpoint for the ticket, located at the
// server's public address when one is configured.
func (s *Server) endpoint(ticket []byte) []*flight.FlightEndpoint {
	ep := &flight.FlightEndpoint{
		Ticket: &flight.Ticket{Ticket: ticket},
	}
	if s.address != "" {
		ep.Location = []*flight.Location{{Uri: "grpc://" + s.address}}
	}
	return []*flight.FlightEndpoint{ep}
}
