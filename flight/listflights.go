package flight

import (
	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/internal/serialize"
)

// ListFlights returns catalog listings.
//
// Criteria selects the level:
//   - empty: the available providers (no remote call);
//   - a provider id: that provider's dataflows, listed on first access
//     and memoized.
//
// The response is a single FlightInfo whose ticket holds the listing
// serialized as Arrow IPC and compressed with ZStandard.
func (s *Server) ListFlights(criteria *flight.Criteria, stream flight.FlightService_ListFlightsServer) error {
	ctx := EnrichContextMetadata(stream.Context())
	provider := string(criteria.GetExpression())

	s.logger.Debug("ListFlights called", append(logAttrs(ctx), "provider", provider)...)

	var (
		data       []byte
		descriptor *flight.FlightDescriptor
		err        error
	)
	if provider == "" {
		data, err = serialize.SerializeProviders(s.sources.Providers(), s.allocator)
		descriptor = &flight.FlightDescriptor{
			Type: flight.DescriptorCMD,
			Cmd:  []byte(ActionListProviders),
		}
	} else {
		dataflows, lookupErr := s.sources.Get(ctx, provider)
		if lookupErr != nil {
			s.logger.Error("Failed to list dataflows", "provider", provider, "error", lookupErr)
			return toStatus(lookupErr)
		}
		data, err = serialize.SerializeDataflows(dataflows.Provider(), dataflows.Dataflows(), s.allocator)
		descriptor = &flight.FlightDescriptor{
			Type: flight.DescriptorPATH,
			Path: []string{dataflows.Provider()},
		}
	}
	if err != nil {
		s.logger.Error("Failed to serialize catalog", "error", err)
		return status.Errorf(codes.Internal, "failed to serialize catalog: %v", err)
	}

	compressed, err := serialize.CompressCatalog(data)
	if err != nil {
		s.logger.Error("Failed to compress catalog", "error", err)
		return status.Errorf(codes.Internal, "failed to compress catalog: %v", err)
	}

	s.logger.Debug("Catalog compressed",
		"uncompressed_bytes", len(data),
		"compressed_bytes", len(compressed),
	)

	flightInfo := &flight.FlightInfo{
		FlightDescriptor: descriptor,
		Endpoint: []*flight.FlightEndpoint{
			{
				Ticket: &flight.Ticket{
					Ticket: compressed,
				},
			},
		},
		TotalRecords: -1,
		TotalBytes:   int64(len(compressed)),
	}

	if err := stream.Send(flightInfo); err != nil {
		s.logger.Error("Failed to send FlightInfo", "error", err)
		return status.Errorf(codes.Internal, "failed to send flight info: %v", err)
	}

	return nil
}
