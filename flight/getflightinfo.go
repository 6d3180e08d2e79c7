package flight

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/catalog"
)

// GetFlightInfo binds parameters to a dataflow and returns the ticket that
// reads it.
//
// The descriptor is either:
//   - PATH [provider, dataflow]: default parameter values;
//   - CMD: msgpack {provider, dataflow, params} (see TicketData).
//
// Returns FlightInfo with:
//   - Schema: the Arrow schema of the result, omitted for wide layouts
//     whose columns depend on the data
//   - Ticket: msgpack TicketData carrying every bound value
func (s *Server) GetFlightInfo(ctx context.Context, desc *flight.FlightDescriptor) (*flight.FlightInfo, error) {
	ctx = EnrichContextMetadata(ctx)

	req, err := decodeDescriptor(desc)
	if err != nil {
		return nil, toStatus(err)
	}

	s.logger.Debug("GetFlightInfo request",
		append(logAttrs(ctx),
			"provider", req.Provider,
			"dataflow", req.Dataflow,
			"params", len(req.Params),
		)...,
	)

	entry, err := s.bind(ctx, req)
	if err != nil {
		return nil, err
	}

	arrowSchema, err := entry.ArrowSchema()
	if err != nil {
		return nil, toStatus(err)
	}

	ticket, err := EncodeTicket(req.Provider, entry.Dataflow().ID, entry.Values())
	if err != nil {
		s.logger.Error("Failed to encode ticket",
			"provider", req.Provider,
			"dataflow", req.Dataflow,
			"error", err,
		)
		return nil, status.Errorf(codes.Internal, "failed to encode ticket: %v", err)
	}

	flightInfo := &flight.FlightInfo{
		FlightDescriptor: desc,
		Endpoint:         s.endpoint(ticket),
		TotalRecords:     -1, // Unknown until read
		TotalBytes:       -1,
	}
	if arrowSchema != nil {
		flightInfo.Schema = flight.SerializeSchema(arrowSchema, s.allocator)
	}

	return flightInfo, nil
}

// decodeDescriptor turns a PATH or CMD descriptor into a bind request.
func decodeDescriptor(desc *flight.FlightDescriptor) (*TicketData, error) {
	switch desc.GetType() {
	case flight.DescriptorPATH:
		path := desc.GetPath()
		if len(path) != 2 {
			return nil, fmt.Errorf("%w: path must contain exactly 2 elements: [provider, dataflow]", ErrInvalidDescriptor)
		}
		return &TicketData{Provider: path[0], Dataflow: path[1]}, nil
	case flight.DescriptorCMD:
		req, err := DecodeTicket(desc.GetCmd())
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
		}
		return req, nil
	default:
		return nil, fmt.Errorf("%w: unsupported descriptor type %v", ErrInvalidDescriptor, desc.GetType())
	}
}

// bind looks up the dataset of req and applies its parameters.
// Errors are returned as gRPC status errors.
func (s *Server) bind(ctx context.Context, req *TicketData) (*catalog.DatasetEntry, error) {
	entry, err := s.sources.Dataset(ctx, req.Provider, req.Dataflow)
	if err != nil {
		s.logger.Error("Failed to look up dataset",
			"provider", req.Provider,
			"dataflow", req.Dataflow,
			"error", err,
		)
		return nil, toStatus(err)
	}
	if len(req.Params) == 0 {
		return entry, nil
	}

	bound, err := entry.Bind(req.Params)
	if err != nil {
		return nil, toStatus(err)
	}
	return bound, nil
}
