package flight

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/catalog"
	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/table"
)

var (
	// ErrInvalidTicket is returned when a ticket cannot be decoded.
	ErrInvalidTicket = errors.New("invalid ticket")
	// ErrInvalidDescriptor is returned for descriptors that do not name a dataflow.
	ErrInvalidDescriptor = errors.New("invalid flight descriptor")
)

// errorCode maps catalog, client and table errors to gRPC codes.
func errorCode(err error) codes.Code {
	switch {
	case errors.Is(err, catalog.ErrInvalidCode),
		errors.Is(err, table.ErrShaping),
		errors.Is(err, ErrInvalidTicket),
		errors.Is(err, ErrInvalidDescriptor):
		return codes.InvalidArgument
	case errors.Is(err, catalog.ErrUnknownKey):
		return codes.NotFound
	case errors.Is(err, client.ErrRemoteMetadata),
		errors.Is(err, client.ErrRemoteData):
		return codes.Unavailable
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

// toStatus converts err into a gRPC status error.
// Errors that already carry a status are returned unchanged.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(errorCode(err), err.Error())
}
