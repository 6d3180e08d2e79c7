package flight

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/internal/recovery"
)

// DoGet streams the result of a dataflow read.
//
// The ticket must be encoded using EncodeTicket. The handler:
//  1. Decodes the ticket to get provider, dataflow and parameters
//  2. Looks up the dataset and binds the parameters again
//  3. Fetches and converts the data
//  4. Streams the record batch using Arrow IPC format
func (s *Server) DoGet(ticket *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	ctx := EnrichContextMetadata(stream.Context())

	ticketData, err := DecodeTicket(ticket.GetTicket())
	if err != nil {
		s.logger.Error("Failed to decode ticket", "error", err)
		return toStatus(err)
	}

	s.logger.Debug("DoGet request",
		append(logAttrs(ctx),
			"provider", ticketData.Provider,
			"dataflow", ticketData.Dataflow,
		)...,
	)

	entry, err := s.bind(ctx, ticketData)
	if err != nil {
		return err
	}

	start := time.Now()
	record, err := recovery.RecoverToValue(s.logger, "Read", func() (arrow.RecordBatch, error) {
		return entry.Read(ctx)
	})
	if err != nil {
		s.logger.Error("Failed to read dataset",
			"provider", ticketData.Provider,
			"dataflow", ticketData.Dataflow,
			"error", err,
		)
		return toStatus(err)
	}
	defer record.Release()

	if err := ctx.Err(); err != nil {
		s.logger.Debug("DoGet cancelled by client",
			"provider", ticketData.Provider,
			"dataflow", ticketData.Dataflow,
		)
		return status.Error(codes.Canceled, "request cancelled")
	}

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(record.Schema()))
	defer writer.Close()

	if err := writer.Write(record); err != nil {
		s.logger.Error("Failed to write record batch",
			"provider", ticketData.Provider,
			"dataflow", ticketData.Dataflow,
			"error", err,
		)
		return status.Errorf(codes.Internal, "failed to write batch: %v", err)
	}

	s.logger.Debug("DoGet completed successfully",
		"provider", ticketData.Provider,
		"dataflow", ticketData.Dataflow,
		"rows", record.NumRows(),
		"duration", time.Since(start),
	)

	return nil
}
