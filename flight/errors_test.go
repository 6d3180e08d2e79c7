package flight

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/catalog"
	"github.com/hugr-lab/sdmx-go/client"
	"github.com/hugr-lab/sdmx-go/table"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"invalid code", &catalog.InvalidCodeError{Parameter: "CURRENCY", Invalid: []string{"XX"}}, codes.InvalidArgument},
		{"shaping", fmt.Errorf("%w: dtype", table.ErrShaping), codes.InvalidArgument},
		{"ticket", ErrInvalidTicket, codes.InvalidArgument},
		{"unknown key", fmt.Errorf("provider X: %w", catalog.ErrUnknownKey), codes.NotFound},
		{"remote metadata", fmt.Errorf("%w: HTTP 500", client.ErrRemoteMetadata), codes.Unavailable},
		{"remote data", client.ErrRemoteData, codes.Unavailable},
		{"cancelled", context.Canceled, codes.Canceled},
		{"other", errors.New("boom"), codes.Internal},
		{"status", status.Error(codes.PermissionDenied, "no"), codes.PermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(toStatus(tt.err)); got != tt.want {
				t.Errorf("toStatus() code = %v, want %v", got, tt.want)
			}
		})
	}

	if toStatus(nil) != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestEnrichContextMetadata(t *testing.T) {
	md := metadata.Pairs(HeaderTraceID, "trace-1", HeaderSessionID, "session-1")
	ctx := EnrichContextMetadata(metadata.NewIncomingContext(context.Background(), md))

	if got := TraceIDFromContext(ctx); got != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", got)
	}
	if got := SessionIDFromContext(ctx); got != "session-1" {
		t.Errorf("SessionID = %q, want session-1", got)
	}
	if again := EnrichContextMetadata(ctx); again != ctx {
		t.Error("Expected an enriched context to be returned unchanged")
	}

	attrs := logAttrs(ctx)
	if len(attrs) != 4 || attrs[1] != "trace-1" || attrs[3] != "session-1" {
		t.Errorf("Unexpected log attrs %v", attrs)
	}

	bare := EnrichContextMetadata(context.Background())
	if MetaFromContext(bare) != nil || logAttrs(bare) != nil {
		t.Error("Expected no metadata without incoming headers")
	}
}
