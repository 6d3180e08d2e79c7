package flight

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/sdmx-go/auth"
)

func TestInterceptorLogsIdentity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	outer := UnaryServerInterceptor(logger)
	inner := auth.UnaryServerInterceptor(auth.StaticTokens(map[string]string{"secret": "svc"}))
	info := &grpc.UnaryServerInfo{FullMethod: "/arrow.flight.protocol.FlightService/DoAction"}

	call := func(ctx context.Context) error {
		_, err := outer(ctx, nil, info, func(ctx context.Context, req any) (any, error) {
			return inner(ctx, req, info, func(ctx context.Context, req any) (any, error) {
				return "ok", nil
			})
		})
		return err
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"authorization", "Bearer secret",
		HeaderTraceID, "trace-1",
	))
	if err := call(ctx); err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "identity=svc") || !strings.Contains(out, "trace_id=trace-1") {
		t.Errorf("Expected identity and trace id in call log, got:\n%s", out)
	}

	buf.Reset()
	if err := call(context.Background()); err == nil {
		t.Fatal("Expected unauthenticated call to fail")
	}
	out = buf.String()
	if !strings.Contains(out, "RPC failed") || !strings.Contains(out, "code=Unauthenticated") {
		t.Errorf("Expected rejected call to be logged, got:\n%s", out)
	}
}
