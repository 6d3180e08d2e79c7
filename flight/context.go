package flight

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/hugr-lab/sdmx-go/auth"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey int

const (
	sdmxParamsKey contextKey = iota
)

// Metadata header keys for observability.
const (
	// HeaderTraceID is the gRPC metadata header for distributed trace identifier.
	HeaderTraceID = "sdmx-trace-id"
	// HeaderSessionID is the gRPC metadata header for client session identifier.
	HeaderSessionID = "sdmx-client-session-id"
)

type ContextMeta struct {
	TraceID   string
	SessionID string
}

func WithContextMeta(ctx context.Context, meta ContextMeta) context.Context {
	return context.WithValue(ctx, sdmxParamsKey, &meta)
}

func MetaFromContext(ctx context.Context) *ContextMeta {
	val := ctx.Value(sdmxParamsKey)
	if val == nil {
		return nil
	}
	params, ok := val.(*ContextMeta)
	if !ok {
		return nil
	}
	return params
}

// TraceIDFromContext returns the trace ID from context, or empty string if not set.
func TraceIDFromContext(ctx context.Context) string {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta.TraceID
}

// SessionIDFromContext returns the session ID from context, or empty string if not set.
func SessionIDFromContext(ctx context.Context) string {
	meta := MetaFromContext(ctx)
	if meta == nil {
		return ""
	}
	return meta.SessionID
}

// EnrichContextMetadata extracts metadata from gRPC context and
// returns a new context with the metadata stored.
// If the context is already enriched, it is returned unchanged.
func EnrichContextMetadata(ctx context.Context) context.Context {
	if MetaFromContext(ctx) != nil {
		// Already enriched
		return ctx
	}
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}

	var meta ContextMeta
	if values := md.Get(HeaderTraceID); len(values) > 0 {
		meta.TraceID = values[0]
	}
	if values := md.Get(HeaderSessionID); len(values) > 0 {
		meta.SessionID = values[0]
	}

	return WithContextMeta(ctx, meta)
}

// logAttrs returns the request identifiers and the authenticated identity
// as slog key/value pairs.
func logAttrs(ctx context.Context) []any {
	var attrs []any
	if meta := MetaFromContext(ctx); meta != nil {
		if meta.TraceID != "" {
			attrs = append(attrs, "trace_id", meta.TraceID)
		}
		if meta.SessionID != "" {
			attrs = append(attrs, "session_id", meta.SessionID)
		}
	}
	if identity := auth.IdentityFromContext(ctx); identity != "" {
		attrs = append(attrs, "identity", identity)
	}
	return attrs
}
