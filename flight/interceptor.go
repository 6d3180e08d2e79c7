package flight

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/hugr-lab/sdmx-go/auth"
	"github.com/hugr-lab/sdmx-go/internal/recovery"
)

// UnaryServerInterceptor creates a gRPC unary interceptor that attaches
// request metadata to the context, recovers handler panics and logs
// every call.
func UnaryServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx = auth.TrackIdentity(EnrichContextMetadata(ctx))
		start := time.Now()

		var resp any
		err := recovery.RecoverToError(logger, info.FullMethod, func() error {
			var err error
			resp, err = handler(ctx, req)
			return err
		})
		logCall(ctx, logger, info.FullMethod, start, err)
		return resp, err
	}
}

// StreamServerInterceptor creates a gRPC stream interceptor that attaches
// request metadata to the stream context, recovers handler panics and
// logs every call.
func StreamServerInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx := auth.TrackIdentity(EnrichContextMetadata(ss.Context()))
		wrappedStream := &wrappedServerStream{
			ServerStream: ss,
			ctx:          ctx,
		}
		start := time.Now()

		err := recovery.RecoverToError(logger, info.FullMethod, func() error {
			return handler(srv, wrappedStream)
		})
		logCall(ctx, logger, info.FullMethod, start, err)
		return err
	}
}

func logCall(ctx context.Context, logger *slog.Logger, method string, start time.Time, err error) {
	attrs := append(logAttrs(ctx),
		"method", method,
		"code", status.Code(err).String(),
		"duration", time.Since(start),
	)
	if err != nil {
		logger.Info("RPC failed", append(attrs, "error", err)...)
		return
	}
	logger.Debug("RPC completed", attrs...)
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapper's custom context.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
