package grpccas

import (
	"context"
	"path"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnaryLogger logs each CAS call with its status code and latency. Misses
// (NotFound) and successes log at debug; everything else at warn.
func UnaryLogger(log *zap.Logger) grpc.UnaryServerInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", path.Base(info.FullMethod)),
			zap.String("code", code.String()),
			zap.Duration("elapsed", time.Since(start)),
		}
		switch code {
		case codes.OK, codes.NotFound:
			log.Debug("cas call", fields...)
		default:
			log.Warn("cas call failed", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
