package logger

import (
	"context"

	"go.uber.org/zap"
)

var Log *zap.Logger

type ctxKey struct{}

func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// WithRequestID stores a request id in the context for later log correlation.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext attaches the request id (if any) to the logger.
func FromContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return logger.With(zap.String("request_id", id))
	}
	return logger
}
