package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	return FromContextOr(ctx, zap.NewNop())
}

// FromContextOr extracts a logger from the context, or returns fallback.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return fallback
}

// WithCollection returns ctx whose logger (or fallback, when ctx has none)
// is tagged with the collection name.
func WithCollection(ctx context.Context, fallback *zap.Logger, name string) context.Context {
	l := FromContextOr(ctx, fallback).With(zap.String("collection", name))
	return ContextWithLogger(ctx, l)
}
