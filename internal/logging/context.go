package logging

import (
	"context"
	"log/slog"
)

const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldTitleID   = "imdb_id"
	FieldSeason    = "season"
	FieldEpisode   = "episode"
	FieldRow       = "row"
	FieldStage     = "stage"
)

type loggerKey struct{}

type requestIDKey struct{}

// WithLogger 把请求级 logger 放进 ctx。
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext 取出 ctx 中的 logger；没有则返回 fallback（fallback 为 nil 时返回 no-op）。
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	if fallback != nil {
		return fallback
	}
	return NewNop()
}

// WithRequestID 记录请求关联 ID；同时把它挂到 ctx 中 logger 的属性上。
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		ctx = WithLogger(ctx, l.With(slog.String(FieldRequestID, id)))
	}
	return ctx
}

// RequestIDFromContext 取出请求关联 ID。
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}
