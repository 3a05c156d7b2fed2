// Package zapadapter ties go.uber.org/zap loggers to operation ids carried in a context.
package zapadapter

import (
	"context"
	"github.com/rs/xid"
	"go.uber.org/zap"
)

type key string

var idKey key

// Logger decorates a zap.SugaredLogger with the operation id found in a context
type Logger struct {
	logger *zap.SugaredLogger
}

// NewContextWithID returns a copy of ctx carrying provided operation id
func NewContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey, id)
}

// NewOperation returns a copy of ctx carrying a freshly generated operation id
func NewOperation(ctx context.Context) context.Context {
	return NewContextWithID(ctx, xid.New().String())
}

func IDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey).(string)
	return id, ok
}

func NewLogger(logger *zap.SugaredLogger) *Logger {
	return &Logger{logger: logger}
}

// For returns the wrapped logger with an "op_id" field if ctx carries an operation id
func (l *Logger) For(ctx context.Context) *zap.SugaredLogger {
	id, ok := IDFromContext(ctx)
	if !ok {
		return l.logger
	}

	return l.logger.With(zap.String("op_id", id))
}

// Sugared returns the wrapped logger
func (l *Logger) Sugared() *zap.SugaredLogger {
	return l.logger
}
