package util

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogFromContext returns a request-scoped logger stored in the context or the global logger.
func LogFromContext(ctx context.Context) *zerolog.Logger {
	l := log.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &log.Logger
	}
	return l
}

// ContextWithLogger attaches the given fields to a child logger stored in the returned context.
func ContextWithLogger(ctx context.Context, fields map[string]interface{}) context.Context {
	l := LogFromContext(ctx).With().Fields(fields).Logger()
	return l.WithContext(ctx)
}
