package logger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type runKey struct{}

// runFields are the key/value pairs every log line of a run carries.
type runFields []string

// StartRun attaches a fresh run id plus the given key/value pairs to ctx.
func StartRun(ctx context.Context, kv ...string) context.Context {
	fields := append(runFields{"run", uuid.NewString()}, kv...)
	return context.WithValue(ctx, runKey{}, fields)
}

// AddRunField returns a ctx whose run also carries key=value.
func AddRunField(ctx context.Context, key, value string) context.Context {
	fields, _ := ctx.Value(runKey{}).(runFields)
	next := make(runFields, 0, len(fields)+2)
	next = append(next, fields...)
	next = append(next, key, value)
	return context.WithValue(ctx, runKey{}, next)
}

// RunID returns the id of the run in ctx, or "" outside a run.
func RunID(ctx context.Context) string {
	fields, _ := ctx.Value(runKey{}).(runFields)
	if len(fields) < 2 {
		return ""
	}
	return fields[1]
}

// ForRun returns l tagged with the fields of the run in ctx.
func ForRun(ctx context.Context, l zerolog.Logger) zerolog.Logger {
	fields, _ := ctx.Value(runKey{}).(runFields)
	if len(fields) == 0 {
		return l
	}
	zc := l.With()
	for i := 0; i+1 < len(fields); i += 2 {
		zc = zc.Str(fields[i], fields[i+1])
	}
	return zc.Logger()
}
