// Package envutil reads typed configuration values from environment
// variables, with defaults, validation and per-context overrides.
package envutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidLogLevel is returned when a log level name is not recognized.
var ErrInvalidLogLevel = errors.New("invalid log level")

type envContextKey string

// WithEnvOverride returns a context in which reads of key see value instead
// of the process environment. Tests use it to avoid mutating os.Environ.
func WithEnvOverride(ctx context.Context, key string, value string) context.Context {
	return context.WithValue(ctx, envContextKey(key), value)
}

func getEnvOverride(ctx context.Context, key string) (string, bool) {
	if ctx == nil {
		return "", false
	}

	val, ok := ctx.Value(envContextKey(key)).(string)

	return val, ok
}

// get returns a Reader for the given environment variable key.
func get(ctx context.Context, key string) Reader[string] {
	val, ok := getEnvOverride(ctx, key)
	if !ok {
		val, ok = os.LookupEnv(key)
	}

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		rdr = opt(rdr)
	}

	return rdr
}

// String returns a Reader for the given environment variable key.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	return apply(get(ctx, key), opts)
}

// Bool reads a boolean in any form strconv.ParseBool accepts.
func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(ctx, key), strconv.ParseBool), opts)
}

// Int reads a base-10 integer.
func Int(ctx context.Context, key string, opts ...Option[int]) Reader[int] {
	return apply(Map(get(ctx, key), strconv.Atoi), opts)
}

// Duration reads a value such as "5s" or "250ms".
func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(ctx, key), time.ParseDuration), opts)
}

// SlogLevel reads one of debug, info, warn or error.
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(ctx, key), parseSlogLevel), opts)
}

func parseSlogLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, value)
	}
}
