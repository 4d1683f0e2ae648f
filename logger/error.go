package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError wraps an error with slog key-value pairs. When the error is
// logged through a logger set up by this package, the pairs are added to the
// record next to the error. Returns nil if err is nil.
//
//	return logger.AnnotateError(err, "scenario", name, "step", i)
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	var attrs []slog.Attr

	r.Attrs(func(attr slog.Attr) bool {
		attrs = append(attrs, attr)

		return true
	})

	return &annotatedError{
		err:   err,
		attrs: attrs,
	}
}

type annotatedError struct {
	err   error
	attrs []slog.Attr
}

func (a *annotatedError) Error() string {
	return a.err.Error()
}

func (a *annotatedError) Unwrap() error {
	return a.err
}

// errorAttrHandler expands annotated errors into their attributes.
type errorAttrHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*errorAttrHandler)(nil)

func (h *errorAttrHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *errorAttrHandler) Handle(ctx context.Context, record slog.Record) error {
	var (
		baseAttrs []slog.Attr
		errAttrs  []slog.Attr
	)

	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			var annotated *annotatedError

			// The error itself is logged as-is so outer wrapping survives.
			if errors.As(err, &annotated) {
				errAttrs = append(errAttrs, annotated.attrs...)
			}
		}

		baseAttrs = append(baseAttrs, attr)

		return true
	})

	if len(errAttrs) == 0 {
		return h.inner.Handle(ctx, record)
	}

	r := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	r.AddAttrs(baseAttrs...)
	r.AddAttrs(errAttrs...)

	return h.inner.Handle(ctx, r)
}

func (h *errorAttrHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &errorAttrHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *errorAttrHandler) WithGroup(name string) slog.Handler {
	return &errorAttrHandler{inner: h.inner.WithGroup(name)}
}
