// Package logger configures log/slog for the module's binaries and hands out
// loggers that carry the subsystem and any values stored in the context.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/amp-labs/usm/envutil"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Default subsystem name, set by ConfigureLogging.
var subsystem atomic.Value //nolint:gochecknoglobals

// configMutex serializes ConfigureLoggingWithOptions, which replaces global state.
var configMutex sync.Mutex //nolint:gochecknoglobals

type contextKey string

// ErrInvalidLogOutput is returned when an invalid log output destination is specified.
var ErrInvalidLogOutput = errors.New("invalid log output")

// Options is used to configure logging.
type Options struct {
	Subsystem   string
	JSON        bool
	MinLevel    slog.Level
	LegacyLevel slog.Level
	Output      io.Writer

	// OTel sends records to the global OpenTelemetry logger provider instead
	// of Output. Set it up first with telemetry.Initialize.
	OTel bool
}

// Option is a functional option for configuring logging via ConfigureLogging.
type Option func(*Options)

// WithOutput overrides the output writer.
func WithOutput(w io.Writer) Option {
	return func(o *Options) {
		o.Output = w
	}
}

// ConfigureLoggingWithOptions configures logging for the application and
// returns the new default logger.
func ConfigureLoggingWithOptions(opts Options) *slog.Logger {
	configMutex.Lock()
	defer configMutex.Unlock()

	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	var handler slog.Handler

	switch {
	case opts.OTel:
		handler = otelslog.NewHandler(opts.Subsystem)
	case opts.JSON:
		handler = slog.NewJSONHandler(opts.Output, &slog.HandlerOptions{
			Level: opts.MinLevel,
		})
	default:
		handler = slog.NewTextHandler(opts.Output, &slog.HandlerOptions{
			Level: opts.MinLevel,
		})
	}

	logger := slog.New(&errorAttrHandler{inner: handler})

	slog.SetDefault(logger)

	// Third-party packages writing through the log package end up in slog too.
	def := log.Default()
	*def = *slog.NewLogLogger(logger.Handler(), opts.LegacyLevel)

	subsystem.Store(opts.Subsystem)

	return logger
}

// ConfigureLogging configures logging from LOG_JSON, LOG_LEVEL,
// LEGACY_LOG_LEVEL, LOG_OUTPUT and LOG_OTEL.
func ConfigureLogging(ctx context.Context, app string, opts ...Option) *slog.Logger {
	output := envutil.Map(envutil.String(ctx, "LOG_OUTPUT"), func(outName string) (io.Writer, error) {
		switch outName {
		case "stdout":
			return os.Stdout, nil
		case "stderr":
			return os.Stderr, nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrInvalidLogOutput, outName)
		}
	}).WithDefault(os.Stdout).ValueOrFatal()

	options := Options{
		Subsystem:   app,
		JSON:        envutil.Bool(ctx, "LOG_JSON", envutil.Default(false)).ValueOrFatal(),
		MinLevel:    envutil.SlogLevel(ctx, "LOG_LEVEL", envutil.Default(slog.LevelInfo)).ValueOrFatal(),
		LegacyLevel: envutil.SlogLevel(ctx, "LEGACY_LOG_LEVEL", envutil.Default(slog.LevelInfo)).ValueOrFatal(),
		Output:      output,
		OTel:        envutil.Bool(ctx, "LOG_OTEL", envutil.Default(false)).ValueOrFatal(),
	}

	for _, o := range opts {
		o(&options)
	}

	return ConfigureLoggingWithOptions(options)
}

// WithSubsystem overrides the subsystem for loggers obtained from ctx.
func WithSubsystem(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("subsystem"), name)
}

// GetSubsystem returns the subsystem from the context, falling back to the
// one set by ConfigureLogging.
func GetSubsystem(ctx context.Context) string {
	if ctx != nil {
		if val, ok := ctx.Value(contextKey("subsystem")).(string); ok {
			return val
		}
	}

	if val, ok := subsystem.Load().(string); ok {
		return val
	}

	return ""
}

// WithMuted suppresses all output from loggers obtained from ctx.
func WithMuted(ctx context.Context, muted bool) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("mute"), muted)
}

func isMuted(ctx context.Context) bool {
	if ctx == nil {
		return false
	}

	muted, ok := ctx.Value(contextKey("mute")).(bool)

	return ok && muted
}

// With returns a context whose loggers include the given key-value pairs.
func With(ctx context.Context, values ...any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	if len(values) == 0 {
		return ctx
	}

	vals := append(getValues(ctx), values...)

	return context.WithValue(ctx, contextKey("loggerValues"), vals)
}

func getValues(ctx context.Context) []any {
	vals, _ := ctx.Value(contextKey("loggerValues")).([]any)

	// Copy so appending in With never aliases a parent context's slice.
	return append([]any(nil), vals...)
}

// WithLogger makes loggers obtained from ctx build on base instead of the
// slog default.
func WithLogger(ctx context.Context, base *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}

	return context.WithValue(ctx, contextKey("base"), base)
}

// Get returns the default logger decorated with the subsystem and the values
// stored in the context. A muted context yields a logger that discards.
func Get(ctx ...context.Context) *slog.Logger {
	realCtx := context.Background()

	for _, c := range ctx {
		if c != nil {
			realCtx = c

			break
		}
	}

	if isMuted(realCtx) {
		return nullLogger
	}

	logger, ok := realCtx.Value(contextKey("base")).(*slog.Logger)
	if !ok || logger == nil {
		logger = slog.Default()
	}

	if sub := GetSubsystem(realCtx); sub != "" {
		logger = logger.With("subsystem", sub)
	}

	if vals := getValues(realCtx); len(vals) > 0 {
		logger = logger.With(vals...)
	}

	return logger
}

// nullHandler discards everything.
type nullHandler struct{}

func (n *nullHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return false
}

func (n *nullHandler) Handle(_ context.Context, _ slog.Record) error {
	return nil
}

func (n *nullHandler) WithAttrs(_ []slog.Attr) slog.Handler {
	return n
}

func (n *nullHandler) WithGroup(_ string) slog.Handler {
	return n
}

var nullLogger = slog.New(&nullHandler{}) //nolint:gochecknoglobals
