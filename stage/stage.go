// Package stage determines the deployment environment the program runs in
// from the USM_ENV environment variable.
package stage

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"github.com/amp-labs/usm/envutil"
	"github.com/amp-labs/usm/logger"
)

// Stage represents a deployment environment.
type Stage string

// ErrUnrecognizedStage is returned when USM_ENV holds an unknown value.
var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Unknown Stage = "unknown"
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// EnvVar names the variable stages are read from.
const EnvVar = "USM_ENV"

// Parse converts a stage name, ignoring case and surrounding space.
func Parse(value string) (Stage, error) {
	switch s := Stage(strings.ToLower(strings.TrimSpace(value))); s {
	case Local, Test, Dev, Staging, Prod:
		return s, nil
	case Unknown:
		fallthrough
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnrecognizedStage, value)
	}
}

// FromEnv returns the configured stage. When USM_ENV is unset it is Test
// under `go test` and Local otherwise; an invalid value yields Unknown.
func FromEnv(ctx context.Context) Stage {
	fallback := Local

	// The test.v flag only exists in test binaries.
	if flag.Lookup("test.v") != nil {
		fallback = Test
	}

	value, err := envutil.Map(envutil.String(ctx, EnvVar), Parse).Value()

	switch {
	case err == nil:
		return value
	case errors.Is(err, envutil.ErrEnvVarMissing):
		return fallback
	default:
		logger.Get(ctx).Warn("Unknown stage", "error", err)

		return Unknown
	}
}

func (s Stage) String() string {
	return string(s)
}
