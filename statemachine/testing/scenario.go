// Package testing provides testing utilities for state machines: YAML
// scenarios, a step recorder and totality and determinism checks.
package testing

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"

	"github.com/amp-labs/usm/statemachine"
	"github.com/amp-labs/usm/statemachine/observe"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnexpectedState  = errors.New("unexpected state")
	ErrInvalidScenario  = errors.New("invalid scenario")
	ErrNondeterministic = errors.New("replicas diverged")
)

// Scriptable is a machine a scenario can drive.
type Scriptable[S comparable] interface {
	State() S
	Step() statemachine.Signal
	SetFlag(name string, value bool) error
}

// Factory creates a fresh machine in its initial state.
type Factory[S comparable] func() Scriptable[S]

// Scenario is a scripted run: flags to set before each step and the state
// expected after it.
type Scenario struct {
	Name    string         `yaml:"name"`
	Initial string         `yaml:"initial,omitempty"`
	Steps   []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one step of a scenario. An empty Expect accepts any state.
type ScenarioStep struct {
	Set    map[string]bool `yaml:"set,omitempty"`
	Expect string          `yaml:"expect,omitempty"`
}

// ParseScenarios decodes a YAML list of scenarios.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var scenarios []Scenario

	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}

	for i, sc := range scenarios {
		if sc.Name == "" {
			return nil, fmt.Errorf("%w: scenario %d has no name", ErrInvalidScenario, i)
		}

		if len(sc.Steps) == 0 {
			return nil, fmt.Errorf("%w: scenario %q has no steps", ErrInvalidScenario, sc.Name)
		}
	}

	return scenarios, nil
}

// LoadScenarios reads and decodes a scenario file from fsys.
func LoadScenarios(fsys fs.FS, path string) ([]Scenario, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading scenarios: %w", err)
	}

	scenarios, err := ParseScenarios(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return scenarios, nil
}

// Play runs a scenario against machine and returns the trace of state names,
// starting with the initial state. It stops at the first state that does not
// match the scenario.
func Play[S comparable](machine Scriptable[S], scenario Scenario) ([]string, error) {
	trace := []string{observe.Label(machine.State())}

	if scenario.Initial != "" && trace[0] != scenario.Initial {
		return trace, fmt.Errorf("%w: initial state is %s, want %s", ErrUnexpectedState, trace[0], scenario.Initial)
	}

	for i, step := range scenario.Steps {
		for _, name := range slices.Sorted(maps.Keys(step.Set)) {
			if err := machine.SetFlag(name, step.Set[name]); err != nil {
				return trace, fmt.Errorf("step %d: %w", i+1, err)
			}
		}

		machine.Step()

		got := observe.Label(machine.State())
		trace = append(trace, got)

		if step.Expect != "" && got != step.Expect {
			return trace, fmt.Errorf("%w: step %d: got %s, want %s", ErrUnexpectedState, i+1, got, step.Expect)
		}
	}

	return trace, nil
}
