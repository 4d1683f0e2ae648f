package statemachine

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Signal is the outcome a state's work reports to the engine.
type Signal uint8

const (
	// Next proceeds to whatever state the chooser maps Next to.
	Next Signal = iota + 1
	// Next2 is the second-branch proceed signal. It lets one state fan out
	// to two successors without its work knowing the graph.
	Next2
	// Repeat holds the machine. Holding states map it back to themselves.
	Repeat
	// Error reports that the state's work did not complete as expected.
	// It is routed by the chooser like any other signal.
	Error
)

// Signals lists every valid signal in declaration order.
var Signals = []Signal{Next, Next2, Repeat, Error} //nolint:gochecknoglobals

var signalNames = map[Signal]string{ //nolint:gochecknoglobals
	Next:   "NEXT",
	Next2:  "NEXT2",
	Repeat: "REPEAT",
	Error:  "ERROR",
}

func (s Signal) String() string {
	name, ok := signalNames[s]
	if !ok {
		return fmt.Sprintf("Signal(%d)", uint8(s))
	}

	return name
}

// IsValid reports whether s is one of the four engine signals.
func (s Signal) IsValid() bool {
	_, ok := signalNames[s]

	return ok
}

// ParseSignal parses a signal name such as "NEXT" or "error".
func ParseSignal(name string) (Signal, error) {
	want := strings.ToUpper(strings.TrimSpace(name))

	for sig, n := range signalNames {
		if n == want {
			return sig, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidSignal, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s Signal) MarshalText() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSignal, uint8(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signal) UnmarshalText(text []byte) error {
	sig, err := ParseSignal(string(text))
	if err != nil {
		return err
	}

	*s = sig

	return nil
}

// UnmarshalYAML lets scripts spell signals by name.
func (s *Signal) UnmarshalYAML(node *yaml.Node) error {
	var name string

	if err := node.Decode(&name); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}

	return s.UnmarshalText([]byte(name))
}

// MarshalYAML writes the signal name.
func (s Signal) MarshalYAML() (any, error) {
	text, err := s.MarshalText()
	if err != nil {
		return nil, err
	}

	return string(text), nil
}

// Runner supplies the consumer side of a machine: the work done in each
// state and the rule choosing the next state.
type Runner[S comparable] interface {
	// RunState performs the work of the given state and reports how it went.
	RunState(state S) Signal
	// ChooseNext maps the current state and the reported signal to the next
	// state. It must be total over every signal RunState can produce.
	ChooseNext(state S, signal Signal) S
}

// RunFunc performs a state's work.
type RunFunc[S comparable] func(state S) Signal

// ChooseFunc is a chooser written as code.
type ChooseFunc[S comparable] func(state S, signal Signal) S

type funcRunner[S comparable] struct {
	run    RunFunc[S]
	choose ChooseFunc[S]
}

func (f funcRunner[S]) RunState(state S) Signal {
	return f.run(state)
}

func (f funcRunner[S]) ChooseNext(state S, signal Signal) S {
	return f.choose(state, signal)
}

// Funcs adapts a work function and a chooser into a Runner.
func Funcs[S comparable](run RunFunc[S], choose ChooseFunc[S]) Runner[S] { //nolint:ireturn
	return funcRunner[S]{run: run, choose: choose}
}
