// Package branching is a small reference machine built on the statemachine
// engine. It has two branches that meet at End, an error shortcut from
// PathA1 into the B branch, and a Cleanup state collecting every other
// unexpected outcome.
//
//	Start --NEXT--> PathA1 --NEXT--> PathA2 --NEXT--> End (holds on REPEAT)
//	Start --NEXT2-> PathB1 --NEXT--> PathB2 --NEXT--> PathB3 --NEXT--> End
//	PathA1 --ERROR--> PathB3
//	anything else --> Cleanup --NEXT--> End
package branching

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/usm/statemachine"
)

// State enumerates the reference machine's states.
type State int

const (
	Start State = iota
	PathA1
	PathA2
	End
	PathB1
	PathB2
	PathB3
	Cleanup
)

// Flag names accepted by SetFlag.
const (
	FlagPathA        = "path_a"
	FlagTriggerError = "trigger_error"
)

var (
	// ErrUnknownState is returned by ParseState for names it does not know.
	ErrUnknownState = errors.New("unknown state")
	// ErrUnknownFlag is returned by SetFlag for names it does not know.
	ErrUnknownFlag = errors.New("unknown flag")
)

var stateNames = [...]string{ //nolint:gochecknoglobals
	Start:   "START",
	PathA1:  "PATH_A_1",
	PathA2:  "PATH_A_2",
	End:     "END",
	PathB1:  "PATH_B_1",
	PathB2:  "PATH_B_2",
	PathB3:  "PATH_B_3",
	Cleanup: "CLEANUP",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return stateNames[s]
}

// ParseState parses a state name such as "PATH_A_1".
func ParseState(name string) (State, error) {
	want := strings.ToUpper(strings.TrimSpace(name))

	for i, n := range stateNames {
		if n == want {
			return State(i), nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// States returns every state in declaration order.
func States() []State {
	return []State{Start, PathA1, PathA2, End, PathB1, PathB2, PathB3, Cleanup}
}

// Table returns the reference transition table.
func Table() *statemachine.Table[State] {
	table := statemachine.NewTable[State]()

	table.State(Start).
		On(statemachine.Next, PathA1).
		On(statemachine.Next2, PathB1).
		Otherwise(Cleanup)

	table.State(PathA1).
		On(statemachine.Next, PathA2).
		On(statemachine.Error, PathB3).
		Otherwise(Cleanup)

	table.State(PathA2).On(statemachine.Next, End).Otherwise(Cleanup)
	table.State(PathB1).On(statemachine.Next, PathB2).Otherwise(Cleanup)
	table.State(PathB2).On(statemachine.Next, PathB3).Otherwise(Cleanup)
	table.State(PathB3).On(statemachine.Next, End).Otherwise(Cleanup)

	table.State(End).Hold().Otherwise(Cleanup)

	table.State(Cleanup).On(statemachine.Next, End).Otherwise(Cleanup)

	return table.Otherwise(Cleanup)
}

// Machine is the reference machine together with the flags its work reads.
type Machine struct {
	*statemachine.Machine[State]

	// PathA selects the A branch at Start; false selects the B branch.
	PathA bool
	// TriggerError makes every state's work report Error.
	TriggerError bool

	table *statemachine.Table[State]
}

// New creates a reference machine in Start with the A branch selected.
func New() *Machine {
	m := &Machine{
		PathA: true,
		table: Table(),
	}

	engine, err := statemachine.NewWithTable(Start, m.RunState, m.table)
	if err != nil {
		// The table is fixed at compile time; a failure here is a bug in Table.
		panic(err)
	}

	m.Machine = engine

	return m
}

// Transitions returns the table the machine routes with.
func (m *Machine) Transitions() *statemachine.Table[State] {
	return m.table
}

// RunState is the machine's work function.
func (m *Machine) RunState(state State) statemachine.Signal {
	if m.TriggerError {
		return statemachine.Error
	}

	switch state {
	case Start:
		if m.PathA {
			return statemachine.Next
		}

		return statemachine.Next2
	case End:
		return statemachine.Repeat
	case PathA1, PathA2, PathB1, PathB2, PathB3, Cleanup:
		return statemachine.Next
	default:
		return statemachine.Error
	}
}

// Produces lists the signals RunState can report in the given state.
func Produces(state State) []statemachine.Signal {
	switch state {
	case Start:
		return []statemachine.Signal{statemachine.Next, statemachine.Next2, statemachine.Error}
	case End:
		return []statemachine.Signal{statemachine.Repeat, statemachine.Error}
	default:
		return []statemachine.Signal{statemachine.Next, statemachine.Error}
	}
}

// SetFlag sets one of the auxiliary flags by name.
func (m *Machine) SetFlag(name string, value bool) error {
	switch strings.ToLower(name) {
	case FlagPathA:
		m.PathA = value
	case FlagTriggerError:
		m.TriggerError = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFlag, name)
	}

	return nil
}

// Reset returns the machine to Start and restores the default flags.
func (m *Machine) Reset() {
	m.Machine.Reset()
	m.PathA = true
	m.TriggerError = false
}
