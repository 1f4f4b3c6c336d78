// Package stage defines the ordered realization stages of a multibody tree
// and the error returned when a stage is computed out of order.
//
// A later stage may only read data a node has already produced at an earlier
// stage. Every node carries its own stage counter; the traversal engine
// checks it with [Require] before running a realize operation.
package stage

import (
	"errors"
	"fmt"
)

type Stage int

const (
	Empty Stage = iota
	Modeling
	Parameter
	Configuration
	Motion
	Dynamics
	Reaction
)

var names = [...]string{
	Empty:         "empty",
	Modeling:      "modeling",
	Parameter:     "parameter",
	Configuration: "configuration",
	Motion:        "motion",
	Dynamics:      "dynamics",
	Reaction:      "reaction",
}

func (s Stage) String() string {
	if s < Empty || s > Reaction {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return names[s]
}

// Valid reports whether s is one of the declared stages.
func (s Stage) Valid() bool { return s >= Empty && s <= Reaction }

// Prev returns the prerequisite stage. Empty has none and returns itself.
func (s Stage) Prev() Stage {
	if s <= Empty {
		return Empty
	}
	return s - 1
}

func (s Stage) Next() Stage {
	if s >= Reaction {
		return Reaction
	}
	return s + 1
}

// All lists the stages from Modeling to Reaction.
func All() []Stage {
	return []Stage{Modeling, Parameter, Configuration, Motion, Dynamics, Reaction}
}

func Parse(name string) (Stage, error) {
	for s, n := range names {
		if n == name {
			return Stage(s), nil
		}
	}
	return Empty, fmt.Errorf("stage: unknown stage %q", name)
}

// ErrStageOrderViolation indicates a realize operation ran before a stage it
// depends on. It is a programming error.
var ErrStageOrderViolation = errors.New("stage: order violation")

// OrderError records which node was found behind which stage.
type OrderError struct {
	Node int
	Op   string
	Have Stage
	Want Stage
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%v: node %d %s needs %s, have %s", ErrStageOrderViolation, e.Node, e.Op, e.Want, e.Have)
}

func (e *OrderError) Unwrap() error {
	return ErrStageOrderViolation
}

// Require fails unless have has reached want.
func Require(node int, op string, have, want Stage) error {
	if have >= want {
		return nil
	}
	return &OrderError{Node: node, Op: op, Have: have, Want: want}
}
