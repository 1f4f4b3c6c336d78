package sim

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// State is the flat system state [q; u].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every entry is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	return math.Sqrt(floats.Dot(s, s))
}

// AddScaled returns s + h*dx. dx must have the length of s.
func (s State) AddScaled(h float64, dx State) State {
	out := make(State, len(s))
	for i := range s {
		out[i] = s[i] + h*dx[i]
	}
	return out
}

// Split returns the q and u parts of s, sharing its storage.
func (s State) Split(nq int) (q, u []float64) {
	return s[:nq:nq], s[nq:]
}

// Control holds extra mobility forces, one per generalized speed.
type Control []float64

// Dynamics is the contract an external integrator drives.
type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type EnergyComputer interface {
	Energy(x State) float64
}

// EvalError wraps a failure while evaluating the derivative.
type EvalError struct {
	Time    float64
	Wrapped error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("t=%.4f: %v", e.Time, e.Wrapped)
}

func (e *EvalError) Unwrap() error {
	return e.Wrapped
}
