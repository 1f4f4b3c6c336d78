package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/mbtree/internal/force"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/san-kum/mbtree/internal/tree"
	"github.com/sirupsen/logrus"
)

var ErrDimensionMismatch = errors.New("sim: dimension mismatch between state and system")

// System adapts a finished tree and its force elements to Dynamics with
// x = [q; u] and dx = [qdot; udot]. It reuses one working state and is not
// safe for concurrent use.
type System struct {
	tree    *tree.Tree
	eng     *tree.Engine
	forces  force.Supplier
	gravity spatial.Vec3
	st      *state.State
	pool    *StatePool
	log     logrus.FieldLogger
}

// NewSystem uses st as the working state; pass nil to allocate one.
// gravity is used only for the energy.
func NewSystem(eng *tree.Engine, forces force.Supplier, gravity spatial.Vec3, st *state.State) (*System, error) {
	t := eng.Tree()
	if st == nil {
		var err error
		if st, err = t.NewState(); err != nil {
			return nil, err
		}
	}
	if forces == nil {
		forces = force.Set{}
	}
	return &System{
		tree:    t,
		eng:     eng,
		forces:  forces,
		gravity: gravity,
		st:      st,
		pool:    NewStatePool(t.NQ() + t.NU()),
		log:     logrus.StandardLogger(),
	}, nil
}

func (s *System) SetLogger(l logrus.FieldLogger) { s.log = l }

func (s *System) StateDim() int   { return s.tree.NQ() + s.tree.NU() }
func (s *System) ControlDim() int { return s.tree.NU() }

// WorkingState is the state holding the results of the last evaluation.
func (s *System) WorkingState() *state.State { return s.st }

// Pack returns [q; u] of a tree state.
func (s *System) Pack(st *state.State) State {
	x := make(State, 0, s.StateDim())
	x = append(x, st.Q()...)
	return append(x, st.U()...)
}

func (s *System) load(x State, t float64) error {
	if len(x) != s.StateDim() {
		return fmt.Errorf("%w: x has %d entries, want %d", ErrDimensionMismatch, len(x), s.StateDim())
	}
	q, u := x.Split(s.tree.NQ())
	if err := s.st.SetQ(q); err != nil {
		return err
	}
	if err := s.st.SetU(u); err != nil {
		return err
	}
	s.st.SetTime(t)
	return nil
}

// Evaluate realizes the working state through Reaction for x, the extra
// mobility forces u and time t, and returns [qdot; udot].
func (s *System) Evaluate(ctx context.Context, x State, u Control, t float64) (State, error) {
	if err := s.load(x, t); err != nil {
		return nil, &EvalError{Time: t, Wrapped: err}
	}
	if err := s.eng.Realize(ctx, s.st, stage.Motion); err != nil {
		return nil, &EvalError{Time: t, Wrapped: err}
	}
	if err := s.forces.Apply(s.tree, s.st); err != nil {
		return nil, &EvalError{Time: t, Wrapped: err}
	}
	if len(u) > 0 {
		if len(u) != s.ControlDim() {
			return nil, &EvalError{Time: t, Wrapped: fmt.Errorf("%w: control has %d entries, want %d", ErrDimensionMismatch, len(u), s.ControlDim())}
		}
		tau := s.st.UpdMobilityForces()
		for i := range tau {
			tau[i] += u[i]
		}
	}
	if err := s.eng.Realize(ctx, s.st, stage.Reaction); err != nil {
		return nil, &EvalError{Time: t, Wrapped: err}
	}

	dx := s.pool.Get()
	nq := s.tree.NQ()
	copy(dx[:nq], s.st.Motion.QDot)
	copy(dx[nq:], s.st.Reaction.UDot)
	return dx, nil
}

// Derivative implements Dynamics. A failed evaluation is logged and yields
// a NaN derivative so that state validation catches it.
func (s *System) Derivative(x State, u Control, t float64) State {
	dx, err := s.Evaluate(context.Background(), x, u, t)
	if err != nil {
		s.log.Warnf("derivative: %v", err)
		dx = make(State, s.StateDim())
		for i := range dx {
			dx[i] = math.NaN()
		}
	}
	return dx
}

// Release hands a derivative returned by Derivative or Evaluate back for
// reuse.
func (s *System) Release(dx State) { s.pool.Put(dx) }

// Energy is kinetic plus gravitational potential energy, or NaN when x
// cannot be realized.
func (s *System) Energy(x State) float64 {
	if err := s.load(x, s.st.Time()); err != nil {
		return math.NaN()
	}
	if err := s.eng.Realize(context.Background(), s.st, stage.Motion); err != nil {
		return math.NaN()
	}
	ke, err := s.tree.KineticEnergy(s.st)
	if err != nil {
		return math.NaN()
	}
	pe, err := s.tree.PotentialEnergy(s.st, s.gravity)
	if err != nil {
		return math.NaN()
	}
	return ke + pe
}

// Project normalizes the quaternions held in x, for use after an
// integration step.
func (s *System) Project(x State) (State, error) {
	if err := s.load(x, s.st.Time()); err != nil {
		return nil, err
	}
	if _, err := s.tree.EnforceQuaternionConstraints(s.st); err != nil {
		return nil, err
	}
	return s.Pack(s.st), nil
}
