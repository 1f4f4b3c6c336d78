// Package force supplies applied body and mobility forces to a tree state.
package force

import (
	"errors"
	"fmt"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/san-kum/mbtree/internal/tree"
)

var ErrInvalidForce = errors.New("force: invalid force element")

// Supplier adds its contribution to the applied forces of a state. Velocity
// dependent suppliers need Motion realized; the rest need Configuration.
type Supplier interface {
	Name() string
	Apply(t *tree.Tree, st *state.State) error
}

// Set applies its suppliers in order after clearing previous forces.
type Set []Supplier

func (s Set) Name() string { return "set" }

func (s Set) Apply(t *tree.Tree, st *state.State) error {
	st.ClearForces()
	for _, f := range s {
		if err := f.Apply(t, st); err != nil {
			return fmt.Errorf("force %s: %w", f.Name(), err)
		}
	}
	return nil
}

// Gravity is a uniform field acting at each mass center.
type Gravity struct {
	G spatial.Vec3
}

func (Gravity) Name() string { return "gravity" }

func (g Gravity) Apply(t *tree.Tree, st *state.State) error {
	f, err := t.GravityForces(st, g.G)
	if err != nil {
		return err
	}
	out := st.UpdAppliedBodyForces()
	for k := range out {
		out[k] = out[k].Add(f[k])
	}
	return nil
}

// BodyForce is a constant spatial force on one body, applied at a station
// of the body and expressed in G.
type BodyForce struct {
	Body    int
	Station spatial.Vec3 // in the body frame
	Torque  spatial.Vec3
	Force   spatial.Vec3
}

func (BodyForce) Name() string { return "body force" }

func (b BodyForce) Apply(t *tree.Tree, st *state.State) error {
	if b.Body <= tree.Ground || b.Body >= t.NumNodes() {
		return fmt.Errorf("%w: body %d", ErrInvalidForce, b.Body)
	}
	if err := stage.Require(b.Body, "body force", st.NodeStage(b.Body), stage.Configuration); err != nil {
		return err
	}
	r := st.Configuration.XGB[b.Body].R.MulVec(b.Station)
	f := spatial.SpatialVec{spatial.Add(b.Torque, spatial.Cross(r, b.Force)), b.Force}
	out := st.UpdAppliedBodyForces()
	out[b.Body] = out[b.Body].Add(f)
	return nil
}

// MobilityDamping applies tau = -c u to every mobility.
type MobilityDamping struct {
	C float64
}

func (MobilityDamping) Name() string { return "damping" }

func (d MobilityDamping) Apply(_ *tree.Tree, st *state.State) error {
	if d.C < 0 {
		return fmt.Errorf("%w: negative damping %g", ErrInvalidForce, d.C)
	}
	u := st.U()
	tau := st.UpdMobilityForces()
	for i := range tau {
		tau[i] -= d.C * u[i]
	}
	return nil
}

// MobilitySpring applies tau = -k (q - q0) to one coordinate of a body whose
// joint has q equal to u, such as a pin or slider.
type MobilitySpring struct {
	Body  int
	Index int
	K     float64
	Q0    float64
}

func (MobilitySpring) Name() string { return "spring" }

func (s MobilitySpring) Apply(t *tree.Tree, st *state.State) error {
	if s.Body <= tree.Ground || s.Body >= t.NumNodes() {
		return fmt.Errorf("%w: body %d", ErrInvalidForce, s.Body)
	}
	n := t.Node(s.Body)
	if n.Joint().Has(joint.CapOrientation) || s.Index < 0 || s.Index >= n.DOF() {
		return fmt.Errorf("%w: mobility %d of %s joint", ErrInvalidForce, s.Index, n.Joint().Kind())
	}
	q := st.NodeQ(s.Body)[s.Index]
	tau := st.UpdMobilityForces()
	tau[n.UIndex()+s.Index] -= s.K * (q - s.Q0)
	return nil
}
