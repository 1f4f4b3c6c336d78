package config

import (
	"fmt"

	"github.com/san-kum/mbtree/internal/force"
	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/san-kum/mbtree/internal/tree"
)

// Model is a finished tree together with its initial state and force
// elements.
type Model struct {
	Name    string
	Tree    *tree.Tree
	State   *state.State
	Forces  force.Set
	Gravity spatial.Vec3
}

// Build constructs the tree described by c and an initial state holding the
// configured q and u. Quaternions are normalized.
func (c *Config) Build() (*Model, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	t := tree.New()
	ids := map[string]int{"ground": tree.Ground}
	for _, b := range c.Bodies {
		kind, _ := joint.ParseKind(b.Joint)
		mp, err := spatial.NewMassProperties(b.Mass, b.COM.Vec3(), spatial.Diag33(b.Inertia.Vec3()))
		if err != nil {
			return nil, fmt.Errorf("body %q: %w", b.Name, err)
		}
		parent := tree.Ground
		if b.Parent != "" {
			parent = ids[b.Parent]
		}
		id, err := t.AddBody(parent, tree.Body{
			Name:  b.Name,
			Joint: kind,
			Mass:  mp,
			XPJb:  b.Inboard.Transform(),
			XBJ:   b.Outboard.Transform(),
		})
		if err != nil {
			return nil, err
		}
		ids[b.Name] = id
	}
	if err := t.Finish(); err != nil {
		return nil, err
	}

	st, err := t.NewState()
	if err != nil {
		return nil, err
	}
	if c.UseEulerAngles {
		if err := t.SetUseEulerAngles(st, true); err != nil {
			return nil, err
		}
	}
	for _, b := range c.Bodies {
		k := t.Index(ids[b.Name])
		copy(st.UpdNodeQ(k), b.Q)
		copy(st.UpdNodeU(k), b.U)
	}
	if _, err := t.EnforceQuaternionConstraints(st); err != nil {
		return nil, err
	}

	m := &Model{Name: c.Name, Tree: t, State: st, Gravity: c.Gravity.Vec3()}
	if m.Gravity != (spatial.Vec3{}) {
		m.Forces = append(m.Forces, force.Gravity{G: m.Gravity})
	}
	if c.Damping > 0 {
		m.Forces = append(m.Forces, force.MobilityDamping{C: c.Damping})
	}
	for _, s := range c.Springs {
		m.Forces = append(m.Forces, force.MobilitySpring{Body: t.Index(ids[s.Body]), Index: s.Index, K: s.K, Q0: s.Q0})
	}
	for _, f := range c.BodyForces {
		m.Forces = append(m.Forces, force.BodyForce{
			Body:    t.Index(ids[f.Body]),
			Station: f.Station.Vec3(),
			Force:   f.Force.Vec3(),
			Torque:  f.Torque.Vec3(),
		})
	}
	return m, nil
}
