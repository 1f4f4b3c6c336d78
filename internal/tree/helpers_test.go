package tree

import (
	"context"
	"math/rand"
	"testing"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/stretchr/testify/require"
)

const gravity = 9.81

var down = spatial.Vec3{Y: -gravity}

func realizeWithGravity(t *testing.T, e *Engine, st *state.State) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.Realize(ctx, st, stage.Configuration))
	f, err := e.Tree().GravityForces(st, down)
	require.NoError(t, err)
	copy(st.UpdAppliedBodyForces(), f)
	require.NoError(t, e.Realize(ctx, st, stage.Reaction))
}

// pendulum is a point mass m at distance l below a pin about z.
func pendulum(t *testing.T, m, l float64) *Tree {
	t.Helper()
	tr := New()
	_, err := tr.AddBody(Ground, Body{
		Name:  "bob",
		Joint: joint.Pin,
		Mass:  spatial.PointMass(m, spatial.Vec3{Y: -l}),
		XPJb:  spatial.IdentityTransform(),
		XBJ:   spatial.IdentityTransform(),
	})
	require.NoError(t, err)
	require.NoError(t, tr.Finish())
	return tr
}

func doublePendulum(t *testing.T, m1, m2, l1, l2 float64) *Tree {
	t.Helper()
	tr := New()
	upper, err := tr.AddBody(Ground, Body{
		Name:  "upper",
		Joint: joint.Pin,
		Mass:  spatial.PointMass(m1, spatial.Vec3{Y: -l1}),
		XPJb:  spatial.IdentityTransform(),
		XBJ:   spatial.IdentityTransform(),
	})
	require.NoError(t, err)
	_, err = tr.AddBody(upper, Body{
		Name:  "lower",
		Joint: joint.Pin,
		Mass:  spatial.PointMass(m2, spatial.Vec3{Y: -l2}),
		XPJb:  spatial.Translation(spatial.Vec3{Y: -l1}),
		XBJ:   spatial.IdentityTransform(),
	})
	require.NoError(t, err)
	require.NoError(t, tr.Finish())
	return tr
}

func randVec(r *rand.Rand) spatial.Vec3 {
	return spatial.Vec3{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}
}

func randTransform(r *rand.Rand) spatial.Transform {
	rot := spatial.FromBodyXYZ(r.Float64()*2-1, r.Float64()*2-1, r.Float64()*2-1)
	return spatial.NewTransform(rot, spatial.Scale(0.5, randVec(r)))
}

func randBody(t *testing.T, r *rand.Rand, kind joint.Kind) Body {
	t.Helper()
	inertia := spatial.Diag33(spatial.Vec3{X: 0.1 + r.Float64(), Y: 0.1 + r.Float64(), Z: 0.1 + r.Float64()})
	mp, err := spatial.NewMassProperties(0.5+r.Float64()*2, spatial.Scale(0.3, randVec(r)), inertia)
	require.NoError(t, err)
	return Body{Joint: kind, Mass: mp, XPJb: randTransform(r), XBJ: randTransform(r)}
}

// branchingTree has branching factor above one at depths 0, 1 and 2 and
// uses every joint kind at least once.
func branchingTree(t *testing.T, seed int64) *Tree {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	kinds := joint.Kinds()
	next := 0
	kind := func() joint.Kind {
		k := kinds[(next+1)%len(kinds)]
		next++
		return k
	}

	tr := New()
	add := func(parent int) int {
		id, err := tr.AddBody(parent, randBody(t, r, kind()))
		require.NoError(t, err)
		return id
	}
	a := add(Ground)
	b := add(Ground)
	c := add(a)
	d := add(a)
	add(b)
	add(c)
	add(c)
	add(d)
	e := add(Ground)
	add(e)
	add(d)
	add(b)
	require.NoError(t, tr.Finish())
	return tr
}

// randomizeState fills q, u and the applied forces with random values and
// normalizes any quaternions.
func randomizeState(t *testing.T, tr *Tree, st *state.State, seed int64) {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	q := st.UpdQ()
	for i := range q {
		q[i] = r.Float64()*2 - 1
	}
	rep := st.ModelingVars().Rep()
	for _, n := range tr.Nodes()[1:] {
		nq := n.Joint().NQ(rep)
		for i := nq; i < n.MaxNQ(); i++ {
			q[n.QIndex()+i] = 0
		}
	}
	_, err := tr.EnforceQuaternionConstraints(st)
	require.NoError(t, err)

	u := st.UpdU()
	for i := range u {
		u[i] = r.NormFloat64()
	}
	f := st.UpdAppliedBodyForces()
	for k := 1; k < len(f); k++ {
		f[k] = spatial.SpatialVec{randVec(r), randVec(r)}
	}
	tau := st.UpdMobilityForces()
	for i := range tau {
		tau[i] = r.NormFloat64()
	}
}

func newEngine(t *testing.T, tr *Tree, exec Executor) *Engine {
	t.Helper()
	e, err := NewEngine(tr, exec)
	require.NoError(t, err)
	return e
}

func newState(t *testing.T, tr *Tree) *state.State {
	t.Helper()
	st, err := tr.NewState()
	require.NoError(t, err)
	return st
}
