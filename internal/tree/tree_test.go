package tree

import (
	"errors"
	"testing"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopology_Invariants(t *testing.T) {
	tr := branchingTree(t, 1)
	nodes := tr.Nodes()

	assert.Equal(t, 0, nodes[Ground].Level())
	assert.Equal(t, -1, nodes[Ground].Parent())
	for _, n := range nodes[1:] {
		p := nodes[n.Parent()]
		assert.Equal(t, p.Level()+1, n.Level(), "node %d", n.Num())
		assert.Less(t, p.Num(), n.Num(), "pre-order numbering")
		assert.Contains(t, p.Children(), n.Num())
		assert.GreaterOrEqual(t, n.QIndex(), p.QIndex())
		assert.GreaterOrEqual(t, n.UIndex(), p.UIndex())
	}

	levels := tr.Levels()
	assert.Equal(t, []int{Ground}, levels[0])
	for l, level := range levels {
		for _, k := range level {
			assert.Equal(t, l, nodes[k].Level())
		}
	}
}

func TestTopology_CoordinatePartition(t *testing.T) {
	tr := branchingTree(t, 2)
	qSeen := make([]int, tr.NQ())
	uSeen := make([]int, tr.NU())
	for _, n := range tr.Nodes() {
		for i := 0; i < n.MaxNQ(); i++ {
			qSeen[n.QIndex()+i]++
		}
		for i := 0; i < n.DOF(); i++ {
			uSeen[n.UIndex()+i]++
		}
	}
	for i, c := range qSeen {
		assert.Equal(t, 1, c, "q slot %d", i)
	}
	for i, c := range uSeen {
		assert.Equal(t, 1, c, "u slot %d", i)
	}

	l, err := tr.Layout()
	require.NoError(t, err)
	require.NoError(t, l.Validate())
	for k, nl := range l.Nodes {
		for j := k + 1; j < nl.SubtreeEnd; j++ {
			anc := j
			for anc > k {
				anc = l.Nodes[anc].Parent
			}
			assert.Equal(t, k, anc, "node %d inside subtree of %d", j, k)
		}
	}
}

func TestFinish_RenumbersPreOrder(t *testing.T) {
	tr := New()
	body := func(name string) Body {
		return Body{Name: name, Joint: joint.Pin, Mass: spatial.PointMass(1, spatial.Vec3{Y: -1}),
			XPJb: spatial.IdentityTransform(), XBJ: spatial.IdentityTransform()}
	}
	a, err := tr.AddBody(Ground, body("a"))
	require.NoError(t, err)
	b, err := tr.AddBody(Ground, body("b"))
	require.NoError(t, err)
	c, err := tr.AddBody(a, body("c"))
	require.NoError(t, err)
	require.NoError(t, tr.Finish())

	assert.Equal(t, 1, tr.Index(a))
	assert.Equal(t, 2, tr.Index(c))
	assert.Equal(t, 3, tr.Index(b))
	k, err := tr.Lookup("b")
	require.NoError(t, err)
	assert.Equal(t, 3, k)
	assert.Equal(t, 2, tr.Node(k).UIndex(), "b is allocated after c")

	_, err = tr.AddBody(Ground, body("d"))
	assert.ErrorIs(t, err, ErrTreeFinished)
	assert.ErrorIs(t, tr.Finish(), ErrTreeFinished)
}

func TestAddBody_Errors(t *testing.T) {
	tr := New()
	b := Body{Name: "x", Joint: joint.Pin, Mass: spatial.PointMass(1, spatial.Vec3{})}

	_, err := tr.AddBody(5, b)
	assert.ErrorIs(t, err, ErrInvalidParent)

	_, err = tr.AddBody(Ground, Body{Joint: joint.Kind(99)})
	assert.ErrorIs(t, err, joint.ErrUnknownKind)

	_, err = tr.AddBody(Ground, b)
	require.NoError(t, err)
	_, err = tr.AddBody(Ground, b)
	assert.ErrorIs(t, err, ErrDuplicateName)

	_, err = tr.AddBody(Ground, Body{Name: "neg", Joint: joint.Pin, Mass: spatial.MassProperties{Mass: -1}})
	assert.ErrorIs(t, err, spatial.ErrInvalidMass)

	_, err = tr.Layout()
	assert.ErrorIs(t, err, ErrTreeNotFinished)
	_, err = NewEngine(tr, nil)
	assert.ErrorIs(t, err, ErrTreeNotFinished)
}

func TestStateMismatch(t *testing.T) {
	a := pendulum(t, 1, 1)
	b := doublePendulum(t, 1, 1, 1, 1)
	st := newState(t, b)
	_, err := a.KineticEnergy(st)
	assert.True(t, errors.Is(err, ErrStateMismatch))
}
