package tree

import (
	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/state"
)

// Node binds one body and its inboard joint to a position in the tree. It
// holds no cache storage: every result lives in a state.State slot indexed
// by the node number.
type Node struct {
	num      int
	level    int
	parent   int
	children []int
	name     string

	joint joint.Model
	mass  spatial.MassProperties
	xPJb  spatial.Transform
	xBJ   spatial.Transform

	qIndex   int
	uIndex   int
	uSqIndex int
}

func (n *Node) Num() int       { return n.num }
func (n *Node) Level() int     { return n.level }
func (n *Node) Parent() int    { return n.parent }
func (n *Node) Name() string   { return n.name }
func (n *Node) IsGround() bool { return n.num == 0 }

func (n *Node) Joint() joint.Model { return n.joint }

// Children returns the child node numbers in insertion order.
func (n *Node) Children() []int {
	c := make([]int, len(n.children))
	copy(c, n.children)
	return c
}

// MassProperties are the construction-time values; overrides live in the
// state.
func (n *Node) MassProperties() spatial.MassProperties { return n.mass }

func (n *Node) XPJb() spatial.Transform { return n.xPJb }
func (n *Node) XBJ() spatial.Transform  { return n.xBJ }

// RefXPB is X_PB with the joint in its reference configuration.
func (n *Node) RefXPB() spatial.Transform { return n.xPJb.Compose(n.xBJ.Inverse()) }

func (n *Node) QIndex() int { return n.qIndex }
func (n *Node) MaxNQ() int  { return n.joint.MaxNQ() }
func (n *Node) UIndex() int { return n.uIndex }
func (n *Node) DOF() int    { return n.joint.DOF() }

// Stage-scoped accessors. They read whatever the state holds; callers make
// sure the corresponding stage has been realized.

func (n *Node) XGB(st *state.State) spatial.Transform { return st.Configuration.XGB[n.num] }
func (n *Node) XPB(st *state.State) spatial.Transform { return st.Configuration.XPB[n.num] }
func (n *Node) COMG(st *state.State) spatial.Vec3     { return st.Configuration.COMG[n.num] }

// H returns the node's columns of the motion subspace, in G about OB.
func (n *Node) H(st *state.State) []spatial.SpatialVec {
	return st.Configuration.H[n.uIndex : n.uIndex+n.DOF()]
}

func (n *Node) VGB(st *state.State) spatial.SpatialVec { return st.Motion.VGB[n.num] }
func (n *Node) AGB(st *state.State) spatial.SpatialVec { return st.Reaction.AGB[n.num] }

func (n *Node) QDot(st *state.State) []float64 {
	return st.Motion.QDot[n.qIndex : n.qIndex+n.MaxNQ()]
}

func (n *Node) UDot(st *state.State) []float64 {
	return st.Reaction.UDot[n.uIndex : n.uIndex+n.DOF()]
}

func (n *Node) QDotDot(st *state.State) []float64 {
	return st.Reaction.QDotDot[n.qIndex : n.qIndex+n.MaxNQ()]
}

func (n *Node) rep(st *state.State) joint.Representation { return st.Modeling.Rep[n.num] }

func (n *Node) uRange(s []float64) []float64 { return s[n.uIndex : n.uIndex+n.DOF()] }

func (n *Node) qRange(s []float64) []float64 { return s[n.qIndex : n.qIndex+n.MaxNQ()] }

func (n *Node) dSlot(s []float64) []float64 {
	d := n.DOF()
	return s[n.uSqIndex : n.uSqIndex+d*d]
}

func (n *Node) hSlot(s []spatial.SpatialVec) []spatial.SpatialVec {
	return s[n.uIndex : n.uIndex+n.DOF()]
}
