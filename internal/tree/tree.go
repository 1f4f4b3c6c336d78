package tree

import (
	"fmt"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/sirupsen/logrus"
)

// Ground is the node number of the root.
const Ground = 0

// Body describes one body and its inboard joint for AddBody.
type Body struct {
	Name  string
	Joint joint.Kind
	Mass  spatial.MassProperties
	XPJb  spatial.Transform // parent body frame to parent attachment frame Jb
	XBJ   spatial.Transform // body frame to joint frame J
}

// Tree is an arena of nodes addressed by node number. Node 0 is ground.
type Tree struct {
	nodes    []*Node
	ids      []int // body id -> node number, set by Finish
	byName   map[string]int
	levels   [][]int
	finished bool

	nxtQ, nxtU, nxtUSq int

	log logrus.FieldLogger
}

// New creates a tree holding only ground.
func New() *Tree {
	ground, _ := joint.New(joint.Weld)
	t := &Tree{
		nodes: []*Node{{
			num:    Ground,
			parent: -1,
			name:   "ground",
			joint:  ground,
			xPJb:   spatial.IdentityTransform(),
			xBJ:    spatial.IdentityTransform(),
		}},
		byName: map[string]int{"ground": Ground},
		log:    logrus.StandardLogger(),
	}
	return t
}

// SetLogger replaces the standard logrus logger.
func (t *Tree) SetLogger(l logrus.FieldLogger) { t.log = l }

// AddBody is the only way to create a node. It selects the joint model from
// the kind, links the node under parent and hands out the next free q and u
// slots. The returned id stays valid after Finish; use Index to get the node
// number.
func (t *Tree) AddBody(parent int, b Body) (int, error) {
	if t.finished {
		return 0, ErrTreeFinished
	}
	if parent < 0 || parent >= len(t.nodes) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidParent, parent)
	}
	m, err := joint.New(b.Joint)
	if err != nil {
		return 0, err
	}
	if b.Mass.Mass < 0 {
		return 0, fmt.Errorf("%w: body %q", spatial.ErrInvalidMass, b.Name)
	}

	id := len(t.nodes)
	name := b.Name
	if name == "" {
		name = fmt.Sprintf("body%d", id)
	}
	if _, ok := t.byName[name]; ok {
		return 0, fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}

	n := &Node{
		num:      id,
		level:    t.nodes[parent].level + 1,
		parent:   parent,
		name:     name,
		joint:    m,
		mass:     b.Mass,
		xPJb:     b.XPJb,
		xBJ:      b.XBJ,
		qIndex:   t.nxtQ,
		uIndex:   t.nxtU,
		uSqIndex: t.nxtUSq,
	}
	t.nxtQ += m.MaxNQ()
	t.nxtU += m.DOF()
	t.nxtUSq += m.DOF() * m.DOF()

	t.nodes = append(t.nodes, n)
	t.nodes[parent].children = append(t.nodes[parent].children, id)
	t.byName[name] = id
	return id, nil
}

// Finish freezes the topology. Nodes are renumbered in pre-order and q/u
// slots reallocated in the same order, so indices never decrease along a
// root-to-leaf path and every subtree occupies a contiguous range.
func (t *Tree) Finish() error {
	if t.finished {
		return ErrTreeFinished
	}

	order := make([]int, 0, len(t.nodes))
	var visit func(k int)
	visit = func(k int) {
		order = append(order, k)
		for _, c := range t.nodes[k].children {
			visit(c)
		}
	}
	visit(Ground)

	renum := make([]int, len(t.nodes))
	for newNum, old := range order {
		renum[old] = newNum
	}

	nodes := make([]*Node, len(order))
	q, u, usq := 0, 0, 0
	for newNum, old := range order {
		n := t.nodes[old]
		n.num = newNum
		if n.parent >= 0 {
			n.parent = renum[n.parent]
		}
		for i, c := range n.children {
			n.children[i] = renum[c]
		}
		n.qIndex, n.uIndex, n.uSqIndex = q, u, usq
		q += n.MaxNQ()
		u += n.DOF()
		usq += n.DOF() * n.DOF()
		nodes[newNum] = n
	}
	t.nodes = nodes
	t.ids = renum
	for name, old := range t.byName {
		t.byName[name] = renum[old]
	}
	t.nxtQ, t.nxtU, t.nxtUSq = q, u, usq

	depth := 0
	for _, n := range t.nodes {
		if n.level > depth {
			depth = n.level
		}
	}
	t.levels = make([][]int, depth+1)
	for _, n := range t.nodes {
		t.levels[n.level] = append(t.levels[n.level], n.num)
	}

	t.finished = true
	t.log.Debugf("tree finished: %d bodies, %d levels, nq=%d nu=%d", len(t.nodes)-1, len(t.levels), q, u)
	return nil
}

func (t *Tree) Finished() bool { return t.finished }

// Index maps an id returned by AddBody to its node number.
func (t *Tree) Index(id int) int {
	if t.ids == nil || id < 0 || id >= len(t.ids) {
		return id
	}
	return t.ids[id]
}

// Lookup finds a node number by body name.
func (t *Tree) Lookup(name string) (int, error) {
	k, ok := t.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownBody, name)
	}
	return k, nil
}

func (t *Tree) NumNodes() int { return len(t.nodes) }

// NumBodies excludes ground.
func (t *Tree) NumBodies() int { return len(t.nodes) - 1 }

func (t *Tree) Node(k int) *Node { return t.nodes[k] }

func (t *Tree) Nodes() []*Node {
	n := make([]*Node, len(t.nodes))
	copy(n, t.nodes)
	return n
}

// Levels returns node numbers grouped by depth; levels[0] is ground.
func (t *Tree) Levels() [][]int { return t.levels }

func (t *Tree) NQ() int { return t.nxtQ }
func (t *Tree) NU() int { return t.nxtU }

// Layout describes the storage the state needs for this tree.
func (t *Tree) Layout() (state.Layout, error) {
	if !t.finished {
		return state.Layout{}, ErrTreeNotFinished
	}
	l := state.Layout{
		Nodes: make([]state.NodeLayout, len(t.nodes)),
		NQ:    t.nxtQ,
		NU:    t.nxtU,
		NUSq:  t.nxtUSq,
	}
	for k := len(t.nodes) - 1; k >= 0; k-- {
		n := t.nodes[k]
		end := k + 1
		for _, c := range n.children {
			if e := l.Nodes[c].SubtreeEnd; e > end {
				end = e
			}
		}
		l.Nodes[k] = state.NodeLayout{
			Parent:     n.parent,
			SubtreeEnd: end,
			QIndex:     n.qIndex,
			MaxNQ:      n.MaxNQ(),
			UIndex:     n.uIndex,
			DOF:        n.DOF(),
			USqIndex:   n.uSqIndex,
		}
	}
	return l, nil
}

// NewState allocates a state for the tree with default coordinates.
func (t *Tree) NewState() (*state.State, error) {
	l, err := t.Layout()
	if err != nil {
		return nil, err
	}
	st, err := state.New(l)
	if err != nil {
		return nil, err
	}
	if err := t.SetDefaultState(st); err != nil {
		return nil, err
	}
	return st, nil
}

// SetDefaultState writes the reference coordinates and zero speeds for
// every node.
func (t *Tree) SetDefaultState(st *state.State) error {
	if err := t.checkState(st); err != nil {
		return err
	}
	rep := st.ModelingVars().Rep()
	q := st.UpdQ()
	u := st.UpdU()
	for _, n := range t.nodes[1:] {
		if err := n.joint.DefaultQ(rep, n.qRange(q)); err != nil {
			return nodeErr(n.num, "default q", err)
		}
		n.joint.DefaultU(n.uRange(u))
	}
	return nil
}

func (t *Tree) checkState(st *state.State) error {
	if !t.finished {
		return ErrTreeNotFinished
	}
	l := st.Layout()
	if l.NumNodes() != len(t.nodes) || l.NQ != t.nxtQ || l.NU != t.nxtU {
		return fmt.Errorf("%w: state has %d nodes nq=%d nu=%d", ErrStateMismatch, l.NumNodes(), l.NQ, l.NU)
	}
	return nil
}
