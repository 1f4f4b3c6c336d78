// Package state holds the flat coordinate arrays and stage caches of a
// multibody tree.
//
// The tree never owns storage. It reads q, u and applied forces from a
// [State] and writes its results into the per-stage cache tables, each
// indexed by node number. Every node has its own stage counter, lowered by
// the setters here and raised by the traversal engine as it realizes.
package state

import (
	"fmt"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
)

type ModelingVars struct {
	UseEulerAngles bool
}

// Rep is the orientation representation selected by the modeling vars.
func (m ModelingVars) Rep() joint.Representation {
	if m.UseEulerAngles {
		return joint.EulerAngles
	}
	return joint.Quaternion
}

// Override replaces construction-time body or joint-frame values of one
// node. Nil fields keep the construction value.
type Override struct {
	Mass *spatial.MassProperties
	XPJb *spatial.Transform
	XBJ  *spatial.Transform
}

func (o Override) IsZero() bool { return o.Mass == nil && o.XPJb == nil && o.XBJ == nil }

type State struct {
	layout Layout

	modeling  ModelingVars
	overrides []Override
	q         []float64
	u         []float64
	bodyForce []spatial.SpatialVec
	mobForce  []float64
	time      float64

	Modeling      ModelingCache
	Parameter     ParameterCache
	Configuration ConfigurationCache
	Motion        MotionCache
	Dynamics      DynamicsCache
	Reaction      ReactionCache

	stages []stage.Stage
	zDone  []bool
}

// New allocates every variable and cache table for the layout. All nodes
// start at stage Empty.
func New(l Layout) (*State, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	n := l.NumNodes()
	s := &State{
		layout:    l,
		overrides: make([]Override, n),
		q:         make([]float64, l.NQ),
		u:         make([]float64, l.NU),
		bodyForce: make([]spatial.SpatialVec, n),
		mobForce:  make([]float64, l.NU),
		stages:    make([]stage.Stage, n),
		zDone:     make([]bool, n),
	}
	s.Modeling.allocate(l)
	s.Parameter.allocate(l)
	s.Configuration.allocate(l)
	s.Motion.allocate(l)
	s.Dynamics.allocate(l)
	s.Reaction.allocate(l)
	return s, nil
}

func (s *State) Layout() Layout { return s.layout }

func (s *State) NumNodes() int { return len(s.stages) }

func (s *State) Time() float64     { return s.time }
func (s *State) SetTime(t float64) { s.time = t }

func (s *State) ModelingVars() ModelingVars { return s.modeling }

// SetUseEulerAngles switches the orientation representation. The q values
// are left untouched; callers converting an existing configuration should go
// through the tree.
func (s *State) SetUseEulerAngles(use bool) {
	if s.modeling.UseEulerAngles == use {
		return
	}
	s.modeling.UseEulerAngles = use
	s.capAll(stage.Empty)
}

func (s *State) Override(node int) Override { return s.overrides[node] }

// SetOverride installs parameter overrides for one node. Only the node's
// Parameter stage, its subtree's Configuration and the ancestors' Dynamics
// become stale. Ground has no parameters to override.
func (s *State) SetOverride(node int, o Override) error {
	if err := s.checkNode(node); err != nil {
		return err
	}
	if node == 0 {
		return ErrGroundOverride
	}
	s.overrides[node] = o
	s.Invalidate(node, stage.Parameter)
	return nil
}

func (s *State) ClearOverrides() {
	for k := range s.overrides {
		if !s.overrides[k].IsZero() {
			s.overrides[k] = Override{}
			s.Invalidate(k, stage.Parameter)
		}
	}
}

// Q returns the coordinates for reading.
func (s *State) Q() []float64 { return s.q }

func (s *State) U() []float64 { return s.u }

// UpdQ returns the coordinates for writing and marks every configuration
// stale.
func (s *State) UpdQ() []float64 {
	s.capAll(stage.Parameter)
	return s.q
}

func (s *State) UpdU() []float64 {
	s.capAll(stage.Configuration)
	return s.u
}

func (s *State) SetQ(q []float64) error {
	if len(q) != len(s.q) {
		return fmt.Errorf("state: q has %d entries, want %d", len(q), len(s.q))
	}
	copy(s.UpdQ(), q)
	return nil
}

func (s *State) SetU(u []float64) error {
	if len(u) != len(s.u) {
		return fmt.Errorf("state: u has %d entries, want %d", len(u), len(s.u))
	}
	copy(s.UpdU(), u)
	return nil
}

// NodeQ is the q slice of one node, sized to its full allocation.
func (s *State) NodeQ(node int) []float64 {
	n := s.layout.Nodes[node]
	return s.q[n.QIndex : n.QIndex+n.MaxNQ]
}

func (s *State) NodeU(node int) []float64 {
	n := s.layout.Nodes[node]
	return s.u[n.UIndex : n.UIndex+n.DOF]
}

// UpdNodeQ returns one node's q for writing. Only that node's subtree and
// ancestors lose their configuration-dependent results.
func (s *State) UpdNodeQ(node int) []float64 {
	s.Invalidate(node, stage.Configuration)
	return s.NodeQ(node)
}

func (s *State) UpdNodeU(node int) []float64 {
	s.Invalidate(node, stage.Motion)
	return s.NodeU(node)
}

func (s *State) AppliedBodyForces() []spatial.SpatialVec { return s.bodyForce }

func (s *State) MobilityForces() []float64 { return s.mobForce }

// UpdAppliedBodyForces returns the per-node spatial forces, applied at each
// body origin and expressed in G, for writing.
func (s *State) UpdAppliedBodyForces() []spatial.SpatialVec {
	s.capAll(stage.Dynamics)
	return s.bodyForce
}

func (s *State) UpdMobilityForces() []float64 {
	s.capAll(stage.Dynamics)
	return s.mobForce
}

// ClearForces zeroes all applied body and mobility forces.
func (s *State) ClearForces() {
	f := s.UpdAppliedBodyForces()
	for i := range f {
		f[i] = spatial.SpatialVec{}
	}
	m := s.UpdMobilityForces()
	for i := range m {
		m[i] = 0
	}
}

func (s *State) NodeStage(node int) stage.Stage { return s.stages[node] }

// SetNodeStage records that node has realized st. Only the traversal engine
// calls it.
func (s *State) SetNodeStage(node int, st stage.Stage) {
	s.stages[node] = st
	if st < stage.Reaction {
		s.zDone[node] = false
	}
}

// MarkZ records that the inward half of the Reaction stage is done for node.
func (s *State) MarkZ(node int) { s.zDone[node] = true }

func (s *State) ZDone(node int) bool { return s.zDone[node] }

// Stage is the lowest stage realized by every node.
func (s *State) Stage() stage.Stage {
	low := stage.Reaction
	for _, st := range s.stages {
		if st < low {
			low = st
		}
	}
	return low
}

// Invalidate marks the stage-st inputs of node as changed.
//
// The node falls back to st-1. Its descendants lose Configuration and later
// stages when st is Configuration or earlier, and Motion onwards when st is
// Motion. Ancestors lose Dynamics, which accumulates inward, and every node
// loses Reaction.
func (s *State) Invalidate(node int, st stage.Stage) {
	if st <= stage.Empty {
		s.capAll(stage.Empty)
		return
	}
	if st > stage.Reaction {
		st = stage.Reaction
	}
	s.capAll(stage.Dynamics)
	if st == stage.Reaction {
		return
	}

	s.cap(node, st-1)
	for p := s.layout.Nodes[node].Parent; p >= 0; p = s.layout.Nodes[p].Parent {
		s.cap(p, stage.Motion)
	}
	if st == stage.Dynamics {
		return
	}

	desc := stage.Parameter
	if st == stage.Motion {
		desc = stage.Configuration
	}
	for k := node + 1; k < s.layout.Nodes[node].SubtreeEnd; k++ {
		s.cap(k, desc)
	}
}

func (s *State) cap(node int, st stage.Stage) {
	if s.stages[node] > st {
		s.SetNodeStage(node, st)
	}
}

func (s *State) capAll(st stage.Stage) {
	for k := range s.stages {
		s.cap(k, st)
	}
}

func (s *State) checkNode(node int) error {
	if node < 0 || node >= len(s.stages) {
		return fmt.Errorf("state: node %d out of range [0, %d)", node, len(s.stages))
	}
	return nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := &State{
		layout:        s.layout,
		modeling:      s.modeling,
		overrides:     make([]Override, len(s.overrides)),
		q:             cloneSlice(s.q),
		u:             cloneSlice(s.u),
		bodyForce:     cloneSlice(s.bodyForce),
		mobForce:      cloneSlice(s.mobForce),
		time:          s.time,
		Modeling:      s.Modeling.clone(),
		Parameter:     s.Parameter.clone(),
		Configuration: s.Configuration.clone(),
		Motion:        s.Motion.clone(),
		Dynamics:      s.Dynamics.clone(),
		Reaction:      s.Reaction.clone(),
		stages:        cloneSlice(s.stages),
		zDone:         cloneSlice(s.zDone),
	}
	for k, o := range s.overrides {
		c.overrides[k] = o.clone()
	}
	return c
}

func (o Override) clone() Override {
	var c Override
	if o.Mass != nil {
		m := *o.Mass
		c.Mass = &m
	}
	if o.XPJb != nil {
		x := *o.XPJb
		c.XPJb = &x
	}
	if o.XBJ != nil {
		x := *o.XBJ
		c.XBJ = &x
	}
	return c
}
