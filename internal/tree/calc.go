package tree

import (
	"context"
	"fmt"

	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
)

func (t *Tree) requireStage(st *state.State, op string, s stage.Stage) error {
	if err := t.checkState(st); err != nil {
		return err
	}
	for k := range t.nodes {
		if err := stage.Require(k, op, st.NodeStage(k), s); err != nil {
			return err
		}
	}
	return nil
}

// KineticEnergy is the sum of 1/2 V^T M V over all bodies. Motion must be
// realized.
func (t *Tree) KineticEnergy(st *state.State) (float64, error) {
	if err := t.requireStage(st, "kinetic energy", stage.Motion); err != nil {
		return 0, err
	}
	ke := 0.0
	for _, n := range t.nodes[1:] {
		v := st.Motion.VGB[n.num]
		ke += 0.5 * v.Dot(st.Configuration.Mk[n.num].MulVec(v))
	}
	return ke, nil
}

// PotentialEnergy is the gravitational energy -sum m g.c with the datum at
// the ground origin. Configuration must be realized.
func (t *Tree) PotentialEnergy(st *state.State, gravity spatial.Vec3) (float64, error) {
	if err := t.requireStage(st, "potential energy", stage.Configuration); err != nil {
		return 0, err
	}
	pe := 0.0
	for _, n := range t.nodes[1:] {
		pe -= st.Parameter.Mass[n.num].Mass * spatial.Dot(gravity, st.Configuration.COMG[n.num])
	}
	return pe, nil
}

// EquivalentJointForces maps spatial forces applied at each body origin
// (in G) to the mobility forces that have the same effect on the system:
// z_k = F_k + sum over children of phi_c z_c, tau_k = H_k^T z_k.
// Configuration must be realized.
func (e *Engine) EquivalentJointForces(ctx context.Context, st *state.State, forces []spatial.SpatialVec) ([]float64, error) {
	t := e.tree
	if err := t.requireStage(st, "equivalent joint forces", stage.Configuration); err != nil {
		return nil, err
	}
	if len(forces) != len(t.nodes) {
		return nil, fmt.Errorf("tree: got %d body forces for %d nodes", len(forces), len(t.nodes))
	}
	z := make([]spatial.SpatialVec, len(t.nodes))
	tau := make([]float64, t.nxtU)
	all := func(int) bool { return true }
	err := e.inward(ctx, all, func(k int) error {
		n := t.nodes[k]
		zk := forces[k]
		for _, c := range n.children {
			zk = zk.Add(st.Configuration.Phi[c].ShiftForce(z[c]))
		}
		z[k] = zk
		out := n.uRange(tau)
		for i, col := range n.H(st) {
			out[i] = col.Dot(zk)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tau, nil
}

// CalcUDot returns M^-1 (tau + J^T F): the generalized accelerations that
// mobility forces tau and body forces F (at each body origin, in G) alone
// would produce, with velocity-dependent terms left out. It reuses the
// articulated inertias of the Dynamics stage and leaves the Reaction caches
// untouched. Either slice may be nil.
func (e *Engine) CalcUDot(ctx context.Context, st *state.State, tau []float64, forces []spatial.SpatialVec) ([]float64, error) {
	t := e.tree
	if err := t.requireStage(st, "udot", stage.Dynamics); err != nil {
		return nil, err
	}
	if tau != nil && len(tau) != t.nxtU {
		return nil, fmt.Errorf("tree: got %d mobility forces for %d speeds", len(tau), t.nxtU)
	}
	if forces != nil && len(forces) != len(t.nodes) {
		return nil, fmt.Errorf("tree: got %d body forces for %d nodes", len(forces), len(t.nodes))
	}
	c := &st.Configuration
	d := &st.Dynamics

	z := make([]spatial.SpatialVec, len(t.nodes))
	gEps := make([]spatial.SpatialVec, len(t.nodes))
	nu := make([]float64, t.nxtU)
	all := func(int) bool { return true }
	err := e.inward(ctx, all, func(k int) error {
		n := t.nodes[k]
		var zk spatial.SpatialVec
		if forces != nil {
			zk = zk.Sub(forces[k])
		}
		for _, ch := range n.children {
			zk = zk.Add(c.Phi[ch].ShiftForce(z[ch].Add(gEps[ch])))
		}
		z[k] = zk
		if n.IsGround() {
			return nil
		}

		h := n.H(st)
		dof := len(h)
		eps := make([]float64, dof)
		for i, col := range h {
			if tau != nil {
				eps[i] = tau[n.uIndex+i]
			}
			eps[i] -= col.Dot(zk)
		}
		di := n.dSlot(d.DI)
		out := n.uRange(nu)
		for i := 0; i < dof; i++ {
			for j := 0; j < dof; j++ {
				out[i] += di[i*dof+j] * eps[j]
			}
		}
		var ge spatial.SpatialVec
		for j, gj := range n.hSlot(d.G) {
			ge = ge.Add(gj.Scale(eps[j]))
		}
		gEps[k] = ge
		return nil
	})
	if err != nil {
		return nil, err
	}

	a := make([]spatial.SpatialVec, len(t.nodes))
	udot := make([]float64, t.nxtU)
	err = e.outward(ctx, all, func(k int) error {
		n := t.nodes[k]
		if n.IsGround() {
			return nil
		}
		alpha := c.Phi[k].ShiftVelocity(a[n.parent])
		ak := alpha
		h := n.H(st)
		nuK, out := n.uRange(nu), n.uRange(udot)
		for j, gj := range n.hSlot(d.G) {
			out[j] = nuK[j] - gj.Dot(alpha)
			ak = ak.Add(h[j].Scale(out[j]))
		}
		a[k] = ak
		return nil
	})
	if err != nil {
		return nil, err
	}
	return udot, nil
}

// GravityForces returns the spatial force of gravity on every body, applied
// at the body origin and expressed in G. Configuration must be realized.
func (t *Tree) GravityForces(st *state.State, gravity spatial.Vec3) ([]spatial.SpatialVec, error) {
	if err := t.requireStage(st, "gravity", stage.Configuration); err != nil {
		return nil, err
	}
	f := make([]spatial.SpatialVec, len(t.nodes))
	for _, n := range t.nodes[1:] {
		mg := spatial.Scale(st.Parameter.Mass[n.num].Mass, gravity)
		f[n.num] = spatial.SpatialVec{spatial.Cross(st.Configuration.COMStation[n.num], mg), mg}
	}
	return f, nil
}

// SetQToFitTransform sets the node's q so that X_JbJ matches x as closely as
// the joint allows.
func (t *Tree) SetQToFitTransform(st *state.State, node int, x spatial.Transform) error {
	n, err := t.bodyNode(st, node, "fit transform")
	if err != nil {
		return err
	}
	q := make([]float64, n.MaxNQ())
	if err := n.joint.SetQToFitTransform(st.ModelingVars().Rep(), x, q); err != nil {
		return nodeErr(node, "fit transform", err)
	}
	copy(st.UpdNodeQ(node), q)
	return nil
}

// SetUToFitVelocity sets the node's u to the projection of V_JbJ onto the
// joint's mobilities.
func (t *Tree) SetUToFitVelocity(st *state.State, node int, v spatial.SpatialVec) error {
	n, err := t.bodyNode(st, node, "fit velocity")
	if err != nil {
		return err
	}
	u := make([]float64, n.DOF())
	if err := n.joint.SetUToFitVelocity(st.ModelingVars().Rep(), st.NodeQ(node), v, u); err != nil {
		return nodeErr(node, "fit velocity", err)
	}
	copy(st.UpdNodeU(node), u)
	return nil
}

func (t *Tree) bodyNode(st *state.State, node int, op string) (*Node, error) {
	if err := t.checkState(st); err != nil {
		return nil, err
	}
	if node < 0 || node >= len(t.nodes) {
		return nil, fmt.Errorf("%w: node %d", ErrUnknownBody, node)
	}
	if node == Ground {
		return nil, nodeErr(node, op, ErrOperationNotImplemented)
	}
	return t.nodes[node], nil
}

// EnforceQuaternionConstraints normalizes every quaternion in q and reports
// how many nodes changed. Only changed nodes lose their configuration.
func (t *Tree) EnforceQuaternionConstraints(st *state.State) (int, error) {
	if err := t.checkState(st); err != nil {
		return 0, err
	}
	rep := st.ModelingVars().Rep()
	changed := 0
	for _, n := range t.nodes[1:] {
		if !n.joint.UsesQuaternion(rep) {
			continue
		}
		did, err := n.joint.NormalizeQ(rep, st.NodeQ(n.num))
		if err != nil {
			return changed, nodeErr(n.num, "normalize", err)
		}
		if did {
			st.Invalidate(n.num, stage.Configuration)
			changed++
		}
	}
	if changed > 0 {
		t.log.Debugf("normalized %d quaternions", changed)
	}
	return changed, nil
}

// SetUseEulerAngles switches the orientation representation and converts
// the q of every Ball and Free joint so the configuration is unchanged.
func (t *Tree) SetUseEulerAngles(st *state.State, use bool) error {
	if err := t.checkState(st); err != nil {
		return err
	}
	from := st.ModelingVars().Rep()
	to := joint.Quaternion
	if use {
		to = joint.EulerAngles
	}
	if from == to {
		return nil
	}
	for _, n := range t.nodes[1:] {
		if !n.joint.Has(joint.CapOrientation) {
			continue
		}
		q := st.NodeQ(n.num)
		x, err := n.joint.Transform(from, q)
		if err != nil {
			return nodeErr(n.num, "convert representation", err)
		}
		if err := n.joint.SetQToFitTransform(to, x, q); err != nil {
			return nodeErr(n.num, "convert representation", err)
		}
	}
	st.SetUseEulerAngles(use)
	t.log.Debugf("orientation representation set to %s", to)
	return nil
}
