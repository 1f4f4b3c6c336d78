package tree

import (
	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
)

// Realize operations of a single node. Each checks its own stage counter and
// that of the neighbours it reads, writes only its own cache slots, and
// advances its own counter. Outward operations read the parent; inward ones
// read the children.

func (n *Node) requireOutward(st *state.State, op string, s stage.Stage) error {
	if err := stage.Require(n.num, op, st.NodeStage(n.num), s-1); err != nil {
		return err
	}
	if n.parent >= 0 {
		return stage.Require(n.parent, op, st.NodeStage(n.parent), s)
	}
	return nil
}

func (n *Node) requireInward(st *state.State, op string, s stage.Stage) error {
	if err := stage.Require(n.num, op, st.NodeStage(n.num), s-1); err != nil {
		return err
	}
	for _, c := range n.children {
		if err := stage.Require(c, op, st.NodeStage(c), s); err != nil {
			return err
		}
	}
	return nil
}

// RealizeModeling resolves the coordinate representation.
func (n *Node) RealizeModeling(st *state.State) error {
	rep := st.ModelingVars().Rep()
	st.Modeling.Rep[n.num] = rep
	st.SetNodeStage(n.num, stage.Modeling)
	return nil
}

// RealizeParameters resolves mass and joint-frame overrides.
func (n *Node) RealizeParameters(st *state.State) error {
	if err := stage.Require(n.num, "parameters", st.NodeStage(n.num), stage.Modeling); err != nil {
		return err
	}
	mass, xPJb, xBJ := n.mass, n.xPJb, n.xBJ
	o := st.Override(n.num)
	if o.Mass != nil {
		mass = *o.Mass
	}
	if o.XPJb != nil {
		xPJb = *o.XPJb
	}
	if o.XBJ != nil {
		xBJ = *o.XBJ
	}
	p := &st.Parameter
	p.Mass[n.num] = mass
	p.XPJb[n.num] = xPJb
	p.XBJ[n.num] = xBJ
	p.XJB[n.num] = xBJ.Inverse()
	p.RefXPB[n.num] = xPJb.Compose(p.XJB[n.num])
	st.SetNodeStage(n.num, stage.Parameter)
	return nil
}

// RealizeConfiguration computes the across-joint, body-in-parent and
// body-in-ground transforms, the shift operator to the parent, the spatial
// inertia and the motion subspace, all in G.
func (n *Node) RealizeConfiguration(st *state.State) error {
	if err := n.requireOutward(st, "configuration", stage.Configuration); err != nil {
		return err
	}
	c := &st.Configuration
	k := n.num
	if n.IsGround() {
		c.XJbJ[k] = spatial.IdentityTransform()
		c.XPB[k] = spatial.IdentityTransform()
		c.XGB[k] = spatial.IdentityTransform()
		c.XGJb[k] = spatial.IdentityTransform()
		c.Phi[k] = spatial.Phi{}
		c.Mk[k] = spatial.SpatialMat{}
		c.COMStation[k] = spatial.Vec3{}
		c.COMG[k] = spatial.Vec3{}
		c.InertiaOBG[k] = spatial.Mat33{}
		st.SetNodeStage(k, stage.Configuration)
		return nil
	}

	p := &st.Parameter
	rep := n.rep(st)
	q := st.NodeQ(k)
	xJbJ, err := n.joint.Transform(rep, q)
	if err != nil {
		return nodeErr(k, "configuration", err)
	}

	xGP := c.XGB[n.parent]
	xPB := p.XPJb[k].Compose(xJbJ).Compose(p.XJB[k])
	xGB := xGP.Compose(xPB)
	xGJb := xGP.Compose(p.XPJb[k])

	c.XJbJ[k] = xJbJ
	c.XPB[k] = xPB
	c.XGB[k] = xGB
	c.XGJb[k] = xGJb
	c.Phi[k] = spatial.NewPhi(spatial.Sub(xGB.P, xGP.P))

	mass := p.Mass[k]
	c.Mk[k] = mass.SpatialInertia(xGB.R)
	c.COMStation[k] = xGB.R.MulVec(mass.COM)
	c.COMG[k] = spatial.Add(xGB.P, c.COMStation[k])
	c.InertiaOBG[k] = spatial.ReexpressInertia(xGB.R, mass.Inertia)

	h := n.hSlot(c.H)
	if err := n.joint.MotionSubspace(rep, q, h); err != nil {
		return nodeErr(k, "configuration", err)
	}
	oJ := xGJb.Compose(xJbJ).P
	r := spatial.Sub(xGB.P, oJ)
	for i, col := range h {
		w := xGJb.R.MulVec(col[0])
		v := spatial.Add(xGJb.R.MulVec(col[1]), spatial.Cross(w, r))
		h[i] = spatial.SpatialVec{w, v}
	}

	st.SetNodeStage(k, stage.Configuration)
	return nil
}

// RealizeMotion computes the across-joint velocity, the body velocity
// relative to the parent and the body velocity in ground, plus qdot.
func (n *Node) RealizeMotion(st *state.State) error {
	if err := n.requireOutward(st, "motion", stage.Motion); err != nil {
		return err
	}
	m := &st.Motion
	k := n.num
	if n.IsGround() {
		m.VJbJ[k] = spatial.SpatialVec{}
		m.VPBG[k] = spatial.SpatialVec{}
		m.VGB[k] = spatial.SpatialVec{}
		st.SetNodeStage(k, stage.Motion)
		return nil
	}

	rep := n.rep(st)
	q, u := st.NodeQ(k), st.NodeU(k)
	vJbJ, err := n.joint.RelativeVelocity(rep, q, u)
	if err != nil {
		return nodeErr(k, "motion", err)
	}
	var vPB spatial.SpatialVec
	for i, col := range n.H(st) {
		vPB = vPB.Add(col.Scale(u[i]))
	}
	m.VJbJ[k] = vJbJ
	m.VPBG[k] = vPB
	m.VGB[k] = st.Configuration.Phi[k].ShiftVelocity(m.VGB[n.parent]).Add(vPB)

	if err := n.joint.QDot(rep, q, u, n.qRange(m.QDot)); err != nil {
		return nodeErr(k, "qdot", err)
	}
	st.SetNodeStage(k, stage.Motion)
	return nil
}

// CalcVelocityBias computes the Coriolis acceleration and gyroscopic force
// of the body. The parent's motion is current whenever the node's is.
func (n *Node) CalcVelocityBias(st *state.State) error {
	if err := stage.Require(n.num, "velocity bias", st.NodeStage(n.num), stage.Motion); err != nil {
		return err
	}
	d := &st.Dynamics
	k := n.num
	if n.IsGround() {
		d.Coriolis[k] = spatial.SpatialVec{}
		d.Gyroscopic[k] = spatial.SpatialVec{}
		return nil
	}

	c := &st.Configuration
	m := &st.Motion
	vGP := m.VGB[n.parent]
	vGB := m.VGB[k]
	vPB := m.VPBG[k]
	wP := vGP[0]

	hdu, err := n.joint.HDotU(n.rep(st), st.NodeQ(k), st.NodeU(k))
	if err != nil {
		return nodeErr(k, "velocity bias", err)
	}
	rGJb := c.XGJb[k].R
	hdw := rGJb.MulVec(hdu[0])
	hdv := rGJb.MulVec(hdu[1])
	r := spatial.Sub(c.XGB[k].P, c.XGJb[k].Compose(c.XJbJ[k]).P)
	wRel := vPB[0]

	ang := spatial.Add(spatial.Cross(wP, wRel), hdw)
	lin := spatial.Add(
		spatial.Cross(wP, spatial.Sub(vGB[1], vGP[1])),
		spatial.Cross(wP, vPB[1]),
	)
	lin = spatial.Add(lin, hdv)
	lin = spatial.Add(lin, spatial.Cross(hdw, r))
	lin = spatial.Add(lin, spatial.Cross(wRel, spatial.Cross(wRel, r)))
	d.Coriolis[k] = spatial.SpatialVec{ang, lin}

	mass := st.Parameter.Mass[k].Mass
	d.Gyroscopic[k] = spatial.GyroscopicForce(mass, c.InertiaOBG[k], c.COMStation[k], vGB[0])
	return nil
}

// CalcArticulatedBodyInertiasInward forms the articulated inertia P from the
// body's spatial inertia and its children's contributions, then the joint
// quantities D, DI, G, tauBar and psi.
func (n *Node) CalcArticulatedBodyInertiasInward(st *state.State) error {
	if err := n.requireInward(st, "articulated inertia", stage.Dynamics); err != nil {
		return err
	}
	d := &st.Dynamics
	k := n.num
	if n.IsGround() {
		d.P[k] = spatial.SpatialMat{}
		d.TauBar[k] = spatial.IdentitySpatialMat()
		d.Psi[k] = spatial.SpatialMat{}
		return nil
	}

	c := &st.Configuration
	p := c.Mk[k]
	for _, ch := range n.children {
		p = p.Add(d.Psi[ch].Mul(d.P[ch]).Mul(c.Phi[ch].Matrix().T()))
	}
	d.P[k] = p

	h := n.H(st)
	dof := len(h)
	ph := make([]spatial.SpatialVec, dof)
	for j, col := range h {
		ph[j] = p.MulVec(col)
	}
	dm := n.dSlot(d.D)
	for i := 0; i < dof; i++ {
		for j := 0; j < dof; j++ {
			dm[i*dof+j] = h[i].Dot(ph[j])
		}
	}
	di := n.dSlot(d.DI)
	if dof > 0 {
		if err := spatial.InvertSymmetric(dof, dm, di); err != nil {
			return nodeErr(k, "articulated inertia", err)
		}
	}

	g := n.hSlot(d.G)
	tauBar := spatial.IdentitySpatialMat()
	for j := 0; j < dof; j++ {
		var gj spatial.SpatialVec
		for i := 0; i < dof; i++ {
			gj = gj.Add(ph[i].Scale(di[i*dof+j]))
		}
		g[j] = gj
		tauBar = tauBar.Sub(spatial.OuterSpatial(gj, h[j]))
	}
	d.TauBar[k] = tauBar
	d.Psi[k] = c.Phi[k].Apply(tauBar)
	return nil
}

// CalcZ runs the inward half of the Reaction stage: the articulated bias
// force z, the joint residual epsilon, nu = DI epsilon and G epsilon.
func (n *Node) CalcZ(st *state.State) error {
	if err := stage.Require(n.num, "z", st.NodeStage(n.num), stage.Dynamics); err != nil {
		return err
	}
	for _, ch := range n.children {
		if !st.ZDone(ch) {
			return &stage.OrderError{Node: ch, Op: "z", Have: st.NodeStage(ch), Want: stage.Reaction}
		}
	}
	r := &st.Reaction
	k := n.num
	if n.IsGround() {
		r.Z[k] = spatial.SpatialVec{}
		r.GEpsilon[k] = spatial.SpatialVec{}
		st.MarkZ(k)
		return nil
	}

	d := &st.Dynamics
	c := &st.Configuration
	z := d.P[k].MulVec(d.Coriolis[k]).Add(d.Gyroscopic[k]).Sub(st.AppliedBodyForces()[k])
	for _, ch := range n.children {
		z = z.Add(c.Phi[ch].ShiftForce(r.Z[ch].Add(r.GEpsilon[ch])))
	}
	r.Z[k] = z

	h := n.H(st)
	tau := n.uRange(st.MobilityForces())
	eps := n.uRange(r.Epsilon)
	for i, col := range h {
		eps[i] = tau[i] - col.Dot(z)
	}
	dof := len(h)
	di := n.dSlot(d.DI)
	nu := n.uRange(r.Nu)
	for i := 0; i < dof; i++ {
		nu[i] = 0
		for j := 0; j < dof; j++ {
			nu[i] += di[i*dof+j] * eps[j]
		}
	}
	var ge spatial.SpatialVec
	for j, gj := range n.hSlot(d.G) {
		ge = ge.Add(gj.Scale(eps[j]))
	}
	r.GEpsilon[k] = ge
	st.MarkZ(k)
	return nil
}

// CalcAccel runs the outward half of the Reaction stage: udot, the body
// spatial acceleration and qdotdot.
func (n *Node) CalcAccel(st *state.State) error {
	if !st.ZDone(n.num) {
		return &stage.OrderError{Node: n.num, Op: "accel", Have: st.NodeStage(n.num), Want: stage.Reaction}
	}
	if n.parent >= 0 {
		if err := stage.Require(n.parent, "accel", st.NodeStage(n.parent), stage.Reaction); err != nil {
			return err
		}
	}
	r := &st.Reaction
	k := n.num
	if n.IsGround() {
		r.AGB[k] = spatial.SpatialVec{}
		return nil
	}

	// z already carries P times the Coriolis term, so udot sees only the
	// shifted parent acceleration.
	alpha := st.Configuration.Phi[k].ShiftVelocity(r.AGB[n.parent])
	nu := n.uRange(r.Nu)
	udot := n.uRange(r.UDot)
	a := alpha.Add(st.Dynamics.Coriolis[k])
	h := n.H(st)
	for j, gj := range n.hSlot(st.Dynamics.G) {
		udot[j] = nu[j] - gj.Dot(alpha)
		a = a.Add(h[j].Scale(udot[j]))
	}
	r.AGB[k] = a

	if err := n.joint.QDotDot(n.rep(st), st.NodeQ(k), st.NodeU(k), udot, n.qRange(r.QDotDot)); err != nil {
		return nodeErr(k, "qdotdot", err)
	}
	return nil
}

// CalcYOutward computes Y = H DI H^T + psi^T Y_parent psi. Y of ground is
// zero.
func (n *Node) CalcYOutward(st *state.State) error {
	if !st.ZDone(n.num) {
		return &stage.OrderError{Node: n.num, Op: "y", Have: st.NodeStage(n.num), Want: stage.Reaction}
	}
	r := &st.Reaction
	k := n.num
	if n.IsGround() {
		r.Y[k] = spatial.SpatialMat{}
		return nil
	}
	if err := stage.Require(n.parent, "y", st.NodeStage(n.parent), stage.Reaction); err != nil {
		return err
	}

	d := &st.Dynamics
	h := n.H(st)
	dof := len(h)
	di := n.dSlot(d.DI)
	var y spatial.SpatialMat
	for i := 0; i < dof; i++ {
		for j := 0; j < dof; j++ {
			y = y.Add(spatial.OuterSpatial(h[i], h[j]).Scale(di[i*dof+j]))
		}
	}
	psi := d.Psi[k]
	y = y.Add(psi.T().Mul(r.Y[n.parent]).Mul(psi))
	r.Y[k] = y
	return nil
}
