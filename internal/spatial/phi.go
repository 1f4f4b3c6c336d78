package spatial

// Phi is the rigid shift operator
//
//	phi = [ 1  ~l ]
//	      [ 0   1 ]
//
// where l runs from the parent origin to the child origin, expressed in the
// common frame (ground, for the tree).
type Phi struct {
	L Vec3
}

func NewPhi(l Vec3) Phi { return Phi{L: l} }

// ShiftForce moves a spatial force from the child origin to the parent
// origin: phi * F.
func (p Phi) ShiftForce(f SpatialVec) SpatialVec {
	return SpatialVec{Add(f[0], Cross(p.L, f[1])), f[1]}
}

// ShiftVelocity moves a spatial velocity or acceleration from the parent
// origin to the child origin: phi^T * V.
func (p Phi) ShiftVelocity(v SpatialVec) SpatialVec {
	return SpatialVec{v[0], Add(v[1], Cross(v[0], p.L))}
}

// ShiftInertia computes phi * M * phi^T.
func (p Phi) ShiftInertia(m SpatialMat) SpatialMat {
	phi := p.Matrix()
	return phi.Mul(m).Mul(phi.T())
}

// Apply returns phi * M, used to form psi = phi * tauBar.
func (p Phi) Apply(m SpatialMat) SpatialMat {
	return p.Matrix().Mul(m)
}

func (p Phi) Matrix() SpatialMat {
	return SpatialMat{
		{Identity33(), Skew(p.L)},
		{Mat33{}, Identity33()},
	}
}
