package spatial

import "math"

// Transform is a rigid transform X_AB: R is R_AB and P is the origin of B
// measured from the origin of A, expressed in A.
type Transform struct {
	R Mat33
	P Vec3
}

func IdentityTransform() Transform {
	return Transform{R: Identity33()}
}

func NewTransform(r Mat33, p Vec3) Transform {
	return Transform{R: r, P: p}
}

// Translation returns a transform with no rotation.
func Translation(p Vec3) Transform {
	return Transform{R: Identity33(), P: p}
}

// Compose returns X_AC given X_AB (receiver) and X_BC.
func (x Transform) Compose(y Transform) Transform {
	return Transform{
		R: x.R.Mul(y.R),
		P: Add(x.P, x.R.MulVec(y.P)),
	}
}

// Inverse returns X_BA = (R^T, -R^T p).
func (x Transform) Inverse() Transform {
	rt := x.R.T()
	return Transform{R: rt, P: Scale(-1, rt.MulVec(x.P))}
}

// Apply maps a point given in B to A.
func (x Transform) Apply(p Vec3) Vec3 {
	return Add(x.P, x.R.MulVec(p))
}

func (x Transform) ApproxEqual(y Transform, tol float64) bool {
	if !x.R.ApproxEqual(y.R, tol) {
		return false
	}
	d := Sub(x.P, y.P)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

func (x Transform) IsIdentity(tol float64) bool {
	return x.ApproxEqual(IdentityTransform(), tol)
}
