package joint

import (
	"math"

	"github.com/san-kum/mbtree/internal/spatial"
	"gonum.org/v1/gonum/num/quat"
)

func quatOf(q []float64) quat.Number {
	return quat.Number{Real: q[0], Imag: q[1], Jmag: q[2], Kmag: q[3]}
}

func vecOf(v []float64) spatial.Vec3 {
	return spatial.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

// orientation returns R_JbJ for Ball and Free joints; the rotation
// coordinates always lead q.
func (m Model) orientation(rep Representation, q []float64) (spatial.Mat33, error) {
	if rep == EulerAngles {
		return spatial.FromBodyXYZ(q[0], q[1], q[2]), nil
	}
	n := quat.Abs(quatOf(q))
	if n == 0 || math.IsNaN(n) {
		return spatial.Mat33{}, ErrDegenerateConfiguration
	}
	return spatial.FromQuaternion(quat.Scale(1/n, quatOf(q))), nil
}

// translationOffset is where the translational coordinates of a Free joint
// start.
func (m Model) translationOffset(rep Representation) int {
	if rep == EulerAngles {
		return 3
	}
	return 4
}

// Transform returns X_JbJ, the across-joint transform. It is the identity
// when q holds the default coordinates.
func (m Model) Transform(rep Representation, q []float64) (spatial.Transform, error) {
	if err := m.checkLen("transform", q, nil); err != nil {
		return spatial.Transform{}, err
	}
	switch m.kind {
	case Pin:
		return spatial.NewTransform(spatial.RotZ(q[0]), spatial.Vec3{}), nil
	case Slider:
		return spatial.Translation(spatial.Vec3{X: q[0]}), nil
	case Cylinder:
		return spatial.NewTransform(spatial.RotZ(q[0]), spatial.Vec3{Z: q[1]}), nil
	case Universal:
		return spatial.NewTransform(spatial.RotX(q[0]).Mul(spatial.RotY(q[1])), spatial.Vec3{}), nil
	case Planar:
		return spatial.NewTransform(spatial.RotZ(q[0]), spatial.Vec3{X: q[1], Y: q[2]}), nil
	case Ball:
		r, err := m.orientation(rep, q)
		if err != nil {
			return spatial.Transform{}, m.fail("transform", err)
		}
		return spatial.NewTransform(r, spatial.Vec3{}), nil
	case Free:
		r, err := m.orientation(rep, q)
		if err != nil {
			return spatial.Transform{}, m.fail("transform", err)
		}
		off := m.translationOffset(rep)
		return spatial.NewTransform(r, vecOf(q[off:off+3])), nil
	}
	return spatial.IdentityTransform(), nil
}

// MotionSubspace writes the DOF columns of H into h. Column i is the
// relative spatial velocity of J in Jb (about the J origin, expressed in Jb)
// produced by a unit value of u[i].
func (m Model) MotionSubspace(rep Representation, q []float64, h []spatial.SpatialVec) error {
	if err := m.checkLen("motion subspace", q, nil); err != nil {
		return err
	}
	if len(h) != m.DOF() {
		return m.fail("motion subspace", ErrCoordinateLength)
	}
	z := spatial.Vec3{}
	switch m.kind {
	case Pin:
		h[0] = spatial.SpatialVec{spatial.ZAxis, z}
	case Slider:
		h[0] = spatial.SpatialVec{z, spatial.XAxis}
	case Cylinder:
		h[0] = spatial.SpatialVec{spatial.ZAxis, z}
		h[1] = spatial.SpatialVec{z, spatial.ZAxis}
	case Universal:
		s, c := math.Sincos(q[0])
		h[0] = spatial.SpatialVec{spatial.XAxis, z}
		h[1] = spatial.SpatialVec{spatial.Vec3{Y: c, Z: s}, z}
	case Planar:
		h[0] = spatial.SpatialVec{spatial.ZAxis, z}
		h[1] = spatial.SpatialVec{z, spatial.XAxis}
		h[2] = spatial.SpatialVec{z, spatial.YAxis}
	case Ball, Free:
		for i := range h {
			h[i] = spatial.UnitSpatialVec(i)
		}
	}
	return nil
}

// HDotU is the velocity-product term dH/dt * u in Jb.
func (m Model) HDotU(rep Representation, q, u []float64) (spatial.SpatialVec, error) {
	if err := m.checkLen("hdot", q, u); err != nil {
		return spatial.SpatialVec{}, err
	}
	if m.kind != Universal {
		return spatial.SpatialVec{}, nil
	}
	s, c := math.Sincos(q[0])
	w := u[0] * u[1]
	return spatial.SpatialVec{spatial.Vec3{Y: -s * w, Z: c * w}, spatial.Vec3{}}, nil
}

// RelativeVelocity returns V_JbJ = H(q) u.
func (m Model) RelativeVelocity(rep Representation, q, u []float64) (spatial.SpatialVec, error) {
	if err := m.checkLen("relative velocity", q, u); err != nil {
		return spatial.SpatialVec{}, err
	}
	h := make([]spatial.SpatialVec, m.DOF())
	if err := m.MotionSubspace(rep, q, h); err != nil {
		return spatial.SpatialVec{}, err
	}
	var v spatial.SpatialVec
	for i, col := range h {
		v = v.Add(col.Scale(u[i]))
	}
	return v, nil
}
