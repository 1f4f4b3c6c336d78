package joint

import (
	"fmt"
	"math"

	"github.com/san-kum/mbtree/internal/spatial"
	"gonum.org/v1/gonum/num/quat"
)

// gimbalTol bounds |cos(b)| for the body-fixed XYZ sequence.
const gimbalTol = 1e-10

// DefaultQ writes the reference coordinates, for which X_JbJ is the identity.
func (m Model) DefaultQ(rep Representation, q []float64) error {
	if err := m.checkLen("default q", q, nil); err != nil {
		return err
	}
	for i := range q {
		q[i] = 0
	}
	if m.UsesQuaternion(rep) {
		q[0] = 1
	}
	return nil
}

func (m Model) DefaultU(u []float64) {
	for i := range u {
		u[i] = 0
	}
}

// NormalizeQ enforces the unit-quaternion constraint. It reports whether q
// was modified. A zero quaternion is a degenerate configuration.
func (m Model) NormalizeQ(rep Representation, q []float64) (bool, error) {
	if err := m.checkLen("normalize", q, nil); err != nil {
		return false, err
	}
	if !m.UsesQuaternion(rep) {
		return false, nil
	}
	qn := quatOf(q)
	n := quat.Abs(qn)
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return false, m.fail("normalize", ErrDegenerateConfiguration)
	}
	if n == 1 {
		return false, nil
	}
	q[0], q[1], q[2], q[3] = qn.Real/n, qn.Imag/n, qn.Jmag/n, qn.Kmag/n
	return true, nil
}

// QDot maps generalized speeds to coordinate derivatives.
func (m Model) QDot(rep Representation, q, u, qdot []float64) error {
	if err := m.checkLen("qdot", q, u); err != nil {
		return err
	}
	if len(qdot) != len(q) {
		return m.fail("qdot", ErrCoordinateLength)
	}
	for i := range qdot {
		qdot[i] = 0
	}
	if !m.Has(CapOrientation) {
		copy(qdot, u)
		return nil
	}
	w := vecOf(u[0:3])
	if rep == EulerAngles {
		if err := eulerRates(q[0:3], w, qdot[0:3]); err != nil {
			return m.fail("qdot", err)
		}
	} else {
		d := quatRate(quatOf(q), w)
		qdot[0], qdot[1], qdot[2], qdot[3] = d.Real, d.Imag, d.Jmag, d.Kmag
	}
	if m.kind == Free {
		off := m.translationOffset(rep)
		copy(qdot[off:off+3], u[3:6])
	}
	return nil
}

// QDotDot maps speeds and their derivatives to coordinate second
// derivatives.
func (m Model) QDotDot(rep Representation, q, u, udot, qdotdot []float64) error {
	if err := m.checkLen("qdotdot", q, u); err != nil {
		return err
	}
	if len(udot) != len(u) || len(qdotdot) != len(q) {
		return m.fail("qdotdot", ErrCoordinateLength)
	}
	for i := range qdotdot {
		qdotdot[i] = 0
	}
	if !m.Has(CapOrientation) {
		copy(qdotdot, udot)
		return nil
	}
	w := vecOf(u[0:3])
	wdot := vecOf(udot[0:3])
	if rep == EulerAngles {
		if err := eulerAccels(q[0:3], w, wdot, qdotdot[0:3]); err != nil {
			return m.fail("qdotdot", err)
		}
	} else {
		qn := quatOf(q)
		qd := quatRate(qn, w)
		dd := quat.Add(quatRate(qn, wdot), quatRate(qd, w))
		qdotdot[0], qdotdot[1], qdotdot[2], qdotdot[3] = dd.Real, dd.Imag, dd.Jmag, dd.Kmag
	}
	if m.kind == Free {
		off := m.translationOffset(rep)
		copy(qdotdot[off:off+3], udot[3:6])
	}
	return nil
}

// quatRate is 1/2 [0, w] * q for an angular velocity w expressed in the
// outboard (Jb) frame.
func quatRate(q quat.Number, w spatial.Vec3) quat.Number {
	return quat.Scale(0.5, quat.Mul(quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}, q))
}

// eulerRates inverts w = x*ad + Rx(a)*y*bd + Rx(a)Ry(b)*z*cd.
func eulerRates(ang []float64, w spatial.Vec3, rates []float64) error {
	sa, ca := math.Sincos(ang[0])
	sb, cb := math.Sincos(ang[1])
	if math.Abs(cb) < gimbalTol {
		return fmt.Errorf("%w: gimbal lock at b=%g", ErrDegenerateConfiguration, ang[1])
	}
	cd := (-sa*w.Y + ca*w.Z) / cb
	rates[1] = ca*w.Y + sa*w.Z
	rates[2] = cd
	rates[0] = w.X - sb*cd
	return nil
}

func eulerAccels(ang []float64, w, wdot spatial.Vec3, acc []float64) error {
	var rates [3]float64
	if err := eulerRates(ang, w, rates[:]); err != nil {
		return err
	}
	sa, ca := math.Sincos(ang[0])
	sb, cb := math.Sincos(ang[1])
	ad, bd, cd := rates[0], rates[1], rates[2]

	bdd := ca*wdot.Y + sa*wdot.Z + ad*(-sa*w.Y+ca*w.Z)
	sdot := -sa*wdot.Y + ca*wdot.Z - ad*bd
	cdd := sdot/cb + cd*bd*sb/cb
	add := wdot.X - sb*cdd - cb*bd*cd

	acc[0], acc[1], acc[2] = add, bdd, cdd
	return nil
}

// SetQToFitTransform chooses q so the joint reproduces X_JbJ as closely as
// its mobility allows.
func (m Model) SetQToFitTransform(rep Representation, x spatial.Transform, q []float64) error {
	if !m.Has(CapFitTransform) {
		return m.fail("fit transform", ErrUnsupportedJointOperation)
	}
	if err := m.checkLen("fit transform", q, nil); err != nil {
		return err
	}
	angleZ := math.Atan2(x.R[1][0], x.R[0][0])
	switch m.kind {
	case Pin:
		q[0] = angleZ
	case Slider:
		q[0] = x.P.X
	case Cylinder:
		q[0], q[1] = angleZ, x.P.Z
	case Planar:
		q[0], q[1], q[2] = angleZ, x.P.X, x.P.Y
	case Ball, Free:
		if rep == EulerAngles {
			q[0], q[1], q[2] = x.R.ToBodyXYZ()
		} else {
			qn := x.R.ToQuaternion()
			q[0], q[1], q[2], q[3] = qn.Real, qn.Imag, qn.Jmag, qn.Kmag
		}
		if m.kind == Free {
			off := m.translationOffset(rep)
			q[off], q[off+1], q[off+2] = x.P.X, x.P.Y, x.P.Z
			if rep == EulerAngles {
				q[6] = 0
			}
		} else if rep == EulerAngles {
			q[3] = 0
		}
	}
	return nil
}

// SetUToFitVelocity projects V_JbJ onto the joint's mobilities.
func (m Model) SetUToFitVelocity(rep Representation, q []float64, v spatial.SpatialVec, u []float64) error {
	if !m.Has(CapFitVelocity) {
		return m.fail("fit velocity", ErrUnsupportedJointOperation)
	}
	if err := m.checkLen("fit velocity", q, u); err != nil {
		return err
	}
	h := make([]spatial.SpatialVec, m.DOF())
	if err := m.MotionSubspace(rep, q, h); err != nil {
		return err
	}
	// Columns of every fit-capable H are orthonormal.
	for i, col := range h {
		u[i] = col.Dot(v)
	}
	return nil
}
