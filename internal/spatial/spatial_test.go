package spatial

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/num/quat"
)

const tol = 1e-12

func randVec(r *rand.Rand) Vec3 {
	return Vec3{X: r.NormFloat64(), Y: r.NormFloat64(), Z: r.NormFloat64()}
}

func randTransform(r *rand.Rand) Transform {
	return NewTransform(FromBodyXYZ(r.Float64()*6-3, r.Float64()*3-1.5, r.Float64()*6-3), randVec(r))
}

func TestTransform_InverseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		x := randTransform(r)
		assert.True(t, x.Compose(x.Inverse()).IsIdentity(1e-12), "X*inv(X) != I for %v", x)
		assert.True(t, x.Inverse().Compose(x).IsIdentity(1e-12), "inv(X)*X != I for %v", x)
	}
}

func TestTransform_ComposeAssociative(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 50; i++ {
		a, b, c := randTransform(r), randTransform(r), randTransform(r)
		left := a.Compose(b).Compose(c)
		right := a.Compose(b.Compose(c))
		assert.True(t, left.ApproxEqual(right, 1e-10))
	}
}

func TestTransform_Apply(t *testing.T) {
	x := NewTransform(RotZ(math.Pi/2), Vec3{X: 1})
	p := x.Apply(Vec3{X: 1})
	assert.InDelta(t, 1.0, p.X, tol)
	assert.InDelta(t, 1.0, p.Y, tol)
	assert.InDelta(t, 0.0, p.Z, tol)
}

func TestBodyXYZ_RoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		a, b, c float64
	}{
		{"zero", 0, 0, 0},
		{"small", 0.1, -0.2, 0.3},
		{"large", 2.5, 1.2, -2.9},
		{"negative middle", -1, -1.4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FromBodyXYZ(tt.a, tt.b, tt.c)
			a, b, c := r.ToBodyXYZ()
			assert.True(t, FromBodyXYZ(a, b, c).ApproxEqual(r, 1e-12))
			assert.InDelta(t, tt.b, b, 1e-12)
		})
	}
}

func TestQuaternion_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		q := quat.Number{Real: r.NormFloat64(), Imag: r.NormFloat64(), Jmag: r.NormFloat64(), Kmag: r.NormFloat64()}
		q = quat.Scale(1/quat.Abs(q), q)
		rot := FromQuaternion(q)
		assert.True(t, rot.Mul(rot.T()).ApproxEqual(Identity33(), 1e-12))

		back := rot.ToQuaternion()
		assert.InDelta(t, 1.0, quat.Abs(back), 1e-12)
		assert.True(t, FromQuaternion(back).ApproxEqual(rot, 1e-12))
	}
}

func TestSkew(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: -4, Y: 0.5, Z: 2}
	assert.True(t, approxVec(Cross(a, b), Skew(a).MulVec(b), tol))
}

func TestPhi_ShiftsMatchMatrix(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	phi := NewPhi(randVec(r))
	v := SpatialVec{randVec(r), randVec(r)}

	m := phi.Matrix()
	assert.True(t, phi.ShiftForce(v).ApproxEqual(m.MulVec(v), tol))
	assert.True(t, phi.ShiftVelocity(v).ApproxEqual(m.MulVecT(v), tol))
}

func TestPhi_PowerIsFrameIndependent(t *testing.T) {
	// F_parent . V_parent == F_child . V_child for a rigid shift.
	r := rand.New(rand.NewSource(5))
	phi := NewPhi(randVec(r))
	vParent := SpatialVec{randVec(r), randVec(r)}
	fChild := SpatialVec{randVec(r), randVec(r)}

	vChild := phi.ShiftVelocity(vParent)
	fParent := phi.ShiftForce(fChild)
	assert.InDelta(t, fChild.Dot(vChild), fParent.Dot(vParent), 1e-12)
}

func TestPhi_ShiftInertiaMovesOrigin(t *testing.T) {
	r := rand.New(rand.NewSource(6))
	ic := Diag33(Vec3{X: 0.2, Y: 0.5, Z: 0.9})
	mp, err := NewMassProperties(1.7, randVec(r), ic)
	require.NoError(t, err)
	rot := FromBodyXYZ(0.7, -0.2, 1.3)
	l := randVec(r)

	// The parent origin sits at -l from the child origin, so the mass center
	// is l + c_G away from it.
	about, err := NewMassProperties(mp.Mass, Add(mp.COM, rot.MulVecT(l)), ic)
	require.NoError(t, err)

	got := NewPhi(l).ShiftInertia(mp.SpatialInertia(rot))
	assert.True(t, got.ApproxEqual(about.SpatialInertia(rot), 1e-12), "got %v want %v", got, about.SpatialInertia(rot))
	assert.True(t, NewPhi(Vec3{}).ShiftInertia(got).ApproxEqual(got, 1e-15))
}

func TestMassProperties_SpatialInertiaMomentum(t *testing.T) {
	mp, err := NewMassProperties(2, Vec3{X: 0.3, Y: -0.1}, Diag33(Vec3{X: 0.1, Y: 0.2, Z: 0.3}))
	require.NoError(t, err)

	rot := FromBodyXYZ(0.3, -0.4, 1.1)
	mk := mp.SpatialInertia(rot)

	w := Vec3{X: 0.5, Y: -1, Z: 2}
	v := Vec3{X: 1, Y: 0.2, Z: -0.7}
	h := mk.MulVec(SpatialVec{w, v})

	cG := rot.MulVec(mp.COM)
	vCOM := Add(v, Cross(w, cG))
	assert.True(t, approxVec(Scale(mp.Mass, vCOM), h[1], 1e-12), "linear momentum must be m*v_com")
	assert.True(t, mk.ApproxEqual(mk.T(), 1e-12), "spatial inertia must be symmetric")
}

func approxVec(a, b Vec3, tol float64) bool {
	d := Sub(a, b)
	return math.Abs(d.X) <= tol && math.Abs(d.Y) <= tol && math.Abs(d.Z) <= tol
}

func TestMassProperties_Centroidal(t *testing.T) {
	ic := Diag33(Vec3{X: 0.1, Y: 0.2, Z: 0.3})
	mp, err := NewMassProperties(3, Vec3{X: 1, Y: 2, Z: -1}, ic)
	require.NoError(t, err)
	assert.True(t, mp.CentroidalInertia().ApproxEqual(ic, 1e-12))

	_, err = NewMassProperties(-1, Vec3{}, ic)
	assert.ErrorIs(t, err, ErrInvalidMass)
}

func TestInvertSymmetric(t *testing.T) {
	a := []float64{4, 1, 1, 3}
	dst := make([]float64, 4)
	require.NoError(t, InvertSymmetric(2, a, dst))

	// a * dst == I
	assert.InDelta(t, 1.0, a[0]*dst[0]+a[1]*dst[2], tol)
	assert.InDelta(t, 0.0, a[0]*dst[1]+a[1]*dst[3], tol)
	assert.InDelta(t, 1.0, a[2]*dst[1]+a[3]*dst[3], tol)

	err := InvertSymmetric(2, []float64{1, 1, 1, 1}, dst)
	assert.ErrorIs(t, err, ErrSingular)
}

func TestSpatialMat_Inverse(t *testing.T) {
	// A point mass is singular about its own COM, so give it some spread.
	mp, err := NewMassProperties(2, Vec3{Y: -1}, Diag33(Vec3{X: 0.1, Y: 0.1, Z: 0.1}))
	require.NoError(t, err)
	mk := mp.SpatialInertia(Identity33())

	inv, err := mk.Inverse()
	require.NoError(t, err)
	assert.True(t, mk.Mul(inv).ApproxEqual(IdentitySpatialMat(), 1e-10))
}
