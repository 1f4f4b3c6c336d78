package joint

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/mbtree/internal/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, k Kind) Model {
	t.Helper()
	m, err := New(k)
	require.NoError(t, err)
	return m
}

// randomQ draws valid coordinates, keeping Euler angles away from gimbal
// lock.
func randomQ(r *rand.Rand, m Model, rep Representation) []float64 {
	q := make([]float64, m.MaxNQ())
	for i := 0; i < m.NQ(rep); i++ {
		q[i] = r.Float64()*2 - 1
	}
	if m.UsesQuaternion(rep) {
		_, _ = m.NormalizeQ(rep, q)
	}
	return q
}

func randomU(r *rand.Rand, m Model) []float64 {
	u := make([]float64, m.DOF())
	for i := range u {
		u[i] = r.NormFloat64()
	}
	return u
}

func TestKindTable(t *testing.T) {
	tests := []struct {
		kind     Kind
		dof      int
		maxNQ    int
		eulerNQ  int
		fitsPose bool
	}{
		{Weld, 0, 0, 0, true},
		{Pin, 1, 1, 1, true},
		{Slider, 1, 1, 1, true},
		{Cylinder, 2, 2, 2, true},
		{Universal, 2, 2, 2, false},
		{Planar, 3, 3, 3, true},
		{Ball, 3, 4, 3, true},
		{Free, 6, 7, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			m := mustNew(t, tt.kind)
			assert.Equal(t, tt.dof, m.DOF())
			assert.Equal(t, tt.maxNQ, m.MaxNQ())
			assert.Equal(t, tt.maxNQ, m.NQ(Quaternion))
			assert.Equal(t, tt.eulerNQ, m.NQ(EulerAngles))
			assert.Equal(t, tt.fitsPose, m.Has(CapFitTransform))
		})
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind(" Revolute ")
	require.NoError(t, err)
	assert.Equal(t, Pin, got)

	_, err = ParseKind("screw")
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = New(Kind(42))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestTransform_DefaultIsIdentity(t *testing.T) {
	for _, k := range Kinds() {
		for _, rep := range []Representation{Quaternion, EulerAngles} {
			m := mustNew(t, k)
			q := make([]float64, m.MaxNQ())
			require.NoError(t, m.DefaultQ(rep, q))

			x, err := m.Transform(rep, q)
			require.NoError(t, err)
			assert.True(t, x.IsIdentity(0), "%s/%s default transform not identity", k, rep)
		}
	}
}

func TestTransform_InverseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, k := range Kinds() {
		for _, rep := range []Representation{Quaternion, EulerAngles} {
			m := mustNew(t, k)
			for i := 0; i < 50; i++ {
				x, err := m.Transform(rep, randomQ(r, m, rep))
				require.NoError(t, err)
				assert.True(t, x.Compose(x.Inverse()).IsIdentity(1e-12), "%s/%s", k, rep)
			}
		}
	}
}

func TestNormalizeQ(t *testing.T) {
	ball := mustNew(t, Ball)

	tests := []struct {
		name string
		q    []float64
	}{
		{"unit", []float64{1, 0, 0, 0}},
		{"scaled", []float64{2, 0, 0, 0}},
		{"tiny", []float64{1e-9, 2e-9, -1e-9, 3e-9}},
		{"large", []float64{3, -4, 12, 84}},
		{"negative", []float64{-0.5, 0.1, 0.2, -0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ball.NormalizeQ(Quaternion, tt.q)
			require.NoError(t, err)
			n := math.Sqrt(tt.q[0]*tt.q[0] + tt.q[1]*tt.q[1] + tt.q[2]*tt.q[2] + tt.q[3]*tt.q[3])
			assert.InDelta(t, 1.0, n, 1e-14)
		})
	}

	_, err := ball.NormalizeQ(Quaternion, []float64{0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrDegenerateConfiguration)
	var jerr *Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, Ball, jerr.Kind)

	free := mustNew(t, Free)
	q := []float64{0, 0, 0, 2, 5, 6, 7}
	changed, err := free.NormalizeQ(Quaternion, q)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []float64{0, 0, 0, 1, 5, 6, 7}, q)

	changed, err = free.NormalizeQ(EulerAngles, []float64{0, 0, 0, 0, 0, 0, 0})
	require.NoError(t, err, "euler coordinates have no norm constraint")
	assert.False(t, changed)
}

func TestTransform_ZeroQuaternionIsDegenerate(t *testing.T) {
	ball := mustNew(t, Ball)
	_, err := ball.Transform(Quaternion, []float64{0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrDegenerateConfiguration)
}

// The rotation rate implied by qdot must equal the angular velocity from H u.
func TestQDot_MatchesAngularVelocity(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	const h = 1e-6
	for _, k := range Kinds() {
		for _, rep := range []Representation{Quaternion, EulerAngles} {
			m := mustNew(t, k)
			for i := 0; i < 10; i++ {
				q := randomQ(r, m, rep)
				u := randomU(r, m)
				qdot := make([]float64, len(q))
				require.NoError(t, m.QDot(rep, q, u, qdot))

				qp := make([]float64, len(q))
				qm := make([]float64, len(q))
				for j := range q {
					qp[j] = q[j] + h*qdot[j]
					qm[j] = q[j] - h*qdot[j]
				}
				xp, err := m.Transform(rep, qp)
				require.NoError(t, err)
				xm, err := m.Transform(rep, qm)
				require.NoError(t, err)
				x, err := m.Transform(rep, q)
				require.NoError(t, err)

				rdot := xp.R.Sub(xm.R).Scale(1 / (2 * h))
				pdot := spatial.Scale(1/(2*h), spatial.Sub(xp.P, xm.P))
				w := rdot.Mul(x.R.T())

				v, err := m.RelativeVelocity(rep, q, u)
				require.NoError(t, err)
				assert.InDelta(t, v[0].X, w[2][1], 1e-6, "%s/%s wx", k, rep)
				assert.InDelta(t, v[0].Y, w[0][2], 1e-6, "%s/%s wy", k, rep)
				assert.InDelta(t, v[0].Z, w[1][0], 1e-6, "%s/%s wz", k, rep)
				assert.InDelta(t, v[1].X, pdot.X, 1e-6, "%s/%s vx", k, rep)
				assert.InDelta(t, v[1].Y, pdot.Y, 1e-6, "%s/%s vy", k, rep)
				assert.InDelta(t, v[1].Z, pdot.Z, 1e-6, "%s/%s vz", k, rep)
			}
		}
	}
}

func TestQDotDot_FiniteDifference(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	const h = 1e-6
	for _, k := range Kinds() {
		for _, rep := range []Representation{Quaternion, EulerAngles} {
			m := mustNew(t, k)
			q := randomQ(r, m, rep)
			u := randomU(r, m)
			udot := randomU(r, m)

			qdot := make([]float64, len(q))
			require.NoError(t, m.QDot(rep, q, u, qdot))
			qdd := make([]float64, len(q))
			require.NoError(t, m.QDotDot(rep, q, u, udot, qdd))

			q2 := make([]float64, len(q))
			u2 := make([]float64, len(u))
			for j := range q {
				q2[j] = q[j] + h*qdot[j]
			}
			for j := range u {
				u2[j] = u[j] + h*udot[j]
			}
			qdot2 := make([]float64, len(q))
			require.NoError(t, m.QDot(rep, q2, u2, qdot2))
			for j := range q {
				assert.InDelta(t, qdd[j], (qdot2[j]-qdot[j])/h, 1e-4, "%s/%s q[%d]", k, rep, j)
			}
		}
	}
}

func TestQDot_GimbalLock(t *testing.T) {
	ball := mustNew(t, Ball)
	q := []float64{0, math.Pi / 2, 0, 0}
	err := ball.QDot(EulerAngles, q, []float64{1, 0, 0}, make([]float64, 4))
	assert.ErrorIs(t, err, ErrDegenerateConfiguration)
}

func TestHDotU_OnlyUniversal(t *testing.T) {
	r := rand.New(rand.NewSource(17))
	const h = 1e-6
	for _, k := range Kinds() {
		m := mustNew(t, k)
		q := randomQ(r, m, Quaternion)
		u := randomU(r, m)
		hd, err := m.HDotU(Quaternion, q, u)
		require.NoError(t, err)
		if k != Universal {
			assert.Equal(t, spatial.SpatialVec{}, hd, "%s", k)
			continue
		}
		// dH/dt u by finite difference along qdot = u.
		q2 := []float64{q[0] + h*u[0], q[1] + h*u[1]}
		v1, _ := m.RelativeVelocity(Quaternion, q, u)
		v2, _ := m.RelativeVelocity(Quaternion, q2, u)
		fd := v2.Sub(v1).Scale(1 / h)
		assert.True(t, fd.ApproxEqual(hd, 1e-5), "universal hdot %v vs %v", hd, fd)
	}
}

func TestSetQToFitTransform_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(19))
	for _, k := range Kinds() {
		for _, rep := range []Representation{Quaternion, EulerAngles} {
			m := mustNew(t, k)
			if !m.Has(CapFitTransform) {
				continue
			}
			q := randomQ(r, m, rep)
			x, err := m.Transform(rep, q)
			require.NoError(t, err)

			fit := make([]float64, len(q))
			require.NoError(t, m.SetQToFitTransform(rep, x, fit))
			back, err := m.Transform(rep, fit)
			require.NoError(t, err)
			assert.True(t, back.ApproxEqual(x, 1e-12), "%s/%s", k, rep)
		}
	}
}

func TestSetUToFitVelocity_RoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(23))
	for _, k := range Kinds() {
		m := mustNew(t, k)
		if !m.Has(CapFitVelocity) {
			continue
		}
		q := randomQ(r, m, Quaternion)
		u := randomU(r, m)
		v, err := m.RelativeVelocity(Quaternion, q, u)
		require.NoError(t, err)

		fit := make([]float64, len(u))
		require.NoError(t, m.SetUToFitVelocity(Quaternion, q, v, fit))
		for i := range u {
			assert.InDelta(t, u[i], fit[i], 1e-14, "%s u[%d]", k, i)
		}
	}
}

func TestUnsupportedOperations(t *testing.T) {
	u := mustNew(t, Universal)
	err := u.SetQToFitTransform(Quaternion, spatial.IdentityTransform(), make([]float64, 2))
	assert.ErrorIs(t, err, ErrUnsupportedJointOperation)

	err = u.SetUToFitVelocity(Quaternion, make([]float64, 2), spatial.SpatialVec{}, make([]float64, 2))
	assert.ErrorIs(t, err, ErrUnsupportedJointOperation)
}

func TestCoordinateLength(t *testing.T) {
	pin := mustNew(t, Pin)
	_, err := pin.Transform(Quaternion, []float64{1, 2})
	assert.ErrorIs(t, err, ErrCoordinateLength)

	err = pin.QDot(Quaternion, []float64{0}, []float64{1, 2}, []float64{0})
	assert.ErrorIs(t, err, ErrCoordinateLength)
}
