package spatial

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

type Vec3 = r3.Vec

var (
	XAxis = Vec3{X: 1}
	YAxis = Vec3{Y: 1}
	ZAxis = Vec3{Z: 1}
)

func Cross(a, b Vec3) Vec3         { return r3.Cross(a, b) }
func Dot(a, b Vec3) float64        { return r3.Dot(a, b) }
func Add(a, b Vec3) Vec3           { return r3.Add(a, b) }
func Sub(a, b Vec3) Vec3           { return r3.Sub(a, b) }
func Scale(f float64, a Vec3) Vec3 { return r3.Scale(f, a) }
func Norm(a Vec3) float64          { return r3.Norm(a) }

// Mat33 is a row-major 3x3 matrix.
type Mat33 [3][3]float64

func Identity33() Mat33 {
	return Mat33{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Diag33 builds diag(d.X, d.Y, d.Z).
func Diag33(d Vec3) Mat33 {
	return Mat33{{d.X, 0, 0}, {0, d.Y, 0}, {0, 0, d.Z}}
}

// Skew returns the cross-product matrix of v, so Skew(v).MulVec(w) == v x w.
func Skew(v Vec3) Mat33 {
	return Mat33{
		{0, -v.Z, v.Y},
		{v.Z, 0, -v.X},
		{-v.Y, v.X, 0},
	}
}

// Outer returns a b^T.
func Outer(a, b Vec3) Mat33 {
	return Mat33{
		{a.X * b.X, a.X * b.Y, a.X * b.Z},
		{a.Y * b.X, a.Y * b.Y, a.Y * b.Z},
		{a.Z * b.X, a.Z * b.Y, a.Z * b.Z},
	}
}

func (m Mat33) Row(i int) Vec3 { return Vec3{X: m[i][0], Y: m[i][1], Z: m[i][2]} }
func (m Mat33) Col(j int) Vec3 { return Vec3{X: m[0][j], Y: m[1][j], Z: m[2][j]} }

func (m Mat33) MulVec(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[0][1]*v.Y + m[0][2]*v.Z,
		Y: m[1][0]*v.X + m[1][1]*v.Y + m[1][2]*v.Z,
		Z: m[2][0]*v.X + m[2][1]*v.Y + m[2][2]*v.Z,
	}
}

// MulVecT returns m^T v.
func (m Mat33) MulVecT(v Vec3) Vec3 {
	return Vec3{
		X: m[0][0]*v.X + m[1][0]*v.Y + m[2][0]*v.Z,
		Y: m[0][1]*v.X + m[1][1]*v.Y + m[2][1]*v.Z,
		Z: m[0][2]*v.X + m[1][2]*v.Y + m[2][2]*v.Z,
	}
}

func (m Mat33) Mul(n Mat33) Mat33 {
	var r Mat33
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][0]*n[0][j] + m[i][1]*n[1][j] + m[i][2]*n[2][j]
		}
	}
	return r
}

func (m Mat33) T() Mat33 {
	return Mat33{
		{m[0][0], m[1][0], m[2][0]},
		{m[0][1], m[1][1], m[2][1]},
		{m[0][2], m[1][2], m[2][2]},
	}
}

func (m Mat33) Add(n Mat33) Mat33 {
	var r Mat33
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] + n[i][j]
		}
	}
	return r
}

func (m Mat33) Sub(n Mat33) Mat33 {
	var r Mat33
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = m[i][j] - n[i][j]
		}
	}
	return r
}

func (m Mat33) Scale(f float64) Mat33 {
	var r Mat33
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r[i][j] = f * m[i][j]
		}
	}
	return r
}

func (m Mat33) ApproxEqual(n Mat33, tol float64) bool {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if math.Abs(m[i][j]-n[i][j]) > tol {
				return false
			}
		}
	}
	return true
}

func RotX(a float64) Mat33 {
	s, c := math.Sincos(a)
	return Mat33{{1, 0, 0}, {0, c, -s}, {0, s, c}}
}

func RotY(a float64) Mat33 {
	s, c := math.Sincos(a)
	return Mat33{{c, 0, s}, {0, 1, 0}, {-s, 0, c}}
}

func RotZ(a float64) Mat33 {
	s, c := math.Sincos(a)
	return Mat33{{c, -s, 0}, {s, c, 0}, {0, 0, 1}}
}

// FromBodyXYZ builds Rx(a)*Ry(b)*Rz(c), the body-fixed 1-2-3 sequence.
func FromBodyXYZ(a, b, c float64) Mat33 {
	return RotX(a).Mul(RotY(b)).Mul(RotZ(c))
}

// ToBodyXYZ inverts FromBodyXYZ. The middle angle lies in [-pi/2, pi/2].
func (m Mat33) ToBodyXYZ() (a, b, c float64) {
	sb := math.Max(-1, math.Min(1, m[0][2]))
	b = math.Asin(sb)
	a = math.Atan2(-m[1][2], m[2][2])
	c = math.Atan2(-m[0][1], m[0][0])
	return a, b, c
}

// FromQuaternion returns the rotation matrix of a unit quaternion.
func FromQuaternion(q quat.Number) Mat33 {
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return Mat33{
		{1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y)},
		{2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x)},
		{2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y)},
	}
}

// ToQuaternion converts a rotation matrix to a unit quaternion with a
// non-negative scalar part.
func (m Mat33) ToQuaternion() quat.Number {
	var q quat.Number
	tr := m[0][0] + m[1][1] + m[2][2]
	switch {
	case tr > 0:
		s := 2 * math.Sqrt(1+tr)
		q = quat.Number{
			Real: 0.25 * s,
			Imag: (m[2][1] - m[1][2]) / s,
			Jmag: (m[0][2] - m[2][0]) / s,
			Kmag: (m[1][0] - m[0][1]) / s,
		}
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := 2 * math.Sqrt(1+m[0][0]-m[1][1]-m[2][2])
		q = quat.Number{
			Real: (m[2][1] - m[1][2]) / s,
			Imag: 0.25 * s,
			Jmag: (m[0][1] + m[1][0]) / s,
			Kmag: (m[0][2] + m[2][0]) / s,
		}
	case m[1][1] > m[2][2]:
		s := 2 * math.Sqrt(1+m[1][1]-m[0][0]-m[2][2])
		q = quat.Number{
			Real: (m[0][2] - m[2][0]) / s,
			Imag: (m[0][1] + m[1][0]) / s,
			Jmag: 0.25 * s,
			Kmag: (m[1][2] + m[2][1]) / s,
		}
	default:
		s := 2 * math.Sqrt(1+m[2][2]-m[0][0]-m[1][1])
		q = quat.Number{
			Real: (m[1][0] - m[0][1]) / s,
			Imag: (m[0][2] + m[2][0]) / s,
			Jmag: (m[1][2] + m[2][1]) / s,
			Kmag: 0.25 * s,
		}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}
