package spatial

import "math"

// SpatialVec holds an angular part [0] and a linear part [1].
type SpatialVec [2]Vec3

func NewSpatialVec(angular, linear Vec3) SpatialVec {
	return SpatialVec{angular, linear}
}

func (v SpatialVec) Angular() Vec3 { return v[0] }
func (v SpatialVec) Linear() Vec3  { return v[1] }

func (v SpatialVec) Add(w SpatialVec) SpatialVec {
	return SpatialVec{Add(v[0], w[0]), Add(v[1], w[1])}
}

func (v SpatialVec) Sub(w SpatialVec) SpatialVec {
	return SpatialVec{Sub(v[0], w[0]), Sub(v[1], w[1])}
}

func (v SpatialVec) Scale(f float64) SpatialVec {
	return SpatialVec{Scale(f, v[0]), Scale(f, v[1])}
}

func (v SpatialVec) Dot(w SpatialVec) float64 {
	return Dot(v[0], w[0]) + Dot(v[1], w[1])
}

// At returns component i in [0, 6).
func (v SpatialVec) At(i int) float64 {
	c := v[i/3]
	switch i % 3 {
	case 0:
		return c.X
	case 1:
		return c.Y
	}
	return c.Z
}

func (v SpatialVec) ApproxEqual(w SpatialVec, tol float64) bool {
	for i := 0; i < 6; i++ {
		if math.Abs(v.At(i)-w.At(i)) > tol {
			return false
		}
	}
	return true
}

// UnitSpatialVec returns the i-th column of the 6x6 identity.
func UnitSpatialVec(i int) SpatialVec {
	var v SpatialVec
	c := Vec3{}
	switch i % 3 {
	case 0:
		c.X = 1
	case 1:
		c.Y = 1
	default:
		c.Z = 1
	}
	v[i/3] = c
	return v
}

// SpatialMat is a 6x6 matrix stored as 3x3 blocks.
type SpatialMat [2][2]Mat33

func IdentitySpatialMat() SpatialMat {
	return SpatialMat{{Identity33(), Mat33{}}, {Mat33{}, Identity33()}}
}

func (m SpatialMat) MulVec(v SpatialVec) SpatialVec {
	return SpatialVec{
		Add(m[0][0].MulVec(v[0]), m[0][1].MulVec(v[1])),
		Add(m[1][0].MulVec(v[0]), m[1][1].MulVec(v[1])),
	}
}

// MulVecT returns m^T v.
func (m SpatialMat) MulVecT(v SpatialVec) SpatialVec {
	return SpatialVec{
		Add(m[0][0].MulVecT(v[0]), m[1][0].MulVecT(v[1])),
		Add(m[0][1].MulVecT(v[0]), m[1][1].MulVecT(v[1])),
	}
}

func (m SpatialMat) Mul(n SpatialMat) SpatialMat {
	var r SpatialMat
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][0].Mul(n[0][j]).Add(m[i][1].Mul(n[1][j]))
		}
	}
	return r
}

func (m SpatialMat) T() SpatialMat {
	return SpatialMat{
		{m[0][0].T(), m[1][0].T()},
		{m[0][1].T(), m[1][1].T()},
	}
}

func (m SpatialMat) Add(n SpatialMat) SpatialMat {
	var r SpatialMat
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][j].Add(n[i][j])
		}
	}
	return r
}

func (m SpatialMat) Sub(n SpatialMat) SpatialMat {
	var r SpatialMat
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][j].Sub(n[i][j])
		}
	}
	return r
}

func (m SpatialMat) Scale(f float64) SpatialMat {
	var r SpatialMat
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			r[i][j] = m[i][j].Scale(f)
		}
	}
	return r
}

// At returns element (i, j) of the full 6x6 matrix.
func (m SpatialMat) At(i, j int) float64 {
	return m[i/3][j/3][i%3][j%3]
}

func (m SpatialMat) Set(i, j int, v float64) SpatialMat {
	m[i/3][j/3][i%3][j%3] = v
	return m
}

func (m SpatialMat) ApproxEqual(n SpatialMat, tol float64) bool {
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if !m[i][j].ApproxEqual(n[i][j], tol) {
				return false
			}
		}
	}
	return true
}

// OuterSpatial returns a b^T.
func OuterSpatial(a, b SpatialVec) SpatialMat {
	return SpatialMat{
		{Outer(a[0], b[0]), Outer(a[0], b[1])},
		{Outer(a[1], b[0]), Outer(a[1], b[1])},
	}
}
