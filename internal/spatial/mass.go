package spatial

import (
	"errors"
	"fmt"
)

var ErrInvalidMass = errors.New("spatial: invalid mass properties")

// MassProperties describes a rigid body in its own frame B: total mass, the
// station of the center of mass, and the inertia about the B origin.
type MassProperties struct {
	Mass    float64
	COM     Vec3
	Inertia Mat33
}

// NewMassProperties takes the inertia about the center of mass and shifts it
// to the body origin.
func NewMassProperties(mass float64, com Vec3, inertiaCOM Mat33) (MassProperties, error) {
	if mass < 0 {
		return MassProperties{}, fmt.Errorf("%w: negative mass %g", ErrInvalidMass, mass)
	}
	return MassProperties{
		Mass:    mass,
		COM:     com,
		Inertia: inertiaCOM.Add(PointInertia(mass, com)),
	}, nil
}

// PointMass is a particle of mass m located at com.
func PointMass(mass float64, com Vec3) MassProperties {
	return MassProperties{Mass: mass, COM: com, Inertia: PointInertia(mass, com)}
}

// PointInertia is the inertia about the origin of a mass m located at p.
func PointInertia(mass float64, p Vec3) Mat33 {
	return Identity33().Scale(Dot(p, p)).Sub(Outer(p, p)).Scale(mass)
}

// CentroidalInertia returns the inertia about the center of mass.
func (m MassProperties) CentroidalInertia() Mat33 {
	return m.Inertia.Sub(PointInertia(m.Mass, m.COM))
}

// ReexpressInertia rotates the inertia to another frame: R I R^T.
func ReexpressInertia(r Mat33, inertia Mat33) Mat33 {
	return r.Mul(inertia).Mul(r.T())
}

// SpatialInertia returns the 6x6 inertia about the body origin expressed in
// the frame G given R_GB:
//
//	[ I_G       m ~c_G ]
//	[ -m ~c_G   m 1    ]
func (m MassProperties) SpatialInertia(rGB Mat33) SpatialMat {
	iG := ReexpressInertia(rGB, m.Inertia)
	cG := rGB.MulVec(m.COM)
	mc := Skew(cG).Scale(m.Mass)
	return SpatialMat{
		{iG, mc},
		{mc.Scale(-1), Identity33().Scale(m.Mass)},
	}
}

// GyroscopicForce is the velocity-dependent spatial force of a body with
// angular velocity w, inertia iG about its origin and mass center station cG,
// all expressed in G.
func GyroscopicForce(mass float64, iG Mat33, cG, w Vec3) SpatialVec {
	return SpatialVec{
		Cross(w, iG.MulVec(w)),
		Scale(mass, Cross(w, Cross(w, cG))),
	}
}
