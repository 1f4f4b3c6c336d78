package state

import (
	"github.com/san-kum/mbtree/internal/joint"
	"github.com/san-kum/mbtree/internal/spatial"
)

// Each cache is a table with one column per quantity. Node-indexed columns
// have one entry per node; columns noted as u- or usq-indexed are sliced by
// the node's layout ranges.

type ModelingCache struct {
	Rep []joint.Representation
}

type ParameterCache struct {
	Mass   []spatial.MassProperties
	XPJb   []spatial.Transform
	XBJ    []spatial.Transform
	XJB    []spatial.Transform
	RefXPB []spatial.Transform // X_PB when X_JbJ is the identity
}

type ConfigurationCache struct {
	XJbJ       []spatial.Transform
	XPB        []spatial.Transform
	XGB        []spatial.Transform
	XGJb       []spatial.Transform
	Phi        []spatial.Phi
	Mk         []spatial.SpatialMat // spatial inertia about OB, in G
	COMStation []spatial.Vec3       // OB to the mass center, in G
	COMG       []spatial.Vec3       // mass center location in G
	InertiaOBG []spatial.Mat33
	H          []spatial.SpatialVec // u-indexed, in G about OB
}

type MotionCache struct {
	VJbJ []spatial.SpatialVec // in Jb
	VPBG []spatial.SpatialVec
	VGB  []spatial.SpatialVec
	QDot []float64 // q-indexed
}

type DynamicsCache struct {
	Coriolis   []spatial.SpatialVec
	Gyroscopic []spatial.SpatialVec
	P          []spatial.SpatialMat
	TauBar     []spatial.SpatialMat
	Psi        []spatial.SpatialMat
	D          []float64            // usq-indexed, row-major
	DI         []float64            // usq-indexed, row-major
	G          []spatial.SpatialVec // u-indexed columns of P H DI
}

type ReactionCache struct {
	Z        []spatial.SpatialVec
	GEpsilon []spatial.SpatialVec
	AGB      []spatial.SpatialVec
	Y        []spatial.SpatialMat
	Epsilon  []float64 // u-indexed
	Nu       []float64 // u-indexed
	UDot     []float64 // u-indexed
	QDotDot  []float64 // q-indexed
}

func (c *ModelingCache) allocate(l Layout) {
	n := l.NumNodes()
	c.Rep = make([]joint.Representation, n)
}

func (c *ParameterCache) allocate(l Layout) {
	n := l.NumNodes()
	c.Mass = make([]spatial.MassProperties, n)
	c.XPJb = make([]spatial.Transform, n)
	c.XBJ = make([]spatial.Transform, n)
	c.XJB = make([]spatial.Transform, n)
	c.RefXPB = make([]spatial.Transform, n)
}

func (c *ConfigurationCache) allocate(l Layout) {
	n := l.NumNodes()
	c.XJbJ = make([]spatial.Transform, n)
	c.XPB = make([]spatial.Transform, n)
	c.XGB = make([]spatial.Transform, n)
	c.XGJb = make([]spatial.Transform, n)
	c.Phi = make([]spatial.Phi, n)
	c.Mk = make([]spatial.SpatialMat, n)
	c.COMStation = make([]spatial.Vec3, n)
	c.COMG = make([]spatial.Vec3, n)
	c.InertiaOBG = make([]spatial.Mat33, n)
	c.H = make([]spatial.SpatialVec, l.NU)
}

func (c *MotionCache) allocate(l Layout) {
	n := l.NumNodes()
	c.VJbJ = make([]spatial.SpatialVec, n)
	c.VPBG = make([]spatial.SpatialVec, n)
	c.VGB = make([]spatial.SpatialVec, n)
	c.QDot = make([]float64, l.NQ)
}

func (c *DynamicsCache) allocate(l Layout) {
	n := l.NumNodes()
	c.Coriolis = make([]spatial.SpatialVec, n)
	c.Gyroscopic = make([]spatial.SpatialVec, n)
	c.P = make([]spatial.SpatialMat, n)
	c.TauBar = make([]spatial.SpatialMat, n)
	c.Psi = make([]spatial.SpatialMat, n)
	c.D = make([]float64, l.NUSq)
	c.DI = make([]float64, l.NUSq)
	c.G = make([]spatial.SpatialVec, l.NU)
}

func (c *ReactionCache) allocate(l Layout) {
	n := l.NumNodes()
	c.Z = make([]spatial.SpatialVec, n)
	c.GEpsilon = make([]spatial.SpatialVec, n)
	c.AGB = make([]spatial.SpatialVec, n)
	c.Y = make([]spatial.SpatialMat, n)
	c.Epsilon = make([]float64, l.NU)
	c.Nu = make([]float64, l.NU)
	c.UDot = make([]float64, l.NU)
	c.QDotDot = make([]float64, l.NQ)
}

func (c ModelingCache) clone() ModelingCache {
	return ModelingCache{Rep: cloneSlice(c.Rep)}
}

func (c ParameterCache) clone() ParameterCache {
	return ParameterCache{
		Mass:   cloneSlice(c.Mass),
		XPJb:   cloneSlice(c.XPJb),
		XBJ:    cloneSlice(c.XBJ),
		XJB:    cloneSlice(c.XJB),
		RefXPB: cloneSlice(c.RefXPB),
	}
}

func (c ConfigurationCache) clone() ConfigurationCache {
	return ConfigurationCache{
		XJbJ:       cloneSlice(c.XJbJ),
		XPB:        cloneSlice(c.XPB),
		XGB:        cloneSlice(c.XGB),
		XGJb:       cloneSlice(c.XGJb),
		Phi:        cloneSlice(c.Phi),
		Mk:         cloneSlice(c.Mk),
		COMStation: cloneSlice(c.COMStation),
		COMG:       cloneSlice(c.COMG),
		InertiaOBG: cloneSlice(c.InertiaOBG),
		H:          cloneSlice(c.H),
	}
}

func (c MotionCache) clone() MotionCache {
	return MotionCache{
		VJbJ: cloneSlice(c.VJbJ),
		VPBG: cloneSlice(c.VPBG),
		VGB:  cloneSlice(c.VGB),
		QDot: cloneSlice(c.QDot),
	}
}

func (c DynamicsCache) clone() DynamicsCache {
	return DynamicsCache{
		Coriolis:   cloneSlice(c.Coriolis),
		Gyroscopic: cloneSlice(c.Gyroscopic),
		P:          cloneSlice(c.P),
		TauBar:     cloneSlice(c.TauBar),
		Psi:        cloneSlice(c.Psi),
		D:          cloneSlice(c.D),
		DI:         cloneSlice(c.DI),
		G:          cloneSlice(c.G),
	}
}

func (c ReactionCache) clone() ReactionCache {
	return ReactionCache{
		Z:        cloneSlice(c.Z),
		GEpsilon: cloneSlice(c.GEpsilon),
		AGB:      cloneSlice(c.AGB),
		Y:        cloneSlice(c.Y),
		Epsilon:  cloneSlice(c.Epsilon),
		Nu:       cloneSlice(c.Nu),
		UDot:     cloneSlice(c.UDot),
		QDotDot:  cloneSlice(c.QDotDot),
	}
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	c := make([]T, len(s))
	copy(c, s)
	return c
}
