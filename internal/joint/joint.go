package joint

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDegenerateConfiguration indicates coordinates that do not describe a
	// valid configuration (zero-norm quaternion, Euler gimbal lock).
	ErrDegenerateConfiguration = errors.New("joint: degenerate configuration")

	// ErrUnsupportedJointOperation indicates an operation outside the joint's
	// capability table.
	ErrUnsupportedJointOperation = errors.New("joint: unsupported operation")

	ErrUnknownKind = errors.New("joint: unknown kind")

	// ErrCoordinateLength indicates a q, u or udot slice of the wrong size.
	ErrCoordinateLength = errors.New("joint: wrong coordinate slice length")
)

// Error attaches the joint kind and operation to a joint failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("joint %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Kind int

const (
	Weld Kind = iota
	Pin
	Slider
	Cylinder
	Universal
	Planar
	Ball
	Free
	numKinds
)

// Representation selects how orientation joints store their rotation.
type Representation int

const (
	Quaternion Representation = iota
	EulerAngles
)

func (r Representation) String() string {
	if r == EulerAngles {
		return "euler"
	}
	return "quaternion"
}

// Capability marks optional operations a joint kind supports.
type Capability uint8

const (
	// CapFitTransform: SetQToFitTransform is available.
	CapFitTransform Capability = 1 << iota
	// CapFitVelocity: SetUToFitVelocity is available.
	CapFitVelocity
	// CapOrientation: Ball/Free style rotation with a selectable Representation.
	CapOrientation
	// CapVelocityProduct: the motion subspace depends on q, so HDotU may be
	// non-zero.
	CapVelocityProduct
)

type kindSpec struct {
	name string
	dof  int
	nq   int // under Quaternion, the allocation size
	caps Capability
}

var kindTable = [numKinds]kindSpec{
	Weld:      {"weld", 0, 0, CapFitTransform | CapFitVelocity},
	Pin:       {"pin", 1, 1, CapFitTransform | CapFitVelocity},
	Slider:    {"slider", 1, 1, CapFitTransform | CapFitVelocity},
	Cylinder:  {"cylinder", 2, 2, CapFitTransform | CapFitVelocity},
	Universal: {"universal", 2, 2, CapVelocityProduct},
	Planar:    {"planar", 3, 3, CapFitTransform | CapFitVelocity},
	Ball:      {"ball", 3, 4, CapFitTransform | CapFitVelocity | CapOrientation},
	Free:      {"free", 6, 7, CapFitTransform | CapFitVelocity | CapOrientation},
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindTable[k].name
}

// Kinds lists every joint kind in declaration order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, numKinds)
	for k := Weld; k < numKinds; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k := Weld; k < numKinds; k++ {
		if kindTable[k].name == n {
			return k, nil
		}
	}
	switch n {
	case "revolute", "hinge":
		return Pin, nil
	case "prismatic":
		return Slider, nil
	case "gimbal", "spherical":
		return Ball, nil
	case "fixed":
		return Weld, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Model is the joint-specific part of a tree node. It is a small value; all
// behavior is selected by Kind through the capability table.
type Model struct {
	kind Kind
}

func New(kind Kind) (Model, error) {
	if kind < 0 || kind >= numKinds {
		return Model{}, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}
	return Model{kind: kind}, nil
}

func (m Model) Kind() Kind { return m.kind }

// DOF is the number of generalized speeds.
func (m Model) DOF() int { return kindTable[m.kind].dof }

// MaxNQ is the number of q slots reserved for the joint.
func (m Model) MaxNQ() int { return kindTable[m.kind].nq }

// NQ is the number of q slots in use for the given representation.
func (m Model) NQ(rep Representation) int {
	if rep == EulerAngles && m.Has(CapOrientation) {
		return kindTable[m.kind].nq - 1
	}
	return kindTable[m.kind].nq
}

func (m Model) Capabilities() Capability { return kindTable[m.kind].caps }

func (m Model) Has(c Capability) bool { return kindTable[m.kind].caps&c == c }

// UsesQuaternion reports whether q carries a unit-norm constraint.
func (m Model) UsesQuaternion(rep Representation) bool {
	return rep == Quaternion && m.Has(CapOrientation)
}

func (m Model) fail(op string, err error) error {
	return &Error{Kind: m.kind, Op: op, Err: err}
}

func (m Model) checkLen(op string, q, u []float64) error {
	if len(q) != m.MaxNQ() {
		return m.fail(op, fmt.Errorf("%w: q has %d, want %d", ErrCoordinateLength, len(q), m.MaxNQ()))
	}
	if u != nil && len(u) != m.DOF() {
		return m.fail(op, fmt.Errorf("%w: u has %d, want %d", ErrCoordinateLength, len(u), m.DOF()))
	}
	return nil
}
