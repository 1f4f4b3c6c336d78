package tree

import (
	"errors"
	"fmt"
)

var (
	// ErrOperationNotImplemented indicates a node operation that does not
	// apply to the node, such as fitting coordinates for ground.
	ErrOperationNotImplemented = errors.New("tree: operation not implemented for node")

	// ErrTreeFinished indicates a topology change after Finish.
	ErrTreeFinished = errors.New("tree: topology is finished")

	// ErrTreeNotFinished indicates a use of the tree that needs Finish first.
	ErrTreeNotFinished = errors.New("tree: topology is not finished")

	ErrInvalidParent = errors.New("tree: invalid parent")
	ErrDuplicateName = errors.New("tree: duplicate body name")
	ErrUnknownBody   = errors.New("tree: unknown body")

	// ErrStateMismatch indicates a state allocated for a different layout.
	ErrStateMismatch = errors.New("tree: state does not match tree layout")
)

// NodeError attaches the node number and the failing operation.
type NodeError struct {
	Node int
	Op   string
	Err  error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("tree: node %d %s: %v", e.Node, e.Op, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

func nodeErr(node int, op string, err error) error {
	if err == nil {
		return nil
	}
	return &NodeError{Node: node, Op: op, Err: err}
}
