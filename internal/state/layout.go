package state

import (
	"errors"
	"fmt"
)

var (
	ErrLayout         = errors.New("state: invalid layout")
	ErrGroundOverride = errors.New("state: ground cannot be overridden")
)

// NodeLayout is the slice of the global arrays owned by one node.
type NodeLayout struct {
	Parent     int // -1 for ground
	SubtreeEnd int // one past the last descendant in pre-order numbering
	QIndex     int
	MaxNQ      int
	UIndex     int
	DOF        int
	USqIndex   int
}

// Layout describes the sizes the tree needs. It is produced once the tree is
// finished and never changes afterwards.
type Layout struct {
	Nodes []NodeLayout
	NQ    int
	NU    int
	NUSq  int
}

func (l Layout) NumNodes() int { return len(l.Nodes) }

// Validate checks that node ranges partition [0, NQ), [0, NU) and [0, NUSq)
// in node order and that subtrees are contiguous.
func (l Layout) Validate() error {
	if len(l.Nodes) == 0 || l.Nodes[0].Parent != -1 {
		return fmt.Errorf("%w: node 0 must be ground", ErrLayout)
	}
	q, u, usq := 0, 0, 0
	for k, n := range l.Nodes {
		if k > 0 && (n.Parent < 0 || n.Parent >= k) {
			return fmt.Errorf("%w: node %d has parent %d", ErrLayout, k, n.Parent)
		}
		if n.SubtreeEnd <= k || n.SubtreeEnd > len(l.Nodes) {
			return fmt.Errorf("%w: node %d subtree end %d", ErrLayout, k, n.SubtreeEnd)
		}
		if n.QIndex != q || n.UIndex != u || n.USqIndex != usq {
			return fmt.Errorf("%w: node %d ranges are not contiguous", ErrLayout, k)
		}
		q += n.MaxNQ
		u += n.DOF
		usq += n.DOF * n.DOF
	}
	if q != l.NQ || u != l.NU || usq != l.NUSq {
		return fmt.Errorf("%w: totals nq=%d nu=%d nusq=%d do not match ranges", ErrLayout, l.NQ, l.NU, l.NUSq)
	}
	return nil
}
