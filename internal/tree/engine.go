package tree

import (
	"context"
	"fmt"
	"runtime"

	"github.com/san-kum/mbtree/internal/stage"
	"github.com/san-kum/mbtree/internal/state"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Executor runs fn for every node of one level. Nodes of a level are
// independent; Run must not return before every call has finished, which
// gives the barrier between levels.
type Executor interface {
	Run(ctx context.Context, nodes []int, fn func(k int) error) error
}

// Sequential runs nodes one after another in level order.
type Sequential struct{}

func (Sequential) Run(_ context.Context, nodes []int, fn func(k int) error) error {
	for _, k := range nodes {
		if err := fn(k); err != nil {
			return err
		}
	}
	return nil
}

// Parallel fans a level out over at most Workers goroutines. Every node
// writes only its own cache slots and reads slots finished in an earlier
// level, so results match Sequential bit for bit.
type Parallel struct {
	Workers int
	// MinLevel is the smallest level size worth fanning out; smaller levels
	// run inline.
	MinLevel int
}

func NewParallel(workers int) Parallel {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return Parallel{Workers: workers, MinLevel: 2}
}

func (p Parallel) Run(ctx context.Context, nodes []int, fn func(k int) error) error {
	if len(nodes) < p.MinLevel || p.Workers <= 1 {
		return Sequential{}.Run(ctx, nodes, fn)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers)
	for _, k := range nodes {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(k)
		})
	}
	return g.Wait()
}

// Engine drives the realize operations of a finished tree through the
// stages in traversal order.
type Engine struct {
	tree *Tree
	exec Executor
	log  logrus.FieldLogger
}

func NewEngine(t *Tree, exec Executor) (*Engine, error) {
	if !t.finished {
		return nil, ErrTreeNotFinished
	}
	if exec == nil {
		exec = Sequential{}
	}
	return &Engine{tree: t, exec: exec, log: t.log}, nil
}

func (e *Engine) Tree() *Tree { return e.tree }

func (e *Engine) SetLogger(l logrus.FieldLogger) { e.log = l }

// Realize brings every node up to target. Nodes already at or beyond a stage
// are skipped, so after a local invalidation only the stale nodes are
// recomputed.
func (e *Engine) Realize(ctx context.Context, st *state.State, target stage.Stage) error {
	if err := e.tree.checkState(st); err != nil {
		return err
	}
	for s := stage.Modeling; s <= target; s++ {
		if err := e.realize(ctx, st, s); err != nil {
			return err
		}
	}
	return nil
}

// RealizeStage recomputes stage s for every node, whether stale or not. All
// nodes must already have realized the previous stage; later stages become
// stale.
func (e *Engine) RealizeStage(ctx context.Context, st *state.State, s stage.Stage) error {
	if err := e.tree.checkState(st); err != nil {
		return err
	}
	if s <= stage.Empty || s > stage.Reaction {
		return fmt.Errorf("tree: cannot realize %s", s)
	}
	for k := 0; k < st.NumNodes(); k++ {
		if err := stage.Require(k, "realize "+s.String(), st.NodeStage(k), s-1); err != nil {
			return err
		}
	}
	for k := 0; k < st.NumNodes(); k++ {
		st.SetNodeStage(k, s-1)
	}
	return e.realize(ctx, st, s)
}

func (e *Engine) realize(ctx context.Context, st *state.State, s stage.Stage) error {
	nodes := e.tree.nodes
	stale := func(k int) bool { return st.NodeStage(k) < s }

	var err error
	switch s {
	case stage.Modeling:
		err = e.outward(ctx, stale, func(k int) error { return nodes[k].RealizeModeling(st) })
	case stage.Parameter:
		err = e.outward(ctx, stale, func(k int) error { return nodes[k].RealizeParameters(st) })
	case stage.Configuration:
		err = e.outward(ctx, stale, func(k int) error { return nodes[k].RealizeConfiguration(st) })
	case stage.Motion:
		err = e.outward(ctx, stale, func(k int) error { return nodes[k].RealizeMotion(st) })
	case stage.Dynamics:
		err = e.inward(ctx, stale, func(k int) error {
			n := nodes[k]
			if err := n.CalcVelocityBias(st); err != nil {
				return err
			}
			if err := n.CalcArticulatedBodyInertiasInward(st); err != nil {
				return err
			}
			st.SetNodeStage(k, stage.Dynamics)
			return nil
		})
	case stage.Reaction:
		err = e.inward(ctx, stale, func(k int) error { return nodes[k].CalcZ(st) })
		if err == nil {
			err = e.outward(ctx, stale, func(k int) error {
				n := nodes[k]
				if err := n.CalcAccel(st); err != nil {
					return err
				}
				if err := n.CalcYOutward(st); err != nil {
					return err
				}
				st.SetNodeStage(k, stage.Reaction)
				return nil
			})
		}
	default:
		return fmt.Errorf("tree: cannot realize %s", s)
	}
	if err != nil {
		return err
	}
	e.log.Debugf("realized %s", s)
	return nil
}

// outward visits stale nodes level by level from ground to the leaves.
func (e *Engine) outward(ctx context.Context, stale func(int) bool, fn func(int) error) error {
	for _, level := range e.tree.levels {
		if err := e.runLevel(ctx, level, stale, fn); err != nil {
			return err
		}
	}
	return nil
}

// inward visits stale nodes level by level from the leaves to ground, so
// every child finishes before its parent starts.
func (e *Engine) inward(ctx context.Context, stale func(int) bool, fn func(int) error) error {
	for l := len(e.tree.levels) - 1; l >= 0; l-- {
		if err := e.runLevel(ctx, e.tree.levels[l], stale, fn); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) runLevel(ctx context.Context, level []int, stale func(int) bool, fn func(int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	todo := make([]int, 0, len(level))
	for _, k := range level {
		if stale(k) {
			todo = append(todo, k)
		}
	}
	if len(todo) == 0 {
		return nil
	}
	return e.exec.Run(ctx, todo, fn)
}
