package sim

import "sync"

// StatePool recycles the [qdot; udot] vectors returned by System.Evaluate.
// It stores pointers so that Put does not allocate.
type StatePool struct {
	pool sync.Pool
	size int
}

func NewStatePool(size int) *StatePool {
	p := &StatePool{size: size}
	p.pool.New = func() any {
		s := make(State, size)
		return &s
	}
	return p
}

func (p *StatePool) Size() int { return p.size }

// Get returns a zeroed vector of the pool's size.
func (p *StatePool) Get() State {
	return *p.pool.Get().(*State)
}

// Put zeroes s and keeps it for reuse. Vectors of another size are dropped.
func (p *StatePool) Put(s State) {
	if len(s) != p.size {
		return
	}
	clear(s)
	p.pool.Put(&s)
}
