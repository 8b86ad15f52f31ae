package sim

import (
	"sync"

	"github.com/san-kum/marblesim/internal/physics"
)

// SnapshotPool recycles body buffers handed to the executor. Each tick needs
// one snapshot of the full body slice; recycling keeps the per-tick garbage
// at the acceleration slice alone.
type SnapshotPool struct {
	pool sync.Pool
	size int
}

func NewSnapshotPool(bodies int) *SnapshotPool {
	return &SnapshotPool{
		size: bodies,
		pool: sync.Pool{
			New: func() interface{} {
				s := make([]physics.Body, bodies)
				return &s
			},
		},
	}
}

func (p *SnapshotPool) Get() []physics.Body {
	return *p.pool.Get().(*[]physics.Body)
}

func (p *SnapshotPool) Put(s []physics.Body) {
	if len(s) == p.size {
		for i := range s {
			s[i] = physics.Body{}
		}
		p.pool.Put(&s)
	}
}

func (p *SnapshotPool) GetAndCopy(src []physics.Body) []physics.Body {
	dst := p.Get()
	copy(dst, src)
	return dst
}
