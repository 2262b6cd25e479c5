package sim

import "sync"

// vecPool hands out zeroed scratch vectors of one length to worker chunks.
type vecPool struct {
	pool sync.Pool
	size int
}

func newVecPool(size int) *vecPool {
	return &vecPool{
		size: size,
		pool: sync.Pool{
			New: func() any {
				v := make([]float64, size)
				return &v
			},
		},
	}
}

func (p *vecPool) get() *[]float64 {
	return p.pool.Get().(*[]float64)
}

func (p *vecPool) put(v *[]float64) {
	if len(*v) != p.size {
		return
	}
	clear(*v)
	p.pool.Put(v)
}
