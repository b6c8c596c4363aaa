package pools

import "sync"

// Float64Slice pools float64 scratch buffers. Monte Carlo simulation allocates
// one buffer per run; pooling keeps repeated runs from churning the heap.
type Float64Slice struct {
	pool sync.Pool
}

// NewFloat64Slice creates a pool whose buffers start at the given capacity
func NewFloat64Slice(capacity int) *Float64Slice {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Float64Slice{
		pool: sync.Pool{
			New: func() interface{} {
				buf := make([]float64, 0, capacity)
				return &buf
			},
		},
	}
}

// Get returns a length-n buffer. Contents are unspecified; callers must
// overwrite every element before reading.
func (p *Float64Slice) Get(n int) []float64 {
	buf := *(p.pool.Get().(*[]float64))
	if cap(buf) < n {
		buf = make([]float64, n)
	}
	return buf[:n]
}

// Put returns a buffer to the pool
func (p *Float64Slice) Put(buf []float64) {
	if buf == nil {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}
