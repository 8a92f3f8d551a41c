package engine

import (
	"sync"
)

// DefaultBufferSize is the size of the byte buffers used to spool a
// download from the network to its temp file. 512KB keeps per-worker
// memory modest while staying well above typical TCP read sizes.
const DefaultBufferSize = 512 * 1024

// BufferPool hands out reusable byte buffers so concurrent downloads do
// not churn the garbage collector.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a pool allocating buffers of the given size.
// If size is <= 0, DefaultBufferSize is used.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a buffer from the pool. Pair with a deferred Put.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns the buffer to the pool. The caller must not touch the
// buffer afterwards.
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}
