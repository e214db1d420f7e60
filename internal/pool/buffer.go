package pool

import (
	"bytes"
	"sync"
)

// BufferPool manages reusable byte buffers for part staging. Non-seekable
// part sources are staged in memory so the content SHA1 can be computed
// before the upload begins; pooling keeps those staging buffers out of the
// allocator's way on repeated parts.
type BufferPool struct {
	pool *sync.Pool
}

// NewBufferPool creates a buffer pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: &sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

// Get returns an empty buffer from the pool.
// The caller is responsible for calling Put to return it.
func (bp *BufferPool) Get() *bytes.Buffer {
	buf := bp.pool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool.
// The buffer must not be used after calling Put.
func (bp *BufferPool) Put(buf *bytes.Buffer) {
	if buf == nil {
		return
	}
	bp.pool.Put(buf)
}
