// Package pool provides resource reuse for upload workflows.
// This includes pooling of upload URL grants and reusable buffers to reduce
// round trips and allocations during large file transfers.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/cplaiasu/b2/b2types"
)

// DefaultSize is the grant pool capacity used when none is configured.
const DefaultSize = 4

// GrantPool manages a pool of part upload URL grants for reuse across part
// uploads. Each grant pins a storage endpoint and stays valid until the
// service rejects it, so reusing grants avoids a b2_get_upload_part_url
// round trip per part.
type GrantPool struct {
	grants  chan *b2types.PartUploadURL
	factory func(context.Context) (*b2types.PartUploadURL, error)
	maxSize int
	mu      sync.RWMutex
	closed  bool
	stats   Stats
}

// Stats tracks grant pool usage.
type Stats struct {
	Created   int64
	Reused    int64
	Discarded int64
	Active    int64
	Idle      int64
}

// NewGrantPool creates a pool that obtains fresh grants from factory.
func NewGrantPool(factory func(context.Context) (*b2types.PartUploadURL, error), size int) *GrantPool {
	if size <= 0 {
		size = DefaultSize
	}
	return &GrantPool{
		grants:  make(chan *b2types.PartUploadURL, size),
		factory: factory,
		maxSize: size,
	}
}

// Get retrieves a pooled grant or obtains a new one.
func (p *GrantPool) Get(ctx context.Context) (*b2types.PartUploadURL, error) {
	select {
	case grant := <-p.grants:
		if grant != nil {
			p.mu.Lock()
			p.stats.Reused++
			p.stats.Active++
			p.stats.Idle--
			p.mu.Unlock()
			return grant, nil
		}
		// nil receive means the pool is closed; obtain directly
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for upload grant: %w", ctx.Err())
	default:
		// Pool empty, obtain a new grant
	}

	grant, err := p.factory(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.stats.Created++
	p.stats.Active++
	p.mu.Unlock()

	return grant, nil
}

// Put returns a grant to the pool for reuse. Grants must not be returned
// after the service rejected them; use Discard instead.
func (p *GrantPool) Put(grant *b2types.PartUploadURL) {
	if grant == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.stats.Discarded++
		p.stats.Active--
		return
	}

	select {
	case p.grants <- grant:
		p.stats.Active--
		p.stats.Idle++
	default:
		// Pool full, drop the grant
		p.stats.Discarded++
		p.stats.Active--
	}
}

// Discard records that a grant was rejected or expired and must not be
// reused.
func (p *GrantPool) Discard(grant *b2types.PartUploadURL) {
	if grant == nil {
		return
	}
	p.mu.Lock()
	p.stats.Discarded++
	p.stats.Active--
	p.mu.Unlock()
}

// Stats returns pool usage statistics.
func (p *GrantPool) Stats() Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stats
}

// Close drains the pool and stops accepting returns. Grants held by
// callers are unaffected; Put after Close discards. Close is idempotent.
func (p *GrantPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.grants)
	for range p.grants {
		p.stats.Discarded++
		p.stats.Idle--
	}
}
