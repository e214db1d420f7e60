package b2types

import "context"

// FetchPage retrieves one page of results starting at cursor. It returns the
// items, the cursor for the following page, and an error. An empty next
// cursor marks the final page.
type FetchPage[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// Pager walks a paginated listing lazily. It is restartable: construct a new
// Pager from Cursor() to continue a listing later or elsewhere.
//
// A Pager is not safe for concurrent use.
type Pager[T any] struct {
	fetch  FetchPage[T]
	cursor string
	done   bool
}

// NewPager creates a Pager over fetch, starting from the given cursor.
// An empty cursor starts from the beginning.
func NewPager[T any](fetch FetchPage[T], cursor string) *Pager[T] {
	return &Pager[T]{fetch: fetch, cursor: cursor}
}

// Next returns the next page of items. After the final page it returns
// (nil, nil) forever.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}
	items, next, err := p.fetch(ctx, p.cursor)
	if err != nil {
		return nil, err
	}
	p.cursor = next
	if next == "" {
		p.done = true
	}
	return items, nil
}

// Done reports whether the listing is exhausted.
func (p *Pager[T]) Done() bool {
	return p.done
}

// Cursor returns the continuation token for the next page. It is valid to
// persist it and resume with a new Pager.
func (p *Pager[T]) Cursor() string {
	return p.cursor
}

// All drains the remaining pages into one slice.
func (p *Pager[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for !p.done {
		items, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
	}
	return all, nil
}
