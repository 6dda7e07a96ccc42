package courtapi

import "context"

// Pager walks a paginated list operation lazily. The cursor lives in the
// Pager, owned by the caller: retrying a single page never skips or
// duplicates others, and Reset restarts the walk from the first page.
type Pager[T any] struct {
	fetch func(ctx context.Context, page int) ([]T, bool, error)
	page  int
	done  bool
}

// NewPager wraps a page-fetch function. Use the type-specific constructors
// below for the client's list operations.
func NewPager[T any](fetch func(ctx context.Context, page int) ([]T, bool, error)) *Pager[T] {
	return &Pager[T]{fetch: fetch, page: 1}
}

// Next fetches the current page and advances the cursor on success. A failed
// fetch leaves the cursor in place so the same page can be retried.
func (p *Pager[T]) Next(ctx context.Context) ([]T, error) {
	if p.done {
		return nil, nil
	}

	items, hasMore, err := p.fetch(ctx, p.page)
	if err != nil {
		return nil, err
	}

	p.page++
	if !hasMore {
		p.done = true
	}
	return items, nil
}

// HasMore reports whether another page is available.
func (p *Pager[T]) HasMore() bool {
	return !p.done
}

// Page returns the 1-based page the next call to Next will fetch.
func (p *Pager[T]) Page() int {
	return p.page
}

// Reset restarts the walk from the first page.
func (p *Pager[T]) Reset() {
	p.page = 1
	p.done = false
}

// JudgePager pages through judges matching params.
func (c *Client) JudgePager(params ListParams) *Pager[Judge] {
	return NewPager(func(ctx context.Context, page int) ([]Judge, bool, error) {
		return c.ListJudges(ctx, params, page)
	})
}

// CourtPager pages through courts matching params.
func (c *Client) CourtPager(params ListParams) *Pager[Court] {
	return NewPager(func(ctx context.Context, page int) ([]Court, bool, error) {
		return c.ListCourts(ctx, params, page)
	})
}

// OpinionClusterPager pages through opinion clusters matching params.
func (c *Client) OpinionClusterPager(params ListParams) *Pager[OpinionCluster] {
	return NewPager(func(ctx context.Context, page int) ([]OpinionCluster, bool, error) {
		return c.ListOpinionClusters(ctx, params, page)
	})
}
