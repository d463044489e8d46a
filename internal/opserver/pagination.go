package opserver

import (
	opsv1 "github.com/zboralski/binja-mcp/binja/ops/v1"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type window struct {
	offset int
	limit  int
}

// normalizePagination applies defaults: a missing or non-positive limit
// becomes defaultLimit, anything above maxLimit is clamped. Negative offsets
// are rejected.
func normalizePagination(p *opsv1.Pagination, defaultLimit, maxLimit int) (window, error) {
	w := window{limit: defaultLimit}
	if p == nil {
		return w, nil
	}
	if p.Offset < 0 {
		return w, invalidArgs("offset must be >= 0, got %d", p.Offset)
	}
	w.offset = p.Offset
	if p.Limit > 0 {
		w.limit = p.Limit
	}
	if w.limit > maxLimit {
		w.limit = maxLimit
	}
	return w, nil
}

// paginate slices items to the window. An offset past the end yields an
// empty page.
func paginate[T any](items []T, w window) ([]T, *opsv1.Page) {
	total := len(items)
	start := w.offset
	if start > total {
		start = total
	}
	end := start + w.limit
	if end > total {
		end = total
	}
	out := items[start:end]
	return out, &opsv1.Page{
		Total:  total,
		Offset: w.offset,
		Count:  len(out),
		Limit:  w.limit,
	}
}
