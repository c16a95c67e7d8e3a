package pagination

import (
	"net/url"
	"strconv"

	"github.com/angelmondragon/storefront/pkg/types"
)

const (
	// DefaultPerPage is the page size when none is provided.
	DefaultPerPage = 15
	// MaxPerPage caps how many rows a single page can request.
	MaxPerPage = 60
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page    int
	PerPage int
}

// Normalize enforces the first page and the default and maximum sizes.
func (p Params) Normalize() Params {
	return Params{Page: NormalizePage(p.Page), PerPage: NormalizePerPage(p.PerPage)}
}

func NormalizePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

func NormalizePerPage(perPage int) int {
	if perPage <= 0 {
		return DefaultPerPage
	}
	if perPage > MaxPerPage {
		return MaxPerPage
	}
	return perPage
}

// Apply writes page and per_page into q.
func (p Params) Apply(q url.Values) {
	n := p.Normalize()
	q.Set("page", strconv.Itoa(n.Page))
	q.Set("per_page", strconv.Itoa(n.PerPage))
}

// Meta fills the gaps in a backend page block: a missing last page is
// derived from the total, and the requested params stand in for the rest.
func Meta(meta types.PageMeta, requested Params) types.PageMeta {
	n := requested.Normalize()
	if meta.CurrentPage <= 0 {
		meta.CurrentPage = n.Page
	}
	if meta.PerPage <= 0 {
		meta.PerPage = n.PerPage
	}
	if meta.LastPage <= 0 {
		meta.LastPage = 1
		if meta.Total > 0 {
			meta.LastPage = (meta.Total + meta.PerPage - 1) / meta.PerPage
		}
	}
	return meta
}

// HasNext reports whether another page follows.
func HasNext(meta types.PageMeta) bool {
	return meta.CurrentPage < meta.LastPage
}
