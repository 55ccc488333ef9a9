package models

import (
	"math"
	"strings"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
	// MaxPage keeps (Page-1)*Limit within int32 so offsets never wrap.
	MaxPage = math.MaxInt32 / MaxPageLimit
)

// Sortable video fields, keyed by their API name.
const (
	SortCreatedAt = "createdAt"
	SortUpdatedAt = "updatedAt"
	SortViews     = "views"
	SortTitle     = "title"
	SortDuration  = "duration"
)

// ListOptions carries pagination and ordering for list queries.
type ListOptions struct {
	Page     int
	Limit    int
	SortBy   string
	SortDesc bool
}

// NewListOptions normalises raw query values. Unknown sort fields fall back
// to creation time; sortType "asc" is the only way to request ascending order.
func NewListOptions(page, limit int, sortBy, sortType string) ListOptions {
	opts := ListOptions{Page: page, Limit: limit, SortBy: sortBy, SortDesc: !strings.EqualFold(sortType, "asc")}
	return opts.Normalize()
}

// Normalize clamps page and limit and validates the sort field.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.Page > MaxPage {
		o.Page = MaxPage
	}
	if o.Limit < 1 {
		o.Limit = DefaultPageLimit
	}
	if o.Limit > MaxPageLimit {
		o.Limit = MaxPageLimit
	}
	switch o.SortBy {
	case SortCreatedAt, SortUpdatedAt, SortViews, SortTitle, SortDuration:
	default:
		o.SortBy = SortCreatedAt
	}
	return o
}

// Offset is the number of records skipped before the current page.
func (o ListOptions) Offset() int {
	return (o.Page - 1) * o.Limit
}

// VideoFilter narrows video listings.
type VideoFilter struct {
	// Query matches a case-insensitive substring of the title.
	Query string
	// OwnerID limits results to one channel.
	OwnerID string
	// ViewerID may see their own unpublished videos.
	ViewerID string
}
