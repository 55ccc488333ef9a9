package models

import (
	"math"
	"testing"
)

func TestNewListOptions(t *testing.T) {
	tests := []struct {
		name       string
		page       int
		limit      int
		sortBy     string
		sortType   string
		wantPage   int
		wantLimit  int
		wantSortBy string
		wantDesc   bool
	}{
		{name: "defaults", wantPage: 1, wantLimit: DefaultPageLimit, wantSortBy: SortCreatedAt, wantDesc: true},
		{name: "limit capped", page: 3, limit: 1000, sortBy: SortViews, sortType: "ASC", wantPage: 3, wantLimit: MaxPageLimit, wantSortBy: SortViews},
		{name: "unknown sort", page: -4, limit: 5, sortBy: "password", wantPage: 1, wantLimit: 5, wantSortBy: SortCreatedAt, wantDesc: true},
		{name: "huge page", page: math.MaxInt, limit: 10, wantPage: MaxPage, wantLimit: 10, wantSortBy: SortCreatedAt, wantDesc: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NewListOptions(tc.page, tc.limit, tc.sortBy, tc.sortType)
			if got.Page != tc.wantPage || got.Limit != tc.wantLimit || got.SortBy != tc.wantSortBy || got.SortDesc != tc.wantDesc {
				t.Fatalf("unexpected options %+v", got)
			}
		})
	}
}

func TestOffsetStaysPositiveForHugePages(t *testing.T) {
	opts := NewListOptions(math.MaxInt, MaxPageLimit, "", "")
	if off := opts.Offset(); off < 0 || off > math.MaxInt32 {
		t.Fatalf("offset out of range: %d", off)
	}
}
