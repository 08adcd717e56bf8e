// Package listing filters, sorts and pages documents on the client side.
package listing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
)

// Sort fields.
const (
	FieldCreatedAt = "created_at"
	FieldStartDate = "start_date"
	FieldEndDate   = "end_date"
	FieldTitle     = "title"
)

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// StatusAll disables status filtering.
const StatusAll = "all"

// DefaultSpan is the number of page buttons shown around the current page.
const DefaultSpan = 5

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Filter returns the documents whose status matches. An empty status or
// StatusAll keeps everything.
func Filter(docs []apiclient.Document, status string) []apiclient.Document {
	out := make([]apiclient.Document, 0, len(docs))
	for _, d := range docs {
		if status == "" || status == StatusAll || d.Status == status {
			out = append(out, d)
		}
	}
	return out
}

// Sort returns a stably sorted copy of docs. Dates that cannot be parsed
// sort before every valid date.
func Sort(docs []apiclient.Document, field, order string) ([]apiclient.Document, error) {
	var cmp func(a, b apiclient.Document) int
	switch field {
	case FieldCreatedAt:
		cmp = func(a, b apiclient.Document) int { return ptrTime(a.CreatedAt).Compare(ptrTime(b.CreatedAt)) }
	case FieldStartDate:
		cmp = func(a, b apiclient.Document) int { return parseDate(a.StartDate).Compare(parseDate(b.StartDate)) }
	case FieldEndDate:
		cmp = func(a, b apiclient.Document) int { return parseDate(a.EndDate).Compare(parseDate(b.EndDate)) }
	case FieldTitle:
		cmp = func(a, b apiclient.Document) int {
			return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
	default:
		return nil, fmt.Errorf("unknown sort field %q", field)
	}

	sign := 1
	switch order {
	case "", OrderAsc:
	case OrderDesc:
		sign = -1
	default:
		return nil, fmt.Errorf("unknown sort order %q", order)
	}

	out := make([]apiclient.Document, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		return sign*cmp(out[i], out[j]) < 0
	})
	return out, nil
}

// Paginate returns the 1-based page of items. Pages past the end are empty.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage < 1 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	p := Page[T]{
		Items:      []T{},
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: (total + perPage - 1) / perPage,
	}
	start := (page - 1) * perPage
	if start >= total {
		return p
	}
	end := min(start+perPage, total)
	p.Items = items[start:end]
	return p
}

// PageWindow returns the page numbers to show as buttons: up to span pages
// centered on current and shifted left when the end would pass total.
func PageWindow(current, total, span int) []int {
	if span < 1 {
		span = DefaultSpan
	}
	start := max(1, current-span/2)
	end := start + span - 1
	if end > total {
		end = total
		start = max(1, end-span+1)
	}
	pages := make([]int, 0, span)
	for i := start; i <= end; i++ {
		pages = append(pages, i)
	}
	return pages
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func ptrTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
