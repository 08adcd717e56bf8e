package listing

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func ids(docs []apiclient.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.ID
	}
	return out
}

func sample() []apiclient.Document {
	return []apiclient.Document{
		{ID: "1", Title: "beta", Status: apiclient.StatusApproved, StartDate: "2024-03-01", CreatedAt: at("2024-05-01T00:00:00Z")},
		{ID: "2", Title: "Alpha", Status: apiclient.StatusPendingApproval, StartDate: "2024-01-15", CreatedAt: at("2024-04-01T00:00:00Z")},
		{ID: "3", Title: "gamma", Status: apiclient.StatusApproved, StartDate: "2023-12-31", CreatedAt: at("2024-06-01T00:00:00Z")},
		{ID: "4", Title: "alpha", Status: apiclient.StatusRejected, StartDate: "not a date"},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   []string
	}{
		{name: "all", status: StatusAll, want: []string{"1", "2", "3", "4"}},
		{name: "empty", status: "", want: []string{"1", "2", "3", "4"}},
		{name: "approved", status: apiclient.StatusApproved, want: []string{"1", "3"}},
		{name: "no match", status: "unknown", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(Filter(sample(), tt.status)))
		})
	}
}

func TestSort(t *testing.T) {
	tests := []struct {
		field string
		order string
		want  []string
	}{
		{field: FieldTitle, order: OrderAsc, want: []string{"2", "4", "1", "3"}},
		{field: FieldTitle, order: OrderDesc, want: []string{"3", "1", "2", "4"}},
		{field: FieldCreatedAt, order: OrderAsc, want: []string{"4", "2", "1", "3"}},
		{field: FieldCreatedAt, order: OrderDesc, want: []string{"3", "1", "2", "4"}},
		{field: FieldStartDate, order: "", want: []string{"4", "3", "2", "1"}},
		{field: FieldEndDate, order: OrderAsc, want: []string{"1", "2", "3", "4"}},
	}
	for _, tt := range tests {
		t.Run(tt.field+"_"+tt.order, func(t *testing.T) {
			docs := sample()
			got, err := Sort(docs, tt.field, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, []string{"1", "2", "3", "4"}, ids(docs), "input is not modified")
		})
	}
}

func TestSort_Invalid(t *testing.T) {
	_, err := Sort(sample(), "size", OrderAsc)
	assert.Error(t, err)
	_, err = Sort(sample(), FieldTitle, "sideways")
	assert.Error(t, err)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	p := Paginate(items, 1, 3)
	assert.Equal(t, []int{1, 2, 3}, p.Items)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 7, p.Total)

	p = Paginate(items, 3, 3)
	assert.Equal(t, []int{7}, p.Items)

	p = Paginate(items, 4, 3)
	assert.Empty(t, p.Items)
	assert.Equal(t, 4, p.Page)

	p = Paginate([]int{}, 1, 10)
	assert.Zero(t, p.TotalPages)
	assert.Empty(t, p.Items)

	p = Paginate(items, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.PerPage)
	assert.Equal(t, []int{1}, p.Items)
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		name    string
		current int
		total   int
		want    []int
	}{
		{name: "start", current: 1, total: 10, want: []int{1, 2, 3, 4, 5}},
		{name: "middle", current: 6, total: 10, want: []int{4, 5, 6, 7, 8}},
		{name: "near end", current: 9, total: 10, want: []int{6, 7, 8, 9, 10}},
		{name: "end", current: 10, total: 10, want: []int{6, 7, 8, 9, 10}},
		{name: "few pages", current: 2, total: 3, want: []int{1, 2, 3}},
		{name: "single", current: 1, total: 1, want: []int{1}},
		{name: "no pages", current: 1, total: 0, want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PageWindow(tt.current, tt.total, DefaultSpan))
		})
	}
}
