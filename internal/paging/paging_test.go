package paging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPaginateNavigation(t *testing.T) {
	items := seq(25)

	first := Paginate(items, 1, PageSize)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 1, first.Page)
	assert.Equal(t, seq(10), first.Items)
	assert.False(t, first.HasPrev())
	assert.True(t, first.HasNext())

	last := Paginate(items, 4, PageSize)
	assert.Equal(t, 3, last.Page)
	assert.Equal(t, []int{21, 22, 23, 24, 25}, last.Items)
	assert.False(t, last.HasNext())

	zero := Paginate(items, 0, PageSize)
	assert.Equal(t, 1, zero.Page)
	assert.Equal(t, 10, zero.Offset(PageSize)+len(zero.Items))
}

func TestPaginateEmpty(t *testing.T) {
	p := Paginate([]int{}, 5, 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
	require.NotNil(t, p.Items)
	assert.Empty(t, p.Items)

	p = Paginate[int](nil, -3, 10)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 1, p.TotalPages)
}

func TestPaginateIdempotent(t *testing.T) {
	items := seq(25)
	a := Paginate(items, 999, 10)
	b := Paginate(items, 999, 10)
	assert.Equal(t, a, b)
	assert.Equal(t, a, Paginate(items, a.Page, 10))
}

func TestPaginateExactMultiple(t *testing.T) {
	p := Paginate(seq(20), 2, 10)
	assert.Equal(t, 2, p.TotalPages)
	assert.Len(t, p.Items, 10)
}

func TestPageItemsDoNotGrowIntoNextPage(t *testing.T) {
	items := seq(15)
	p := Paginate(items, 1, 10)
	p.Items = append(p.Items, 100)
	assert.Equal(t, 11, items[10])
}

func TestCursorsAreIndependent(t *testing.T) {
	products := NewCursor(seq(25))
	services := NewCursor(seq(12))

	products.Goto(3)
	assert.Equal(t, 3, products.Page)
	assert.Equal(t, 1, services.Page)

	got := services.Goto(7)
	assert.Equal(t, 2, got.Page)
	assert.Equal(t, []int{11, 12}, got.Items)
	assert.Equal(t, 3, products.Current().Page)
}

func TestCursorFind(t *testing.T) {
	c := NewCursor([]string{"a", "b"})
	v, ok := c.Find(func(s string) bool { return s == "b" })
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	var nilCursor *Cursor[string]
	_, ok = nilCursor.Find(func(string) bool { return true })
	assert.False(t, ok)
}
