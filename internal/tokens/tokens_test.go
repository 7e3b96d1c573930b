package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageTokens(t *testing.T) {
	assert.Equal(t, "products_page_2", Page(Products, 2))
	assert.Equal(t, "category_products_current_page", CurrentPage(CategoryProducts))
	assert.Equal(t, "back_to_categories", Back(Categories))

	n, ok := ParsePage(CategoryProducts, "category_products_page_3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = ParsePage(Products, "products_page_x")
	assert.False(t, ok)
	_, ok = ParsePage(Products, "services_page_1")
	assert.False(t, ok)
}

func TestEntityTokens(t *testing.T) {
	id, ok := ParseEntity(Product, Entity(Product, "00-123"))
	assert.True(t, ok)
	assert.Equal(t, "00-123", id)

	_, ok = ParseEntity(Product, "product_")
	assert.False(t, ok)
}

func TestStatusSetSplitsAtFirstUnderscore(t *testing.T) {
	number, code, ok := ParseStatusSet(StatusSet("A-17", "in_work"))
	assert.True(t, ok)
	assert.Equal(t, "A-17", number)
	assert.Equal(t, "in_work", code)

	_, _, ok = ParseStatusSet("set_status_17")
	assert.False(t, ok)
	_, _, ok = ParseStatusSet("order_17")
	assert.False(t, ok)
}
