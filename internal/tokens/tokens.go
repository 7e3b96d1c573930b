// Package tokens builds and parses the callback tokens carried by inline
// buttons.
//
// Token grammar:
//
//	<dataset>_page_<n>       page change inside a dataset
//	<dataset>_current_page   page indicator, no-op
//	back_to_<dataset>        redraw the dataset at its cursor
//	<entity>_<id>            open one entity
//	set_status_<n>_<code>    staff status change
package tokens

import (
	"strconv"
	"strings"
)

// Datasets with independent paging cursors.
const (
	Products         = "products"
	Services         = "services"
	Categories       = "categories"
	CategoryProducts = "category_products"
	Orders           = "orders"
)

// Entities addressable by id.
const (
	Product  = "product"
	Service  = "service"
	Category = "category"
	Order    = "order"
)

// Fixed tokens shared by both bots.
const (
	MainMenu          = "back_to_main"
	CatalogProducts   = "catalog_products"
	CatalogServices   = "catalog_services"
	CatalogCategories = "catalog_categories"
	Profile           = "profile"
	Login             = "login"
	Register          = "register"
	Logout            = "logout"
	Cancel            = "cancel"
	UseEmailLogin     = "use_email_as_login"
	ManualLogin       = "manual_login"
	OrderHistory      = "order_history"
	About             = "about"
	AddToCart         = "add_to_cart"
	BookService       = "book_service"

	ShowOrders   = "show_orders"
	StaffMenu    = "back_to_menu"
	Help         = "help"
	ChangeStatus = "change_status"
	SetStatus    = "set_status"
)

const (
	pageInfix   = "_page_"
	currentPage = "_current_page"
	backPrefix  = "back_to_"
)

// Page returns the token for page n of dataset.
func Page(dataset string, n int) string {
	return dataset + pageInfix + strconv.Itoa(n)
}

// PagePrefix returns the prefix shared by all page tokens of dataset.
func PagePrefix(dataset string) string { return dataset + pageInfix }

// CurrentPage returns the page indicator token of dataset.
func CurrentPage(dataset string) string { return dataset + currentPage }

// Back returns the token that redraws dataset.
func Back(dataset string) string { return backPrefix + dataset }

// Entity returns "<entity>_<id>".
func Entity(entity, id string) string { return entity + "_" + id }

// EntityPrefix returns "<entity>_".
func EntityPrefix(entity string) string { return entity + "_" }

// ParsePage extracts the page number from a page token of dataset.
func ParsePage(dataset, token string) (int, bool) {
	rest, ok := strings.CutPrefix(token, PagePrefix(dataset))
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseEntity extracts the id from an entity token.
func ParseEntity(entity, token string) (string, bool) {
	id, ok := strings.CutPrefix(token, EntityPrefix(entity))
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// StatusChange returns "change_status_<n>".
func StatusChange(number string) string { return ChangeStatus + "_" + number }

// StatusSet returns "set_status_<n>_<code>".
func StatusSet(number, code string) string { return SetStatus + "_" + number + "_" + code }

// ParseStatusSet splits "set_status_<n>_<code>" at the first underscore
// after the prefix. Order numbers therefore must not contain underscores.
func ParseStatusSet(token string) (number, code string, ok bool) {
	rest, found := strings.CutPrefix(token, SetStatus+"_")
	if !found {
		return "", "", false
	}
	number, code, found = strings.Cut(rest, "_")
	if !found || number == "" || code == "" {
		return "", "", false
	}
	return number, code, true
}
