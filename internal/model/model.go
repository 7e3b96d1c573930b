// Package model holds the canonical entities shared by the upstream clients,
// the normalizer, the dialog flows and the presentation layer.
package model

import "time"

// Product is a catalog item sold by the shop.
type Product struct {
	ID           string
	Code         string
	Name         string
	Price        Price
	Description  string
	Stock        int
	MinStock     int
	InStock      bool
	CategoryID   string
	CategoryName string
	Supplier     string
}

// LookupKey returns the upstream lookup key. An empty value means the
// product cannot be fetched in detail.
func (p Product) LookupKey() string { return p.Code }

// Service is a workshop service offered by the shop.
type Service struct {
	ID          string
	Code        string
	Name        string
	Price       Price
	Description string
	// Duration is expressed in minutes.
	Duration int
}

// LookupKey returns the upstream lookup key.
func (s Service) LookupKey() string { return s.Code }

// Category groups products.
type Category struct {
	ID          string
	Code        string
	Name        string
	Description string
}

// LookupKey returns the upstream lookup key.
func (c Category) LookupKey() string { return c.Code }

// Order kinds understood by the staff endpoints.
const (
	OrderKindCustomer    = "ЗаказПользователя"
	OrderKindServiceBay  = "ЗаказСТО"
	mechanicPlaceholder  = "<>"
	defaultOrderDateForm = "02.01.2006 15:04"
)

// Client identifies the customer of an order.
type Client struct {
	Name  string
	Phone string
}

// OrderItem is one line of an order.
type OrderItem struct {
	Name      string
	Quantity  int
	UnitPrice float64
	Amount    float64
}

// Status is a status code with its human label.
type Status struct {
	Code  string
	Label string
}

// Timestamp keeps the parsed time when the upstream value is ISO-8601 and the
// raw text otherwise.
type Timestamp struct {
	Time time.Time
	Raw  string
}

// IsZero reports whether no value was supplied.
func (t Timestamp) IsZero() bool { return t.Time.IsZero() && t.Raw == "" }

// Display renders the timestamp as dd.mm.yyyy hh:mm, falling back to the raw text.
func (t Timestamp) Display() string {
	if !t.Time.IsZero() {
		return t.Time.Format(defaultOrderDateForm)
	}
	return t.Raw
}

// Order is a customer or service-bay order.
type Order struct {
	ID      string
	Number  string
	Kind    string
	Date    Timestamp
	Status  Status
	Amount  float64
	Client  Client
	Items   []OrderItem
	Comment string

	// Service-bay fields.
	Car       string
	Mechanic  string
	StartDate Timestamp
	EndDate   Timestamp
}

// MechanicAssigned reports whether a real mechanic name is present.
func (o Order) MechanicAssigned() bool {
	return o.Mechanic != "" && o.Mechanic != mechanicPlaceholder
}

// StatusChange is the result of a status transition.
type StatusChange struct {
	Status    Status
	UpdatedAt Timestamp
	Order     Order
}

// User is the account returned by the auth endpoints.
type User struct {
	Name     string
	Phone    string
	Email    string
	Username string
}

// IsZero reports whether the user carries no data at all.
func (u User) IsZero() bool {
	return u.Name == "" && u.Phone == "" && u.Email == "" && u.Username == ""
}
