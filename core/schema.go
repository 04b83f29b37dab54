package core

import "time"

// Identity identifies the author of store transactions (commit author).
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Collection names used by the restaurant front end. The store accepts any
// name; this list is what Initialize seeds and what the CLI enumerates.
const (
	CollectionTables     = "tables"
	CollectionCategories = "categories"
	CollectionProducts   = "products"
	CollectionEmployees  = "employees"
	CollectionOrders     = "orders"
	CollectionOrderItems = "order_items"
	CollectionCashEvents = "cash_register"
	CollectionDigital    = "digital_menu"
)

// Collections lists every seeded collection, in seed order.
var Collections = []string{
	CollectionTables,
	CollectionCategories,
	CollectionProducts,
	CollectionEmployees,
	CollectionOrders,
	CollectionOrderItems,
	CollectionCashEvents,
	CollectionDigital,
}

// Table statuses.
const (
	TableAvailable = "available"
	TableOccupied  = "occupied"
	TableReserved  = "reserved"
)

// Order statuses. The first three form the in-progress set matched by
// "status IN (...)" queries.
const (
	OrderPending   = "pending"
	OrderPreparing = "preparing"
	OrderReady     = "ready"
	OrderCompleted = "completed"
)

// InProgressOrderStatuses is the fixed set used for status IN filters.
var InProgressOrderStatuses = []string{OrderPending, OrderPreparing, OrderReady}

// Employee roles.
const (
	RoleAdmin  = "admin"
	RoleWaiter = "waiter"
)

// Timestamp renders t in the wire format used for created_at and closed_at
// fields: UTC with millisecond precision and a Z suffix.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// DateOf returns just the calendar date portion, UTC.
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
