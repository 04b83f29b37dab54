// Package core provides core types used throughout ComandaDB.
//
// The package defines fundamental types like Identity and Record, the fixed
// collection names of the restaurant schema, and the loose value semantics
// the engine uses when comparing stored values against query parameters.
//
// # Identity
//
// Identity identifies the author of store transactions (commit author):
//
//	identity := core.Identity{
//	    Name:  "Comanda Server",
//	    Email: "server@comanda.local",
//	}
//
// # Records
//
// A Record is a row-shaped map of field name to scalar. Every record in a
// collection carries a numeric "id" field assigned by the store on insert:
//
//	order := core.Record{
//	    "table_id":    float64(3),
//	    "employee_id": float64(2),
//	    "status":      core.OrderPending,
//	}
//
// Values follow JSON semantics: numbers are float64, so comparisons go
// through ValuesEqual and CompareValues rather than ==.
package core
