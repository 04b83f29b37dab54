// Package ComandaDB provides a Git-backed embedded database for
// restaurant point-of-sale front ends.
//
// ComandaDB stores each collection (tables, products, orders and so on)
// as a JSON document in a Git repository, making every write a commit.
// This provides built-in history, an audit log of every order and cash
// movement, and the ability to restore the till to any point in time.
//
// # Quick Start
//
// Create an in-memory database seeded with the starter dataset:
//
//	store, _ := ps.NewMemoryStore()
//	comanda := ComandaDB.Open(store)
//	comanda.Initialize(core.Identity{Name: "App", Email: "app@example.com"})
//	engine := comanda.Engine(core.Identity{Name: "App", Email: "app@example.com"})
//
//	engine.Run("INSERT INTO orders (table_id, employee_id, status, total) VALUES (?, ?, ?, ?)",
//	    3, 2, "pending", 21.50)
//
//	result := engine.Query("SELECT o.*, t.number as table_number FROM orders o JOIN tables t ON o.table_id = t.id")
//
// # Statement Support
//
// The engine accepts the statement family the front end issues:
//   - SELECT with fixed join decorations, one WHERE condition, ORDER BY,
//     LIMIT and the SUM/COUNT aggregates
//   - INSERT with positional parameters and assigned ids
//   - UPDATE and DELETE addressed by a single equality predicate
//
// Values bind through positional ? parameters. Results come back in a
// {success, data | error} envelope; execution errors never panic the
// caller.
package ComandaDB
