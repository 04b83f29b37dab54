// Package db provides the query engine for ComandaDB.
//
// The Engine type is the main entry point. Three calls cover the front
// end's needs: Query for record lists, Get for a single record, and Run
// for mutations. Every call returns a Result envelope instead of an
// error, so a malformed statement degrades to an empty answer rather
// than taking the till down.
//
// # Engine Usage
//
//	engine := db.NewEngine(store, identity)
//	result := engine.Query("SELECT * FROM orders WHERE table_id = ?", 3)
//	if result.Success {
//	    for _, order := range result.Records() {
//	        fmt.Println(order["id"], order["status"])
//	    }
//	}
//
// # Result Shapes
//
//   - Query: Data holds []core.Record
//   - Get: Data holds a core.Record, or nil when nothing matched
//   - Run: Data holds an ExecResult with lastInsertRowid or changes
//
// # Snapshots
//
// Backup and RestoreSnapshot move the whole dataset to and from local
// files, HTTP sources or S3 buckets.
package db
