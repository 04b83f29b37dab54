// Package ps provides the persistence layer for ComandaDB.
//
// The store is backed by Git, using go-git for storage. Each collection is
// kept as a single JSON blob at the root of the tree, and every write
// creates a commit, so the full history of the restaurant's data is
// recorded and any past state can be restored.
//
// # Memory Store
//
// For testing or ephemeral databases:
//
//	store, err := ps.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # File Store
//
// For persistent storage:
//
//	store, err := ps.NewFileStore("/path/to/data")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Collections
//
// Collections are read and replaced wholesale. Mutations run a
// read-modify-write cycle under the store's write lock:
//
//	txn, _ := store.Mutate("orders", identity, "Closing order", func(records []core.Record) ([]core.Record, error) {
//	    // modify records
//	    return records, nil
//	})
//
// # History
//
// Every commit is a transaction. LatestTransaction, TransactionsSince and
// Log expose the history; RestoreTo resets the store to a past transaction.
package ps
