package tests

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmolero/ComandaDB"
	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/db"
	"github.com/jmolero/ComandaDB/ps"
)

type TestFunc func(t *testing.T, engine *db.Engine)

// runWithBothStores executes a test against memory and file persistence.
func runWithBothStores(t *testing.T, testFunc TestFunc) {
	t.Run("Memory", func(t *testing.T) {
		store, err := ps.NewMemoryStore()
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		engine := seededEngine(t, store)
		testFunc(t, engine)
	})

	t.Run("File", func(t *testing.T) {
		store, err := ps.NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		engine := seededEngine(t, store)
		testFunc(t, engine)
	})
}

func seededEngine(t *testing.T, store *ps.Store) *db.Engine {
	t.Helper()

	instance := ComandaDB.Open(store)
	identity := core.Identity{Name: "test", Email: "test@test.com"}
	if err := instance.Initialize(identity); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}
	return instance.Engine(identity)
}

func mustRun(t *testing.T, engine *db.Engine, sql string, params ...any) db.ExecResult {
	t.Helper()

	result := engine.Run(sql, params...)
	if !result.Success {
		t.Fatalf("Run(%q) failed: %s", sql, result.Error)
	}
	return result.Exec()
}

func mustQuery(t *testing.T, engine *db.Engine, sql string, params ...any) []core.Record {
	t.Helper()

	result := engine.Query(sql, params...)
	if !result.Success {
		t.Fatalf("Query(%q) failed: %s", sql, result.Error)
	}
	return result.Records()
}

// TestFullServiceDay drives a complete evening of service: staff log in,
// orders open, items accumulate, the kitchen works the queue, tables pay
// and close, and the day ends with a sales report.
func TestFullServiceDay(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, engine *db.Engine) {
		// Staff check-in by PIN.
		admin := engine.Get("SELECT * FROM employees WHERE pin = ?", "1234").Record()
		waiter := engine.Get("SELECT * FROM employees WHERE pin = ?", "1111").Record()
		if admin == nil || waiter == nil {
			t.Fatal("Test Failed: Expected both seeded employees to resolve by pin")
		}

		// Three tables open orders.
		for _, tableID := range []int{1, 5, 9} {
			exec := mustRun(t, engine,
				"INSERT INTO orders (table_id, employee_id, status, total) VALUES (?, ?, ?, ?)",
				tableID, waiter["id"], "pending", 0)
			if exec.LastInsertRowid == 0 {
				t.Fatalf("Test Failed: Expected rowid for table %d order", tableID)
			}
			mustRun(t, engine, "UPDATE tables SET status = ? WHERE id = ?", "occupied", tableID)
		}

		// Items land on the first order.
		products := mustQuery(t, engine, "SELECT * FROM products WHERE available = 1")
		if len(products) != 10 {
			t.Fatalf("Test Failed: Expected 10 available products, got %d", len(products))
		}
		mustRun(t, engine,
			"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)",
			1, 4, 2, 12.50)
		mustRun(t, engine,
			"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES (?, ?, ?, ?)",
			1, 10, 2, 2.50)
		mustRun(t, engine, "UPDATE orders SET total = ? WHERE id = ?", 30.0, 1)

		// Kitchen view: open orders with table and waiter decorations.
		kitchen := mustQuery(t, engine, `
			SELECT o.*, t.number as table_number, e.name as waiter_name
			FROM orders o
			LEFT JOIN tables t ON o.table_id = t.id
			LEFT JOIN employees e ON o.employee_id = e.id
			WHERE o.status IN ('pending', 'preparing', 'ready')
			ORDER BY o.created_at ASC`)
		if len(kitchen) != 3 {
			t.Fatalf("Test Failed: Expected 3 open orders, got %d", len(kitchen))
		}
		if kitchen[0]["waiter_name"] != "Camarero 1" {
			t.Errorf("Test Failed: Expected waiter decoration, got %v", kitchen[0]["waiter_name"])
		}

		// Item detail carries product decorations.
		items := mustQuery(t, engine, `
			SELECT oi.*, p.name as product_name, p.price as product_price
			FROM order_items oi
			LEFT JOIN products p ON oi.product_id = p.id
			WHERE oi.order_id = ?`, 1)
		if len(items) != 2 {
			t.Fatalf("Test Failed: Expected 2 items, got %d", len(items))
		}
		if items[0]["product_name"] == nil {
			t.Error("Test Failed: Expected product_name decoration")
		}

		// The kitchen works the first order to completion.
		mustRun(t, engine, "UPDATE orders SET status = ? WHERE id = ?", "preparing", 1)
		mustRun(t, engine, "UPDATE orders SET status = ? WHERE id = ?", "ready", 1)

		// Table 1 pays and frees up.
		mustRun(t, engine,
			"UPDATE orders SET status = ?, closed_at = CURRENT_TIMESTAMP WHERE id = ?", "paid", 1)
		mustRun(t, engine, "UPDATE tables SET status = ? WHERE id = ?", "available", 1)

		closed := engine.Get("SELECT * FROM orders WHERE id = ?", 1).Record()
		if closed["closed_at"] == nil || closed["closed_at"] == "" {
			t.Error("Test Failed: Expected closed_at to be stamped")
		}

		// Daily sales: paid totals for today.
		report := mustQuery(t, engine,
			"SELECT SUM(total) as total FROM orders WHERE DATE(created_at) = ?", "2000-01-01")
		if len(report) != 1 {
			t.Fatalf("Test Failed: Expected one report row, got %d", len(report))
		}
		if report[0]["total"] != 30.0 {
			t.Errorf("Test Failed: Expected daily total 30.0, got %v", report[0]["total"])
		}
		if report[0]["count"] != 3.0 {
			t.Errorf("Test Failed: Expected 3 orders counted, got %v", report[0]["count"])
		}

		// Table 5 walks out; the order and its items go away.
		mustRun(t, engine, "DELETE FROM order_items WHERE order_id = ?", 2)
		mustRun(t, engine, "DELETE FROM orders WHERE id = ?", 2)
		if len(mustQuery(t, engine, "SELECT * FROM orders")) != 2 {
			t.Error("Test Failed: Expected 2 orders after delete")
		}

		// Every write left a transaction behind.
		entries := engine.Store().Log(0)
		if len(entries) < 15 {
			t.Errorf("Test Failed: Expected a transaction per write, got %d", len(entries))
		}
	})
}

// TestOrderCountByStatus checks the COUNT aggregate over a filtered set.
func TestOrderCountByStatus(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, engine *db.Engine) {
		for i := 0; i < 4; i++ {
			mustRun(t, engine,
				"INSERT INTO orders (table_id, status, total) VALUES (?, ?, ?)", i+1, "pending", 5)
		}
		mustRun(t, engine, "UPDATE orders SET status = ? WHERE id = ?", "paid", 4)

		rows := mustQuery(t, engine,
			"SELECT COUNT(*) as count FROM orders WHERE status IN ('pending', 'preparing', 'ready')")
		if len(rows) != 1 || rows[0]["count"] != 3.0 {
			t.Errorf("Test Failed: Expected count 3, got %+v", rows)
		}
	})
}

// TestRollbackRestoresSeedState rewinds the store to the seed transaction.
func TestRollbackRestoresSeedState(t *testing.T) {
	runWithBothStores(t, func(t *testing.T, engine *db.Engine) {
		checkpoint := engine.Store().LatestTransaction()

		mustRun(t, engine, "INSERT INTO orders (table_id, status, total) VALUES (?, ?, ?)", 1, "pending", 0)
		mustRun(t, engine, "UPDATE tables SET status = ? WHERE id = ?", "occupied", 1)

		if err := engine.Store().RestoreTo(checkpoint); err != nil {
			t.Fatalf("RestoreTo failed: %v", err)
		}

		if len(mustQuery(t, engine, "SELECT * FROM orders")) != 0 {
			t.Error("Test Failed: Expected orders empty after rollback")
		}
		table := engine.Get("SELECT * FROM tables WHERE id = ?", 1).Record()
		if table["status"] != "available" {
			t.Errorf("Test Failed: Expected table 1 available after rollback, got %v", table["status"])
		}
	})
}

// TestSnapshotAcrossStores backs up a memory store and restores the
// snapshot into a file store.
func TestSnapshotAcrossStores(t *testing.T) {
	source, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	engine := seededEngine(t, source)
	mustRun(t, engine, "INSERT INTO orders (table_id, status, total) VALUES (?, ?, ?)", 7, "pending", 18.0)

	dest := filepath.Join(t.TempDir(), "snapshot.json")
	if err := engine.Backup(dest, nil); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	target, err := ps.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	instance := ComandaDB.Open(target)
	restored := instance.Engine(core.Identity{Name: "restore", Email: "restore@test.com"})
	if err := restored.RestoreSnapshot(dest, nil); err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}

	if !target.Initialized() {
		t.Error("Test Failed: Expected restored store to be initialized")
	}
	orders := mustQuery(t, restored, "SELECT * FROM orders")
	if len(orders) != 1 || orders[0]["table_id"] != 7.0 {
		t.Errorf("Test Failed: Expected restored order for table 7, got %+v", orders)
	}
	if len(mustQuery(t, restored, "SELECT * FROM products")) != 10 {
		t.Error("Test Failed: Expected 10 restored products")
	}
}

// TestFileStoreContinuesAfterReopen writes, reopens the same directory and
// keeps writing against the existing history.
func TestFileStoreContinuesAfterReopen(t *testing.T) {
	baseDir := t.TempDir()

	store, err := ps.NewFileStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	engine := seededEngine(t, store)
	mustRun(t, engine, "INSERT INTO orders (table_id, status, total) VALUES (?, ?, ?)", 2, "pending", 0)
	before := len(engine.Store().Log(0))

	reopened, err := ps.NewFileStore(baseDir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	instance := ComandaDB.Open(reopened)
	identity := core.Identity{Name: "test", Email: "test@test.com"}
	if err := instance.Initialize(identity); err != nil {
		t.Fatalf("Initialize after reopen failed: %v", err)
	}
	engine2 := instance.Engine(identity)

	if len(mustQuery(t, engine2, "SELECT * FROM orders")) != 1 {
		t.Fatal("Test Failed: Expected order to survive reopen")
	}

	mustRun(t, engine2, "INSERT INTO orders (table_id, status, total) VALUES (?, ?, ?)", 3, "pending", 0)
	after := len(engine2.Store().Log(0))
	if after != before+1 {
		t.Errorf("Test Failed: Expected %d transactions after reopen, got %d", before+1, after)
	}
}

// TestConcurrentInserts hammers the store from several goroutines. Ids must
// come out unique and every record must land.
func TestConcurrentInserts(t *testing.T) {
	store, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	engine := seededEngine(t, store)

	const writers = 8
	const perWriter = 5

	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				result := engine.Run(
					"INSERT INTO orders (table_id, status, total) VALUES (?, ?, ?)",
					worker%12+1, "pending", 0)
				if !result.Success {
					errs <- fmt.Errorf("worker %d: %s", worker, result.Error)
				}
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	orders := mustQuery(t, engine, "SELECT * FROM orders")
	if len(orders) != writers*perWriter {
		t.Fatalf("Test Failed: Expected %d orders, got %d", writers*perWriter, len(orders))
	}

	seen := make(map[float64]bool)
	for _, order := range orders {
		id, _ := order["id"].(float64)
		if seen[id] {
			t.Fatalf("Test Failed: Duplicate id %v", id)
		}
		seen[id] = true
	}
}
