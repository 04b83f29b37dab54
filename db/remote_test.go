package db

import (
	"path/filepath"
	"testing"

	"github.com/jmolero/ComandaDB/core"
	"github.com/jmolero/ComandaDB/ps"
)

func TestBackupAndRestoreSnapshot(t *testing.T) {
	engine := setupEngine(t)

	engine.Run("INSERT INTO orders (table_id, employee_id, status, total) VALUES (?, ?, ?, ?)",
		float64(1), float64(2), core.OrderPending, 12.50)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	if err := engine.Backup(path, nil); err != nil {
		t.Fatalf("Failed to back up: %v", err)
	}

	// Restore into a brand new store
	store, err := ps.NewMemoryStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	restored := NewEngine(store, engine.Identity())

	if err := restored.RestoreSnapshot(path, nil); err != nil {
		t.Fatalf("Failed to restore: %v", err)
	}

	if !store.Initialized() {
		t.Error("Expected restored store to report seeded")
	}

	orders := mustRecords(t, restored.Query("SELECT * FROM orders"))
	if len(orders) != 1 {
		t.Errorf("Expected 1 order after restore, got %d", len(orders))
	}

	products := mustRecords(t, restored.Query("SELECT * FROM products"))
	if len(products) != 10 {
		t.Errorf("Expected 10 products after restore, got %d", len(products))
	}
}

func TestDetectScheme(t *testing.T) {
	tests := []struct {
		path     string
		expected urlScheme
	}{
		{"/var/backups/snapshot.json", schemeLocal},
		{"file:///var/backups/snapshot.json", schemeFile},
		{"s3://backups/comanda/snapshot.json", schemeS3},
		{"https://backups.example.com/snapshot.json", schemeHTTPS},
		{"http://backups.example.com/snapshot.json", schemeHTTP},
	}

	for _, test := range tests {
		if got := detectScheme(test.path); got != test.expected {
			t.Errorf("detectScheme(%q) = %v, expected %v", test.path, got, test.expected)
		}
	}
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://backups/comanda/snapshot.json")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if bucket != "backups" || key != "comanda/snapshot.json" {
		t.Errorf("Unexpected parse: %s / %s", bucket, key)
	}

	if _, _, err := parseS3URL("s3://bucket-only"); err == nil {
		t.Error("Expected error for URL without key")
	}
}
