package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rfmseg/internal/core"
)

func sampleTables() core.RawTables {
	return core.RawTables{
		Orders: []core.OrderRecord{
			{OrderID: "o1", CustomerID: "c1", PurchaseTimestamp: "2018-09-01 10:00:00"},
			{OrderID: "o2", CustomerID: "c2", PurchaseTimestamp: "2018-09-02 11:00:00"},
		},
		Customers: []core.CustomerRecord{
			{CustomerID: "c1", CustomerUniqueID: "u1"},
			{CustomerID: "c2", CustomerUniqueID: "u2"},
		},
		Items: []core.OrderItem{
			{OrderID: "o1", Price: 10.5},
			{OrderID: "o1", Price: 4.5},
			{OrderID: "o2", Price: 99.9},
		},
	}
}

func TestNewStore(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewStore(tmpDir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if store.db == nil {
		t.Error("Store database should not be nil")
	}
	if store.Driver() != "sqlite3" {
		t.Errorf("Expected sqlite3 driver, got %s", store.Driver())
	}

	// Check that database file was created
	dbPath := filepath.Join(tmpDir, DefaultFileName)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should be created")
	}
}

func TestNewStore_InvalidDirectory(t *testing.T) {
	// Try to create store in a file (not directory)
	tmpDir := t.TempDir()
	invalidPath := filepath.Join(tmpDir, "file.txt")
	_ = os.WriteFile(invalidPath, []byte("test"), 0644)

	_, err := NewStore(invalidPath)
	if err == nil {
		t.Error("Expected error when creating store in invalid directory")
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open(context.Background(), "mysql", "whatever"); err == nil {
		t.Error("Expected error for unsupported driver")
	}
}

func TestImportTables_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	tables := sampleTables()
	stats, err := store.ImportTables(ctx, tables)
	if err != nil {
		t.Fatalf("ImportTables failed: %v", err)
	}
	if stats.Orders != 2 || stats.Customers != 2 || stats.Items != 3 {
		t.Errorf("Unexpected import stats: %+v", stats)
	}

	orders, err := store.Orders(ctx)
	if err != nil {
		t.Fatalf("Orders failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(orders))
	}
	found := false
	for _, o := range orders {
		if o == tables.Orders[0] {
			found = true
		}
	}
	if !found {
		t.Errorf("Order %+v not read back: %+v", tables.Orders[0], orders)
	}

	customers, err := store.Customers(ctx)
	if err != nil {
		t.Fatalf("Customers failed: %v", err)
	}
	if len(customers) != 2 {
		t.Errorf("Expected 2 customers, got %d", len(customers))
	}

	items, err := store.Items(ctx)
	if err != nil {
		t.Fatalf("Items failed: %v", err)
	}
	var total float64
	for _, it := range items {
		total += it.Price
	}
	if len(items) != 3 || total != 10.5+4.5+99.9 {
		t.Errorf("Unexpected items: %+v", items)
	}
}

func TestImportTables_Replaces(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	if _, err := store.ImportTables(ctx, sampleTables()); err != nil {
		t.Fatalf("first import failed: %v", err)
	}

	smaller := core.RawTables{
		Orders:    []core.OrderRecord{{OrderID: "o9", CustomerID: "c9", PurchaseTimestamp: "2018-09-09 09:09:09"}},
		Customers: []core.CustomerRecord{{CustomerID: "c9", CustomerUniqueID: "u9"}},
		Items:     []core.OrderItem{{OrderID: "o9", Price: 1}},
	}
	if _, err := store.ImportTables(ctx, smaller); err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Orders != 1 || stats.Customers != 1 || stats.Items != 1 {
		t.Errorf("Expected import to replace previous rows, got %+v", stats)
	}
}

func TestStats_Empty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer func() { _ = store.Close() }()

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Orders != 0 || stats.Customers != 0 || stats.Items != 0 {
		t.Errorf("Expected empty store, got %+v", stats)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		driver string
		query  string
		want   string
	}{
		{"sqlite3", "INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES (?, ?)"},
		{"postgres", "INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"postgres", "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		s := &Store{driver: tt.driver}
		if got := s.rebind(tt.query); got != tt.want {
			t.Errorf("rebind(%s, %q) = %q, want %q", tt.driver, tt.query, got, tt.want)
		}
	}
}
