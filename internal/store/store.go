package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rfmseg/internal/core"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultFileName is the SQLite file created by NewStore
const DefaultFileName = "rfmseg.db"

// Store holds the raw orders, customers and order_items tables in SQLite or Postgres
type Store struct {
	db     *sql.DB
	driver string
	dsn    string
}

// NewStore opens (creating if needed) the SQLite store inside dataDir
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return Open(context.Background(), "sqlite3", filepath.Join(dataDir, DefaultFileName))
}

// Open connects to the database and creates the tables if they are missing.
// driver is "sqlite3" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite3" {
		// One writer avoids "database is locked" during import
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{
		db:     db,
		driver: driver,
		dsn:    dsn,
	}

	if err := store.initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return store, nil
}

// initialize creates the necessary tables
func (s *Store) initialize(ctx context.Context) error {
	ordersTable := `
	CREATE TABLE IF NOT EXISTS orders (
		order_id TEXT NOT NULL,
		customer_id TEXT NOT NULL,
		order_purchase_timestamp TEXT NOT NULL
	);`

	customersTable := `
	CREATE TABLE IF NOT EXISTS customers (
		customer_id TEXT NOT NULL,
		customer_unique_id TEXT NOT NULL
	);`

	itemsTable := `
	CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL,
		price DOUBLE PRECISION NOT NULL
	);`

	tables := []string{ordersTable, customersTable, itemsTable}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the database driver name
func (s *Store) Driver() string { return s.driver }

// ImportStats reports how many rows an import wrote
type ImportStats struct {
	Orders    int
	Customers int
	Items     int
}

// ImportTables replaces the stored tables with the given rows in one transaction
func (s *Store) ImportTables(ctx context.Context, tables core.RawTables) (*ImportStats, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"orders", "customers", "order_items"} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return nil, fmt.Errorf("failed to clear %s table: %w", table, err)
		}
	}

	orders, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO orders (order_id, customer_id, order_purchase_timestamp) VALUES (?, ?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare orders insert: %w", err)
	}
	defer orders.Close()
	for _, o := range tables.Orders {
		if _, err := orders.ExecContext(ctx, o.OrderID, o.CustomerID, o.PurchaseTimestamp); err != nil {
			return nil, fmt.Errorf("failed to insert order %s: %w", o.OrderID, err)
		}
	}

	customers, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO customers (customer_id, customer_unique_id) VALUES (?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare customers insert: %w", err)
	}
	defer customers.Close()
	for _, c := range tables.Customers {
		if _, err := customers.ExecContext(ctx, c.CustomerID, c.CustomerUniqueID); err != nil {
			return nil, fmt.Errorf("failed to insert customer %s: %w", c.CustomerID, err)
		}
	}

	items, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO order_items (order_id, price) VALUES (?, ?)`))
	if err != nil {
		return nil, fmt.Errorf("failed to prepare order_items insert: %w", err)
	}
	defer items.Close()
	for _, it := range tables.Items {
		if _, err := items.ExecContext(ctx, it.OrderID, it.Price); err != nil {
			return nil, fmt.Errorf("failed to insert item for order %s: %w", it.OrderID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}

	return &ImportStats{
		Orders:    len(tables.Orders),
		Customers: len(tables.Customers),
		Items:     len(tables.Items),
	}, nil
}

// Orders returns every stored order
func (s *Store) Orders(ctx context.Context) ([]core.OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT order_id, customer_id, order_purchase_timestamp FROM orders`)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []core.OrderRecord
	for rows.Next() {
		var o core.OrderRecord
		if err := rows.Scan(&o.OrderID, &o.CustomerID, &o.PurchaseTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Customers returns every stored customer
func (s *Store) Customers(ctx context.Context) ([]core.CustomerRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT customer_id, customer_unique_id FROM customers`)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	var customers []core.CustomerRecord
	for rows.Next() {
		var c core.CustomerRecord
		if err := rows.Scan(&c.CustomerID, &c.CustomerUniqueID); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// Items returns every stored order item
func (s *Store) Items(ctx context.Context) ([]core.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT order_id, price FROM order_items`)
	if err != nil {
		return nil, fmt.Errorf("failed to query order_items: %w", err)
	}
	defer rows.Close()

	var items []core.OrderItem
	for rows.Next() {
		var it core.OrderItem
		if err := rows.Scan(&it.OrderID, &it.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// Stats returns row counts of the stored tables
func (s *Store) Stats(ctx context.Context) (*ImportStats, error) {
	stats := &ImportStats{}

	queries := map[string]*int{
		"SELECT COUNT(*) FROM orders":      &stats.Orders,
		"SELECT COUNT(*) FROM customers":   &stats.Customers,
		"SELECT COUNT(*) FROM order_items": &stats.Items,
	}

	for query, target := range queries {
		if err := s.db.QueryRowContext(ctx, query).Scan(target); err != nil {
			return nil, fmt.Errorf("failed to get count: %w", err)
		}
	}

	return stats, nil
}

// rebind rewrites ? placeholders to $n for Postgres
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
