// Package sources loads the orders, customers and order_items tables from CSV
// files or a SQL database.
package sources

import (
	"context"
	"fmt"
	"time"

	"rfmseg/internal/config"
	"rfmseg/internal/core"
	"rfmseg/internal/logger"
	"rfmseg/internal/store"

	"golang.org/x/sync/errgroup"
)

// TableReader reads the three raw tables
type TableReader interface {
	Orders(ctx context.Context) ([]core.OrderRecord, error)
	Customers(ctx context.Context) ([]core.CustomerRecord, error)
	Items(ctx context.Context) ([]core.OrderItem, error)
}

// LoadAll reads the three tables concurrently. The first failure cancels the
// other reads and is returned.
func LoadAll(ctx context.Context, r TableReader) (core.RawTables, error) {
	var tables core.RawTables
	start := time.Now()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		orders, err := r.Orders(ctx)
		if err != nil {
			return fmt.Errorf("failed to load orders: %w", err)
		}
		tables.Orders = orders
		return nil
	})
	eg.Go(func() error {
		customers, err := r.Customers(ctx)
		if err != nil {
			return fmt.Errorf("failed to load customers: %w", err)
		}
		tables.Customers = customers
		return nil
	})
	eg.Go(func() error {
		items, err := r.Items(ctx)
		if err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
		tables.Items = items
		return nil
	})

	if err := eg.Wait(); err != nil {
		return core.RawTables{}, err
	}

	logger.Info("Loaded raw tables",
		"orders", len(tables.Orders),
		"customers", len(tables.Customers),
		"items", len(tables.Items),
		"duration", time.Since(start),
	)
	return tables, nil
}

// NewReader returns the reader selected by data.source. The returned close
// function releases any database connection and is never nil.
func NewReader(ctx context.Context, cfg config.Data) (TableReader, func() error, error) {
	switch cfg.Source {
	case "csv", "":
		return NewCSVReader(cfg.Dir, cfg.OrdersFile, cfg.CustomersFile, cfg.ItemsFile), func() error { return nil }, nil
	case "database":
		openCtx, cancel := context.WithTimeout(ctx, cfg.Database.TimeoutDuration())
		defer cancel()

		s, err := store.Open(openCtx, cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s source: %w", cfg.Database.Driver, err)
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown data source: %s", cfg.Source)
	}
}
