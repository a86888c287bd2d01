package sources

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"rfmseg/internal/core"
)

// CSVReader reads the raw tables from comma-separated files with a header row.
// Columns are matched by name; extra columns are ignored.
type CSVReader struct {
	OrdersPath    string
	CustomersPath string
	ItemsPath     string
}

// NewCSVReader resolves the three file names against dir
func NewCSVReader(dir, ordersFile, customersFile, itemsFile string) *CSVReader {
	return &CSVReader{
		OrdersPath:    filepath.Join(dir, ordersFile),
		CustomersPath: filepath.Join(dir, customersFile),
		ItemsPath:     filepath.Join(dir, itemsFile),
	}
}

// Orders reads order_id, customer_id and order_purchase_timestamp.
// Timestamps are kept as text and parsed during extraction.
func (r *CSVReader) Orders(ctx context.Context) ([]core.OrderRecord, error) {
	var orders []core.OrderRecord
	err := readCSV(ctx, r.OrdersPath, []string{"order_id", "customer_id", "order_purchase_timestamp"}, func(v []string) error {
		orders = append(orders, core.OrderRecord{OrderID: v[0], CustomerID: v[1], PurchaseTimestamp: v[2]})
		return nil
	})
	return orders, err
}

// Customers reads customer_id and customer_unique_id
func (r *CSVReader) Customers(ctx context.Context) ([]core.CustomerRecord, error) {
	var customers []core.CustomerRecord
	err := readCSV(ctx, r.CustomersPath, []string{"customer_id", "customer_unique_id"}, func(v []string) error {
		customers = append(customers, core.CustomerRecord{CustomerID: v[0], CustomerUniqueID: v[1]})
		return nil
	})
	return customers, err
}

// Items reads order_id and price
func (r *CSVReader) Items(ctx context.Context) ([]core.OrderItem, error) {
	var items []core.OrderItem
	err := readCSV(ctx, r.ItemsPath, []string{"order_id", "price"}, func(v []string) error {
		price, err := strconv.ParseFloat(strings.TrimSpace(v[1]), 64)
		if err != nil {
			return fmt.Errorf("%w: order %s: malformed price %q", core.ErrParse, v[0], v[1])
		}
		items = append(items, core.OrderItem{OrderID: v[0], Price: price})
		return nil
	})
	return items, err
}

// readCSV streams path and calls row with the values of the required columns, in order.
func readCSV(ctx context.Context, path string, required []string, row func([]string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %s is empty", core.ErrDataIntegrity, path)
		}
		return fmt.Errorf("%w: %s: %v", core.ErrParse, path, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		// Excel exports sometimes start with a byte order mark
		name = strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")
		index[name] = i
	}

	positions := make([]int, len(required))
	for i, name := range required {
		pos, ok := index[name]
		if !ok {
			return fmt.Errorf("%w: %s has no %q column", core.ErrDataIntegrity, path, name)
		}
		positions[i] = pos
	}

	values := make([]string, len(required))
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		line++
		if err != nil {
			return fmt.Errorf("%w: %s line %d: %v", core.ErrParse, path, line, err)
		}

		if line%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		for i, pos := range positions {
			values[i] = record[pos]
		}
		if err := row(values); err != nil {
			return fmt.Errorf("%s line %d: %w", path, line, err)
		}
	}
}
