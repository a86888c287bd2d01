// Package features derives per-customer RFM rows from raw order tables and
// selects the cohort that is segmented.
package features

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"rfmseg/internal/core"
)

// customerAggregate accumulates joined rows for one customer_unique_id
type customerAggregate struct {
	orders       map[string]struct{}
	prices       []float64
	lastPurchase time.Time
}

// Extract joins orders→customers on customer_id and then →items on order_id,
// and aggregates one CustomerFeatureRow per customer_unique_id. Recency is the
// number of whole days between reference and the customer's last purchase date.
//
// Rows without a match on either join are dropped. Timestamps are parsed only for
// orders that survive the join; a malformed one returns core.ErrParse. An empty
// join returns core.ErrDataIntegrity. The output is sorted by customer_unique_id,
// so it does not depend on input row order.
func Extract(tables core.RawTables, reference time.Time) ([]core.CustomerFeatureRow, error) {
	uniqueIDs := make(map[string][]string, len(tables.Customers))
	for _, c := range tables.Customers {
		uniqueIDs[c.CustomerID] = append(uniqueIDs[c.CustomerID], c.CustomerUniqueID)
	}

	prices := make(map[string][]float64, len(tables.Items))
	for _, item := range tables.Items {
		prices[item.OrderID] = append(prices[item.OrderID], item.Price)
	}

	reference = dateOf(reference)
	aggregates := make(map[string]*customerAggregate)

	for _, order := range tables.Orders {
		customers, ok := uniqueIDs[order.CustomerID]
		if !ok {
			continue
		}
		items, ok := prices[order.OrderID]
		if !ok {
			continue
		}

		purchased, err := ParseTimestamp(order.PurchaseTimestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: order %s: %v", core.ErrParse, order.OrderID, err)
		}
		purchaseDate := dateOf(purchased)

		for _, uid := range customers {
			agg, ok := aggregates[uid]
			if !ok {
				agg = &customerAggregate{orders: make(map[string]struct{})}
				aggregates[uid] = agg
			}
			agg.orders[order.OrderID] = struct{}{}
			agg.prices = append(agg.prices, items...)
			if purchaseDate.After(agg.lastPurchase) {
				agg.lastPurchase = purchaseDate
			}
		}
	}

	if len(aggregates) == 0 {
		return nil, fmt.Errorf("%w: joining orders, customers and items produced no rows", core.ErrDataIntegrity)
	}

	ids := make([]string, 0, len(aggregates))
	for uid := range aggregates {
		ids = append(ids, uid)
	}
	sort.Strings(ids)

	rows := make([]core.CustomerFeatureRow, 0, len(ids))
	for _, uid := range ids {
		agg := aggregates[uid]
		rows = append(rows, core.CustomerFeatureRow{
			CustomerUniqueID: uid,
			Frequency:        len(agg.orders),
			Monetary:         sumSorted(agg.prices),
			Recency:          DaysBetween(agg.lastPurchase, reference),
			LastPurchase:     agg.lastPurchase,
		})
	}

	return rows, nil
}

// sumSorted adds prices in ascending order so the float result does not
// depend on the order rows were read in.
func sumSorted(prices []float64) float64 {
	sort.Float64s(prices)
	var total float64
	for _, p := range prices {
		total += p
	}
	return total
}

// ParseTimestamp parses an order_purchase_timestamp value ("YYYY-MM-DD HH:MM:SS").
func ParseTimestamp(raw string) (time.Time, error) {
	t, err := time.Parse(core.TimestampLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed purchase timestamp %q", raw)
	}
	return t, nil
}

// DaysBetween returns the whole number of calendar days from start to end.
// Both arguments are reduced to their UTC date first.
func DaysBetween(start, end time.Time) int {
	return int(dateOf(end).Sub(dateOf(start)).Hours() / 24)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
