package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimestampLayout is the layout of order_purchase_timestamp values.
const TimestampLayout = "2006-01-02 15:04:05"

// DateLayout is the layout used for cutoff and reference dates.
const DateLayout = "2006-01-02"

// Feature column names, in matrix column order.
const (
	FeatureFrequency = "frequency"
	FeatureMonetary  = "monetary"
	FeatureRecency   = "recency"
)

// FeatureNames lists the standardized columns in matrix order.
var FeatureNames = []string{FeatureFrequency, FeatureMonetary, FeatureRecency}

// OrderRecord is a row of the orders table.
type OrderRecord struct {
	OrderID           string `json:"order_id"`
	CustomerID        string `json:"customer_id"`
	PurchaseTimestamp string `json:"order_purchase_timestamp"` // "YYYY-MM-DD HH:MM:SS"
}

// CustomerRecord is a row of the customers table.
// Several CustomerID values may map to the same CustomerUniqueID.
type CustomerRecord struct {
	CustomerID       string `json:"customer_id"`
	CustomerUniqueID string `json:"customer_unique_id"`
}

// OrderItem is a line item of an order.
type OrderItem struct {
	OrderID string  `json:"order_id"`
	Price   float64 `json:"price"`
}

// RawTables groups the three upstream tables.
type RawTables struct {
	Orders    []OrderRecord
	Customers []CustomerRecord
	Items     []OrderItem
}

// CustomerFeatureRow holds the RFM features of one unique customer.
type CustomerFeatureRow struct {
	CustomerUniqueID string    `json:"customer_unique_id"`
	Frequency        int       `json:"frequency"` // distinct orders, always >= 1
	Monetary         float64   `json:"monetary"`  // sum of item prices
	Recency          int       `json:"recency"`   // days since LastPurchase
	LastPurchase     time.Time `json:"last_purchase"`
}

// Vector returns the row's features in FeatureNames order.
func (r CustomerFeatureRow) Vector() []float64 {
	return []float64{float64(r.Frequency), r.Monetary, float64(r.Recency)}
}

// LabeledPoint is a customer in original units together with its cluster label.
type LabeledPoint struct {
	CustomerUniqueID string  `json:"customer_unique_id" yaml:"customer_unique_id"`
	Frequency        int     `json:"frequency" yaml:"frequency"`
	Monetary         float64 `json:"monetary" yaml:"monetary"`
	Recency          int     `json:"recency" yaml:"recency"`
	Cluster          int     `json:"cluster" yaml:"cluster"`
}

// ClusterSummaryRow is one row of the per-cluster report table.
type ClusterSummaryRow struct {
	Cluster       int     `json:"cluster" yaml:"cluster"`
	MeanFrequency float64 `json:"mean_frequency" yaml:"mean_frequency"` // one decimal place
	MeanRecency   int     `json:"mean_recency" yaml:"mean_recency"`
	MeanMonetary  int     `json:"mean_monetary" yaml:"mean_monetary"`
	ClusterSize   int     `json:"cluster_size" yaml:"cluster_size"`
}

// Quality is the outcome of the silhouette evaluation for one run.
// Defined is false when the coefficient is undefined (singleton cluster).
type Quality struct {
	Score          float64 `json:"score" yaml:"score"` // rounded to two decimals
	Defined        bool    `json:"defined" yaml:"defined"`
	Interpretation string  `json:"interpretation,omitempty" yaml:"interpretation,omitempty"`
	Reason         string  `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Text renders the quality line shown next to the cluster view.
func (q Quality) Text() string {
	if !q.Defined {
		return fmt.Sprintf(" Mean Silhouette Coefficient : undefined (%s)", q.Reason)
	}
	return fmt.Sprintf(" Mean Silhouette Coefficient : %s", FormatScore(q.Score))
}

// FormatScore prints a two-decimal score without trailing zeros, the way it is displayed.
func FormatScore(score float64) string {
	rounded, _ := strconv.ParseFloat(strconv.FormatFloat(score, 'f', 2, 64), 64)
	s := strconv.FormatFloat(rounded, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SegmentResult is everything a presentation layer needs for one K selection.
type SegmentResult struct {
	RunID      string              `json:"run_id" yaml:"run_id"`
	K          int                 `json:"k" yaml:"k"`
	Iterations int                 `json:"iterations" yaml:"iterations"`
	Converged  bool                `json:"converged" yaml:"converged"`
	Quality    Quality             `json:"quality" yaml:"quality"`
	ScoreText  string              `json:"score_text" yaml:"score_text"`
	Summary    []ClusterSummaryRow `json:"summary" yaml:"summary"`
	Points     []LabeledPoint      `json:"points,omitempty" yaml:"points,omitempty"`
	Duration   time.Duration       `json:"duration_ns" yaml:"duration"`
}
