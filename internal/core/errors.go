package core

import "errors"

var (
	// ErrParse is returned when a raw input value (timestamp, price) cannot be parsed.
	// It is fatal at startup.
	ErrParse = errors.New("parse error")

	// ErrDataIntegrity is returned when joining or filtering leaves no usable data,
	// or when the cohort cannot be standardized.
	ErrDataIntegrity = errors.New("data integrity error")

	// ErrInvalidParameter is returned when a per-request parameter such as K is out of range
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrDegenerateCluster is returned when the silhouette coefficient is undefined
	// because a cluster has a single member.
	ErrDegenerateCluster = errors.New("degenerate cluster")
)
