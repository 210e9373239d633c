// Package domain errors.go contains sentinel errors raised at parse
// boundaries.
package domain

import "errors"

// Sentinel domain-level errors reused by higher layers.
var (
	ErrInvalidCode        = errors.New("invalid contact code")
	ErrInvalidBroadcastID = errors.New("invalid broadcast id")
)
