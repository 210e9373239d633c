// Package app service.go contains the use-case orchestration: submission,
// bucket fetch, and the exposure match query.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/covtrace/tracerd/internal/domain"
)

// ErrRangeTooLarge indicates a fetch window reaching further into the past
// than the protocol maximum.
var ErrRangeTooLarge = errors.New("fetch range too large")

// ErrCorruptData indicates a bucket file whose records failed validation.
// The store does not self-repair; the condition persists until the file is
// fixed or removed externally.
var ErrCorruptData = errors.New("corrupt bucket data")

// Service orchestrates the protocol operations on top of the injected store.
// ChainDays and IDsPerDay default to the protocol constants when zero.
type Service struct {
	Store     CodeStore
	ChainDays int
	IDsPerDay int
}

// Submit records a diagnosed user's contact code. The boolean reports whether
// the code was newly accepted; false means a duplicate within the recency
// horizon, which is a normal result rather than a failure.
func (s *Service) Submit(ctx context.Context, code domain.ContactCode) (bool, error) {
	return s.Store.Add(ctx, code)
}

// Fetch returns all codes submitted since ts, for clients that sync the code
// list and match locally.
func (s *Service) Fetch(ctx context.Context, ts time.Time) ([]domain.ContactCode, error) {
	return s.Store.FetchSince(ctx, ts)
}

// Check reports whether any observed broadcast identifier was derived from a
// code in the active window. Each active code expands to ChainDays successor
// codes and each of those to IDsPerDay identifiers; the first identifier
// found in observed short-circuits the whole expansion. This is the hottest
// path in the system (codes x days x minutes cipher operations), so the
// early exit happens at the innermost loop.
func (s *Service) Check(ctx context.Context, observed map[domain.BroadcastID]struct{}) (bool, error) {
	if len(observed) == 0 {
		return false, nil
	}
	codes, err := s.Store.Active(ctx)
	if err != nil {
		return false, err
	}
	days := s.ChainDays
	if days <= 0 {
		days = domain.ChainDays
	}
	perDay := s.IDsPerDay
	if perDay <= 0 {
		perDay = domain.IDsPerDay
	}
	for _, root := range codes {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		chain := root.Chain()
		for d := 0; d < days; d++ {
			seq := chain.Next().Broadcasts()
			for m := 0; m < perDay; m++ {
				if _, ok := observed[seq.Next()]; ok {
					return true, nil
				}
			}
		}
	}
	return false, nil
}
