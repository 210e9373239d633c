// Package bucket implements the app.CodeStore port on the local filesystem:
// one append-only checksummed file per hour bucket, fronted by a lazily
// loaded in-memory cache. The files are the source of truth; the cache is
// upsert-only and never reloaded for the lifetime of the process, so a
// single process must own a store directory at a time.
package bucket

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/covtrace/tracerd/internal/app"
	"github.com/covtrace/tracerd/internal/domain"
)

const (
	// recordSize is the fixed on-disk record length: a 4-byte little-endian
	// CRC-32/IEEE of the payload followed by the 32-byte contact code.
	recordSize = 4 + domain.CodeSize

	// maxFetchWindowHours bounds how far into the past FetchSince may reach.
	// Protocol constant (21 days), deliberately independent of the
	// configurable recency window.
	maxFetchWindowHours = 21 * 24

	secondsPerBucket = 3600

	fileSuffix = ".bucket"
)

// Index returns the hour-bucket index for t: unix seconds divided by 3600.
// Times before the epoch clamp to bucket zero.
func Index(t time.Time) uint64 {
	sec := t.Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec) / secondsPerBucket
}

// Store holds submitted contact codes bucketed by hour. Safe for concurrent
// use: reads take the shared lock, lazy loads and appends the exclusive one.
type Store struct {
	dir    string
	clock  app.Clock
	window uint64 // recency horizon in buckets

	mu      sync.RWMutex
	buckets map[uint64]map[domain.ContactCode]struct{}
}

var _ app.CodeStore = (*Store)(nil)

// Open ensures dir exists and returns a store with an empty cache.
// recencyWindowHours controls the dedup/active horizon; see the operator
// notes in DESIGN.md for choosing its value.
func Open(dir string, clock app.Clock, recencyWindowHours int) (*Store, error) {
	if recencyWindowHours <= 0 {
		return nil, errors.New("recency window must be positive")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{
		dir:     dir,
		clock:   clock,
		window:  uint64(recencyWindowHours),
		buckets: make(map[uint64]map[domain.ContactCode]struct{}),
	}, nil
}

// Dir returns the store directory, for readiness probes.
func (s *Store) Dir() string { return s.dir }

func (s *Store) currentBucket() uint64 {
	return Index(s.clock.Now())
}

// path derives the backing file for a bucket index. The underscore prefix
// keeps the files clear of tooling that special-cases dotfiles and matches
// the layout other implementations of the protocol read.
func (s *Store) path(b uint64) string {
	return filepath.Join(s.dir, fmt.Sprintf("_%d%s", b, fileSuffix))
}

// loaded reports whether the bucket is already cached.
func (s *Store) loaded(b uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[b]
	return ok
}

// ensureLoaded makes the bucket present in the cache, reading and validating
// its backing file on first access. The read happens under the write lock so
// readers never observe a half-loaded bucket.
func (s *Store) ensureLoaded(b uint64) error {
	if s.loaded(b) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(b)
}

// loadLocked is ensureLoaded's body; callers hold the write lock. The
// re-check makes concurrent first accesses collapse into a single load.
func (s *Store) loadLocked(b uint64) error {
	if _, ok := s.buckets[b]; ok {
		return nil
	}
	set := make(map[domain.ContactCode]struct{})
	f, err := os.Open(s.path(b))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// missing file is an empty bucket
	case err != nil:
		return fmt.Errorf("open bucket %d: %w", b, err)
	default:
		defer f.Close()
		r := bufio.NewReader(f)
		var rec [recordSize]byte
		for {
			_, err := io.ReadFull(r, rec[:])
			if err == io.EOF {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("bucket %d: truncated trailing record: %w", b, app.ErrCorruptData)
			}
			if err != nil {
				return fmt.Errorf("read bucket %d: %w", b, err)
			}
			if binary.LittleEndian.Uint32(rec[:4]) != crc32.ChecksumIEEE(rec[4:]) {
				return fmt.Errorf("bucket %d: checksum mismatch: %w", b, app.ErrCorruptData)
			}
			var code domain.ContactCode
			copy(code[:], rec[4:])
			set[code] = struct{}{}
		}
	}
	s.buckets[b] = set
	return nil
}

// FetchSince returns the union of all codes in buckets from ts through the
// current bucket. Future timestamps yield an empty result; spans beyond the
// protocol maximum fail with app.ErrRangeTooLarge. Result order is
// unspecified.
func (s *Store) FetchSince(ctx context.Context, ts time.Time) ([]domain.ContactCode, error) {
	_ = ctx
	start := Index(ts)
	end := s.currentBucket()
	if start > end {
		return nil, nil
	}
	if end-start > maxFetchWindowHours {
		return nil, app.ErrRangeTooLarge
	}
	for b := start; b <= end; b++ {
		if err := s.ensureLoaded(b); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ContactCode
	for b := start; b <= end; b++ {
		for code := range s.buckets[b] {
			out = append(out, code)
		}
	}
	return out, nil
}

// Has reports whether code was submitted within the recency horizon. The
// scan covers the window of buckets ending at, but excluding, the current
// one; Add separately consults the current bucket before appending.
func (s *Store) Has(ctx context.Context, code domain.ContactCode) (bool, error) {
	_ = ctx
	now := s.currentBucket()
	start := uint64(0)
	if now > s.window {
		start = now - s.window
	}
	for b := start; b < now; b++ {
		if err := s.ensureLoaded(b); err != nil {
			return false, err
		}
		s.mu.RLock()
		_, ok := s.buckets[b][code]
		s.mu.RUnlock()
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Add persists code in the current bucket, deduplicating against the recency
// horizon and the current bucket itself. The file append and the cache
// insert share one critical section, so a concurrent reader either sees both
// or neither.
func (s *Store) Add(ctx context.Context, code domain.ContactCode) (bool, error) {
	if seen, err := s.Has(ctx, code); err != nil || seen {
		return false, err
	}
	now := s.currentBucket()
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(now); err != nil {
		return false, err
	}
	if _, ok := s.buckets[now][code]; ok {
		return false, nil
	}
	var rec [recordSize]byte
	binary.LittleEndian.PutUint32(rec[:4], crc32.ChecksumIEEE(code[:]))
	copy(rec[4:], code[:])
	f, err := os.OpenFile(s.path(now), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return false, fmt.Errorf("open bucket %d for append: %w", now, err)
	}
	if _, err := f.Write(rec[:]); err != nil {
		f.Close()
		return false, fmt.Errorf("append bucket %d: %w", now, err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Errorf("close bucket %d: %w", now, err)
	}
	s.buckets[now][code] = struct{}{}
	return true, nil
}

// Active returns the codes eligible for match expansion: the union of all
// buckets within the recency horizon, current bucket included.
func (s *Store) Active(ctx context.Context) ([]domain.ContactCode, error) {
	_ = ctx
	end := s.currentBucket()
	start := uint64(0)
	if end > s.window {
		start = end - s.window
	}
	for b := start; b <= end; b++ {
		if err := s.ensureLoaded(b); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ContactCode
	for b := start; b <= end; b++ {
		for code := range s.buckets[b] {
			out = append(out, code)
		}
	}
	return out, nil
}

// PruneBefore removes backing files and cache entries for buckets strictly
// older than cutoff and returns how many were deleted. The request path
// never calls this; it exists for the retention janitor, the designated
// external deleter of bucket files.
func (s *Store) PruneBefore(ctx context.Context, cutoff uint64) (int, error) {
	_ = ctx
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("scan store directory: %w", err)
	}
	pruned := 0
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, "_") || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		b, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(name, "_"), fileSuffix), 10, 64)
		if err != nil {
			continue
		}
		if b >= cutoff {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			return pruned, fmt.Errorf("remove bucket %d: %w", b, err)
		}
		delete(s.buckets, b)
		pruned++
	}
	return pruned, nil
}
