package metrics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := New(openTestDB(t), Config{FlushInterval: time.Hour})
	if err := m.InitSchema(context.Background()); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}
	return m
}

func TestFlushAndSnapshotCounters(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.apply(event{kind: eventInc, name: CounterCodesSubmitted, v: 3})
	m.apply(event{kind: eventInc, name: CounterCodesSubmitted, v: 2})
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	// A second flush accumulates on top of the persisted row.
	m.apply(event{kind: eventInc, name: CounterCodesSubmitted, v: 1})
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters[CounterCodesSubmitted] != 6 {
		t.Fatalf("counter = %d, want 6", counters[CounterCodesSubmitted])
	}
}

func TestSnapshotLayersUnflushedDeltas(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	m.apply(event{kind: eventInc, name: CounterCheckRequests, v: 4})
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	m.apply(event{kind: eventInc, name: CounterCheckRequests, v: 2}) // not flushed

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters[CounterCheckRequests] != 6 {
		t.Fatalf("counter = %d, want persisted+delta = 6", counters[CounterCheckRequests])
	}
}

func TestSummaryAggregation(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	for _, v := range []int64{5, 1, 9} {
		m.apply(event{kind: eventObserve, name: SummaryCheckContactsPerRequest, v: v})
	}
	if err := m.flush(ctx); err != nil {
		t.Fatalf("flush: %v", err)
	}
	m.apply(event{kind: eventObserve, name: SummaryCheckContactsPerRequest, v: 12})

	_, summaries, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	agg := summaries[SummaryCheckContactsPerRequest]
	if agg.count != 4 || agg.sum != 27 || agg.min != 1 || agg.max != 12 {
		t.Fatalf("summary = %+v, want count=4 sum=27 min=1 max=12", agg)
	}
}

func TestIncIgnoresNonPositiveDeltas(t *testing.T) {
	m := newTestManager(t)
	m.Inc(CounterCodesSubmitted, 0)
	m.Inc(CounterCodesSubmitted, -5)
	select {
	case <-m.events:
		t.Fatalf("non-positive delta must not enqueue an event")
	default:
	}
}

func TestStartStopFlushesPending(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	m.Start(ctx)
	m.Inc(CounterFetchRequests, 1)
	// Give the loop a moment to drain the event channel.
	deadline := time.Now().Add(2 * time.Second)
	for {
		m.mu.Lock()
		applied := m.counters[CounterFetchRequests] == 1
		m.mu.Unlock()
		if applied || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	m.Stop(ctx)

	counters, _, err := m.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if counters[CounterFetchRequests] != 1 {
		t.Fatalf("counter = %d, want 1 after Stop", counters[CounterFetchRequests])
	}
}
