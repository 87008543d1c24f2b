package settlement

import (
	"context"
	"sync"
	"time"
)

// Stage records how far a journaled posting got.
type Stage string

const (
	StageClaimed         Stage = "claimed"
	StageBalancesApplied Stage = "balances_applied"
	StageCompleted       Stage = "completed"
)

// JournalEntry is the write-ahead record of one posting.
type JournalEntry struct {
	Posting   Posting
	Stage     Stage
	Results   []Result
	ClaimedAt time.Time
	UpdatedAt time.Time
}

// Journal is the write-ahead log the Coordinator uses in place of a database
// transaction. Claim must be atomic per key.
type Journal interface {
	Claim(ctx context.Context, posting Posting) error
	Exists(ctx context.Context, key string) (bool, error)
	Advance(ctx context.Context, key string, stage Stage, results []Result) error
	Release(ctx context.Context, key string) error
	Pending(ctx context.Context) ([]JournalEntry, error)
}

// MemoryJournal is a process-local Journal.
type MemoryJournal struct {
	mu      sync.Mutex
	entries map[string]*JournalEntry
	now     func() time.Time
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{entries: make(map[string]*JournalEntry), now: time.Now}
}

func (j *MemoryJournal) Claim(_ context.Context, posting Posting) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, ok := j.entries[posting.EventKey]; ok {
		return ErrAlreadyApplied
	}
	now := j.now()
	j.entries[posting.EventKey] = &JournalEntry{Posting: posting, Stage: StageClaimed, ClaimedAt: now, UpdatedAt: now}
	return nil
}

func (j *MemoryJournal) Exists(_ context.Context, key string) (bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	_, ok := j.entries[key]
	return ok, nil
}

func (j *MemoryJournal) Advance(_ context.Context, key string, stage Stage, results []Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if e, ok := j.entries[key]; ok {
		e.Stage = stage
		if results != nil {
			e.Results = results
		}
		e.UpdatedAt = j.now()
	}
	return nil
}

func (j *MemoryJournal) Release(_ context.Context, key string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.entries, key)
	return nil
}

func (j *MemoryJournal) Pending(_ context.Context) ([]JournalEntry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []JournalEntry
	for _, e := range j.entries {
		if e.Stage != StageCompleted {
			cp := *e
			cp.Results = append([]Result(nil), e.Results...)
			out = append(out, cp)
		}
	}
	return out, nil
}
