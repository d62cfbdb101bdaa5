package ranking

import (
	"context"
	"sync"
)

// MemoryLedger keeps records in process memory. Appends and reads share one
// mutex, so every read observes all appends that completed before it.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []ScoreRecord
}

func NewMemoryLedger(seed ...ScoreRecord) *MemoryLedger {
	l := &MemoryLedger{}
	l.records = append(l.records, seed...)
	return l
}

func (l *MemoryLedger) Append(ctx context.Context, rec ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLedger) ReadAllScores(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]float64, len(l.records))
	for i, r := range l.records {
		out[i] = r.Score
	}
	return out, nil
}

// Recent returns up to limit records, newest first.
func (l *MemoryLedger) Recent(ctx context.Context, limit int) ([]ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return newestFirst(l.records, limit), nil
}

func newestFirst(records []ScoreRecord, limit int) []ScoreRecord {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	out := make([]ScoreRecord, 0, limit)
	for i := len(records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, records[i])
	}
	return out
}
