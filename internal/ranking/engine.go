package ranking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"career-curve/internal/shared/metrics"
	"career-curve/internal/shared/telemetry"
)

const defaultTimeout = 5 * time.Second

// Engine records submissions in the ledger and ranks them against it.
type Engine struct {
	Ledger  Ledger
	Timeout time.Duration
	Now     func() time.Time
}

// NewEngine constructs an Engine with the default store timeout.
func NewEngine(ledger Ledger) *Engine {
	return &Engine{Ledger: ledger, Timeout: defaultTimeout}
}

// RecordAndRank appends {role, score, now} to the ledger and then ranks score
// against every stored score, the new one included.
//
// A failed append returns ErrStoreWriteFailed and never reads the ledger.
// A failed read after a successful append returns ErrStoreUnavailable.
func (e *Engine) RecordAndRank(ctx context.Context, role string, score float64) (Rank, error) {
	if err := ValidateScore(score); err != nil {
		return Rank{}, err
	}
	if e.Ledger == nil {
		return Rank{}, fmt.Errorf("%w: no ledger configured", ErrStoreWriteFailed)
	}

	start := time.Now()
	rec := ScoreRecord{Role: role, Score: score, CreatedAt: e.now().UTC()}

	writeCtx, cancelWrite := e.withTimeout(ctx)
	err := e.Ledger.Append(writeCtx, rec)
	cancelWrite()
	if err != nil {
		telemetry.Error("ledger.append_failed", map[string]any{
			"role":  role,
			"score": score,
			"error": err,
		})
		return Rank{}, fmt.Errorf("%w: %w", ErrStoreWriteFailed, err)
	}

	readCtx, cancelRead := e.withTimeout(ctx)
	scores, err := e.Ledger.ReadAllScores(readCtx)
	cancelRead()
	if err != nil {
		telemetry.Error("ledger.read_failed", map[string]any{
			"role":  role,
			"score": score,
			"error": err,
		})
		return Rank{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if len(scores) == 0 {
		// The read path did not observe our own append.
		return Rank{}, fmt.Errorf("%w: ledger read returned no records after append", ErrStoreUnavailable)
	}

	rank := ComputeRank(score, scores)
	metrics.ObserveRank(time.Since(start), rank.Total)
	telemetry.Info("rank.computed", map[string]any{
		"role":         role,
		"score":        score,
		"total":        rank.Total,
		"better":       rank.Better,
		"rank_percent": rank.Percent,
	})
	return rank, nil
}

// Summary aggregates the full ledger without writing to it.
func (e *Engine) Summary(ctx context.Context) (Summary, error) {
	if e.Ledger == nil {
		return Summary{}, fmt.Errorf("%w: no ledger configured", ErrStoreUnavailable)
	}
	readCtx, cancel := e.withTimeout(ctx)
	defer cancel()
	scores, err := e.Ledger.ReadAllScores(readCtx)
	if err != nil {
		return Summary{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return Summarize(scores), nil
}

// Recent returns up to limit of the newest records when the ledger supports it.
func (e *Engine) Recent(ctx context.Context, limit int) ([]ScoreRecord, error) {
	lister, ok := e.Ledger.(RecentLister)
	if !ok {
		return nil, errors.New("ledger does not support listing recent records")
	}
	readCtx, cancel := e.withTimeout(ctx)
	defer cancel()
	recs, err := lister.Recent(readCtx, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return recs, nil
}

// ComputeRank returns the share of scores that score is at least as good as.
// Only strictly greater scores count against it, so ties favour the submitter.
func ComputeRank(score float64, scores []float64) Rank {
	total := len(scores)
	better := 0
	for _, s := range scores {
		if s > score {
			better++
		}
	}
	percent := 0.0
	if total > 0 {
		percent = float64(total-better) / float64(total) * 100
	}
	return Rank{Percent: percent, Total: total, Better: better}
}

// Summarize computes count, mean, min and max of scores.
func Summarize(scores []float64) Summary {
	if len(scores) == 0 {
		return Summary{}
	}
	out := Summary{Total: len(scores), Min: scores[0], Max: scores[0]}
	var sum float64
	for _, s := range scores {
		sum += s
		out.Min = math.Min(out.Min, s)
		out.Max = math.Max(out.Max, s)
	}
	out.Mean = sum / float64(len(scores))
	return out
}

// ValidateScore rejects NaN, infinities and values outside [MinScore, MaxScore].
func ValidateScore(score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return fmt.Errorf("%w: %v is not a finite number", ErrInvalidScore, score)
	}
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: %v outside [%v, %v]", ErrInvalidScore, score, MinScore, MaxScore)
	}
	return nil
}

func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}
