package ranking

import "context"

// Ledger is the append-only score store the engine ranks against.
// Implementations must allow concurrent appends and must let a caller
// observe its own completed Append on the next ReadAllScores.
type Ledger interface {
	Append(ctx context.Context, rec ScoreRecord) error
	ReadAllScores(ctx context.Context) ([]float64, error)
}

// RecentLister is implemented by ledgers that can return the newest records.
type RecentLister interface {
	Recent(ctx context.Context, limit int) ([]ScoreRecord, error)
}
