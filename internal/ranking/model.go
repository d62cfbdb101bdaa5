package ranking

import "time"

// Score bounds accepted by the engine.
const (
	MinScore = 1.0
	MaxScore = 10.0
)

// ScoreRecord is one entry in the score ledger.
type ScoreRecord struct {
	Role      string    `json:"role"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"createdAt"`
}

// Rank is the percentile of a submission against every recorded score,
// the submission itself included.
type Rank struct {
	Percent float64 `json:"rankPercent"`
	Total   int     `json:"total"`
	Better  int     `json:"-"`
}

// Summary aggregates the whole ledger.
type Summary struct {
	Total int     `json:"total"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}
