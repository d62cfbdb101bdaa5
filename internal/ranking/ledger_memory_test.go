package ranking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerReadSeesEveryPriorAppend(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, l.Append(ctx, ScoreRecord{Role: "r", Score: float64(i)}))
		scores, err := l.ReadAllScores(ctx)
		require.NoError(t, err)
		assert.Len(t, scores, i)
	}
}

func TestMemoryLedgerRecentNewestFirst(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	for _, s := range []float64{3, 5, 7} {
		require.NoError(t, l.Append(ctx, ScoreRecord{Role: "r", Score: s}))
	}
	recs, err := l.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 7.0, recs[0].Score)
	assert.Equal(t, 5.0, recs[1].Score)
}

func TestMemoryLedgerHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	l := NewMemoryLedger()
	assert.ErrorIs(t, l.Append(ctx, ScoreRecord{Score: 1}), context.Canceled)
	_, err := l.ReadAllScores(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
