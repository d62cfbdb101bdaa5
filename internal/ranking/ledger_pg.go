package ranking

import (
	"context"
	"database/sql"
)

// PGLedger implements Ledger using Postgres. It must be pointed at the
// primary, never a replica, so a read always sees the append before it.
type PGLedger struct {
	DB *sql.DB
}

// Append inserts one score record.
func (l *PGLedger) Append(ctx context.Context, rec ScoreRecord) error {
	const query = `
INSERT INTO score_records (role, score, created_at)
VALUES ($1, $2, $3)`
	_, err := l.DB.ExecContext(ctx, query, rec.Role, rec.Score, rec.CreatedAt)
	return err
}

// ReadAllScores returns every stored score in insertion order.
func (l *PGLedger) ReadAllScores(ctx context.Context) ([]float64, error) {
	const query = `SELECT score FROM score_records ORDER BY id`
	rows, err := l.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []float64{}
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Recent lists the newest records first.
func (l *PGLedger) Recent(ctx context.Context, limit int) ([]ScoreRecord, error) {
	const query = `
SELECT role, score, created_at
FROM score_records
ORDER BY id DESC
LIMIT $1`
	rows, err := l.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScoreRecord
	for rows.Next() {
		var r ScoreRecord
		if err := rows.Scan(&r.Role, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var (
	_ Ledger       = (*PGLedger)(nil)
	_ RecentLister = (*PGLedger)(nil)
	_ Ledger       = (*MemoryLedger)(nil)
	_ RecentLister = (*MemoryLedger)(nil)
	_ Ledger       = (*FileLedger)(nil)
	_ RecentLister = (*FileLedger)(nil)
)
