package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// fileRecord is the on-disk shape: [{"role":..,"score":..,"date":..}].
type fileRecord struct {
	Role  string    `json:"role"`
	Score float64   `json:"score"`
	Date  time.Time `json:"date"`
}

// FileLedger stores the ledger as a single JSON array. Every append rewrites
// the file through a temp file and rename, under a process-wide mutex.
// It is meant for single-instance deployments.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

func NewFileLedger(path string) *FileLedger {
	return &FileLedger{path: path}
}

func (l *FileLedger) Path() string { return l.path }

func (l *FileLedger) Append(ctx context.Context, rec ScoreRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return err
	}
	records = append(records, fileRecord{Role: rec.Role, Score: rec.Score, Date: rec.CreatedAt})
	return l.store(records)
}

func (l *FileLedger) ReadAllScores(ctx context.Context) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.Score
	}
	return out, nil
}

func (l *FileLedger) Recent(ctx context.Context, limit int) ([]ScoreRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.load()
	if err != nil {
		return nil, err
	}
	all := make([]ScoreRecord, len(records))
	for i, r := range records {
		all[i] = ScoreRecord{Role: r.Role, Score: r.Score, CreatedAt: r.Date}
	}
	return newestFirst(all, limit), nil
}

// load treats a missing file as an empty ledger. A file that exists but does
// not parse is an error; it is never silently reset.
func (l *FileLedger) load() ([]fileRecord, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []fileRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptLedger, l.path, err)
	}
	return records, nil
}

func (l *FileLedger) store(records []fileRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp ledger: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp ledger: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace ledger: %w", err)
	}
	return nil
}
