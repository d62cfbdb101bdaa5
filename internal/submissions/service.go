package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"career-curve/internal/extract"
	"career-curve/internal/llm"
	"career-curve/internal/ranking"
	"career-curve/internal/shared/metrics"
	"career-curve/internal/shared/storage/object"
	"career-curve/internal/shared/telemetry"
)

const (
	DefaultRole           = "unspecified"
	defaultMaxResumeChars = 5000
	defaultMaxJDChars     = 3000
)

// Ranker records a score and ranks it against the ledger.
type Ranker interface {
	RecordAndRank(ctx context.Context, role string, score float64) (ranking.Rank, error)
}

// Submission is one uploaded resume plus its form fields.
type Submission struct {
	FileName       string
	Data           []byte
	TargetRole     string
	JobDescription string
	RequestID      string
}

// Result is everything returned to the client for a scored resume.
type Result struct {
	Analysis   json.RawMessage
	Scorecard  llm.Scorecard
	ResumeText string
	Rank       ranking.Rank
	FileKey    string
	FileURL    string
	PromptHash string
}

// Service runs the upload, extract, score and rank pipeline.
type Service struct {
	Store          object.ObjectStore
	LLM            llm.Client
	Ranker         Ranker
	PromptVersion  string
	MaxResumeChars int
	MaxJDChars     int
	RetryDelay     time.Duration
	Now            func() time.Time
}

// Submit scores one resume. When the ledger append succeeds but the ranking
// read fails, the returned Result carries the analysis alongside an error
// wrapping ranking.ErrStoreUnavailable.
func (s *Service) Submit(ctx context.Context, sub Submission) (Result, error) {
	role := strings.TrimSpace(sub.TargetRole)
	if role == "" {
		role = DefaultRole
	}
	mimeType := extract.MimeTypeForFile(sub.FileName)
	if mimeType == "" {
		s.reject(sub, "unsupported_file")
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, sub.FileName)
	}

	fileKey, _, sniffed, err := s.Store.Save(ctx, role, sub.FileName, bytes.NewReader(sub.Data))
	if err != nil {
		telemetry.Error("submission.upload_failed", map[string]any{"request_id": sub.RequestID, "error": err})
		return Result{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}
	res := Result{FileKey: fileKey}
	if url, err := s.Store.URL(ctx, fileKey); err != nil {
		telemetry.Warn("submission.url_failed", map[string]any{"request_id": sub.RequestID, "file_key": fileKey, "error": err})
	} else {
		res.FileURL = url
	}

	// Extraction trusts the stored content type; an empty one falls back to the extension.
	text, err := extract.ExtractTextFromBytes(ctx, sub.Data, sniffed, sub.FileName)
	if err != nil {
		s.reject(sub, "extract_failed")
		return Result{}, fmt.Errorf("%w: %w", ErrExtractFailed, err)
	}
	if strings.TrimSpace(text) == "" {
		s.reject(sub, "empty_text")
		return Result{}, ErrEmptyText
	}
	res.ResumeText = truncateRunes(text, s.maxResumeChars())
	jd := truncateRunes(strings.TrimSpace(sub.JobDescription), s.maxJDChars())

	input := llm.AnalyzeInput{
		ResumeText:     res.ResumeText,
		JobDescription: jd,
		PromptVersion:  s.PromptVersion,
		TargetRole:     role,
	}
	raw, scorecard, err := s.score(ctx, sub.RequestID, input, &res.PromptHash)
	if err != nil {
		return Result{}, err
	}
	res.Analysis = raw
	res.Scorecard = scorecard

	rank, err := s.Ranker.RecordAndRank(ctx, role, scorecard.OverallMatch)
	switch {
	case errors.Is(err, ranking.ErrInvalidScore):
		metrics.IncSubmission(metrics.OutcomeRejected)
		return Result{}, err
	case errors.Is(err, ranking.ErrStoreWriteFailed):
		metrics.IncSubmission(metrics.OutcomeNotSaved)
		return Result{}, err
	case errors.Is(err, ranking.ErrStoreUnavailable):
		metrics.IncSubmission(metrics.OutcomeRankUnavailable)
		s.persistAnalysis(ctx, sub.RequestID, role, res)
		return res, err
	case err != nil:
		metrics.IncSubmission(metrics.OutcomeNotSaved)
		return Result{}, fmt.Errorf("%w: %w", ranking.ErrStoreWriteFailed, err)
	}
	res.Rank = rank
	metrics.IncSubmission(metrics.OutcomeRanked)
	s.persistAnalysis(ctx, sub.RequestID, role, res)

	telemetry.Info("submission.ranked", map[string]any{
		"request_id":   sub.RequestID,
		"role":         role,
		"score":        scorecard.OverallMatch,
		"rank_percent": rank.Percent,
		"total":        rank.Total,
		"file_key":     fileKey,
	})
	return res, nil
}

// score calls the model and parses its scorecard. Output that does not fit
// the schema gets one repair round.
func (s *Service) score(ctx context.Context, requestID string, input llm.AnalyzeInput, promptHash *string) (json.RawMessage, llm.Scorecard, error) {
	if s.LLM == nil {
		return nil, llm.Scorecard{}, fmt.Errorf("%w: %w", ErrLLM, llm.ErrNotImplemented)
	}
	client := newRetryingLLM(s.LLM, requestID, s.retryDelay())

	start := time.Now()
	raw, err := client.AnalyzeResume(llm.WithPromptHashSink(ctx, promptHash), input)
	metrics.ObserveLLM(time.Since(start))
	if err != nil {
		telemetry.Error("submission.llm_failed", map[string]any{"request_id": requestID, "error": err})
		return nil, llm.Scorecard{}, fmt.Errorf("%w: %w", ErrLLM, err)
	}

	scorecard, err := llm.ParseScorecard(raw)
	if err == nil {
		return raw, scorecard, nil
	}
	telemetry.Warn("submission.schema_repair", map[string]any{"request_id": requestID, "error": err})

	fixed, fixErr := client.AnalyzeResume(llm.WithFixJSON(ctx, string(raw)), input)
	if fixErr != nil {
		return nil, llm.Scorecard{}, fmt.Errorf("%w: %w", llm.ErrSchemaMismatch, fixErr)
	}
	scorecard, err = llm.ParseScorecard(fixed)
	if err != nil {
		return nil, llm.Scorecard{}, err
	}
	return fixed, scorecard, nil
}

type analysisDocument struct {
	Role          string          `json:"role"`
	Analysis      json.RawMessage `json:"analysis"`
	Scorecard     llm.Scorecard   `json:"scorecard"`
	RankPercent   *float64        `json:"rankPercent,omitempty"`
	Total         int             `json:"total,omitempty"`
	PromptVersion string          `json:"promptVersion,omitempty"`
	PromptHash    string          `json:"promptHash,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// persistAnalysis writes <fileKey>.analysis.json next to the upload. Failures
// are logged only.
func (s *Service) persistAnalysis(ctx context.Context, requestID, role string, res Result) {
	doc := analysisDocument{
		Role:          role,
		Analysis:      res.Analysis,
		Scorecard:     res.Scorecard,
		PromptVersion: s.PromptVersion,
		PromptHash:    res.PromptHash,
		CreatedAt:     s.now().UTC(),
	}
	if res.Rank.Total > 0 {
		pct := res.Rank.Percent
		doc.RankPercent = &pct
		doc.Total = res.Rank.Total
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		telemetry.Warn("submission.analysis_encode_failed", map[string]any{"request_id": requestID, "error": err})
		return
	}
	key := res.FileKey + ".analysis.json"
	if _, err := s.Store.SaveWithKey(ctx, key, "application/json", bytes.NewReader(payload)); err != nil {
		telemetry.Warn("submission.analysis_persist_failed", map[string]any{"request_id": requestID, "key": key, "error": err})
	}
}

func (s *Service) reject(sub Submission, reason string) {
	metrics.IncSubmission(metrics.OutcomeRejected)
	telemetry.Info("submission.rejected", map[string]any{
		"request_id": sub.RequestID,
		"file_name":  sub.FileName,
		"reason":     reason,
	})
}

func (s *Service) maxResumeChars() int {
	if s.MaxResumeChars > 0 {
		return s.MaxResumeChars
	}
	return defaultMaxResumeChars
}

func (s *Service) maxJDChars() int {
	if s.MaxJDChars > 0 {
		return s.MaxJDChars
	}
	return defaultMaxJDChars
}

func (s *Service) retryDelay() time.Duration {
	if s.RetryDelay > 0 {
		return s.RetryDelay
	}
	return llmRetryBaseDelay
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
