package submissions

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"career-curve/internal/llm"
	"career-curve/internal/shared/telemetry"
)

const llmRetryBaseDelay = 300 * time.Millisecond

// retryingLLM retries a scoring call once on transient failures.
type retryingLLM struct {
	base      llm.Client
	requestID string
	delay     time.Duration
}

func newRetryingLLM(base llm.Client, requestID string, delay time.Duration) llm.Client {
	if base == nil {
		return nil
	}
	return retryingLLM{base: base, requestID: requestID, delay: delay}
}

func (r retryingLLM) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	resp, err := r.base.AnalyzeResume(ctx, input)
	if err == nil || !shouldRetryLLM(err) {
		return resp, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"attempt":    1,
		"request_id": r.requestID,
		"error":      err,
	})
	select {
	case <-time.After(r.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return r.base.AnalyzeResume(ctx, input)
}

func shouldRetryLLM(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, llm.ErrNotImplemented) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "status 5") || strings.Contains(msg, "server_error") {
		return true
	}
	if strings.Contains(msg, "timeout") && (strings.Contains(msg, "openai") || strings.Contains(msg, "llm") || strings.Contains(msg, "client.timeout")) {
		return true
	}
	for _, transient := range []string{
		"connection reset",
		"connection refused",
		"connection closed",
		"broken pipe",
		"tls handshake timeout",
		"eof",
	} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}
