package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"career-curve/internal/llm"
)

type recordedServer struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []map[string]any
	auth   []string
}

func newRecordedServer(t *testing.T, reply func(call int) string) *recordedServer {
	t.Helper()
	rs := &recordedServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		rs.mu.Lock()
		rs.bodies = append(rs.bodies, payload)
		rs.auth = append(rs.auth, r.Header.Get("Authorization"))
		call := len(rs.bodies)
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reply(call)))
	}))
	t.Cleanup(rs.Close)
	return rs
}

func choice(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(b)
}

func newTestClient(t *testing.T, baseURL, model string, noTemp ...string) *Client {
	t.Helper()
	c, err := NewClient(Options{APIKey: "test-key", Model: model, BaseURL: baseURL + "/v1/", NoTemperatureModels: noTemp})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

var scoreInput = llm.AnalyzeInput{ResumeText: "resume", JobDescription: "jd", PromptVersion: "score_v1", TargetRole: "Backend"}

func TestAnalyzeResumeReturnsJSON(t *testing.T) {
	srv := newRecordedServer(t, func(int) string { return choice(`{"overallMatch":6.5}`) })
	c := newTestClient(t, srv.URL, "gpt-4o-mini")

	var hash string
	ctx := llm.WithPromptHashSink(context.Background(), &hash)
	raw, err := c.AnalyzeResume(ctx, scoreInput)
	if err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	if string(raw) != `{"overallMatch":6.5}` {
		t.Fatalf("unexpected raw %s", raw)
	}
	if len(hash) != 64 {
		t.Fatalf("expected prompt hash to be recorded, got %q", hash)
	}
	if srv.auth[0] != "Bearer test-key" {
		t.Fatalf("unexpected auth header %q", srv.auth[0])
	}
	if rf, _ := srv.bodies[0]["response_format"].(map[string]any); rf["type"] != "json_object" {
		t.Fatalf("expected json_object response format, got %v", srv.bodies[0]["response_format"])
	}
	if _, ok := srv.bodies[0]["temperature"]; !ok {
		t.Fatalf("expected temperature for gpt-4o-mini")
	}
}

func TestAnalyzeResumeRepairsInvalidJSON(t *testing.T) {
	srv := newRecordedServer(t, func(call int) string {
		if call == 1 {
			return choice(`Sure! {"overallMatch": 7`)
		}
		return choice(`{"overallMatch":7}`)
	})
	c := newTestClient(t, srv.URL, "gpt-4o-mini")

	raw, err := c.AnalyzeResume(context.Background(), scoreInput)
	if err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	if string(raw) != `{"overallMatch":7}` {
		t.Fatalf("unexpected raw %s", raw)
	}
	if len(srv.bodies) != 2 {
		t.Fatalf("expected repair round, got %d calls", len(srv.bodies))
	}
	msgs := srv.bodies[1]["messages"].([]any)
	last := msgs[len(msgs)-1].(map[string]any)["content"].(string)
	if !strings.Contains(last, `Sure! {"overallMatch": 7`) {
		t.Fatalf("expected broken output in repair prompt, got %q", last)
	}
}

func TestAnalyzeResumeFixJSONContextSkipsScoring(t *testing.T) {
	srv := newRecordedServer(t, func(int) string { return choice(`{"overallMatch":5}`) })
	c := newTestClient(t, srv.URL, "gpt-4o-mini")

	ctx := llm.WithFixJSON(context.Background(), `{"overallMatch":5,}`)
	if _, err := c.AnalyzeResume(ctx, scoreInput); err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	sys := srv.bodies[0]["messages"].([]any)[0].(map[string]any)["content"]
	if sys != systemPromptFixJSON {
		t.Fatalf("expected repair system prompt, got %v", sys)
	}
}

func TestAnalyzeResumeOmitsTemperatureForDenylist(t *testing.T) {
	srv := newRecordedServer(t, func(int) string { return choice(`{}`) })
	c := newTestClient(t, srv.URL, "my-model", "My-Model")

	if _, err := c.AnalyzeResume(context.Background(), scoreInput); err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	if _, ok := srv.bodies[0]["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted for denylisted model")
	}
}

func TestAnalyzeResumeRetriesWithoutTemperature(t *testing.T) {
	srv := newRecordedServer(t, func(call int) string {
		if call == 1 {
			return `{"error":{"message":"Unsupported value: 'temperature' does not support 0 with this model.","type":"invalid_request_error"}}`
		}
		return choice(`{}`)
	})
	c := newTestClient(t, srv.URL, "gpt-4o-mini")

	if _, err := c.AnalyzeResume(context.Background(), scoreInput); err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	if len(srv.bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(srv.bodies))
	}
	if _, ok := srv.bodies[0]["temperature"]; !ok {
		t.Fatalf("expected first request to include temperature")
	}
	if _, ok := srv.bodies[1]["temperature"]; ok {
		t.Fatalf("expected retry request to omit temperature")
	}
}

func TestAnalyzeResumeNoInfiniteRetry(t *testing.T) {
	srv := newRecordedServer(t, func(int) string {
		return `{"error":{"message":"Unsupported value: 'temperature' does not support 0 with this model.","type":"invalid_request_error"}}`
	})
	c := newTestClient(t, srv.URL, "gpt-4o-mini")

	if _, err := c.AnalyzeResume(context.Background(), scoreInput); err == nil {
		t.Fatalf("expected error on repeated temperature unsupported response")
	}
	if len(srv.bodies) != 2 {
		t.Fatalf("expected 2 requests (one retry), got %d", len(srv.bodies))
	}
}

func TestAnalyzeResumeProviderError(t *testing.T) {
	srv := newRecordedServer(t, func(int) string {
		return `{"error":{"message":"rate limited","type":"rate_limit_error"}}`
	})
	c := newTestClient(t, srv.URL, "gpt-4o-mini")

	_, err := c.AnalyzeResume(context.Background(), scoreInput)
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewClientValidates(t *testing.T) {
	if _, err := NewClient(Options{APIKey: "k"}); err == nil {
		t.Fatalf("expected error without model")
	}
	if _, err := NewClient(Options{Model: "m"}); err == nil {
		t.Fatalf("expected error without api key")
	}
	c, err := NewClient(Options{APIKey: "k", Model: "m"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if c.endpoint != "https://api.openai.com/v1/chat/completions" {
		t.Fatalf("unexpected default endpoint %s", c.endpoint)
	}
}
