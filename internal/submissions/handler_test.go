package submissions

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"career-curve/internal/ranking"
	"career-curve/internal/shared/server/respond"
)

func multipartRequest(t *testing.T, fileName string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if fileName != "" {
		fw, err := writer.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newRouter(t *testing.T, svc *Service, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc, maxUpload).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func TestAnalyzeSuccess(t *testing.T) {
	svc, _ := newService(t, &scriptedLLM{replies: []llmReply{{raw: goodScore}}}, &stubRanker{rank: ranking.Rank{Percent: 80, Total: 5}})
	r := newRouter(t, svc, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, "cv.docx", docxBytes(t, "Jane"), map[string]string{"target_role": "Backend", "jd": "Go"}))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["rankPercent"] != 80.0 || body["total"] != 5.0 {
		t.Fatalf("unexpected rank fields: %v", body)
	}
	if body["resumeText"] != "Jane" || body["fileKey"] == "" {
		t.Fatalf("unexpected body: %v", body)
	}
	analysis, ok := body["analysis"].(string)
	if !ok || analysis != goodScore {
		t.Fatalf("expected raw analysis string, got %v", body["analysis"])
	}
	// The web client parses the analysis string and reads the rubric keys.
	var parsed map[string]any
	if err := json.Unmarshal([]byte(analysis), &parsed); err != nil {
		t.Fatalf("analysis is not JSON: %v", err)
	}
	if parsed["综合匹配度"] != 6.8 || parsed["简历总结"] != "ok" {
		t.Fatalf("expected rubric keys in analysis, got %v", parsed)
	}
	if _, ok := body["fileUrl"]; ok {
		t.Fatalf("local store should not expose fileUrl")
	}
}

func TestAnalyzeErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		fileName string
		data     func(t *testing.T) []byte
		llm      *scriptedLLM
		ranker   *stubRanker
		status   int
		code     string
	}{
		{"missing file", "", nil, &scriptedLLM{}, &stubRanker{}, http.StatusBadRequest, "validation_error"},
		{"unsupported", "cv.txt", func(*testing.T) []byte { return []byte("hi") }, &scriptedLLM{}, &stubRanker{}, http.StatusBadRequest, "unsupported_file"},
		{"extract", "cv.pdf", func(*testing.T) []byte { return []byte("nope") }, &scriptedLLM{}, &stubRanker{}, http.StatusBadRequest, "extract_failed"},
		{"empty", "cv.docx", func(t *testing.T) []byte { return docxBytes(t, " ") }, &scriptedLLM{}, &stubRanker{}, http.StatusBadRequest, "empty_text"},
		{"llm", "cv.docx", func(t *testing.T) []byte { return docxBytes(t, "x") }, &scriptedLLM{}, &stubRanker{}, http.StatusBadGateway, "llm_error"},
		{"schema", "cv.docx", func(t *testing.T) []byte { return docxBytes(t, "x") },
			&scriptedLLM{replies: []llmReply{{raw: `{}`}, {raw: `{}`}}}, &stubRanker{}, http.StatusBadGateway, "llm_schema_mismatch"},
		{"invalid score", "cv.docx", func(t *testing.T) []byte { return docxBytes(t, "x") },
			&scriptedLLM{replies: []llmReply{{raw: goodScore}}}, &stubRanker{err: ranking.ErrInvalidScore}, http.StatusBadGateway, "invalid_score"},
		{"not saved", "cv.docx", func(t *testing.T) []byte { return docxBytes(t, "x") },
			&scriptedLLM{replies: []llmReply{{raw: goodScore}}}, &stubRanker{err: ranking.ErrStoreWriteFailed}, http.StatusInternalServerError, "not_saved"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newService(t, tc.llm, tc.ranker)
			r := newRouter(t, svc, 0)
			var data []byte
			if tc.data != nil {
				data = tc.data(t)
			}
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, multipartRequest(t, tc.fileName, data, nil))

			if resp.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, resp.Code, resp.Body.String())
			}
			var body respond.ErrorResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Code != tc.code {
				t.Fatalf("expected code %s, got %s", tc.code, body.Error.Code)
			}
		})
	}
}

func TestAnalyzeRankUnavailableReturnsSavedAnalysis(t *testing.T) {
	svc, _ := newService(t, &scriptedLLM{replies: []llmReply{{raw: goodScore}}}, &stubRanker{err: ranking.ErrStoreUnavailable})
	r := newRouter(t, svc, 0)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, "cv.docx", docxBytes(t, "x"), nil))

	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error.Code != "rank_unavailable" {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
	if body.Error.Details["saved"] != true || body.Error.Details["analysis"] != goodScore {
		t.Fatalf("unexpected details %v", body.Error.Details)
	}
	if _, ok := body.Error.Details["rankPercent"]; ok {
		t.Fatalf("rankPercent must be absent when ranking failed")
	}
}

func TestAnalyzeFileTooLarge(t *testing.T) {
	svc, _ := newService(t, &scriptedLLM{}, &stubRanker{})
	r := newRouter(t, svc, 16)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, multipartRequest(t, "cv.docx", docxBytes(t, "far more than sixteen bytes"), nil))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", resp.Code)
	}
}
