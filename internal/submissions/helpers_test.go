package submissions

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"career-curve/internal/llm"
	"career-curve/internal/ranking"
)

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body.String() + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// scriptedLLM returns replies in order and records inputs.
type scriptedLLM struct {
	mu      sync.Mutex
	replies []llmReply
	inputs  []llm.AnalyzeInput
	fixes   []string
}

type llmReply struct {
	raw string
	err error
}

func (s *scriptedLLM) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs = append(s.inputs, input)
	if raw, ok := llm.FixJSONFromContext(ctx); ok {
		s.fixes = append(s.fixes, raw)
	}
	if sink, ok := llm.PromptHashSinkFromContext(ctx); ok && sink != nil {
		*sink = "hash-1"
	}
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	if r.err != nil {
		return nil, r.err
	}
	return json.RawMessage(r.raw), nil
}

func (s *scriptedLLM) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inputs)
}

type stubRanker struct {
	rank  ranking.Rank
	err   error
	role  string
	score float64
	calls int
}

func (r *stubRanker) RecordAndRank(ctx context.Context, role string, score float64) (ranking.Rank, error) {
	r.calls++
	r.role = role
	r.score = score
	return r.rank, r.err
}

// failingStore fails Save; everything else is unused.
type failingStore struct{}

func (failingStore) Save(ctx context.Context, namespace, fileName string, r io.Reader) (string, int64, string, error) {
	return "", 0, "", errors.New("bucket missing")
}
func (failingStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return nil, errors.New("not found")
}
func (failingStore) SaveWithKey(ctx context.Context, key, contentType string, r io.Reader) (int64, error) {
	return 0, errors.New("bucket missing")
}
func (failingStore) URL(ctx context.Context, key string) (string, error) { return "", nil }

const goodScore = `{"教育背景":4,"实习与项目经验":3,"项目描述":3.5,"成就与量化指标":3,"荣誉与闪光点":2,"综合匹配度":6.8,"简历总结":"ok"}`
