// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sentiment

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/evidence-engine/internal/httputil"
	"github.com/pdiddy/evidence-engine/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

func withURL(t *testing.T, target *string, url string) {
	t.Helper()
	orig := *target
	*target = url
	t.Cleanup(func() { *target = orig })
}

func TestClaudeBackendClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		body, _ := io.ReadAll(r.Body)
		var req claudeRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "claude-test", req.Model)
		if assert.Len(t, req.Messages, 1) {
			assert.Contains(t, req.Messages[0].Content, "Supplement: magnesium")
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"label\":\"positive\",\"confidence\":0.85,\"rationale\":\"Improved sleep.\"}"}]}`))
	}))
	defer srv.Close()
	withURL(t, &claudeAPIURL, srv.URL)

	b := &ClaudeBackend{APIKey: "test-key", Model: "claude-test", Client: srv.Client()}
	got, err := b.Classify(context.Background(), Request{Term: "magnesium", Title: "t", Abstract: "a"})
	require.NoError(t, err)
	assert.Equal(t, types.SentimentPositive, got.Label)
	assert.InDelta(t, 0.85, got.Confidence, 1e-9)
	assert.Equal(t, "Improved sleep.", got.Rationale)
}

func TestClaudeBackendNoTextBlock(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[]}`))
	}))
	defer srv.Close()
	withURL(t, &claudeAPIURL, srv.URL)

	b := &ClaudeBackend{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := b.Classify(context.Background(), Request{Term: "zinc"})
	require.ErrorIs(t, err, errMalformed)
}

func TestClaudeBackendRetriesThenFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer srv.Close()
	withURL(t, &claudeAPIURL, srv.URL)

	b := &ClaudeBackend{APIKey: "k", Model: "m", Client: srv.Client(), MaxRetries: 1}
	_, err := b.Classify(context.Background(), Request{Term: "zinc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(2), calls.Load())
}

func TestOpenAIBackendClassify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		var req openaiRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "json_object", req.ResponseFormat.Type)

		w.Write([]byte(`{"choices":[{"message":{"content":"{\"label\":\"negative\",\"confidence\":0.6,\"rationale\":\"No difference vs placebo.\"}"}}]}`))
	}))
	defer srv.Close()
	withURL(t, &openaiAPIURL, srv.URL)

	b := &OpenAIBackend{APIKey: "sk-test", Model: "gpt-4o-mini", Client: srv.Client()}
	got, err := b.Classify(context.Background(), Request{Term: "zinc", Benefit: "cold"})
	require.NoError(t, err)
	assert.Equal(t, types.SentimentNegative, got.Label)
	assert.InDelta(t, 0.6, got.Confidence, 1e-9)
}

func TestOpenAIBackendEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()
	withURL(t, &openaiAPIURL, srv.URL)

	b := &OpenAIBackend{APIKey: "k", Model: "m", Client: srv.Client()}
	_, err := b.Classify(context.Background(), Request{Term: "zinc"})
	require.ErrorIs(t, err, errMalformed)
}

func TestNewBackend(t *testing.T) {
	cfg := types.DefaultEngineConfig().Classifier

	_, err := NewBackend(cfg, nil)
	require.ErrorIs(t, err, ErrNotConfigured)

	cfg.APIKey = "k"
	b, err := NewBackend(cfg, nil)
	require.NoError(t, err)
	cb, ok := b.(*ClaudeBackend)
	require.True(t, ok)
	assert.Equal(t, "claude-haiku-4-5-20251001", cb.Model)

	cfg.Provider = "openai"
	b, err = NewBackend(cfg, nil)
	require.NoError(t, err)
	ob, ok := b.(*OpenAIBackend)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o-mini", ob.Model)

	cfg.Model = "gpt-4.1"
	b, err = NewBackend(cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1", b.(*OpenAIBackend).Model)

	cfg.Provider = "gemini"
	_, err = NewBackend(cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini")
}
