package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/modfox/moderation-pipeline/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:      2,
		BaseDelay:       time.Millisecond,
		MaxDelay:        2 * time.Millisecond,
		BackoffMultiple: 2.0,
	}
}

func newTestClient(url string) *Client {
	c := NewClient("test-key")
	c.SetBaseURL(url)
	c.RetryConfig = fastRetry()
	return c
}

func TestScoreBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var req struct {
			Inputs []string `json:"inputs"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Inputs) != 2 {
			t.Errorf("inputs = %d, want 2", len(req.Inputs))
		}
		w.Write([]byte(`[
			[{"label":"toxic","score":0.93},{"label":"insult","score":0.61}],
			[{"label":"toxic","score":0.02}]
		]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.ScoreBatch(context.Background(), []string{"you are awful", "you are nice"})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0]["toxic"] != 0.93 || got[0]["insult"] != 0.61 {
		t.Errorf("first result = %v", got[0])
	}
	if got[1]["toxic"] != 0.02 {
		t.Errorf("second result = %v", got[1])
	}
}

func TestScoreBatchEmptyInput(t *testing.T) {
	c := NewClient("")
	got, err := c.ScoreBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("ScoreBatch(nil): %v", err)
	}
	if got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestScoreBatchRetriesModelLoading(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"Model unitary/toxic-bert is currently loading","estimated_time":20}`))
			return
		}
		w.Write([]byte(`[[{"label":"toxic","score":0.5}]]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.ScoreBatch(context.Background(), []string{"hm"})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
	if got[0]["toxic"] != 0.5 {
		t.Errorf("result = %v", got[0])
	}
}

func TestScoreBatchClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ScoreBatch(context.Background(), []string{"hm"})
	if err == nil {
		t.Fatal("want error")
	}
	var scoreErr *ScoreError
	if !errors.As(err, &scoreErr) {
		t.Fatalf("err = %T, want *ScoreError", err)
	}
	if scoreErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("StatusCode = %d, want 401", scoreErr.StatusCode)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestScoreBatchCountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[{"label":"toxic","score":0.5}]]`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	_, err := c.ScoreBatch(context.Background(), []string{"a", "b"})
	if err == nil {
		t.Fatal("want count mismatch error")
	}
}

func TestParseScoresMalformed(t *testing.T) {
	for _, body := range []string{`{"error":"nope"}`, `["not-an-array"]`} {
		if _, err := parseScores([]byte(body), 1); err == nil {
			t.Errorf("parseScores(%q): want error", body)
		}
	}
}
