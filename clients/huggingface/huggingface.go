// Package huggingface is a minimal client for a Hugging Face style text
// classification inference endpoint: a batch of strings in, one array of
// {label, score} pairs per string out. Label names are treated as opaque;
// mapping onto the pipeline's tracked label set happens downstream.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/modfox/moderation-pipeline/internal/retry"
)

const defaultBaseURL = "https://api-inference.huggingface.co/models/unitary/toxic-bert"

// ScoreError wraps a failed inference call with the raw response body for
// error logging.
type ScoreError struct {
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	RawBody    json.RawMessage `json:"raw_body,omitempty"`
}

func (e *ScoreError) Error() string {
	return e.Message
}

type scoreRequest struct {
	Inputs  []string        `json:"inputs"`
	Options map[string]bool `json:"options,omitempty"`
}

// Client calls the inference endpoint with retry on transient failures.
type Client struct {
	APIKey      string
	BaseURL     string
	HTTPClient  *http.Client
	RetryConfig retry.Config
}

// NewClient returns a Client for the default endpoint. The API key may be
// empty for self-hosted endpoints.
func NewClient(apiKey string) *Client {
	return &Client{
		APIKey:      apiKey,
		BaseURL:     defaultBaseURL,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		RetryConfig: retry.DefaultConfig(),
	}
}

// SetBaseURL points the client at a different endpoint, e.g. a self-hosted
// model server or a test server.
func (c *Client) SetBaseURL(baseURL string) {
	c.BaseURL = baseURL
}

// ScoreBatch scores texts and returns one label->probability map per input
// text, in input order. Returned label names are whatever the model emits.
func (c *Client) ScoreBatch(ctx context.Context, texts []string) ([]map[string]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(scoreRequest{
		Inputs:  texts,
		Options: map[string]bool{"wait_for_model": true},
	})
	if err != nil {
		return nil, fmt.Errorf("huggingface: encode request: %w", err)
	}

	var respBody []byte
	err = retry.Do(ctx, c.RetryConfig, "huggingface", func(attempt int) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
		if err != nil {
			return false, fmt.Errorf("huggingface: build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			// Network errors are worth retrying.
			return true, fmt.Errorf("huggingface: request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return true, fmt.Errorf("huggingface: read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			scoreErr := &ScoreError{
				Message:    fmt.Sprintf("huggingface: inference returned status %d", resp.StatusCode),
				StatusCode: resp.StatusCode,
				RawBody:    json.RawMessage(raw),
			}
			// 503 is the model-loading response, 429 is rate limiting.
			retryable := resp.StatusCode == http.StatusServiceUnavailable ||
				resp.StatusCode == http.StatusTooManyRequests ||
				resp.StatusCode >= 500
			return retryable, scoreErr
		}

		respBody = raw
		return false, nil
	})
	if err != nil {
		return nil, err
	}

	return parseScores(respBody, len(texts))
}

// parseScores decodes the [[{label, score}, ...], ...] response shape. The
// parse is lenient about field ordering and extra fields but strict about the
// result count matching the input count.
func parseScores(body []byte, want int) ([]map[string]float64, error) {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, &ScoreError{
			Message: "huggingface: response is not an array",
			RawBody: json.RawMessage(body),
		}
	}

	rows := parsed.Array()
	if len(rows) != want {
		return nil, &ScoreError{
			Message: fmt.Sprintf("huggingface: got %d results for %d inputs", len(rows), want),
			RawBody: json.RawMessage(body),
		}
	}

	out := make([]map[string]float64, 0, len(rows))
	for i, row := range rows {
		if !row.IsArray() {
			return nil, &ScoreError{
				Message: fmt.Sprintf("huggingface: result %d is not a label array", i),
				RawBody: json.RawMessage(body),
			}
		}
		scores := make(map[string]float64)
		for _, pair := range row.Array() {
			label := pair.Get("label").String()
			if label == "" {
				continue
			}
			scores[label] = pair.Get("score").Float()
		}
		out = append(out, scores)
	}
	return out, nil
}
