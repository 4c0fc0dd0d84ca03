// Package research talks to the deep-research service that turns a topic
// title into a markdown article. No third-party SDK in the example pack
// covers a bespoke research API, so this client is a narrow net/http
// wrapper — the one external-client boundary in this engine built on the
// standard library rather than an ecosystem package (see DESIGN.md).
package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/evalgo/vaultforge/internal/config"
)

// Result is the deep-research service's response.
type Result struct {
	Success        bool           `json:"success"`
	Article        string         `json:"article"`
	Metadata       ResultMetadata `json:"metadata"`
	Diagnostics    []string       `json:"diagnostics"`
	ProcessingTime time.Duration  `json:"-"`
	ErrorMessage   string         `json:"error_message"`
}

// ResultMetadata carries ancillary info about the research pass.
type ResultMetadata struct {
	SourceCount int `json:"source_count"`
}

// Client is the capability the deep-research node depends on.
type Client interface {
	Research(ctx context.Context, topicTitle string) (Result, error)
}

// HTTP is the production Client, a plain JSON-over-HTTP request against a
// configurable research-service base URL.
type HTTP struct {
	baseURL string
	http    *http.Client
}

// NewHTTP builds a Client from a ResearchConfig.
func NewHTTP(cfg config.ResearchConfig) *HTTP {
	return &HTTP{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

type researchRequest struct {
	Topic string `json:"topic"`
}

// Research posts {topic} to <baseURL>/research and decodes the JSON result.
func (h *HTTP) Research(ctx context.Context, topicTitle string) (Result, error) {
	started := time.Now()

	body, err := json.Marshal(researchRequest{Topic: topicTitle})
	if err != nil {
		return Result{}, fmt.Errorf("marshaling research request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/research", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("building research request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("calling research service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("research service returned status %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("decoding research response: %w", err)
	}
	result.ProcessingTime = time.Since(started)

	return result, nil
}

// Mock is a deterministic Client for local development and tests.
type Mock struct {
	Result Result
	Err    error
}

func (m *Mock) Research(ctx context.Context, topicTitle string) (Result, error) {
	if m.Err != nil {
		return Result{}, m.Err
	}
	if m.Result.Success || m.Result.Article != "" || m.Result.ErrorMessage != "" {
		return m.Result, nil
	}
	return Result{
		Success:  true,
		Article:  "# " + topicTitle + "\n\nResearch summary.",
		Metadata: ResultMetadata{SourceCount: 1},
	}, nil
}
