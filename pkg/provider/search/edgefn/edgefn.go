// Package edgefn implements search.Provider against a managed edge function
// that performs web search with model-side summarization. The function
// receives the raw utterance and returns prompt-ready text.
package edgefn

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sahhacare/sahha/internal/keys"
	"github.com/sahhacare/sahha/pkg/provider/search"
)

const (
	defaultTimeout = 20 * time.Second

	// maxBodyBytes bounds the response size read from the function.
	maxBodyBytes = 1 << 20
)

// Provider calls a deployed edge function over HTTPS.
type Provider struct {
	endpoint string
	keys     keys.Source
	client   *http.Client
}

var _ search.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.client = c
	}
}

// New creates a Provider for the edge function at endpoint. Requests are
// authorized with a bearer token from src.
func New(endpoint string, src keys.Source, opts ...Option) *Provider {
	p := &Provider{
		endpoint: endpoint,
		keys:     src,
		client:   &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type searchRequest struct {
	Query    string `json:"query"`
	Language string `json:"language,omitempty"`
	Context  string `json:"context,omitempty"`
}

type searchResponse struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	token, err := p.keys.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("edgefn: fetch token: %w", err)
	}

	body, err := json.Marshal(searchRequest{
		Query:    q.Text,
		Language: q.Language,
		Context:  q.Context,
	})
	if err != nil {
		return nil, fmt.Errorf("edgefn: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("edgefn: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edgefn: call function: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("edgefn: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edgefn: unexpected status %d: %s", resp.StatusCode, truncate(data, 200))
	}

	var parsed searchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("edgefn: decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("edgefn: function error: %s", parsed.Error)
	}
	return &search.Result{Content: parsed.Content}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
