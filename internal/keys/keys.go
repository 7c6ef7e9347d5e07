// Package keys provides bearer credentials for hosted collaborators (premium
// voice synthesis, chat completion, managed search functions).
//
// Credentials come either from static configuration or from a central
// key-provisioning service. Provisioned tokens are cached for a short TTL so
// that the voice pipeline never pays a provisioning round trip per turn.
package keys

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// defaultTTL is how long a provisioned token is reused before re-fetching.
const defaultTTL = 5 * time.Minute

// Source yields a bearer credential for an outbound API call.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Token returns a credential valid at the time of the call. Callers must
	// not cache the result beyond the current request.
	Token(ctx context.Context) (string, error)
}

// Static is a Source backed by a fixed credential from configuration.
type Static string

// Token implements Source.
func (s Static) Token(_ context.Context) (string, error) {
	if s == "" {
		return "", fmt.Errorf("keys: static credential is empty")
	}
	return string(s), nil
}

// Provisioner fetches credentials for a named service from a central
// key-provisioning endpoint and caches them for a TTL.
//
// The endpoint contract is a POST with a JSON body {"service": "..."}
// answered by {"key": "..."}.
type Provisioner struct {
	endpoint   string
	service    string
	ttl        time.Duration
	httpClient *http.Client

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// Compile-time interface assertion.
var _ Source = (*Provisioner)(nil)

// Option is a functional option for Provisioner.
type Option func(*Provisioner)

// WithTTL overrides the token cache lifetime. The default is 5 minutes.
func WithTTL(d time.Duration) Option {
	return func(p *Provisioner) { p.ttl = d }
}

// WithHTTPClient overrides the HTTP client used for provisioning calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provisioner) { p.httpClient = c }
}

// NewProvisioner creates a Provisioner for the given service name.
func NewProvisioner(endpoint, service string, opts ...Option) (*Provisioner, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("keys: endpoint must not be empty")
	}
	if service == "" {
		return nil, fmt.Errorf("keys: service must not be empty")
	}
	p := &Provisioner{
		endpoint:   endpoint,
		service:    service,
		ttl:        defaultTTL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Token implements Source. The cached credential is reused until its TTL
// elapses; refreshes are serialised so concurrent callers trigger at most one
// provisioning request.
func (p *Provisioner) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" && time.Now().Before(p.expires) {
		return p.cached, nil
	}

	token, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	p.cached = token
	p.expires = time.Now().Add(p.ttl)
	return token, nil
}

// fetch performs one provisioning round trip.
func (p *Provisioner) fetch(ctx context.Context) (string, error) {
	body := fmt.Sprintf(`{"service":%q}`, p.service)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("keys: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("keys: provision %q: %w", p.service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keys: provision %q: unexpected status %d", p.service, resp.StatusCode)
	}

	var out struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("keys: decode provision response: %w", err)
	}
	if out.Key == "" {
		return "", fmt.Errorf("keys: provision %q: empty key in response", p.service)
	}
	return out.Key, nil
}
