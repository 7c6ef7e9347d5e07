// Package mcptool implements search.Provider by invoking a single named tool
// on an MCP server over the streamable-HTTP transport, using the official
// MCP Go SDK (github.com/modelcontextprotocol/go-sdk).
//
// It suits deployments where real-time lookups are exposed as an MCP tool
// (for example a "web_search" tool on a shared tool server) rather than a
// bespoke HTTP function.
package mcptool

import (
	"context"
	"fmt"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sahhacare/sahha/pkg/provider/search"
)

// Provider calls one tool on one MCP server. The session is established
// lazily on first use and reused afterwards.
type Provider struct {
	endpoint string
	toolName string

	mu      sync.Mutex
	client  *mcpsdk.Client
	session *mcpsdk.ClientSession
}

var _ search.Provider = (*Provider)(nil)

// New creates a Provider that connects to the MCP server at endpoint and
// invokes toolName for every query.
func New(endpoint, toolName string) *Provider {
	client := mcpsdk.NewClient(
		&mcpsdk.Implementation{Name: "sahha-search", Version: "1.0.0"},
		nil,
	)
	return &Provider{
		endpoint: endpoint,
		toolName: toolName,
		client:   client,
	}
}

// connect returns the live session, dialing the server if needed.
// Must be called with p.mu held.
func (p *Provider) connect(ctx context.Context) (*mcpsdk.ClientSession, error) {
	if p.session != nil {
		return p.session, nil
	}
	transport := &mcpsdk.StreamableClientTransport{Endpoint: p.endpoint}
	session, err := p.client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptool: connect to %q: %w", p.endpoint, err)
	}
	p.session = session
	return session, nil
}

// Search implements search.Provider.
func (p *Provider) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	p.mu.Lock()
	session, err := p.connect(ctx)
	if err != nil {
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Unlock()

	args := map[string]any{"query": q.Text}
	if q.Language != "" {
		args["language"] = q.Language
	}
	if q.Context != "" {
		args["context"] = q.Context
	}

	callResult, err := session.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      p.toolName,
		Arguments: args,
	})
	if err != nil {
		// The session may have gone stale; drop it so the next query
		// redials.
		p.mu.Lock()
		if p.session == session {
			p.session = nil
		}
		p.mu.Unlock()
		return nil, fmt.Errorf("mcptool: call tool %q: %w", p.toolName, err)
	}

	var sb strings.Builder
	for _, c := range callResult.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if callResult.IsError {
		return nil, fmt.Errorf("mcptool: tool %q reported error: %s", p.toolName, sb.String())
	}
	return &search.Result{Content: sb.String()}, nil
}

// Close terminates the MCP session, if one was established.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return nil
	}
	err := p.session.Close()
	p.session = nil
	return err
}
