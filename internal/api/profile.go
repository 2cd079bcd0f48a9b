package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ProfileClient resolves player ids to names through the session server.
// Names are cached for the life of the client.
type ProfileClient struct {
	client *Client

	mu    sync.RWMutex
	names map[uuid.UUID]string
}

// NewProfileClient creates a lookup client for the given profile base URL.
func NewProfileClient(baseURL string, opts ...ClientOption) *ProfileClient {
	return &ProfileClient{
		client: NewClient(strings.TrimSuffix(baseURL, "/"), "", opts...),
		names:  make(map[uuid.UUID]string),
	}
}

type profileResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Username returns the current name of the player.
func (p *ProfileClient) Username(ctx context.Context, id uuid.UUID) (string, error) {
	p.mu.RLock()
	name, ok := p.names[id]
	p.mu.RUnlock()
	if ok {
		return name, nil
	}

	path := "/" + strings.ReplaceAll(id.String(), "-", "")
	body, err := p.client.doWithRetry(ctx, http.MethodGet, path, nil)
	if err != nil {
		return "", fmt.Errorf("get profile %s: %w", id, err)
	}

	var resp profileResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Name == "" {
		return "", &MalformedFeedError{Endpoint: "profile", Reason: "missing name", Err: err}
	}

	p.mu.Lock()
	p.names[id] = resp.Name
	p.mu.Unlock()

	return resp.Name, nil
}
