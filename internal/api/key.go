package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rickgao/skyblock-data/internal/config"
)

const keyPath = "/key"

// GetKeyInfo fetches the quota record for the configured key. A rejected
// key is answered with 403 and an unsuccessful envelope.
func (c *Client) GetKeyInfo(ctx context.Context) (*KeyRecord, error) {
	body, err := c.doRequest(ctx, http.MethodGet, keyPath, nil)
	if err != nil {
		var te *TransportError
		if !errors.As(err, &te) || te.StatusCode != http.StatusForbidden {
			return nil, fmt.Errorf("get key info: %w", err)
		}
	}

	var resp KeyResponse
	if err := decode(keyPath, body, &resp); err != nil {
		return nil, fmt.Errorf("get key info: %w", err)
	}
	if resp.Record == nil {
		return nil, &MalformedFeedError{Endpoint: keyPath, Reason: "missing record"}
	}

	return resp.Record, nil
}

// CheckKey validates the key at startup and returns the per-minute call
// budget left after holding back margin calls. Any failure is fatal.
func (c *Client) CheckKey(ctx context.Context, margin int) (int, error) {
	if !c.Authenticated() {
		return 0, &config.ConfigError{Field: "api.api_key", Err: errors.New("is required")}
	}

	rec, err := c.GetKeyInfo(ctx)
	if err != nil {
		return 0, &config.ConfigError{Field: "api.api_key", Err: err}
	}

	limit := rec.Limit - margin
	if limit < 1 {
		return 0, &config.ConfigError{
			Field: "api.key_limit_margin",
			Err:   fmt.Errorf("key limit %d leaves no budget after margin %d", rec.Limit, margin),
		}
	}

	c.logger.Info("feed key validated", "limit", rec.Limit, "budget", limit)
	return limit, nil
}
