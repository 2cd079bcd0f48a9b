package api

import (
	"context"
	"fmt"
)

const bazaarPath = "/skyblock/bazaar"

// GetBazaar fetches the quick status of every bazaar product.
func (c *Client) GetBazaar(ctx context.Context) (*BazaarResponse, error) {
	var resp BazaarResponse
	if err := c.get(ctx, bazaarPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get bazaar: %w", err)
	}
	if resp.LastUpdated == 0 || resp.Products == nil {
		return nil, &MalformedFeedError{Endpoint: bazaarPath, Reason: "missing lastUpdated or products"}
	}

	return &resp, nil
}
