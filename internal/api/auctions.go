package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

const (
	auctionsPath      = "/skyblock/auctions"
	endedAuctionsPath = "/skyblock/auctions_ended"
)

// GetAuctionsPage fetches one page of active auctions.
func (c *Client) GetAuctionsPage(ctx context.Context, page int) (*AuctionsPage, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))

	var resp AuctionsPage
	if err := c.get(ctx, auctionsPath, query, &resp); err != nil {
		return nil, fmt.Errorf("get auctions page %d: %w", page, err)
	}
	if resp.LastUpdated == 0 || resp.TotalPages < 1 || resp.Auctions == nil {
		return nil, &MalformedFeedError{Endpoint: auctionsPath, Reason: fmt.Sprintf("page %d missing lastUpdated, totalPages or auctions", page)}
	}

	return &resp, nil
}

// GetEndedAuctions fetches auctions completed in the last minute.
func (c *Client) GetEndedAuctions(ctx context.Context) (*EndedAuctions, error) {
	var resp EndedAuctions
	if err := c.get(ctx, endedAuctionsPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get ended auctions: %w", err)
	}
	if resp.LastUpdated == 0 || resp.Auctions == nil {
		return nil, &MalformedFeedError{Endpoint: endedAuctionsPath, Reason: "missing lastUpdated or auctions"}
	}

	return &resp, nil
}
