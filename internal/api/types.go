package api

import (
	"encoding/json"
	"errors"
)

// Envelope holds the fields every feed response shares.
type Envelope struct {
	Success     bool   `json:"success"`
	Cause       string `json:"cause,omitempty"`
	LastUpdated int64  `json:"lastUpdated"` // ms since epoch
}

func (e *Envelope) envelope() *Envelope { return e }

// AuctionsPage from GET /skyblock/auctions?page=N
type AuctionsPage struct {
	Envelope
	Page          int               `json:"page"`
	TotalPages    int               `json:"totalPages"`
	TotalAuctions int               `json:"totalAuctions"`
	Auctions      []json.RawMessage `json:"auctions"`
}

// EndedAuctions from GET /skyblock/auctions_ended
type EndedAuctions struct {
	Envelope
	Auctions []json.RawMessage `json:"auctions"`
}

// BazaarResponse from GET /skyblock/bazaar
type BazaarResponse struct {
	Envelope
	Products map[string]APIBazaarProduct `json:"products"`
}

// APIBazaarProduct is one bazaar product entry.
type APIBazaarProduct struct {
	ProductID   string      `json:"product_id"`
	QuickStatus QuickStatus `json:"quick_status"`
}

// QuickStatus summarises the order book of a bazaar product.
type QuickStatus struct {
	ProductID      string  `json:"productId"`
	SellPrice      float64 `json:"sellPrice"`
	SellVolume     int64   `json:"sellVolume"`
	SellMovingWeek int64   `json:"sellMovingWeek"`
	SellOrders     int64   `json:"sellOrders"`
	BuyPrice       float64 `json:"buyPrice"`
	BuyVolume      int64   `json:"buyVolume"`
	BuyMovingWeek  int64   `json:"buyMovingWeek"`
	BuyOrders      int64   `json:"buyOrders"`
}

// KeyResponse from GET /key
type KeyResponse struct {
	Envelope
	Record *KeyRecord `json:"record"`
}

// KeyRecord describes an API key quota.
type KeyRecord struct {
	Key              string `json:"key"`
	Owner            string `json:"owner"`
	Limit            int    `json:"limit"`
	QueriesInPastMin int    `json:"queriesInPastMin"`
	TotalQueries     int64  `json:"totalQueries"`
}

// APIActiveAuction is one record of an auctions page.
type APIActiveAuction struct {
	UUID             string    `json:"uuid"`
	Auctioneer       string    `json:"auctioneer"`
	ProfileID        string    `json:"profile_id"`
	Start            int64     `json:"start"`
	End              int64     `json:"end"`
	ItemName         string    `json:"item_name"`
	Tier             string    `json:"tier"`
	StartingBid      float64   `json:"starting_bid"`
	HighestBidAmount float64   `json:"highest_bid_amount"`
	Claimed          bool      `json:"claimed"`
	Bin              *bool     `json:"bin"`
	ItemBytes        ItemBytes `json:"item_bytes"`
}

// APIEndedAuction is one record of the ended auctions endpoint.
type APIEndedAuction struct {
	AuctionID     string    `json:"auction_id"`
	Seller        string    `json:"seller"`
	SellerProfile string    `json:"seller_profile"`
	Buyer         string    `json:"buyer"`
	Timestamp     int64     `json:"timestamp"`
	Price         float64   `json:"price"`
	Bin           bool      `json:"bin"`
	ItemBytes     ItemBytes `json:"item_bytes"`
}

// ItemBytes is the base64 item payload. Older feed revisions wrap it as
// {"type":0,"data":"..."}; both forms are accepted.
type ItemBytes string

func (b *ItemBytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = ItemBytes(s)
		return nil
	}
	var wrapped struct {
		Data *string `json:"data"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	if wrapped.Data == nil {
		return errors.New("item_bytes: missing data")
	}
	*b = ItemBytes(*wrapped.Data)
	return nil
}
