package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/model"
	"github.com/rickgao/skyblock-data/internal/nbt"
)

// ErrMalformedListing marks a single listing that cannot be used. Callers
// drop the listing and keep the rest of the snapshot.
var ErrMalformedListing = errors.New("malformed listing")

// MillisToTime converts feed epoch milliseconds to UTC time. Zero maps to
// the zero time.
func MillisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// ParseID parses a feed id, which is a UUID with or without dashes.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id %q: %v", ErrMalformedListing, s, err)
	}
	return id, nil
}

// parseOptionalID accepts an empty id as uuid.Nil.
func parseOptionalID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, nil
	}
	return ParseID(s)
}

func decodeItem(b ItemBytes) (item.Item, error) {
	if b == "" {
		return item.Item{}, fmt.Errorf("%w: empty item_bytes", ErrMalformedListing)
	}
	root, err := nbt.DecodeItemBytes(string(b))
	if err != nil {
		return item.Item{}, err
	}
	return item.Extract(root), nil
}

// ToActiveListing decodes one record of an auctions page. The listed price
// is the highest bid, or the starting bid when nobody has bid.
func ToActiveListing(raw json.RawMessage) (model.ActiveListing, error) {
	var a APIActiveAuction
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.ActiveListing{}, fmt.Errorf("%w: %v", ErrMalformedListing, err)
	}

	id, err := ParseID(a.UUID)
	if err != nil {
		return model.ActiveListing{}, err
	}
	seller, err := parseOptionalID(a.Auctioneer)
	if err != nil {
		return model.ActiveListing{}, err
	}
	it, err := decodeItem(a.ItemBytes)
	if err != nil {
		return model.ActiveListing{}, fmt.Errorf("auction %s: %w", id, err)
	}

	price := a.HighestBidAmount
	if price == 0 {
		price = a.StartingBid
	}

	return model.ActiveListing{
		Listing: model.Listing{
			ID:       id,
			SellerID: seller,
			BuyNow:   a.Bin != nil && *a.Bin,
			Start:    MillisToTime(a.Start),
			End:      MillisToTime(a.End),
			Price:    price,
			Item:     it,
		},
		StartingPrice: a.StartingBid,
		HighestBid:    a.HighestBidAmount,
	}, nil
}

// ToEndedListing decodes one record of the ended auctions endpoint.
func ToEndedListing(raw json.RawMessage) (model.EndedListing, error) {
	var a APIEndedAuction
	if err := json.Unmarshal(raw, &a); err != nil {
		return model.EndedListing{}, fmt.Errorf("%w: %v", ErrMalformedListing, err)
	}

	id, err := ParseID(a.AuctionID)
	if err != nil {
		return model.EndedListing{}, err
	}
	seller, err := parseOptionalID(a.Seller)
	if err != nil {
		return model.EndedListing{}, err
	}
	buyer, err := parseOptionalID(a.Buyer)
	if err != nil {
		return model.EndedListing{}, err
	}
	it, err := decodeItem(a.ItemBytes)
	if err != nil {
		return model.EndedListing{}, fmt.Errorf("auction %s: %w", id, err)
	}

	return model.EndedListing{
		Listing: model.Listing{
			ID:       id,
			SellerID: seller,
			BuyNow:   a.Bin,
			End:      MillisToTime(a.Timestamp),
			Price:    a.Price,
			Item:     it,
		},
		BuyerID: buyer,
	}, nil
}

// ToBazaarSnapshot converts a bazaar response, ordering products by id.
func ToBazaarSnapshot(resp *BazaarResponse) model.BazaarSnapshot {
	products := make([]model.BazaarProduct, 0, len(resp.Products))
	for id, p := range resp.Products {
		qs := p.QuickStatus
		products = append(products, model.BazaarProduct{
			ProductID:  id,
			BuyPrice:   qs.BuyPrice,
			SellPrice:  qs.SellPrice,
			BuyVolume:  qs.BuyVolume,
			SellVolume: qs.SellVolume,
		})
	}
	sort.Slice(products, func(i, j int) bool { return products[i].ProductID < products[j].ProductID })

	return model.BazaarSnapshot{
		LastUpdated: MillisToTime(resp.LastUpdated),
		Products:    products,
	}
}
