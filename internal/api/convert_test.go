package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/nbt"
)

func itemBytes(t *testing.T, id, name, rarityLine string, count int8) string {
	t.Helper()
	extra := nbt.NewCompound(nbt.Field{Name: "id", Value: nbt.String(id)})
	display := nbt.NewCompound(
		nbt.Field{Name: "Name", Value: nbt.String(name)},
		nbt.Field{Name: "Lore", Value: &nbt.List{Elem: nbt.KindString, Items: []nbt.Tag{nbt.String(rarityLine)}}},
	)
	tag := nbt.NewCompound(
		nbt.Field{Name: "ExtraAttributes", Value: extra},
		nbt.Field{Name: "display", Value: display},
	)
	stack := nbt.NewCompound(
		nbt.Field{Name: "Count", Value: nbt.Byte(count)},
		nbt.Field{Name: "tag", Value: tag},
	)
	root := nbt.NewCompound(nbt.Field{Name: "i", Value: &nbt.List{Elem: nbt.KindCompound, Items: []nbt.Tag{stack}}})
	s, err := nbt.EncodeItemBytes(root)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMillisToTime(t *testing.T) {
	if !MillisToTime(0).IsZero() {
		t.Error("MillisToTime(0) should be zero")
	}
	got := MillisToTime(1620000000123)
	if got.Location() != time.UTC || got.UnixMilli() != 1620000000123 {
		t.Errorf("MillisToTime() = %v", got)
	}
}

func TestParseID(t *testing.T) {
	want := uuid.MustParse("409a1e0f-261a-49c4-9334-4a2d7b5b8d1c")
	for _, s := range []string{"409a1e0f261a49c493344a2d7b5b8d1c", "409a1e0f-261a-49c4-9334-4a2d7b5b8d1c"} {
		got, err := ParseID(s)
		if err != nil {
			t.Fatalf("ParseID(%q) error = %v", s, err)
		}
		if got != want {
			t.Errorf("ParseID(%q) = %v", s, got)
		}
	}
	if _, err := ParseID("nope"); !errors.Is(err, ErrMalformedListing) {
		t.Errorf("ParseID(nope) error = %v, want ErrMalformedListing", err)
	}
}

func TestToActiveListing(t *testing.T) {
	b := itemBytes(t, "ENCHANTED_DIAMOND", "§aEnchanted Diamond", "§a§lUNCOMMON", 4)

	t.Run("bin listing", func(t *testing.T) {
		raw := json.RawMessage(fmt.Sprintf(`{
			"uuid":"409a1e0f261a49c493344a2d7b5b8d1c",
			"auctioneer":"b876ec32e396476ba1158438d83c67d4",
			"start":1620000000000,"end":1620086400000,
			"starting_bid":800,"highest_bid_amount":0,"bin":true,
			"item_bytes":%q}`, b))

		l, err := ToActiveListing(raw)
		if err != nil {
			t.Fatalf("ToActiveListing() error = %v", err)
		}
		if !l.BuyNow {
			t.Error("BuyNow = false")
		}
		if l.Price != 800 || l.UnitPrice() != 200 {
			t.Errorf("Price = %v, UnitPrice = %v", l.Price, l.UnitPrice())
		}
		if l.Item.ID != "ENCHANTED_DIAMOND" || l.Item.Rarity != item.Uncommon || l.Item.StackSize != 4 {
			t.Errorf("Item = %+v", l.Item)
		}
		if l.Start.UnixMilli() != 1620000000000 {
			t.Errorf("Start = %v", l.Start)
		}
		if l.SellerID.String() != "b876ec32-e396-476b-a115-8438d83c67d4" {
			t.Errorf("SellerID = %v", l.SellerID)
		}
	})

	t.Run("bid auction uses highest bid", func(t *testing.T) {
		raw := json.RawMessage(fmt.Sprintf(`{"uuid":"409a1e0f261a49c493344a2d7b5b8d1c","starting_bid":100,"highest_bid_amount":250,"item_bytes":{"type":0,"data":%q}}`, b))
		l, err := ToActiveListing(raw)
		if err != nil {
			t.Fatalf("ToActiveListing() error = %v", err)
		}
		if l.BuyNow {
			t.Error("BuyNow = true without bin field")
		}
		if l.Price != 250 || l.StartingPrice != 100 {
			t.Errorf("Price = %v, StartingPrice = %v", l.Price, l.StartingPrice)
		}
		if !l.Start.IsZero() {
			t.Errorf("Start = %v, want zero", l.Start)
		}
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"bad json", `{"uuid":`},
		{"bad id", fmt.Sprintf(`{"uuid":"xyz","item_bytes":%q}`, b)},
		{"missing item bytes", `{"uuid":"409a1e0f261a49c493344a2d7b5b8d1c"}`},
		{"corrupt item bytes", `{"uuid":"409a1e0f261a49c493344a2d7b5b8d1c","item_bytes":"H4sIAAAA"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToActiveListing(json.RawMessage(tt.raw))
			var de *nbt.DecodeError
			if !errors.Is(err, ErrMalformedListing) && !errors.As(err, &de) {
				t.Fatalf("error = %v, want malformed listing or decode error", err)
			}
		})
	}
}

func TestToEndedListing(t *testing.T) {
	b := itemBytes(t, "HYPERION", "§6Heroic Hyperion", "§6§lLEGENDARY DUNGEON SWORD", 1)
	raw := json.RawMessage(fmt.Sprintf(`{
		"auction_id":"409a1e0f261a49c493344a2d7b5b8d1c",
		"seller":"b876ec32e396476ba1158438d83c67d4",
		"buyer":"0e8d3a1c4f5b46b2a1d3c2b1a0f9e8d7",
		"timestamp":1620000050000,"price":900000000,"bin":true,
		"item_bytes":%q}`, b))

	l, err := ToEndedListing(raw)
	if err != nil {
		t.Fatalf("ToEndedListing() error = %v", err)
	}
	if l.Price != 900000000 || !l.BuyNow {
		t.Errorf("listing = %+v", l.Listing)
	}
	if l.End.UnixMilli() != 1620000050000 {
		t.Errorf("End = %v", l.End)
	}
	if l.BuyerID == uuid.Nil {
		t.Error("BuyerID not parsed")
	}
	if l.Item.Rarity != item.Legendary {
		t.Errorf("Rarity = %v", l.Item.Rarity)
	}
}
