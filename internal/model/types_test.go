package model

import (
	"testing"

	"github.com/rickgao/skyblock-data/internal/item"
)

func TestUnitPrice(t *testing.T) {
	tests := []struct {
		name  string
		price float64
		stack int
		want  float64
	}{
		{"single", 100, 1, 100},
		{"stack", 640, 64, 10},
		{"zero stack", 50, 0, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Listing{Price: tt.price, Item: item.Item{StackSize: tt.stack}}
			if got := l.UnitPrice(); got != tt.want {
				t.Errorf("UnitPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestListingKey(t *testing.T) {
	l := Listing{Item: item.Item{ID: "HYPERION", Rarity: item.Legendary}}
	want := ItemKey{ItemID: "HYPERION", Rarity: item.Legendary}
	if l.Key() != want {
		t.Errorf("Key() = %v, want %v", l.Key(), want)
	}
	if want.String() != "HYPERION:LEGENDARY" {
		t.Errorf("String() = %q", want.String())
	}
}

func TestSummaryKindTable(t *testing.T) {
	if SummaryLowestBIN.Table() != "lbin_history" {
		t.Errorf("lowest bin table = %q", SummaryLowestBIN.Table())
	}
	if SummarySale.Table() != "avg_sale_history" {
		t.Errorf("sale table = %q", SummarySale.Table())
	}
	if SummaryKind("x").Table() != "" {
		t.Error("unknown kind should have no table")
	}
}

func TestGuessRarity(t *testing.T) {
	tests := []struct {
		name   string
		info   ItemInfo
		rarity item.Rarity
	}{
		{
			name:   "lowest observed",
			info:   ItemInfo{ItemID: "HYPERION", Counts: map[item.Rarity]int{item.Mythic: 3, item.Legendary: 1}},
			rarity: item.Legendary,
		},
		{
			name:   "pet most common",
			info:   ItemInfo{ItemID: "LION_PET", Counts: map[item.Rarity]int{item.Rare: 2, item.Legendary: 9, item.Epic: 4}},
			rarity: item.Legendary,
		},
		{
			name:   "no observations",
			info:   ItemInfo{ItemID: "X"},
			rarity: item.Unknown,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.GuessRarity(); got != tt.rarity {
				t.Errorf("GuessRarity() = %v, want %v", got, tt.rarity)
			}
		})
	}
}
