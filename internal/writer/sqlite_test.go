package writer

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteGateway {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	g, err := NewSQLiteGateway(db, nil)
	if err != nil {
		t.Fatalf("NewSQLiteGateway() error = %v", err)
	}
	return g
}

func TestSQLiteGateway_PriceHistory(t *testing.T) {
	g := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	key := model.ItemKey{ItemID: "HYPERION", Rarity: item.Legendary}
	other := model.ItemKey{ItemID: "HYPERION", Rarity: item.Mythic}

	writes := []struct {
		at    time.Time
		price float64
	}{
		{now.Add(-3 * time.Hour), 700},
		{now.Add(-90 * time.Minute), 800},
		{now.Add(-30 * time.Minute), 900},
	}
	for _, w := range writes {
		summaries := map[model.ItemKey]model.PriceSummary{
			key:   {Mean: w.price, Count: 2},
			other: {Mean: w.price * 2, Count: 1},
		}
		if err := g.SavePriceSummary(ctx, model.SummaryLowestBIN, w.at, summaries); err != nil {
			t.Fatalf("SavePriceSummary() error = %v", err)
		}
	}

	points, err := g.ReadPriceHistory(ctx, model.SummaryLowestBIN, "HYPERION", item.Legendary, 2*time.Hour)
	if err != nil {
		t.Fatalf("ReadPriceHistory() error = %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("len(points) = %d, want 2", len(points))
	}
	if points[0].Price != 800 || points[1].Price != 900 {
		t.Errorf("prices = %v, %v, want 800, 900", points[0].Price, points[1].Price)
	}
	if !points[1].Timestamp.Equal(writes[2].at) {
		t.Errorf("Timestamp = %v, want %v", points[1].Timestamp, writes[2].at)
	}

	sales, err := g.ReadPriceHistory(ctx, model.SummarySale, "HYPERION", item.Legendary, 24*time.Hour)
	if err != nil {
		t.Fatalf("ReadPriceHistory(sale) error = %v", err)
	}
	if len(sales) != 0 {
		t.Errorf("sale history = %d points, want 0", len(sales))
	}
}

func TestSQLiteGateway_UnknownKind(t *testing.T) {
	g := newTestSQLite(t)
	ctx := context.Background()

	summaries := map[model.ItemKey]model.PriceSummary{{ItemID: "X"}: {Mean: 1, Count: 1}}
	if err := g.SavePriceSummary(ctx, model.SummaryKind("bogus"), time.Now(), summaries); err == nil {
		t.Error("SavePriceSummary() with unknown kind should fail")
	}
	if _, err := g.ReadPriceHistory(ctx, model.SummaryKind("bogus"), "X", item.Common, time.Hour); err == nil {
		t.Error("ReadPriceHistory() with unknown kind should fail")
	}
}

func TestSQLiteGateway_ItemMetadata(t *testing.T) {
	g := newTestSQLite(t)
	ctx := context.Background()

	first := []item.Item{
		{ID: "LION_PET", BaseName: "Lion", Rarity: item.Epic},
		{ID: "LION_PET", BaseName: "Lion", Rarity: item.Legendary},
		{ID: "LION_PET", BaseName: "Lion", Rarity: item.Legendary},
		{ID: "ASPECT_OF_THE_END", BaseName: "Aspect of the End", Rarity: item.Rare},
		{ID: "", BaseName: "ignored"},
	}
	second := []item.Item{
		{ID: "LION_PET", BaseName: "Lion", Rarity: item.Epic},
		{ID: "ASPECT_OF_THE_END", BaseName: "Aspect of the End", Rarity: item.Epic},
	}
	for _, batch := range [][]item.Item{first, second} {
		if err := g.SaveItemMetadata(ctx, batch); err != nil {
			t.Fatalf("SaveItemMetadata() error = %v", err)
		}
	}

	lion, err := g.ReadItemInfo(ctx, "LION_PET")
	if err != nil {
		t.Fatalf("ReadItemInfo() error = %v", err)
	}
	if lion.BaseName != "Lion" {
		t.Errorf("BaseName = %q, want Lion", lion.BaseName)
	}
	if lion.Counts[item.Epic] != 2 || lion.Counts[item.Legendary] != 2 {
		t.Errorf("Counts = %v, want EPIC:2 LEGENDARY:2", lion.Counts)
	}

	aote, err := g.ReadItemInfo(ctx, "ASPECT_OF_THE_END")
	if err != nil {
		t.Fatalf("ReadItemInfo() error = %v", err)
	}
	if got := aote.GuessRarity(); got != item.Rare {
		t.Errorf("GuessRarity() = %v, want RARE", got)
	}

	if _, err := g.ReadItemInfo(ctx, "MISSING"); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("ReadItemInfo(missing) error = %v, want ErrItemNotFound", err)
	}
}

func TestSQLiteGateway_Bazaar(t *testing.T) {
	g := newTestSQLite(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	products := []model.BazaarProduct{
		{ProductID: "ENCHANTED_DIAMOND", BuyPrice: 170, SellPrice: 160, BuyVolume: 1000, SellVolume: 900},
		{ProductID: "WHEAT", BuyPrice: 2, SellPrice: 1.5, BuyVolume: 50000, SellVolume: 40000},
	}
	if err := g.SaveBazaarProducts(ctx, at, products); err != nil {
		t.Fatalf("SaveBazaarProducts() error = %v", err)
	}
	if err := g.SaveBazaarProducts(ctx, at, nil); err != nil {
		t.Fatalf("SaveBazaarProducts(nil) error = %v", err)
	}

	var rows []bazaarRecord
	if err := g.db.Order("item_id").Find(&rows).Error; err != nil {
		t.Fatalf("query bazaar_history: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1].ItemID != "WHEAT" || rows[1].SellVolume != 40000 {
		t.Errorf("row = %+v", rows[1])
	}
}
