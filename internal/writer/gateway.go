package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/model"
)

// ErrItemNotFound is returned by ReadItemInfo for an unseen item id.
var ErrItemNotFound = errors.New("item not found")

// Gateway is the persistence contract of the gatherer.
type Gateway interface {
	SavePriceSummary(ctx context.Context, kind model.SummaryKind, at time.Time, summaries map[model.ItemKey]model.PriceSummary) error
	ReadPriceHistory(ctx context.Context, kind model.SummaryKind, itemID string, rarity item.Rarity, span time.Duration) ([]model.PricePoint, error)
	SaveItemMetadata(ctx context.Context, items []item.Item) error
	ReadItemInfo(ctx context.Context, itemID string) (*model.ItemInfo, error)
	SaveBazaarProducts(ctx context.Context, at time.Time, products []model.BazaarProduct) error
}

// Guard passes reads through and drops writes when DryRun is set.
type Guard struct {
	Gateway
	DryRun bool
	logger *slog.Logger
}

// NewGuard wraps gw.
func NewGuard(gw Gateway, dryRun bool, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{Gateway: gw, DryRun: dryRun, logger: logger}
}

func (g *Guard) SavePriceSummary(ctx context.Context, kind model.SummaryKind, at time.Time, summaries map[model.ItemKey]model.PriceSummary) error {
	if g.DryRun {
		g.logger.Debug("dry run: skipping price summary", "kind", kind, "keys", len(summaries))
		return nil
	}
	return g.Gateway.SavePriceSummary(ctx, kind, at, summaries)
}

func (g *Guard) SaveItemMetadata(ctx context.Context, items []item.Item) error {
	if g.DryRun {
		g.logger.Debug("dry run: skipping item metadata", "items", len(items))
		return nil
	}
	return g.Gateway.SaveItemMetadata(ctx, items)
}

func (g *Guard) SaveBazaarProducts(ctx context.Context, at time.Time, products []model.BazaarProduct) error {
	if g.DryRun {
		g.logger.Debug("dry run: skipping bazaar products", "products", len(products))
		return nil
	}
	return g.Gateway.SaveBazaarProducts(ctx, at, products)
}

// historyTable returns the table for kind.
func historyTable(kind model.SummaryKind) (string, error) {
	table := kind.Table()
	if table == "" {
		return "", fmt.Errorf("unknown summary kind %q", kind)
	}
	return table, nil
}

// summaryRow is one history row.
type summaryRow struct {
	ItemID  string
	Rarity  string
	Price   float64
	Samples int
}

// summaryRows flattens summaries in key order.
func summaryRows(summaries map[model.ItemKey]model.PriceSummary) []summaryRow {
	rows := make([]summaryRow, 0, len(summaries))
	for key, s := range summaries {
		rows = append(rows, summaryRow{
			ItemID:  key.ItemID,
			Rarity:  key.Rarity.String(),
			Price:   s.Mean,
			Samples: s.Count,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].ItemID != rows[j].ItemID {
			return rows[i].ItemID < rows[j].ItemID
		}
		return rows[i].Rarity < rows[j].Rarity
	})
	return rows
}

// itemTally is the per-snapshot increment of one item_info row.
type itemTally struct {
	ItemID   string
	BaseName string
	Counts   [item.Unknown + 1]int
}

// tallyItems groups items by id. The last base name seen wins.
func tallyItems(items []item.Item) []itemTally {
	index := make(map[string]int)
	var out []itemTally
	for _, it := range items {
		if it.ID == "" {
			continue
		}
		i, ok := index[it.ID]
		if !ok {
			i = len(out)
			index[it.ID] = i
			out = append(out, itemTally{ItemID: it.ID})
		}
		out[i].BaseName = it.BaseName
		out[i].Counts[clampRarity(it.Rarity)]++
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func clampRarity(r item.Rarity) item.Rarity {
	if r < item.Common || r > item.Unknown {
		return item.Unknown
	}
	return r
}

// rarityColumns names the item_info counter for each rarity, in rarity
// order.
var rarityColumns = [item.Unknown + 1]string{
	"common_ct", "uncommon_ct", "rare_ct", "epic_ct", "legendary_ct",
	"mythic_ct", "supreme_ct", "special_ct", "v_special_ct", "unknown_ct",
}
