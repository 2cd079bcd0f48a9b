package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/model"
)

// historyRecord is a row of lbin_history or avg_sale_history.
type historyRecord struct {
	ID        uint      `gorm:"primaryKey"`
	Timestamp time.Time `gorm:"not null"`
	ItemID    string    `gorm:"not null"`
	Rarity    string    `gorm:"not null"`
	Price     float64
	Samples   int
}

// itemInfoRecord is a row of item_info.
type itemInfoRecord struct {
	ItemID      string `gorm:"primaryKey"`
	BaseName    string
	CommonCt    int
	UncommonCt  int
	RareCt      int
	EpicCt      int
	LegendaryCt int
	MythicCt    int
	SupremeCt   int
	SpecialCt   int
	VSpecialCt  int `gorm:"column:v_special_ct"`
	UnknownCt   int
}

func (itemInfoRecord) TableName() string { return "item_info" }

// counters returns the rarity counters in rarity order.
func (r *itemInfoRecord) counters() [item.Unknown + 1]*int {
	return [...]*int{
		&r.CommonCt, &r.UncommonCt, &r.RareCt, &r.EpicCt, &r.LegendaryCt,
		&r.MythicCt, &r.SupremeCt, &r.SpecialCt, &r.VSpecialCt, &r.UnknownCt,
	}
}

// bazaarRecord is a row of bazaar_history.
type bazaarRecord struct {
	ID         uint      `gorm:"primaryKey"`
	Timestamp  time.Time `gorm:"not null"`
	ItemID     string    `gorm:"not null"`
	BuyPrice   float64
	SellPrice  float64
	BuyVolume  int64
	SellVolume int64
}

func (bazaarRecord) TableName() string { return "bazaar_history" }

// SQLiteGateway stores history through gorm. It backs single-node and test
// deployments.
type SQLiteGateway struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteGateway migrates the schema and returns a gateway over db.
func NewSQLiteGateway(db *gorm.DB, logger *slog.Logger) (*SQLiteGateway, error) {
	if logger == nil {
		logger = slog.Default()
	}
	g := &SQLiteGateway{db: db, logger: logger, now: time.Now}
	if err := g.migrate(); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *SQLiteGateway) migrate() error {
	for _, kind := range []model.SummaryKind{model.SummaryLowestBIN, model.SummarySale} {
		table := kind.Table()
		if err := g.db.Table(table).AutoMigrate(&historyRecord{}); err != nil {
			return fmt.Errorf("migrate %s: %w", table, err)
		}
		idx := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_idx ON %s (item_id, rarity, timestamp)`, table, table)
		if err := g.db.Exec(idx).Error; err != nil {
			return fmt.Errorf("index %s: %w", table, err)
		}
	}
	if err := g.db.AutoMigrate(&itemInfoRecord{}, &bazaarRecord{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return g.db.Exec(`CREATE INDEX IF NOT EXISTS bazaar_history_idx ON bazaar_history (item_id, timestamp)`).Error
}

// SavePriceSummary appends one row per key in a single transaction.
func (g *SQLiteGateway) SavePriceSummary(ctx context.Context, kind model.SummaryKind, at time.Time, summaries map[model.ItemKey]model.PriceSummary) error {
	table, err := historyTable(kind)
	if err != nil {
		return err
	}
	rows := summaryRows(summaries)
	if len(rows) == 0 {
		return nil
	}

	records := make([]historyRecord, len(rows))
	for i, r := range rows {
		records[i] = historyRecord{
			Timestamp: at.UTC(),
			ItemID:    r.ItemID,
			Rarity:    r.Rarity,
			Price:     r.Price,
			Samples:   r.Samples,
		}
	}
	if err := g.db.WithContext(ctx).Table(table).CreateInBatches(records, 500).Error; err != nil {
		return fmt.Errorf("save %s summary: %w", kind, err)
	}
	g.logger.Debug("saved price summary", "kind", kind, "rows", len(records))
	return nil
}

// ReadPriceHistory returns the points of one key newer than span, oldest
// first.
func (g *SQLiteGateway) ReadPriceHistory(ctx context.Context, kind model.SummaryKind, itemID string, rarity item.Rarity, span time.Duration) ([]model.PricePoint, error) {
	table, err := historyTable(kind)
	if err != nil {
		return nil, err
	}

	var records []historyRecord
	err = g.db.WithContext(ctx).Table(table).
		Where("item_id = ? AND rarity = ? AND timestamp >= ?", itemID, rarity.String(), g.now().Add(-span).UTC()).
		Order("timestamp").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("read %s history: %w", kind, err)
	}

	points := make([]model.PricePoint, len(records))
	for i, r := range records {
		points[i] = model.PricePoint{Timestamp: r.Timestamp, Price: r.Price}
	}
	return points, nil
}

// SaveItemMetadata upserts names and adds this snapshot's rarity counts.
func (g *SQLiteGateway) SaveItemMetadata(ctx context.Context, items []item.Item) error {
	tallies := tallyItems(items)
	if len(tallies) == 0 {
		return nil
	}

	updates := map[string]any{"base_name": gorm.Expr("excluded.base_name")}
	for _, col := range rarityColumns {
		updates[col] = gorm.Expr(fmt.Sprintf("item_info.%s + excluded.%s", col, col))
	}

	records := make([]itemInfoRecord, len(tallies))
	for i, t := range tallies {
		records[i] = itemInfoRecord{ItemID: t.ItemID, BaseName: t.BaseName}
		for r, p := range records[i].counters() {
			*p = t.Counts[r]
		}
	}

	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "item_id"}},
		DoUpdates: clause.Assignments(updates),
	}).CreateInBatches(records, 200).Error
	if err != nil {
		return fmt.Errorf("save item metadata: %w", err)
	}
	return nil
}

// ReadItemInfo returns the name and rarity counts of itemID.
func (g *SQLiteGateway) ReadItemInfo(ctx context.Context, itemID string) (*model.ItemInfo, error) {
	var rec itemInfoRecord
	err := g.db.WithContext(ctx).First(&rec, "item_id = ?", itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read item info: %w", err)
	}

	info := &model.ItemInfo{ItemID: rec.ItemID, BaseName: rec.BaseName, Counts: make(map[item.Rarity]int)}
	for r, p := range rec.counters() {
		if *p > 0 {
			info.Counts[item.Rarity(r)] = *p
		}
	}
	return info, nil
}

// SaveBazaarProducts appends one row per product.
func (g *SQLiteGateway) SaveBazaarProducts(ctx context.Context, at time.Time, products []model.BazaarProduct) error {
	if len(products) == 0 {
		return nil
	}

	records := make([]bazaarRecord, len(products))
	for i, p := range products {
		records[i] = bazaarRecord{
			Timestamp:  at.UTC(),
			ItemID:     p.ProductID,
			BuyPrice:   p.BuyPrice,
			SellPrice:  p.SellPrice,
			BuyVolume:  p.BuyVolume,
			SellVolume: p.SellVolume,
		}
	}
	if err := g.db.WithContext(ctx).CreateInBatches(records, 500).Error; err != nil {
		return fmt.Errorf("save bazaar products: %w", err)
	}
	return nil
}
