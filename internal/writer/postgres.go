package writer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/skyblock-data/internal/item"
	"github.com/rickgao/skyblock-data/internal/model"
)

// PostgresGateway stores history in PostgreSQL.
type PostgresGateway struct {
	db     *pgxpool.Pool
	logger *slog.Logger
	now    func() time.Time
}

// NewPostgresGateway creates a gateway over an open pool.
func NewPostgresGateway(db *pgxpool.Pool, logger *slog.Logger) *PostgresGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresGateway{db: db, logger: logger, now: time.Now}
}

// postgresSchema creates every table and index the gateway uses.
func postgresSchema() []string {
	stmts := make([]string, 0, 8)
	for _, kind := range []model.SummaryKind{model.SummaryLowestBIN, model.SummarySale} {
		table := kind.Table()
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				ts      TIMESTAMPTZ NOT NULL,
				item_id TEXT NOT NULL,
				rarity  TEXT NOT NULL,
				price   DOUBLE PRECISION NOT NULL,
				samples INTEGER NOT NULL
			)`, table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_idx ON %s (item_id, rarity, ts)`, table, table),
		)
	}

	counters := make([]string, len(rarityColumns))
	for i, col := range rarityColumns {
		counters[i] = col + " INTEGER NOT NULL DEFAULT 0"
	}
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS item_info (
			item_id   TEXT PRIMARY KEY,
			base_name TEXT NOT NULL,
			`+strings.Join(counters, ",\n\t\t\t")+`
		)`,
		`CREATE TABLE IF NOT EXISTS bazaar_history (
			ts          TIMESTAMPTZ NOT NULL,
			item_id     TEXT NOT NULL,
			buy_price   DOUBLE PRECISION NOT NULL,
			sell_price  DOUBLE PRECISION NOT NULL,
			buy_volume  BIGINT NOT NULL,
			sell_volume BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS bazaar_history_idx ON bazaar_history (item_id, ts)`,
	)
	return stmts
}

// EnsureSchema creates missing tables.
func (g *PostgresGateway) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema() {
		if _, err := g.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SavePriceSummary appends one row per key.
func (g *PostgresGateway) SavePriceSummary(ctx context.Context, kind model.SummaryKind, at time.Time, summaries map[model.ItemKey]model.PriceSummary) error {
	table, err := historyTable(kind)
	if err != nil {
		return err
	}
	rows := summaryRows(summaries)
	if len(rows) == 0 {
		return nil
	}

	sql := fmt.Sprintf(`INSERT INTO %s (ts, item_id, rarity, price, samples) VALUES ($1, $2, $3, $4, $5)`, table)
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(sql, at, r.ItemID, r.Rarity, r.Price, r.Samples)
	}

	if err := g.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save %s summary: %w", kind, err)
	}
	g.logger.Debug("saved price summary", "kind", kind, "rows", len(rows))
	return nil
}

// ReadPriceHistory returns the points of one key newer than span, oldest
// first.
func (g *PostgresGateway) ReadPriceHistory(ctx context.Context, kind model.SummaryKind, itemID string, rarity item.Rarity, span time.Duration) ([]model.PricePoint, error) {
	table, err := historyTable(kind)
	if err != nil {
		return nil, err
	}

	rows, err := g.db.Query(ctx,
		fmt.Sprintf(`SELECT ts, price FROM %s WHERE item_id = $1 AND rarity = $2 AND ts >= $3 ORDER BY ts`, table),
		itemID, rarity.String(), g.now().Add(-span),
	)
	if err != nil {
		return nil, fmt.Errorf("read %s history: %w", kind, err)
	}

	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PricePoint, error) {
		var p model.PricePoint
		err := row.Scan(&p.Timestamp, &p.Price)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s history: %w", kind, err)
	}
	return points, nil
}

// itemUpsertSQL inserts an item_info row or adds to its counters.
func itemUpsertSQL() string {
	cols := make([]string, len(rarityColumns))
	params := make([]string, len(rarityColumns))
	updates := make([]string, len(rarityColumns))
	for i, col := range rarityColumns {
		cols[i] = col
		params[i] = fmt.Sprintf("$%d", i+3)
		updates[i] = fmt.Sprintf("%s = item_info.%s + EXCLUDED.%s", col, col, col)
	}
	return fmt.Sprintf(
		`INSERT INTO item_info (item_id, base_name, %s) VALUES ($1, $2, %s)
		ON CONFLICT (item_id) DO UPDATE SET base_name = EXCLUDED.base_name, %s`,
		strings.Join(cols, ", "), strings.Join(params, ", "), strings.Join(updates, ", "),
	)
}

// SaveItemMetadata upserts names and adds this snapshot's rarity counts.
func (g *PostgresGateway) SaveItemMetadata(ctx context.Context, items []item.Item) error {
	tallies := tallyItems(items)
	if len(tallies) == 0 {
		return nil
	}

	sql := itemUpsertSQL()
	batch := &pgx.Batch{}
	for _, t := range tallies {
		args := make([]any, 0, len(rarityColumns)+2)
		args = append(args, t.ItemID, t.BaseName)
		for _, n := range t.Counts {
			args = append(args, n)
		}
		batch.Queue(sql, args...)
	}

	if err := g.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save item metadata: %w", err)
	}
	return nil
}

// ReadItemInfo returns the name and rarity counts of itemID.
func (g *PostgresGateway) ReadItemInfo(ctx context.Context, itemID string) (*model.ItemInfo, error) {
	var counts [item.Unknown + 1]int
	dest := make([]any, 0, len(counts)+1)
	info := &model.ItemInfo{ItemID: itemID, Counts: make(map[item.Rarity]int)}
	dest = append(dest, &info.BaseName)
	for i := range counts {
		dest = append(dest, &counts[i])
	}

	err := g.db.QueryRow(ctx,
		fmt.Sprintf(`SELECT base_name, %s FROM item_info WHERE item_id = $1`, strings.Join(rarityColumns[:], ", ")),
		itemID,
	).Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read item info: %w", err)
	}

	for i, n := range counts {
		if n > 0 {
			info.Counts[item.Rarity(i)] = n
		}
	}
	return info, nil
}

// SaveBazaarProducts appends one row per product.
func (g *PostgresGateway) SaveBazaarProducts(ctx context.Context, at time.Time, products []model.BazaarProduct) error {
	if len(products) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO bazaar_history (ts, item_id, buy_price, sell_price, buy_volume, sell_volume)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, at, p.ProductID, p.BuyPrice, p.SellPrice, p.BuyVolume, p.SellVolume)
	}

	if err := g.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("save bazaar products: %w", err)
	}
	return nil
}

// sendBatch executes every queued statement and reports the first error.
func (g *PostgresGateway) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	results := g.db.SendBatch(ctx, batch)
	defer results.Close()

	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
