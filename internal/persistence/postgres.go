package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/stats"
)

const pgConnTimeout = 5 * time.Second

type legacyItemModel struct {
	bun.BaseModel `bun:"table:items"`

	Identifier string  `bun:"identifier,pk"`
	LastPrice  float64 `bun:"lastprice,notnull"`
	Lowest     float64 `bun:"lowest,notnull"`
	Highest    float64 `bun:"highest,notnull"`
	Stock      float64 `bun:"stock,notnull"`
	Taxes      float64 `bun:"taxes,notnull"`
}

type marketItemModel struct {
	bun.BaseModel `bun:"table:market_items"`

	MarketID   string  `bun:"market_id,pk"`
	Identifier string  `bun:"identifier,pk"`
	LastPrice  float64 `bun:"lastprice,notnull"`
	Lowest     float64 `bun:"lowest,notnull"`
	Highest    float64 `bun:"highest,notnull"`
	Stock      float64 `bun:"stock,notnull"`
	ItemStock  int64   `bun:"item_stock,notnull"`
	Taxes      float64 `bun:"taxes,notnull"`
}

type instantModel struct {
	bun.BaseModel `bun:"table:item_instants"`

	ID         int64   `bun:"id,pk,autoincrement"`
	MarketID   string  `bun:"market_id,notnull"`
	Identifier string  `bun:"identifier,notnull"`
	At         int64   `bun:"at,notnull"`
	Price      float64 `bun:"price,notnull"`
	Volume     float64 `bun:"volume,notnull"`
}

type cpiModel struct {
	bun.BaseModel `bun:"table:cpi"`

	ID       int64   `bun:"id,pk,autoincrement"`
	MarketID string  `bun:"market_id,notnull"`
	At       int64   `bun:"at,notnull"`
	Value    float64 `bun:"value,notnull"`
}

type metaModel struct {
	bun.BaseModel `bun:"table:meta"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// PostgresStore keeps market state in PostgreSQL through bun.
type PostgresStore struct {
	db *bun.DB
}

// OpenPostgres connects to dsn and creates missing tables.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(pgConnTimeout),
	))
	db := bun.NewDB(sqldb, pgdialect.New())

	pingCtx, cancel := context.WithTimeout(ctx, pgConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	models := []interface{}{
		(*legacyItemModel)(nil),
		(*marketItemModel)(nil),
		(*instantModel)(nil),
		(*cpiModel)(nil),
		(*metaModel)(nil),
	}
	for _, m := range models {
		if _, err := s.db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	_, err := s.db.NewCreateIndex().
		Model((*instantModel)(nil)).
		Index("idx_instants_item").
		Column("market_id", "identifier", "at").
		IfNotExists().
		Exec(ctx)
	return err
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// LoadItem reads one item. found is false when no row exists.
func (s *PostgresStore) LoadItem(ctx context.Context, marketID, identifier string) (economy.ItemState, bool, error) {
	if marketID == "" {
		var row legacyItemModel
		err := s.db.NewSelect().Model(&row).Where("identifier = ?", identifier).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return economy.ItemState{}, false, nil
		}
		if err != nil {
			return economy.ItemState{}, false, Classify(err)
		}
		return economy.ItemState{
			Identifier: row.Identifier,
			Value:      row.LastPrice,
			Low:        row.Lowest,
			High:       row.Highest,
			PriceStock: row.Stock,
			Taxes:      row.Taxes,
		}, true, nil
	}

	var row marketItemModel
	err := s.db.NewSelect().
		Model(&row).
		Where("market_id = ?", marketID).
		Where("identifier = ?", identifier).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return economy.ItemState{}, false, nil
	}
	if err != nil {
		return economy.ItemState{}, false, Classify(err)
	}
	return economy.ItemState{
		Identifier: row.Identifier,
		Value:      row.LastPrice,
		Low:        row.Lowest,
		High:       row.Highest,
		PriceStock: row.Stock,
		Units:      row.ItemStock,
		Taxes:      row.Taxes,
	}, true, nil
}

// SaveItem upserts one item.
func (s *PostgresStore) SaveItem(ctx context.Context, marketID string, st economy.ItemState) error {
	var err error
	if marketID == "" {
		row := &legacyItemModel{
			Identifier: st.Identifier,
			LastPrice:  st.Value,
			Lowest:     st.Low,
			Highest:    st.High,
			Stock:      st.PriceStock,
			Taxes:      st.Taxes,
		}
		_, err = s.db.NewInsert().Model(row).
			On("CONFLICT (identifier) DO UPDATE").
			Set("lastprice = EXCLUDED.lastprice").
			Set("lowest = EXCLUDED.lowest").
			Set("highest = EXCLUDED.highest").
			Set("stock = EXCLUDED.stock").
			Set("taxes = EXCLUDED.taxes").
			Exec(ctx)
	} else {
		row := &marketItemModel{
			MarketID:   marketID,
			Identifier: st.Identifier,
			LastPrice:  st.Value,
			Lowest:     st.Low,
			Highest:    st.High,
			Stock:      st.PriceStock,
			ItemStock:  st.Units,
			Taxes:      st.Taxes,
		}
		_, err = s.db.NewInsert().Model(row).
			On("CONFLICT (market_id, identifier) DO UPDATE").
			Set("lastprice = EXCLUDED.lastprice").
			Set("lowest = EXCLUDED.lowest").
			Set("highest = EXCLUDED.highest").
			Set("stock = EXCLUDED.stock").
			Set("item_stock = EXCLUDED.item_stock").
			Set("taxes = EXCLUDED.taxes").
			Exec(ctx)
	}
	if err != nil {
		return Classify(fmt.Errorf("save item %s/%s: %w", marketID, st.Identifier, err))
	}
	return nil
}

// SaveInstants bulk-inserts archived samples.
func (s *PostgresStore) SaveInstants(ctx context.Context, rows []stats.Instant) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]instantModel, len(rows))
	for i, r := range rows {
		models[i] = instantModel{
			MarketID:   r.Market,
			Identifier: r.Item,
			At:         r.Timestamp,
			Price:      r.Price,
			Volume:     r.Volume,
		}
	}
	_, err := s.db.NewInsert().Model(&models).Exec(ctx)
	return Classify(err)
}

// LoadInstants returns the samples of one item taken at or after since.
func (s *PostgresStore) LoadInstants(ctx context.Context, marketID, identifier string, since time.Time) ([]stats.Instant, error) {
	var models []instantModel
	err := s.db.NewSelect().
		Model(&models).
		Where("market_id = ?", marketID).
		Where("identifier = ?", identifier).
		Where("at >= ?", since.UnixMilli()).
		Order("at ASC").
		Scan(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	out := make([]stats.Instant, len(models))
	for i, m := range models {
		out[i] = stats.Instant{Market: m.MarketID, Item: m.Identifier, Timestamp: m.At, Price: m.Price, Volume: m.Volume}
	}
	return out, nil
}

// PurgeInstants deletes samples older than before.
func (s *PostgresStore) PurgeInstants(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.NewDelete().
		Model((*instantModel)(nil)).
		Where("at < ?", before.UnixMilli()).
		Exec(ctx)
	if err != nil {
		return 0, Classify(err)
	}
	return res.RowsAffected()
}

// SaveCPI appends a consumer price index reading.
func (s *PostgresStore) SaveCPI(ctx context.Context, marketID string, at time.Time, value float64) error {
	_, err := s.db.NewInsert().
		Model(&cpiModel{MarketID: marketID, At: at.UnixMilli(), Value: value}).
		Exec(ctx)
	return Classify(err)
}

// SaveMeta stores a key-value pair.
func (s *PostgresStore) SaveMeta(ctx context.Context, key, value string) error {
	_, err := s.db.NewInsert().
		Model(&metaModel{Key: key, Value: value}).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return Classify(err)
}

// GetMeta retrieves a metadata value.
func (s *PostgresStore) GetMeta(ctx context.Context, key string) (string, error) {
	var row metaModel
	if err := s.db.NewSelect().Model(&row).Where("key = ?", key).Scan(ctx); err != nil {
		return "", err
	}
	return row.Value, nil
}
