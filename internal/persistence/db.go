package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/jamesperreaultdev/Nascraft/internal/economy"
	"github.com/jamesperreaultdev/Nascraft/internal/stats"
)

// SQLiteStore keeps market state in a SQLite file.
type SQLiteStore struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &SQLiteStore{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		identifier TEXT PRIMARY KEY,
		lastprice REAL NOT NULL,
		lowest REAL NOT NULL,
		highest REAL NOT NULL,
		stock REAL NOT NULL,
		taxes REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS market_items (
		market_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		lastprice REAL NOT NULL,
		lowest REAL NOT NULL,
		highest REAL NOT NULL,
		stock REAL NOT NULL,
		item_stock INTEGER NOT NULL,
		taxes REAL NOT NULL,
		PRIMARY KEY (market_id, identifier)
	);

	CREATE TABLE IF NOT EXISTS item_instants (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		market_id TEXT NOT NULL,
		identifier TEXT NOT NULL,
		at INTEGER NOT NULL,
		price REAL NOT NULL,
		volume REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cpi (
		market_id TEXT NOT NULL,
		at INTEGER NOT NULL,
		value REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_instants_item ON item_instants(market_id, identifier, at);
	CREATE INDEX IF NOT EXISTS idx_instants_at ON item_instants(at);
	CREATE INDEX IF NOT EXISTS idx_cpi_market ON cpi(market_id, at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type itemRow struct {
	Identifier string  `db:"identifier"`
	LastPrice  float64 `db:"lastprice"`
	Lowest     float64 `db:"lowest"`
	Highest    float64 `db:"highest"`
	Stock      float64 `db:"stock"`
	ItemStock  int64   `db:"item_stock"`
	Taxes      float64 `db:"taxes"`
}

func (r itemRow) state() economy.ItemState {
	return economy.ItemState{
		Identifier: r.Identifier,
		Value:      r.LastPrice,
		Low:        r.Lowest,
		High:       r.Highest,
		PriceStock: r.Stock,
		Units:      r.ItemStock,
		Taxes:      r.Taxes,
	}
}

// LoadItem reads one item. found is false when no row exists.
func (db *SQLiteStore) LoadItem(ctx context.Context, marketID, identifier string) (economy.ItemState, bool, error) {
	var row itemRow
	var err error
	if marketID == "" {
		err = db.conn.GetContext(ctx, &row,
			"SELECT identifier, lastprice, lowest, highest, stock, 0 AS item_stock, taxes FROM items WHERE identifier = ?",
			identifier)
	} else {
		err = db.conn.GetContext(ctx, &row,
			`SELECT identifier, lastprice, lowest, highest, stock, item_stock, taxes
			FROM market_items WHERE market_id = ? AND identifier = ?`,
			marketID, identifier)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return economy.ItemState{}, false, nil
	}
	if err != nil {
		return economy.ItemState{}, false, Classify(fmt.Errorf("load item %s/%s: %w", marketID, identifier, err))
	}
	return row.state(), true, nil
}

// SaveItem upserts one item.
func (db *SQLiteStore) SaveItem(ctx context.Context, marketID string, st economy.ItemState) error {
	var err error
	if marketID == "" {
		_, err = db.conn.ExecContext(ctx,
			`INSERT OR REPLACE INTO items (identifier, lastprice, lowest, highest, stock, taxes)
			VALUES (?, ?, ?, ?, ?, ?)`,
			st.Identifier, st.Value, st.Low, st.High, st.PriceStock, st.Taxes)
	} else {
		_, err = db.conn.ExecContext(ctx,
			`INSERT OR REPLACE INTO market_items
			(market_id, identifier, lastprice, lowest, highest, stock, item_stock, taxes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			marketID, st.Identifier, st.Value, st.Low, st.High, st.PriceStock, st.Units, st.Taxes)
	}
	if err != nil {
		return Classify(fmt.Errorf("save item %s/%s: %w", marketID, st.Identifier, err))
	}
	return nil
}

// SaveInstants appends archived samples in one transaction.
func (db *SQLiteStore) SaveInstants(ctx context.Context, rows []stats.Instant) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return Classify(err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO item_instants (market_id, identifier, at, price, volume) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return Classify(err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.Market, r.Item, r.Timestamp, r.Price, r.Volume); err != nil {
			return Classify(fmt.Errorf("insert instant %s/%s: %w", r.Market, r.Item, err))
		}
	}

	return Classify(tx.Commit())
}

// LoadInstants returns the samples of one item taken at or after since.
func (db *SQLiteStore) LoadInstants(ctx context.Context, marketID, identifier string, since time.Time) ([]stats.Instant, error) {
	var rows []stats.Instant
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT market_id AS market, identifier AS item, at AS timestamp, price, volume
		FROM item_instants WHERE market_id = ? AND identifier = ? AND at >= ? ORDER BY at`,
		marketID, identifier, since.UnixMilli())
	if err != nil {
		return nil, Classify(err)
	}
	return rows, nil
}

// PurgeInstants deletes samples older than before.
func (db *SQLiteStore) PurgeInstants(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM item_instants WHERE at < ?", before.UnixMilli())
	if err != nil {
		return 0, Classify(err)
	}
	return res.RowsAffected()
}

// SaveCPI appends a consumer price index reading.
func (db *SQLiteStore) SaveCPI(ctx context.Context, marketID string, at time.Time, value float64) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO cpi (market_id, at, value) VALUES (?, ?, ?)",
		marketID, at.UnixMilli(), value)
	return Classify(err)
}

// SaveMeta stores a key-value pair.
func (db *SQLiteStore) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return Classify(err)
}

// GetMeta retrieves a metadata value.
func (db *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}
