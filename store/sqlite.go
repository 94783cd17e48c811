package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aluiziolira/go-enrich-products/models"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS enriched_products (
	store_name          TEXT NOT NULL,
	product_id          TEXT NOT NULL,
	ean_code            TEXT,
	product_name        TEXT,
	brand_name          TEXT,
	current_price       REAL NOT NULL DEFAULT 0,
	regular_price       REAL,
	discount_percentage REAL,
	has_discount        INTEGER NOT NULL DEFAULT 0,
	currency_code       TEXT,
	ai_main_category    TEXT,
	ai_subcategory      TEXT,
	ai_confidence       TEXT,
	ai_health_score     INTEGER,
	payload             TEXT NOT NULL,
	scraped_at          TIMESTAMP,
	updated_at          TIMESTAMP NOT NULL,
	PRIMARY KEY (store_name, product_id)
);
CREATE INDEX IF NOT EXISTS idx_enriched_products_category ON enriched_products(ai_main_category);
`

const sqliteUpsert = `
INSERT INTO enriched_products (
	store_name, product_id, ean_code, product_name, brand_name,
	current_price, regular_price, discount_percentage, has_discount, currency_code,
	ai_main_category, ai_subcategory, ai_confidence, ai_health_score,
	payload, scraped_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(store_name, product_id) DO UPDATE SET
	ean_code = excluded.ean_code,
	product_name = excluded.product_name,
	brand_name = excluded.brand_name,
	current_price = excluded.current_price,
	regular_price = excluded.regular_price,
	discount_percentage = excluded.discount_percentage,
	has_discount = excluded.has_discount,
	currency_code = excluded.currency_code,
	ai_main_category = excluded.ai_main_category,
	ai_subcategory = excluded.ai_subcategory,
	ai_confidence = excluded.ai_confidence,
	ai_health_score = excluded.ai_health_score,
	payload = excluded.payload,
	scraped_at = excluded.scraped_at,
	updated_at = excluded.updated_at
`

// SQLiteStore keeps the latest enriched record per (store_name, product_id).
type SQLiteStore struct {
	conn *sql.DB
	now  func() time.Time
}

// NewSQLiteStore opens or creates the database at path and ensures the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := ensureParent(path); err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	if _, err := conn.Exec(sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialise sqlite schema: %w", err)
	}
	return &SQLiteStore{conn: conn, now: time.Now}, nil
}

// Upsert inserts p or replaces the stored row with the same key.
func (s *SQLiteStore) Upsert(ctx context.Context, p *models.EnrichedProduct) error {
	if _, err := recordKey(p); err != nil {
		return err
	}
	payload, err := encodeRecord(p)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx, sqliteUpsert,
		p.StoreName, p.ProductID, p.EANCode, p.Name, p.Brand,
		p.CurrentPrice, nullFloat(p.RegularPrice), nullFloat(p.DiscountPercentage), p.HasDiscount, p.CurrencyCode,
		p.MainCategory, p.Subcategory, p.Confidence, p.HealthScore,
		string(payload), p.ScrapedAt.UTC(), s.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", Key(p.StoreName, p.ProductID), err)
	}
	return nil
}

// Get loads the stored record for the key.
func (s *SQLiteStore) Get(ctx context.Context, storeName, productID string) (*models.EnrichedProduct, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx,
		`SELECT payload FROM enriched_products WHERE store_name = ? AND product_id = ?`,
		storeName, productID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", Key(storeName, productID), err)
	}
	return decodeRecord([]byte(payload))
}

// Count returns the number of stored rows.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM enriched_products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
