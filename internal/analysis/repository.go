package analysis

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/domain"
)

// PriceSchema ensures the daily_prices table exists
const PriceSchema = `
CREATE TABLE IF NOT EXISTS daily_prices (
    id INTEGER PRIMARY KEY,
    code TEXT NOT NULL,
    date TEXT NOT NULL,
    open REAL NOT NULL,
    high REAL NOT NULL,
    low REAL NOT NULL,
    close REAL NOT NULL,
    volume INTEGER NOT NULL,
    UNIQUE(code, date)
);

CREATE INDEX IF NOT EXISTS idx_daily_prices_code_date ON daily_prices(code, date);
`

// InitSchema creates the price history tables
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(PriceSchema)
	return err
}

// Repository handles daily price persistence
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new price repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "prices").Logger(),
	}
}

// SaveBars upserts daily bars for an instrument
func (r *Repository) SaveBars(bars []domain.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO daily_prices (code, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code, date) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.Exec(b.Code, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return fmt.Errorf("failed to insert bar %s/%s: %w", b.Code, b.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bars: %w", err)
	}

	r.log.Debug().Str("code", bars[0].Code).Int("count", len(bars)).Msg("Saved daily bars")
	return nil
}

// GetHistory returns up to limit bars for a code, oldest first
func (r *Repository) GetHistory(code string, limit int) ([]domain.DailyBar, error) {
	rows, err := r.db.Query(`
		SELECT code, date, open, high, low, close, volume
		FROM (
			SELECT code, date, open, high, low, close, volume
			FROM daily_prices
			WHERE code = ?
			ORDER BY date DESC
			LIMIT ?
		)
		ORDER BY date ASC
	`, code, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var bars []domain.DailyBar
	for rows.Next() {
		var b domain.DailyBar
		if err := rows.Scan(&b.Code, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bars = append(bars, b)
	}

	return bars, rows.Err()
}

// HasData reports whether any bars are stored for a code
func (r *Repository) HasData(code string) (bool, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM daily_prices WHERE code = ?`, code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count bars: %w", err)
	}
	return count > 0, nil
}
