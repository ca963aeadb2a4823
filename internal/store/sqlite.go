package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"optionguard/internal/errors"
	"optionguard/internal/models"
)

// SQLiteStore implements PositionStore using SQLite. The whole position is
// persisted as one schema-versioned JSON document per row; the plain columns
// are derived from the document on save and exist for indexing and ad-hoc
// queries only. The document is the source of truth.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the position database at dbPath, creating the file and
// schema as needed.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Open positions, one JSON document per position
	CREATE TABLE IF NOT EXISTS positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		option_type TEXT NOT NULL,
		strike REAL NOT NULL,
		expiration DATETIME NOT NULL,
		quantity INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'NEW',
		schema_version INTEGER NOT NULL,
		data TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- Closed-position journal
	CREATE TABLE IF NOT EXISTS closed_positions (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		option_type TEXT NOT NULL,
		strike REAL NOT NULL,
		expiration DATETIME NOT NULL,
		quantity INTEGER NOT NULL,
		entry_date DATETIME NOT NULL,
		entry_option REAL NOT NULL,
		exit_date DATETIME NOT NULL,
		exit_option REAL NOT NULL,
		exit_reason TEXT,
		pnl_dollars REAL NOT NULL,
		pnl_percent REAL NOT NULL,
		days_held INTEGER NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Create indexes for performance
	CREATE INDEX IF NOT EXISTS idx_positions_symbol ON positions(symbol);
	CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status);
	CREATE INDEX IF NOT EXISTS idx_positions_expiration ON positions(expiration);
	CREATE INDEX IF NOT EXISTS idx_closed_symbol ON closed_positions(symbol);
	CREATE INDEX IF NOT EXISTS idx_closed_exit_date ON closed_positions(exit_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Position Methods
// ============================================================================

// Save persists a position, replacing any previous row for the same id.
func (s *SQLiteStore) Save(ctx context.Context, pos *models.Position) error {
	data, err := encodePosition(pos)
	if err != nil {
		return fmt.Errorf("failed to encode position: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO positions (id, symbol, option_type, strike, expiration, quantity, status, schema_version, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, pos.ID, pos.Symbol, string(pos.OptionType), pos.Strike, pos.Expiration, pos.Quantity,
		string(pos.Status), schemaVersion, string(data), pos.CreatedAt, pos.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

// Load retrieves one position by id.
func (s *SQLiteStore) Load(ctx context.Context, id string) (*models.Position, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `
		SELECT data FROM positions WHERE id = ?
	`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load position: %w", err)
	}

	pos, err := decodePosition([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode position %s: %w", id, err)
	}
	return pos, nil
}

// LoadAll retrieves every open position ordered by symbol then id.
func (s *SQLiteStore) LoadAll(ctx context.Context) ([]*models.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, data FROM positions ORDER BY symbol ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query positions: %w", err)
	}
	defer rows.Close()

	var positions []*models.Position
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		pos, err := decodePosition([]byte(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode position %s: %w", id, err)
		}
		positions = append(positions, pos)
	}

	return positions, rows.Err()
}

// Delete removes a position by id.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM positions WHERE id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return errors.ErrPositionNotFound
	}
	return nil
}

// ============================================================================
// Archive Methods
// ============================================================================

// Archive appends a closed position to the journal.
func (s *SQLiteStore) Archive(ctx context.Context, rec *ClosedPosition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO closed_positions (id, symbol, option_type, strike, expiration, quantity, entry_date, entry_option, exit_date, exit_option, exit_reason, pnl_dollars, pnl_percent, days_held)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Symbol, string(rec.OptionType), rec.Strike, rec.Expiration, rec.Quantity,
		rec.EntryDate, rec.EntryOption, rec.ExitDate, rec.ExitOption, rec.ExitReason,
		rec.PnLDollars, rec.PnLPercent, rec.DaysHeld)
	if err != nil {
		return fmt.Errorf("failed to archive position: %w", err)
	}
	return nil
}

// GetClosed retrieves archived positions, most recent exit first.
func (s *SQLiteStore) GetClosed(ctx context.Context, filter ClosedFilter) ([]ClosedPosition, error) {
	query := "SELECT id, symbol, option_type, strike, expiration, quantity, entry_date, entry_option, exit_date, exit_option, exit_reason, pnl_dollars, pnl_percent, days_held FROM closed_positions WHERE 1=1"
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND exit_date >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY exit_date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed positions: %w", err)
	}
	defer rows.Close()

	var closed []ClosedPosition
	for rows.Next() {
		var c ClosedPosition
		var optionType string
		if err := rows.Scan(&c.ID, &c.Symbol, &optionType, &c.Strike, &c.Expiration, &c.Quantity,
			&c.EntryDate, &c.EntryOption, &c.ExitDate, &c.ExitOption, &c.ExitReason,
			&c.PnLDollars, &c.PnLPercent, &c.DaysHeld); err != nil {
			return nil, fmt.Errorf("failed to scan closed position: %w", err)
		}
		c.OptionType = models.OptionType(optionType)
		closed = append(closed, c)
	}

	return closed, rows.Err()
}
