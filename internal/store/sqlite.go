package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"vinosuggest-engine/internal/domain"
)

// SQLiteRepository stores one row per user. seq preserves save order for List.
// Preferences are a JSON array in category order, like the CSV row layout.
type SQLiteRepository struct {
	db *DB
	mu sync.Mutex
}

// OpenSQLiteRepository opens (or creates) the database file and migrates it.
func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", path, err)
	}
	if err := Migrate(ctx, db.Pool); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error { return r.db.Close() }

func (r *SQLiteRepository) Exists(ctx context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var one int
	err := r.db.Pool.QueryRowContext(ctx,
		`SELECT 1 FROM preferences WHERE username = ? LIMIT 1;`, username).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check user %q: %w", username, err)
	}
	return true, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, username string) (domain.PreferenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.Pool.QueryRowContext(ctx, `
SELECT seq, username, preferences, min_price, max_price
FROM preferences
WHERE username = ?
ORDER BY seq
LIMIT 1;`, username)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.PreferenceRecord{}, ErrNotFound
	}
	if err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	return rec, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]domain.PreferenceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Pool.QueryContext(ctx, `
SELECT seq, username, preferences, min_price, max_price
FROM preferences
ORDER BY seq;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	defer rows.Close()

	out := []domain.PreferenceRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list preferences: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list preferences: %w", err)
	}
	return out, nil
}

// Put relies on the UNIQUE username column, so two racing saves cannot both
// succeed.
func (r *SQLiteRepository) Put(ctx context.Context, rec domain.PreferenceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prefs, err := json.Marshal(rec.Preferences.Ordered())
	if err != nil {
		return fmt.Errorf("failed to encode preferences: %w", err)
	}

	res, err := r.db.Pool.ExecContext(ctx, `
INSERT INTO preferences (username, preferences, min_price, max_price, created_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(username) DO NOTHING;`,
		rec.Username, string(prefs), rec.MinPrice, rec.MaxPrice, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save user %q: %w", rec.Username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save user %q: %w", rec.Username, err)
	}
	if n == 0 {
		return ErrDuplicateUsername
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Pool.ExecContext(ctx, `DELETE FROM preferences WHERE username = ?;`, username)
	if err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete user %q: %w", username, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (domain.PreferenceRecord, error) {
	var (
		seq      int64
		rec      domain.PreferenceRecord
		rawPrefs string
	)
	if err := s.Scan(&seq, &rec.Username, &rawPrefs, &rec.MinPrice, &rec.MaxPrice); err != nil {
		return domain.PreferenceRecord{}, err
	}

	var values []string
	if err := json.Unmarshal([]byte(rawPrefs), &values); err != nil {
		return domain.PreferenceRecord{}, fmt.Errorf("%w: row %d preferences: %v", ErrMalformedRecord, seq, err)
	}
	if len(values) < len(domain.Categories) {
		return domain.PreferenceRecord{}, fmt.Errorf("%w: row %d has %d preference values, want %d",
			ErrMalformedRecord, seq, len(values), len(domain.Categories))
	}
	rec.Preferences = domain.PreferencesFromOrdered(values)
	return rec, nil
}
