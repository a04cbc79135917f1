package control

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository stores exposure records. Implementations must be safe for
// concurrent use.
type Repository interface {
	// Save inserts e and sets its ID.
	Save(ctx context.Context, e *Exposure) error

	// Get returns the exposure with the given image name.
	Get(ctx context.Context, name string) (*Exposure, error)

	// List returns the most recent exposures, newest first.
	List(ctx context.Context, limit int) ([]Exposure, error)
}

// SQLiteRepository implements Repository on the exposures table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository returns a repository using db.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Save inserts e. Meta and header are stored as JSON.
func (r *SQLiteRepository) Save(ctx context.Context, e *Exposure) error {
	if e.Name == "" {
		return fmt.Errorf("exposure name is required")
	}
	metaJSON, err := json.Marshal(e.Meta)
	if err != nil {
		return fmt.Errorf("marshalling meta: %w", err)
	}
	headerJSON, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("marshalling header: %w", err)
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO exposures
		 (name, run_id, ob_id, instrument, exptime, total_counts, saturated, meta, header, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Name, e.RunID, e.OBID, e.Instrument, e.Exptime, e.Total, e.Saturated,
		string(metaJSON), string(headerJSON), e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting exposure: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading exposure id: %w", err)
	}
	e.ID = id
	return nil
}

const selectExposure = `SELECT id, name, run_id, ob_id, instrument, exptime, total_counts, saturated, meta, header, created_at
	FROM exposures`

// Get returns the exposure named name, or ErrExposureNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Exposure, error) {
	row := r.db.QueryRowContext(ctx, selectExposure+" WHERE name = ?", name)
	e, err := scanExposure(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrExposureNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns up to limit exposures, newest first (default 50, max 500).
func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Exposure, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := r.db.QueryContext(ctx, selectExposure+" ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying exposures: %w", err)
	}
	defer rows.Close()

	out := make([]Exposure, 0, limit)
	for rows.Next() {
		e, err := scanExposure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating exposures: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExposure(s scanner) (*Exposure, error) {
	var e Exposure
	var metaJSON, headerJSON, createdAt string
	err := s.Scan(&e.ID, &e.Name, &e.RunID, &e.OBID, &e.Instrument, &e.Exptime,
		&e.Total, &e.Saturated, &metaJSON, &headerJSON, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning exposure: %w", err)
	}
	if err := json.Unmarshal([]byte(metaJSON), &e.Meta); err != nil {
		return nil, fmt.Errorf("unmarshalling meta: %w", err)
	}
	if err := json.Unmarshal([]byte(headerJSON), &e.Header); err != nil {
		return nil, fmt.Errorf("unmarshalling header: %w", err)
	}
	ts, err := parseTimestamp(createdAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = ts
	return &e, nil
}

// parseTimestamp accepts the RFC 3339 forms written by Save and by the
// column default.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return ts, nil
}
