package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// sqliteStore keeps taken_at as unix milliseconds.
type sqliteStore struct {
	DB *sql.DB
}

// NewSQLiteStore constructs an embedded SQLite snapshot store.
func NewSQLiteStore(db *sql.DB) Store {
	return &sqliteStore{DB: db}
}

func (s *sqliteStore) Insert(ctx context.Context, snap Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	args := append([]any{snap.ID, snap.TakenAt.UnixMilli()}, bucketArgs(snap)...)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO usage_snapshots (`+snapshotColumns+`)
VALUES (`+placeholders(18, false)+`)`, args...)
	return err
}

func (s *sqliteStore) Latest(ctx context.Context) (Snapshot, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT `+snapshotColumns+` FROM usage_snapshots ORDER BY taken_at DESC LIMIT 1`)
	snap, err := scanSQLiteSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshots
	}
	return snap, err
}

func (s *sqliteStore) List(ctx context.Context, since time.Time, limit int) ([]Snapshot, error) {
	var sinceMs int64
	if !since.IsZero() {
		sinceMs = since.UnixMilli()
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+snapshotColumns+` FROM usage_snapshots
WHERE taken_at >= ? ORDER BY taken_at DESC LIMIT ?`, sinceMs, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSQLiteSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *sqliteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM usage_snapshots WHERE taken_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanSQLiteSnapshot(row rowScanner) (Snapshot, error) {
	var (
		snap    Snapshot
		takenMs int64
	)
	dest := append([]any{&snap.ID, &takenMs}, bucketDest(&snap)...)
	if err := row.Scan(dest...); err != nil {
		return Snapshot{}, err
	}
	snap.TakenAt = time.UnixMilli(takenMs).UTC()
	return snap, nil
}
