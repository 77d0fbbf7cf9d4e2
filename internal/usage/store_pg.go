package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type pgStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed snapshot store.
func NewPGStore(db *sql.DB) Store {
	return &pgStore{DB: db}
}

func (s *pgStore) Insert(ctx context.Context, snap Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	args := append([]any{snap.ID, snap.TakenAt.UTC()}, bucketArgs(snap)...)
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO usage_snapshots (`+snapshotColumns+`)
VALUES (`+placeholders(18, true)+`)`, args...)
	return err
}

func (s *pgStore) Latest(ctx context.Context) (Snapshot, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT `+snapshotColumns+` FROM usage_snapshots ORDER BY taken_at DESC LIMIT 1`)
	snap, err := scanPGSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshots
	}
	return snap, err
}

func (s *pgStore) List(ctx context.Context, since time.Time, limit int) ([]Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT `+snapshotColumns+` FROM usage_snapshots
WHERE taken_at >= $1 ORDER BY taken_at DESC LIMIT $2`, since.UTC(), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanPGSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *pgStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM usage_snapshots WHERE taken_at < $1`, before.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanPGSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	dest := append([]any{&snap.ID, &snap.TakenAt}, bucketDest(&snap)...)
	if err := row.Scan(dest...); err != nil {
		return Snapshot{}, err
	}
	snap.TakenAt = snap.TakenAt.UTC()
	return snap, nil
}
