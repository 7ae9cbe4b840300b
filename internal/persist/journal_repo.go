package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// JournalEntry is one ability event: an activation, a denial, a resolved
// hit or a kill.
type JournalEntry struct {
	Tick     int64     `db:"tick"`
	Kind     string    `db:"kind"` // "activated", "denied", "damage", "kill", "equip", "unequip"
	Owner    int64     `db:"owner_id"`
	Subject  int64     `db:"subject_id"`
	Ability  string    `db:"ability"`
	Value    float64   `db:"value"`
	Detail   string    `db:"detail"`
	Recorded time.Time `db:"recorded_at"`
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// Write inserts a batch of entries in a single transaction.
func (r *JournalRepo) Write(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	b := &pgx.Batch{}
	for _, e := range entries {
		b.Queue(
			`INSERT INTO ability_journal (tick, kind, owner_id, subject_id, ability, value, detail)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Tick, e.Kind, e.Owner, e.Subject, e.Ability, e.Value, e.Detail,
		)
	}
	if err := tx.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("journal insert: %w", err)
	}

	return tx.Commit(ctx)
}

// Recent returns the newest entries for owner, newest first.
func (r *JournalRepo) Recent(ctx context.Context, owner int64, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT tick, kind, owner_id, subject_id, ability, value, detail, recorded_at
		 FROM ability_journal WHERE owner_id = $1 ORDER BY id DESC LIMIT $2`,
		owner, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[JournalEntry])
	if err != nil {
		return nil, fmt.Errorf("journal scan: %w", err)
	}
	return entries, nil
}

// Prune deletes entries recorded before cutoff.
func (r *JournalRepo) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM ability_journal WHERE recorded_at < $1`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("journal prune: %w", err)
	}
	return tag.RowsAffected(), nil
}
