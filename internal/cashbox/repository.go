package cashbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the cash ledger from PostgreSQL. Writes happen only inside
// the money-moving processors' transactions via PgTx.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const entryColumns = `id, occurred_at, direction, amount, concept, related_type, related_id, actor_id`

// ListEntries returns ledger entries, newest first.
func (r *Repository) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+entryColumns+` FROM cash_entries
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		ORDER BY occurred_at DESC LIMIT $3`,
		nullableTime(filter.From), nullableTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OccurredAt, &e.Direction, &e.Amount, &e.Concept, &e.RelatedType, &e.RelatedID, &e.ActorID); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// DrawerSummary aggregates cash in and out over a window.
func (r *Repository) DrawerSummary(ctx context.Context, filter ListFilter) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
		COALESCE(SUM(amount) FILTER (WHERE direction = 'IN'), 0),
		COALESCE(SUM(amount) FILTER (WHERE direction = 'OUT'), 0)
		FROM cash_entries
		WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR occurred_at <= $2)`,
		nullableTime(filter.From), nullableTime(filter.To)).Scan(&s.TotalIn, &s.TotalOut)
	if err != nil {
		return Summary{}, err
	}
	s.Net = s.TotalIn - s.TotalOut
	return s, nil
}

// PgTx exposes ledger writes to other modules' transactions.
type PgTx struct {
	tx pgx.Tx
}

// NewPgTx wraps a live transaction.
func NewPgTx(tx pgx.Tx) PgTx {
	return PgTx{tx: tx}
}

// InsertEntry appends one ledger row.
func (t PgTx) InsertEntry(ctx context.Context, e Entry) error {
	if e.Amount <= 0 {
		return ErrInvalidAmount
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO cash_entries (id, occurred_at, direction, amount, concept, related_type, related_id, actor_id) VALUES ($1, COALESCE($2, NOW()), $3, $4, $5, $6, $7, $8)`,
		e.ID, nullableTime(e.OccurredAt), e.Direction, e.Amount, e.Concept, e.RelatedType, e.RelatedID, e.ActorID)
	return err
}

// DeleteByRelated removes every entry tied to the given originating record,
// the compensating delete used by cancellation and hard deletion.
func (t PgTx) DeleteByRelated(ctx context.Context, relatedType, relatedID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cash_entries WHERE related_type = $1 AND related_id = $2`, relatedType, relatedID)
	return err
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
