package rental

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/platform/db"
)

// Repository persists rental payments and manual debt entries in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx, cash: cashbox.NewPgTx(tx)})
	})
}

// ListPayments returns a driver's rental payments, oldest first.
func (r *Repository) ListPayments(ctx context.Context, driverID string) ([]RentalPayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, driver_id, vehicle_plate, paid_at, amount, method, COALESCE(note, ''), days_covered, created_by
		FROM rental_payments WHERE driver_id = $1 ORDER BY paid_at ASC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []RentalPayment
	for rows.Next() {
		var p RentalPayment
		var method string
		if err := rows.Scan(&p.ID, &p.DriverID, &p.VehiclePlate, &p.PaidAt, &p.Amount, &method, &p.Note, &p.DaysCovered, &p.CreatedBy); err != nil {
			return nil, err
		}
		p.Method = PaymentMethod(method)
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// ListManualDebts returns a driver's ad-hoc charges, oldest first.
func (r *Repository) ListManualDebts(ctx context.Context, driverID string) ([]ManualDebtEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, driver_id, amount, reason, created_by, created_at
		FROM manual_debt_entries WHERE driver_id = $1 ORDER BY created_at ASC`, driverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ManualDebtEntry
	for rows.Next() {
		var m ManualDebtEntry
		if err := rows.Scan(&m.ID, &m.DriverID, &m.Amount, &m.Reason, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}

type pgTx struct {
	tx   pgx.Tx
	cash cashbox.PgTx
}

func (t *pgTx) InsertPayment(ctx context.Context, p RentalPayment) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO rental_payments (id, driver_id, vehicle_plate, paid_at, amount, method, note, days_covered, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.DriverID, p.VehiclePlate, p.PaidAt, p.Amount, string(p.Method), p.Note, p.DaysCovered, p.CreatedBy)
	return err
}

func (t *pgTx) InsertManualDebt(ctx context.Context, m ManualDebtEntry) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO manual_debt_entries (id, driver_id, amount, reason, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		m.ID, m.DriverID, m.Amount, m.Reason, m.CreatedBy, m.CreatedAt)
	return err
}

func (t *pgTx) InsertCashEntry(ctx context.Context, entry cashbox.Entry) error {
	return t.cash.InsertEntry(ctx, entry)
}
