package sales

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/platform/db"
)

// Repository persists sales in PostgreSQL.
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
		return fn(ctx, &pgTx{
			tx:    tx,
			items: inventory.NewPgTx(tx),
			cash:  cashbox.NewPgTx(tx),
		})
	})
}

// GetSale loads a sale with lines and payment legs.
func (r *Repository) GetSale(ctx context.Context, id string) (Sale, error) {
	return loadSale(ctx, r.pool, id, false)
}

// ListSales returns sale headers matching the filter, newest first. Lines and
// legs are not hydrated on listings.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, folio, subtotal, tax, total, status, COALESCE(cancel_reason, ''), created_by, created_at, cancelled_at
		FROM sales
		WHERE ($1 = '' OR status = $1)
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY created_at DESC LIMIT $4`,
		string(filter.Status), nullableTime(filter.From), nullableTime(filter.To), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var sales []Sale
	for rows.Next() {
		var sale Sale
		if err := rows.Scan(&sale.ID, &sale.Folio, &sale.Subtotal, &sale.Tax, &sale.Total, &sale.Status, &sale.CancelReason, &sale.CreatedBy, &sale.CreatedAt, &sale.CancelledAt); err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sales, nil
}

type pgTx struct {
	tx    pgx.Tx
	items inventory.PgTx
	cash  cashbox.PgTx
}

var _ TxRepository = (*pgTx)(nil)

func (t *pgTx) InsertSale(ctx context.Context, sale Sale) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO sales (id, folio, subtotal, tax, total, status, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sale.ID, sale.Folio, sale.Subtotal, sale.Tax, sale.Total, sale.Status, sale.CreatedBy, sale.CreatedAt)
	if err != nil {
		return err
	}
	for _, line := range sale.Lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO sale_lines (sale_id, item_id, name, quantity, unit_price, total, is_service) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			sale.ID, line.ItemID, line.Name, line.Quantity, line.UnitPrice, line.Total, line.IsService)
		if err != nil {
			return err
		}
	}
	return insertLegs(ctx, t.tx, sale.ID, sale.PaymentLegs)
}

func (t *pgTx) GetSaleForUpdate(ctx context.Context, id string) (Sale, error) {
	return loadSale(ctx, t.tx, id, true)
}

func (t *pgTx) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE sales SET status = $2, cancel_reason = $3, cancelled_at = $4 WHERE id = $1`,
		id, StatusCancelled, reason, at)
	return err
}

func (t *pgTx) ReplacePaymentLegs(ctx context.Context, id string, legs []PaymentLeg) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM sale_payment_legs WHERE sale_id = $1`, id); err != nil {
		return err
	}
	return insertLegs(ctx, t.tx, id, legs)
}

func (t *pgTx) DeleteSale(ctx context.Context, id string) error {
	// sale_lines and sale_payment_legs cascade on the foreign key.
	_, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	return err
}

func (t *pgTx) NextFolio(ctx context.Context) (int64, error) {
	var folio int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('sale_folio_seq')`).Scan(&folio)
	return folio, err
}

func (t *pgTx) GetItemForUpdate(ctx context.Context, id string) (inventory.StockItem, error) {
	return t.items.GetItemForUpdate(ctx, id)
}

func (t *pgTx) UpdateItemStock(ctx context.Context, item inventory.StockItem) error {
	return t.items.UpdateItemStock(ctx, item)
}

func (t *pgTx) InsertCashEntry(ctx context.Context, entry cashbox.Entry) error {
	return t.cash.InsertEntry(ctx, entry)
}

func (t *pgTx) DeleteCashEntriesByRelated(ctx context.Context, relatedType, relatedID string) error {
	return t.cash.DeleteByRelated(ctx, relatedType, relatedID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadSale(ctx context.Context, q querier, id string, forUpdate bool) (Sale, error) {
	head := `SELECT id, folio, subtotal, tax, total, status, COALESCE(cancel_reason, ''), created_by, created_at, cancelled_at FROM sales WHERE id = $1`
	if forUpdate {
		head += ` FOR UPDATE`
	}
	var sale Sale
	err := q.QueryRow(ctx, head, id).Scan(&sale.ID, &sale.Folio, &sale.Subtotal, &sale.Tax, &sale.Total, &sale.Status, &sale.CancelReason, &sale.CreatedBy, &sale.CreatedAt, &sale.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrSaleNotFound
		}
		return Sale{}, err
	}

	rows, err := q.Query(ctx, `SELECT item_id, name, quantity, unit_price, total, is_service FROM sale_lines WHERE sale_id = $1`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line SaleLine
		if err := rows.Scan(&line.ItemID, &line.Name, &line.Quantity, &line.UnitPrice, &line.Total, &line.IsService); err != nil {
			return Sale{}, err
		}
		sale.Lines = append(sale.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return Sale{}, err
	}

	legRows, err := q.Query(ctx, `SELECT method, amount, COALESCE(reference, '') FROM sale_payment_legs WHERE sale_id = $1`, id)
	if err != nil {
		return Sale{}, err
	}
	defer legRows.Close()
	for legRows.Next() {
		var leg PaymentLeg
		if err := legRows.Scan(&leg.Method, &leg.Amount, &leg.Reference); err != nil {
			return Sale{}, err
		}
		sale.PaymentLegs = append(sale.PaymentLegs, leg)
	}
	if err := legRows.Err(); err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func insertLegs(ctx context.Context, tx pgx.Tx, saleID string, legs []PaymentLeg) error {
	for _, leg := range legs {
		_, err := tx.Exec(ctx, `INSERT INTO sale_payment_legs (sale_id, method, amount, reference) VALUES ($1, $2, $3, $4)`,
			saleID, leg.Method, leg.Amount, leg.Reference)
		if err != nil {
			return err
		}
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
