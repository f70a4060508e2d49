package payables

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/platform/db"
)

// Repository persists suppliers and payable accounts in PostgreSQL.
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
		return fn(ctx, newPgTx(tx))
	})
}

// WithSerializableTx executes the callback at the serializable level. Used by
// settlements so debt updates cannot interleave.
func (r *Repository) WithSerializableTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, newPgTx(tx))
	})
}

// GetAccount loads one payable account.
func (r *Repository) GetAccount(ctx context.Context, id string) (PayableAccount, error) {
	return scanAccount(r.pool.QueryRow(ctx, accountSelect+` WHERE id = $1`, id))
}

// ListAccounts returns accounts, optionally filtered by status, oldest due
// date first.
func (r *Repository) ListAccounts(ctx context.Context, status AccountStatus) ([]PayableAccount, error) {
	rows, err := r.pool.Query(ctx, accountSelect+`
		WHERE ($1 = '' OR status = $1)
		ORDER BY due_date ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []PayableAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// GetSupplier loads one supplier.
func (r *Repository) GetSupplier(ctx context.Context, id string) (Supplier, error) {
	return scanSupplier(r.pool.QueryRow(ctx, supplierSelect+` WHERE id = $1`, id))
}

// ListSuppliers returns every supplier ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, supplierSelect+` ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var suppliers []Supplier
	for rows.Next() {
		supplier, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		suppliers = append(suppliers, supplier)
	}
	return suppliers, rows.Err()
}

type pgTx struct {
	tx    pgx.Tx
	items inventory.PgTx
	cash  cashbox.PgTx
}

func newPgTx(tx pgx.Tx) *pgTx {
	return &pgTx{tx: tx, items: inventory.NewPgTx(tx), cash: cashbox.NewPgTx(tx)}
}

const supplierSelect = `SELECT id, name, COALESCE(phone, ''), debt_amount, created_at, updated_at FROM suppliers`

const accountSelect = `SELECT id, supplier_id, COALESCE(invoice_ref, ''), total_amount, paid_amount, due_date, status, created_at, updated_at FROM payable_accounts`

func (t *pgTx) InsertSupplier(ctx context.Context, s Supplier) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO suppliers (id, name, phone, debt_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.Name, s.Phone, s.DebtAmount, s.CreatedAt, s.UpdatedAt)
	return err
}

func (t *pgTx) GetSupplierForUpdate(ctx context.Context, id string) (Supplier, error) {
	return scanSupplier(t.tx.QueryRow(ctx, supplierSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateSupplierDebt(ctx context.Context, s Supplier) error {
	_, err := t.tx.Exec(ctx, `UPDATE suppliers SET debt_amount = $2, updated_at = $3 WHERE id = $1`,
		s.ID, s.DebtAmount, s.UpdatedAt)
	return err
}

func (t *pgTx) InsertAccount(ctx context.Context, a PayableAccount) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO payable_accounts (id, supplier_id, invoice_ref, total_amount, paid_amount, due_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.SupplierID, a.InvoiceRef, a.TotalAmount, a.PaidAmount, a.DueDate, string(a.Status), a.CreatedAt, a.UpdatedAt)
	return err
}

func (t *pgTx) GetAccountForUpdate(ctx context.Context, id string) (PayableAccount, error) {
	return scanAccount(t.tx.QueryRow(ctx, accountSelect+` WHERE id = $1 FOR UPDATE`, id))
}

func (t *pgTx) UpdateAccount(ctx context.Context, a PayableAccount) error {
	_, err := t.tx.Exec(ctx, `UPDATE payable_accounts SET paid_amount = $2, status = $3, updated_at = $4 WHERE id = $1`,
		a.ID, a.PaidAmount, string(a.Status), a.UpdatedAt)
	return err
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

func scanSupplier(row pgx.Row) (Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.Phone, &s.DebtAmount, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, ErrSupplierNotFound
	}
	return s, err
}

func scanAccount(row pgx.Row) (PayableAccount, error) {
	var a PayableAccount
	var status string
	err := row.Scan(&a.ID, &a.SupplierID, &a.InvoiceRef, &a.TotalAmount, &a.PaidAmount, &a.DueDate, &status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return PayableAccount{}, ErrAccountNotFound
	}
	a.Status = AccountStatus(status)
	return a, err
}
