package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motriz-erp/motriz-erp/internal/platform/db"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id string) (StockItem, error)
	ListItems(ctx context.Context) ([]StockItem, error)
	LowStock(ctx context.Context, threshold float64) ([]StockItem, error)
}

// TxRepository exposes the item operations available inside a transaction.
type TxRepository interface {
	GetItemForUpdate(ctx context.Context, id string) (StockItem, error)
	UpdateItemStock(ctx context.Context, item StockItem) error
	InsertItem(ctx context.Context, item StockItem) error
}

// Repository persists stock items in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewPgTx(tx))
	})
}

const itemColumns = `id, sku, name, quantity, unit_cost, selling_price, is_service, created_at, updated_at`

// GetItem loads a single stock item.
func (r *Repository) GetItem(ctx context.Context, id string) (StockItem, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE id = $1`, id)
	return scanItem(row)
}

// ListItems returns the full catalogue ordered by name.
func (r *Repository) ListItems(ctx context.Context) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM stock_items ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// LowStock returns physical items at or below the threshold.
func (r *Repository) LowStock(ctx context.Context, threshold float64) ([]StockItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE NOT is_service AND quantity <= $1 ORDER BY quantity`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectItems(rows)
}

// PgTx gives other modules' repositories access to stock item rows inside
// their own transactions, keeping the SQL owned by this package.
type PgTx struct {
	tx pgx.Tx
}

// NewPgTx wraps a live transaction.
func NewPgTx(tx pgx.Tx) PgTx {
	return PgTx{tx: tx}
}

// GetItemForUpdate locks and loads an item row.
func (t PgTx) GetItemForUpdate(ctx context.Context, id string) (StockItem, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM stock_items WHERE id = $1 FOR UPDATE`, id)
	return scanItem(row)
}

// UpdateItemStock writes back quantity and unit cost.
func (t PgTx) UpdateItemStock(ctx context.Context, item StockItem) error {
	_, err := t.tx.Exec(ctx, `UPDATE stock_items SET quantity = $2, unit_cost = $3, updated_at = NOW() WHERE id = $1`, item.ID, item.Quantity, item.UnitCost)
	return err
}

// InsertItem creates a catalogue row.
func (t PgTx) InsertItem(ctx context.Context, item StockItem) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO stock_items (id, sku, name, quantity, unit_cost, selling_price, is_service, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
		item.ID, item.SKU, item.Name, item.Quantity, item.UnitCost, item.SellingPrice, item.IsService)
	return err
}

func scanItem(row pgx.Row) (StockItem, error) {
	var item StockItem
	err := row.Scan(&item.ID, &item.SKU, &item.Name, &item.Quantity, &item.UnitCost, &item.SellingPrice, &item.IsService, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockItem{}, ErrItemNotFound
		}
		return StockItem{}, err
	}
	return item, nil
}

func collectItems(rows pgx.Rows) ([]StockItem, error) {
	var items []StockItem
	for rows.Next() {
		var item StockItem
		if err := rows.Scan(&item.ID, &item.SKU, &item.Name, &item.Quantity, &item.UnitCost, &item.SellingPrice, &item.IsService, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
