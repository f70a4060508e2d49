package workshop

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/platform/db"
)

// Repository persists service orders in PostgreSQL.
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

// GetOrder loads an order with lines and payment legs.
func (r *Repository) GetOrder(ctx context.Context, id string) (ServiceOrder, error) {
	return loadOrder(ctx, r.pool, id, false)
}

// ListOrders returns order headers, newest first.
func (r *Repository) ListOrders(ctx context.Context, status OrderStatus) ([]ServiceOrder, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orderColumns+` FROM service_orders
		WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC LIMIT 200`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []ServiceOrder
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetPublicView loads the persisted projection.
func (r *Repository) GetPublicView(ctx context.Context, orderID string) (PublicOrderView, error) {
	var view PublicOrderView
	var deliveredAt *string
	err := r.pool.QueryRow(ctx, `SELECT order_id, folio, status, customer_name, vehicle_desc, vehicle_plate, total, delivered_at, version, updated_at
		FROM public_order_views WHERE order_id = $1`, orderID).
		Scan(&view.OrderID, &view.Folio, &view.Status, &view.CustomerName, &view.VehicleDesc, &view.VehiclePlate, &view.Total, &deliveredAt, &view.Version, &view.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PublicOrderView{}, ErrViewNotFound
		}
		return PublicOrderView{}, err
	}
	if deliveredAt != nil {
		view.DeliveredAt = *deliveredAt
	}
	return view, nil
}

const orderColumns = `id, folio, customer_name, COALESCE(customer_phone, ''), COALESCE(vehicle_desc, ''), COALESCE(vehicle_plate, ''), status, subtotal, tax, total, COALESCE(cancel_reason, ''), delivered_at, view_version, created_by, created_at, updated_at`

type pgTx struct {
	tx    pgx.Tx
	items inventory.PgTx
	cash  cashbox.PgTx
}

var _ TxRepository = (*pgTx)(nil)

func (t *pgTx) InsertOrder(ctx context.Context, order ServiceOrder) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO service_orders (id, folio, customer_name, customer_phone, vehicle_desc, vehicle_plate, status, subtotal, tax, total, view_version, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		order.ID, order.Folio, order.CustomerName, order.CustomerPhone, order.VehicleDesc, order.VehiclePlate,
		order.Status, order.Subtotal, order.Tax, order.Total, order.ViewVersion, order.CreatedBy, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return err
	}
	for _, line := range order.Lines {
		_, err := t.tx.Exec(ctx, `INSERT INTO service_order_lines (order_id, item_id, name, quantity, unit_price, total, is_service) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			order.ID, line.ItemID, line.Name, line.Quantity, line.UnitPrice, line.Total, line.IsService)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) GetOrderForUpdate(ctx context.Context, id string) (ServiceOrder, error) {
	return loadOrder(ctx, t.tx, id, true)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, order ServiceOrder) error {
	_, err := t.tx.Exec(ctx, `UPDATE service_orders SET status = $2, cancel_reason = $3, delivered_at = $4, view_version = $5, updated_at = $6 WHERE id = $1`,
		order.ID, order.Status, order.CancelReason, order.DeliveredAt, order.ViewVersion, order.UpdatedAt)
	return err
}

func (t *pgTx) AttachPaymentLegs(ctx context.Context, id string, legs []PaymentLeg) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM service_order_legs WHERE order_id = $1`, id); err != nil {
		return err
	}
	for _, leg := range legs {
		_, err := t.tx.Exec(ctx, `INSERT INTO service_order_legs (order_id, method, amount, reference) VALUES ($1, $2, $3, $4)`,
			id, leg.Method, leg.Amount, leg.Reference)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) UpsertPublicView(ctx context.Context, view PublicOrderView) error {
	var deliveredAt any
	if view.DeliveredAt != "" {
		deliveredAt = view.DeliveredAt
	}
	_, err := t.tx.Exec(ctx, `INSERT INTO public_order_views (order_id, folio, status, customer_name, vehicle_desc, vehicle_plate, total, delivered_at, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (order_id) DO UPDATE SET status = EXCLUDED.status, total = EXCLUDED.total, delivered_at = EXCLUDED.delivered_at, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		view.OrderID, view.Folio, view.Status, view.CustomerName, view.VehicleDesc, view.VehiclePlate, view.Total, deliveredAt, view.Version, view.UpdatedAt)
	return err
}

func (t *pgTx) NextFolio(ctx context.Context) (int64, error) {
	var folio int64
	err := t.tx.QueryRow(ctx, `SELECT nextval('service_folio_seq')`).Scan(&folio)
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

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadOrder(ctx context.Context, q querier, id string, forUpdate bool) (ServiceOrder, error) {
	head := `SELECT ` + orderColumns + ` FROM service_orders WHERE id = $1`
	if forUpdate {
		head += ` FOR UPDATE`
	}
	order, err := scanOrder(q.QueryRow(ctx, head, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ServiceOrder{}, ErrOrderNotFound
		}
		return ServiceOrder{}, err
	}

	rows, err := q.Query(ctx, `SELECT item_id, name, quantity, unit_price, total, is_service FROM service_order_lines WHERE order_id = $1`, id)
	if err != nil {
		return ServiceOrder{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line OrderLine
		if err := rows.Scan(&line.ItemID, &line.Name, &line.Quantity, &line.UnitPrice, &line.Total, &line.IsService); err != nil {
			return ServiceOrder{}, err
		}
		order.Lines = append(order.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return ServiceOrder{}, err
	}

	legRows, err := q.Query(ctx, `SELECT method, amount, COALESCE(reference, '') FROM service_order_legs WHERE order_id = $1`, id)
	if err != nil {
		return ServiceOrder{}, err
	}
	defer legRows.Close()
	for legRows.Next() {
		var leg PaymentLeg
		if err := legRows.Scan(&leg.Method, &leg.Amount, &leg.Reference); err != nil {
			return ServiceOrder{}, err
		}
		order.PaymentLegs = append(order.PaymentLegs, leg)
	}
	if err := legRows.Err(); err != nil {
		return ServiceOrder{}, err
	}
	return order, nil
}

func scanOrder(row pgx.Row) (ServiceOrder, error) {
	var order ServiceOrder
	err := row.Scan(&order.ID, &order.Folio, &order.CustomerName, &order.CustomerPhone, &order.VehicleDesc, &order.VehiclePlate,
		&order.Status, &order.Subtotal, &order.Tax, &order.Total, &order.CancelReason, &order.DeliveredAt, &order.ViewVersion,
		&order.CreatedBy, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return ServiceOrder{}, err
	}
	return order, nil
}
