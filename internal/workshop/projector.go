package workshop

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProjectPublicView builds the customer-facing read model from the
// authoritative order. Denormalization happens here and only here; the write
// path never scatters display fields by hand.
func ProjectPublicView(order ServiceOrder) PublicOrderView {
	view := PublicOrderView{
		OrderID:      order.ID,
		Folio:        order.Folio,
		Status:       string(order.Status),
		CustomerName: order.CustomerName,
		VehicleDesc:  order.VehicleDesc,
		VehiclePlate: order.VehiclePlate,
		Total:        order.Total,
		Version:      order.ViewVersion,
		UpdatedAt:    order.UpdatedAt,
	}
	if order.DeliveredAt != nil {
		view.DeliveredAt = order.DeliveredAt.Format(time.RFC3339)
	}
	return view
}

// ViewCache keeps public projections in Redis so customer-status lookups
// never hit the primary store.
type ViewCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewViewCache constructs the cache.
func NewViewCache(client *redis.Client, ttl time.Duration) *ViewCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ViewCache{client: client, ttl: ttl}
}

func viewKey(orderID string) string {
	return "public_order:" + orderID
}

// Put stores the projection.
func (c *ViewCache) Put(ctx context.Context, view PublicOrderView) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, viewKey(view.OrderID), data, c.ttl).Err()
}

// Get loads the projection. Returns ErrViewNotFound on miss.
func (c *ViewCache) Get(ctx context.Context, orderID string) (PublicOrderView, error) {
	data, err := c.client.Get(ctx, viewKey(orderID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return PublicOrderView{}, ErrViewNotFound
		}
		return PublicOrderView{}, err
	}
	var view PublicOrderView
	if err := json.Unmarshal(data, &view); err != nil {
		return PublicOrderView{}, err
	}
	return view, nil
}
