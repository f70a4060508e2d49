package workshop

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestProjectPublicViewDenormalizes(t *testing.T) {
	delivered := time.Date(2026, 3, 12, 17, 30, 0, 0, time.UTC)
	order := ServiceOrder{
		ID:           "ord-1",
		Folio:        42,
		Status:       StatusDelivered,
		CustomerName: "Laura Méndez",
		VehicleDesc:  "Nissan Versa 2019",
		VehiclePlate: "ABC-123-D",
		Total:        1044,
		DeliveredAt:  &delivered,
		ViewVersion:  4,
		UpdatedAt:    delivered,
	}

	view := ProjectPublicView(order)
	require.Equal(t, "ord-1", view.OrderID)
	require.Equal(t, int64(42), view.Folio)
	require.Equal(t, "DELIVERED", view.Status)
	require.Equal(t, "2026-03-12T17:30:00Z", view.DeliveredAt)
	require.Equal(t, int64(4), view.Version)
}

func TestProjectPublicViewOmitsDeliveryBeforeDelivered(t *testing.T) {
	view := ProjectPublicView(ServiceOrder{ID: "ord-2", Status: StatusQuote, ViewVersion: 1})
	require.Empty(t, view.DeliveredAt)
	require.Equal(t, "QUOTE", view.Status)
}

func TestViewCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewViewCache(client, time.Minute)
	ctx := context.Background()

	_, err := cache.Get(ctx, "missing")
	require.ErrorIs(t, err, ErrViewNotFound)

	view := PublicOrderView{
		OrderID:      "ord-3",
		Folio:        7,
		Status:       "IN_WORKSHOP",
		CustomerName: "Luis Rea",
		Total:        870,
		Version:      3,
		UpdatedAt:    time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.Put(ctx, view))

	got, err := cache.Get(ctx, "ord-3")
	require.NoError(t, err)
	require.Equal(t, view, got)

	mr.FastForward(2 * time.Minute)
	_, err = cache.Get(ctx, "ord-3")
	require.ErrorIs(t, err, ErrViewNotFound)
}
