package workshop

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
)

type memoryRepo struct {
	items  map[string]inventory.StockItem
	orders map[string]ServiceOrder
	views  map[string]PublicOrderView
	cash   []cashbox.Entry
	folio  int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items:  make(map[string]inventory.StockItem),
		orders: make(map[string]ServiceOrder),
		views:  make(map[string]PublicOrderView),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetOrder(ctx context.Context, id string) (ServiceOrder, error) {
	order, ok := r.orders[id]
	if !ok {
		return ServiceOrder{}, ErrOrderNotFound
	}
	return order, nil
}

func (r *memoryRepo) ListOrders(ctx context.Context, status OrderStatus) ([]ServiceOrder, error) {
	var out []ServiceOrder
	for _, order := range r.orders {
		if status != "" && order.Status != status {
			continue
		}
		out = append(out, order)
	}
	return out, nil
}

func (r *memoryRepo) GetPublicView(ctx context.Context, orderID string) (PublicOrderView, error) {
	view, ok := r.views[orderID]
	if !ok {
		return PublicOrderView{}, ErrViewNotFound
	}
	return view, nil
}

func (tx *memoryTx) InsertOrder(ctx context.Context, order ServiceOrder) error {
	tx.repo.orders[order.ID] = order
	return nil
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, id string) (ServiceOrder, error) {
	return tx.repo.GetOrder(ctx, id)
}

func (tx *memoryTx) UpdateOrderStatus(ctx context.Context, order ServiceOrder) error {
	tx.repo.orders[order.ID] = order
	return nil
}

func (tx *memoryTx) AttachPaymentLegs(ctx context.Context, id string, legs []PaymentLeg) error {
	order := tx.repo.orders[id]
	order.PaymentLegs = legs
	tx.repo.orders[id] = order
	return nil
}

func (tx *memoryTx) UpsertPublicView(ctx context.Context, view PublicOrderView) error {
	tx.repo.views[view.OrderID] = view
	return nil
}

func (tx *memoryTx) NextFolio(ctx context.Context) (int64, error) {
	tx.repo.folio++
	return tx.repo.folio, nil
}

func (tx *memoryTx) GetItemForUpdate(ctx context.Context, id string) (inventory.StockItem, error) {
	item, ok := tx.repo.items[id]
	if !ok {
		return inventory.StockItem{}, inventory.ErrItemNotFound
	}
	return item, nil
}

func (tx *memoryTx) UpdateItemStock(ctx context.Context, item inventory.StockItem) error {
	tx.repo.items[item.ID] = item
	return nil
}

func (tx *memoryTx) InsertCashEntry(ctx context.Context, entry cashbox.Entry) error {
	tx.repo.cash = append(tx.repo.cash, entry)
	return nil
}

func seedOrder(t *testing.T, svc *Service, repo *memoryRepo) ServiceOrder {
	t.Helper()
	repo.items["pads"] = inventory.StockItem{ID: "pads", Name: "Balatas delanteras", Quantity: 8, UnitCost: 250, SellingPrice: 580}
	repo.items["labor"] = inventory.StockItem{ID: "labor", Name: "Mano de obra frenos", SellingPrice: 464, IsService: true}

	order, err := svc.CreateQuote(context.Background(), CreateOrderInput{
		CustomerName: "Laura Méndez",
		VehicleDesc:  "Nissan Versa 2019",
		VehiclePlate: "ABC-123-D",
		Lines: []LineInput{
			{ItemID: "pads", Quantity: 1},
			{ItemID: "labor", Quantity: 1},
		},
		ActorID: "advisor-1",
	})
	require.NoError(t, err)
	require.Equal(t, StatusQuote, order.Status)
	return order
}

func advance(t *testing.T, svc *Service, orderID string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.Schedule(ctx, orderID, "advisor-1")
	require.NoError(t, err)
	_, err = svc.Receive(ctx, orderID, "advisor-1")
	require.NoError(t, err)
}

func TestCompleteServiceConsumesSuppliesAndRecordsCash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	order := seedOrder(t, svc, repo)
	advance(t, svc, order.ID)
	ctx := context.Background()

	delivered, err := svc.CompleteService(ctx, order.ID, PaymentDetails{
		Legs: []PaymentLeg{
			{Method: MethodCash, Amount: 500},
			{Method: MethodCard, Amount: 544, Reference: "FOLIO-22"},
		},
	}, "advisor-1")
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, delivered.Status)
	require.NotNil(t, delivered.DeliveredAt)

	// only the physical supply is consumed
	require.InDelta(t, 7.0, repo.items["pads"].Quantity, 0.0001)
	require.InDelta(t, 0.0, repo.items["labor"].Quantity, 0.0001)

	// one drawer entry for the cash leg only
	require.Len(t, repo.cash, 1)
	require.Equal(t, cashbox.DirectionIn, repo.cash[0].Direction)
	require.InDelta(t, 500.0, repo.cash[0].Amount, 0.001)
	require.Equal(t, order.ID, repo.cash[0].RelatedID)
}

func TestCompleteServiceRejectsRepeatDelivery(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	order := seedOrder(t, svc, repo)
	advance(t, svc, order.ID)
	ctx := context.Background()

	legs := PaymentDetails{Legs: []PaymentLeg{{Method: MethodCash, Amount: 1044}}}
	_, err := svc.CompleteService(ctx, order.ID, legs, "advisor-1")
	require.NoError(t, err)

	_, err = svc.CompleteService(ctx, order.ID, legs, "advisor-1")
	require.ErrorIs(t, err, ErrAlreadyDelivered)
	// no double consumption
	require.InDelta(t, 7.0, repo.items["pads"].Quantity, 0.0001)
	require.Len(t, repo.cash, 1)
}

func TestCompleteServiceRequiresInWorkshop(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	order := seedOrder(t, svc, repo)

	_, err := svc.CompleteService(context.Background(), order.ID, PaymentDetails{
		Legs: []PaymentLeg{{Method: MethodCash, Amount: 1044}},
	}, "advisor-1")
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.InDelta(t, 8.0, repo.items["pads"].Quantity, 0.0001)
}

func TestCompleteServicePaymentMustCoverTotal(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	order := seedOrder(t, svc, repo)
	advance(t, svc, order.ID)

	_, err := svc.CompleteService(context.Background(), order.ID, PaymentDetails{
		Legs: []PaymentLeg{{Method: MethodCash, Amount: 200}},
	}, "advisor-1")
	require.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestCompleteServiceInsufficientSupplies(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	repo.items["coolant"] = inventory.StockItem{ID: "coolant", Name: "Anticongelante", Quantity: 1, SellingPrice: 290}

	order, err := svc.CreateQuote(context.Background(), CreateOrderInput{
		CustomerName: "Luis Rea",
		Lines:        []LineInput{{ItemID: "coolant", Quantity: 3}},
	})
	require.NoError(t, err)
	advance(t, svc, order.ID)

	_, err = svc.CompleteService(context.Background(), order.ID, PaymentDetails{
		Legs: []PaymentLeg{{Method: MethodCash, Amount: 870}},
	}, "advisor-1")
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestStatusMachine(t *testing.T) {
	require.True(t, CanTransition(StatusQuote, StatusScheduled))
	require.True(t, CanTransition(StatusScheduled, StatusInWorkshop))
	require.True(t, CanTransition(StatusInWorkshop, StatusDelivered))
	require.True(t, CanTransition(StatusQuote, StatusCancelled))
	require.True(t, CanTransition(StatusInWorkshop, StatusCancelled))

	require.False(t, CanTransition(StatusQuote, StatusDelivered))
	require.False(t, CanTransition(StatusDelivered, StatusCancelled))
	require.False(t, CanTransition(StatusCancelled, StatusScheduled))
	require.False(t, CanTransition(StatusDelivered, StatusQuote))
}

func TestCancelOrderIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	order := seedOrder(t, svc, repo)
	ctx := context.Background()

	require.NoError(t, svc.CancelOrder(ctx, order.ID, "cliente no volvió", "advisor-1"))
	require.NoError(t, svc.CancelOrder(ctx, order.ID, "cliente no volvió", "advisor-1"))

	got, err := svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	// quotes consumed nothing, so stock is untouched
	require.InDelta(t, 8.0, repo.items["pads"].Quantity, 0.0001)
}

func TestCancelOrderRefreshesCachedView(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newMemoryRepo()
	svc := NewService(repo, nil, NewViewCache(client, 24*time.Hour))
	order := seedOrder(t, svc, repo)
	ctx := context.Background()

	// Warm the cache while the order is still a quote.
	view, err := svc.PublicView(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, string(StatusQuote), view.Status)

	require.NoError(t, svc.CancelOrder(ctx, order.ID, "cliente no volvió", "advisor-1"))

	view, err = svc.PublicView(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, string(StatusCancelled), view.Status)
	require.Equal(t, int64(2), view.Version)
}

func TestPublicViewProjectedOnEveryTransition(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	order := seedOrder(t, svc, repo)
	ctx := context.Background()

	view, err := svc.PublicView(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, string(StatusQuote), view.Status)
	require.Equal(t, int64(1), view.Version)

	advance(t, svc, order.ID)
	_, err = svc.CompleteService(ctx, order.ID, PaymentDetails{
		Legs: []PaymentLeg{{Method: MethodTransfer, Amount: 1044, Reference: "SPEI-9"}},
	}, "advisor-1")
	require.NoError(t, err)

	view, err = svc.PublicView(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, string(StatusDelivered), view.Status)
	require.Equal(t, int64(4), view.Version)
	require.NotEmpty(t, view.DeliveredAt)
	require.Equal(t, "Laura Méndez", view.CustomerName)
}
