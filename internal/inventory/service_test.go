package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items map[string]StockItem
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]StockItem)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) GetItem(ctx context.Context, id string) (StockItem, error) {
	item, ok := r.items[id]
	if !ok {
		return StockItem{}, ErrItemNotFound
	}
	return item, nil
}

func (r *memoryRepo) ListItems(ctx context.Context) ([]StockItem, error) {
	var out []StockItem
	for _, item := range r.items {
		out = append(out, item)
	}
	return out, nil
}

func (r *memoryRepo) LowStock(ctx context.Context, threshold float64) ([]StockItem, error) {
	var out []StockItem
	for _, item := range r.items {
		if !item.IsService && item.Quantity <= threshold {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetItemForUpdate(ctx context.Context, id string) (StockItem, error) {
	return r.GetItem(ctx, id)
}

func (r *memoryRepo) UpdateItemStock(ctx context.Context, item StockItem) error {
	r.items[item.ID] = item
	return nil
}

func (r *memoryRepo) InsertItem(ctx context.Context, item StockItem) error {
	r.items[item.ID] = item
	return nil
}

func TestCreateItemZeroesServiceQuantity(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	item, err := svc.CreateItem(context.Background(), CreateItemInput{
		Name:         "Diagnóstico",
		Quantity:     5,
		SellingPrice: 350,
		IsService:    true,
	})
	require.NoError(t, err)
	require.True(t, item.IsService)
	require.InDelta(t, 0.0, item.Quantity, 0.0001)
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := context.Background()

	_, err := svc.CreateItem(ctx, CreateItemInput{Name: ""})
	require.Error(t, err)
	_, err = svc.CreateItem(ctx, CreateItemInput{Name: "Aceite", Quantity: -1})
	require.Error(t, err)
}

func TestAdjustAppliesSignedCorrection(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.items["oil"] = StockItem{ID: "oil", Name: "Aceite 5W30", Quantity: 10}
	ctx := context.Background()

	got, err := svc.Adjust(ctx, AdjustmentInput{ItemID: "oil", Qty: -3, Reason: "merma"})
	require.NoError(t, err)
	require.InDelta(t, 7.0, got.Quantity, 0.0001)

	got, err = svc.Adjust(ctx, AdjustmentInput{ItemID: "oil", Qty: 5, Reason: "conteo físico"})
	require.NoError(t, err)
	require.InDelta(t, 12.0, got.Quantity, 0.0001)

	_, err = svc.Adjust(ctx, AdjustmentInput{ItemID: "oil", Qty: -20, Reason: "merma"})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.InDelta(t, 12.0, repo.items["oil"].Quantity, 0.0001)

	_, err = svc.Adjust(ctx, AdjustmentInput{ItemID: "oil", Qty: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestLowStockExcludesServices(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	repo.items["oil"] = StockItem{ID: "oil", Quantity: 2}
	repo.items["filter"] = StockItem{ID: "filter", Quantity: 30}
	repo.items["diag"] = StockItem{ID: "diag", IsService: true}

	low, err := svc.LowStock(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "oil", low[0].ID)

	_, err = svc.LowStock(context.Background(), -1)
	require.Error(t, err)
}
