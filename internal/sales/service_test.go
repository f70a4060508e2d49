package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

type memoryRepo struct {
	items map[string]inventory.StockItem
	sales map[string]Sale
	cash  []cashbox.Entry
	folio int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		items: make(map[string]inventory.StockItem),
		sales: make(map[string]Sale),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetSale(ctx context.Context, id string) (Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return Sale{}, ErrSaleNotFound
	}
	return sale, nil
}

func (r *memoryRepo) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	var out []Sale
	for _, sale := range r.sales {
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		out = append(out, sale)
	}
	return out, nil
}

func (r *memoryRepo) cashEntriesFor(saleID string) []cashbox.Entry {
	var out []cashbox.Entry
	for _, e := range r.cash {
		if e.RelatedType == relatedTypeSale && e.RelatedID == saleID {
			out = append(out, e)
		}
	}
	return out
}

func (tx *memoryTx) InsertSale(ctx context.Context, sale Sale) error {
	tx.repo.sales[sale.ID] = sale
	return nil
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, id string) (Sale, error) {
	return tx.repo.GetSale(ctx, id)
}

func (tx *memoryTx) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	sale := tx.repo.sales[id]
	sale.Status = StatusCancelled
	sale.CancelReason = reason
	sale.CancelledAt = &at
	tx.repo.sales[id] = sale
	return nil
}

func (tx *memoryTx) ReplacePaymentLegs(ctx context.Context, id string, legs []PaymentLeg) error {
	sale := tx.repo.sales[id]
	sale.PaymentLegs = legs
	tx.repo.sales[id] = sale
	return nil
}

func (tx *memoryTx) DeleteSale(ctx context.Context, id string) error {
	delete(tx.repo.sales, id)
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

func (tx *memoryTx) DeleteCashEntriesByRelated(ctx context.Context, relatedType, relatedID string) error {
	var kept []cashbox.Entry
	for _, e := range tx.repo.cash {
		if e.RelatedType == relatedType && e.RelatedID == relatedID {
			continue
		}
		kept = append(kept, e)
	}
	tx.repo.cash = kept
	return nil
}

type memoryIdem struct {
	keys map[string]bool
}

func (m *memoryIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memoryIdem) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func seedItems(repo *memoryRepo) {
	repo.items["oil"] = inventory.StockItem{ID: "oil", Name: "Aceite 5W30", Quantity: 20, UnitCost: 150, SellingPrice: 232}
	repo.items["filter"] = inventory.StockItem{ID: "filter", Name: "Filtro de aceite", Quantity: 10, UnitCost: 30, SellingPrice: 58}
	repo.items["diag"] = inventory.StockItem{ID: "diag", Name: "Diagnóstico", SellingPrice: 350, IsService: true}
}

func TestRegisterSaleVATExtraction(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines: []LineInput{
			{ItemID: "oil", Quantity: 1},
			{ItemID: "filter", Quantity: 1},
		},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 290}},
		ActorID:     "tester",
	})
	require.NoError(t, err)
	require.InDelta(t, 290.0, sale.Total, 0.001)
	require.InDelta(t, 250.0, sale.Subtotal, 0.001)
	require.InDelta(t, 40.0, sale.Tax, 0.001)
	require.InDelta(t, sale.Total, sale.Subtotal+sale.Tax, 1e-9)
}

type failingAudit struct{}

func (failingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	return errors.New("audit store down")
}

func TestRegisterSaleSurvivesAuditFailure(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, failingAudit{}, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "oil", Quantity: 1}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 232}},
		ActorID:     "tester",
	})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, sale.Status)
}

func TestRegisterSaleDecrementsStockAndRecordsCash(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines: []LineInput{
			{ItemID: "oil", Quantity: 2},
			{ItemID: "diag", Quantity: 1},
		},
		PaymentLegs: []LegInput{
			{Method: MethodCash, Amount: 100},
			{Method: MethodCard, Amount: 714, Reference: "AUTH-81"},
		},
		ActorID: "tester",
	})
	require.NoError(t, err)
	require.InDelta(t, 18.0, repo.items["oil"].Quantity, 0.0001)
	// service lines never touch stock
	require.InDelta(t, 0.0, repo.items["diag"].Quantity, 0.0001)

	entries := repo.cashEntriesFor(sale.ID)
	require.Len(t, entries, 1)
	require.Equal(t, cashbox.DirectionIn, entries[0].Direction)
	require.InDelta(t, 100.0, entries[0].Amount, 0.001)
}

func TestRegisterSaleRejectsInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)

	_, err := svc.RegisterSale(context.Background(), RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "filter", Quantity: 11}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 638}},
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	// nothing consumed
	require.InDelta(t, 10.0, repo.items["filter"].Quantity, 0.0001)
}

func TestRegisterSaleRejectsPaymentMismatch(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)

	_, err := svc.RegisterSale(context.Background(), RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "oil", Quantity: 1}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 100}},
	})
	require.ErrorIs(t, err, ErrPaymentMismatch)
}

func TestRegisterSaleDuplicateID(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, &memoryIdem{})
	ctx := context.Background()

	input := RegisterSaleInput{
		SaleID:      "sale-1",
		Lines:       []LineInput{{ItemID: "oil", Quantity: 1}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 232}},
	}
	_, err := svc.RegisterSale(ctx, input)
	require.NoError(t, err)
	_, err = svc.RegisterSale(ctx, input)
	require.ErrorIs(t, err, ErrDuplicateSale)
}

func TestCancelSaleRestoresStockAndDeletesCash(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "oil", Quantity: 3}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 696}},
	})
	require.NoError(t, err)
	require.InDelta(t, 17.0, repo.items["oil"].Quantity, 0.0001)

	require.NoError(t, svc.CancelSale(ctx, sale.ID, "cliente se arrepintió", "tester"))
	require.InDelta(t, 20.0, repo.items["oil"].Quantity, 0.0001)
	require.Empty(t, repo.cashEntriesFor(sale.ID))

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, got.Status)
	require.Equal(t, "cliente se arrepintió", got.CancelReason)
}

func TestCancelSaleIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "oil", Quantity: 5}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 1160}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.CancelSale(ctx, sale.ID, "error de captura", "tester"))
	require.NoError(t, svc.CancelSale(ctx, sale.ID, "error de captura", "tester"))
	// no double restoration
	require.InDelta(t, 20.0, repo.items["oil"].Quantity, 0.0001)
}

func TestDeleteSaleRestoresStockOnce(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "filter", Quantity: 4}},
		PaymentLegs: []LegInput{{Method: MethodCash, Amount: 232}},
	})
	require.NoError(t, err)
	require.InDelta(t, 6.0, repo.items["filter"].Quantity, 0.0001)

	require.NoError(t, svc.DeleteSale(ctx, sale.ID, "tester"))
	require.InDelta(t, 10.0, repo.items["filter"].Quantity, 0.0001)
	require.Empty(t, repo.cashEntriesFor(sale.ID))
	_, err = svc.GetSale(ctx, sale.ID)
	require.ErrorIs(t, err, ErrSaleNotFound)

	// deleting again is a no-op
	require.NoError(t, svc.DeleteSale(ctx, sale.ID, "tester"))
	require.InDelta(t, 10.0, repo.items["filter"].Quantity, 0.0001)
}

func TestDeleteCancelledSaleDoesNotDoubleRestore(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "filter", Quantity: 2}},
		PaymentLegs: []LegInput{{Method: MethodTransfer, Amount: 116}},
	})
	require.NoError(t, err)
	require.NoError(t, svc.CancelSale(ctx, sale.ID, "duplicada", "tester"))
	require.InDelta(t, 10.0, repo.items["filter"].Quantity, 0.0001)

	require.NoError(t, svc.DeleteSale(ctx, sale.ID, "tester"))
	require.InDelta(t, 10.0, repo.items["filter"].Quantity, 0.0001)
}

func TestCorrectPaymentLegsRederivesCash(t *testing.T) {
	repo := newMemoryRepo()
	seedItems(repo)
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	sale, err := svc.RegisterSale(ctx, RegisterSaleInput{
		Lines:       []LineInput{{ItemID: "oil", Quantity: 1}, {ItemID: "filter", Quantity: 1}},
		PaymentLegs: []LegInput{{Method: MethodCard, Amount: 290}},
	})
	require.NoError(t, err)
	require.Empty(t, repo.cashEntriesFor(sale.ID))

	updated, err := svc.CorrectPaymentLegs(ctx, sale.ID, []LegInput{
		{Method: MethodCash, Amount: 100},
		{Method: MethodCard, Amount: 190},
	}, "tester")
	require.NoError(t, err)
	require.Len(t, updated.PaymentLegs, 2)

	entries := repo.cashEntriesFor(sale.ID)
	require.Len(t, entries, 1)
	require.InDelta(t, 100.0, entries[0].Amount, 0.001)

	// legs must still cover the total
	_, err = svc.CorrectPaymentLegs(ctx, sale.ID, []LegInput{{Method: MethodCash, Amount: 50}}, "tester")
	require.ErrorIs(t, err, ErrPaymentMismatch)
}
