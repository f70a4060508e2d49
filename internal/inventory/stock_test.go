package inventory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConsume(t *testing.T) {
	item := StockItem{ID: "oil", Quantity: 10}

	got, err := Consume(item, 3)
	require.NoError(t, err)
	require.InDelta(t, 7.0, got.Quantity, 0.0001)

	// exact depletion lands on zero
	got, err = Consume(got, 7)
	require.NoError(t, err)
	require.InDelta(t, 0.0, got.Quantity, 0.0001)

	_, err = Consume(got, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
}

func TestConsumeRejectsBadInput(t *testing.T) {
	item := StockItem{ID: "oil", Quantity: 10}

	_, err := Consume(item, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = Consume(item, -2)
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = Consume(StockItem{ID: "diag", IsService: true}, 1)
	require.ErrorIs(t, err, ErrServiceItem)
}

func TestConsumeAbsorbsFloatResidue(t *testing.T) {
	item := StockItem{ID: "hose", Quantity: 0.3}

	// 0.3 − 3×0.1 leaves binary residue, not a stock-out
	for i := 0; i < 3; i++ {
		var err error
		item, err = Consume(item, 0.1)
		require.NoError(t, err)
	}
	require.InDelta(t, 0.0, item.Quantity, 0.0001)
	require.GreaterOrEqual(t, item.Quantity, 0.0)
}

func TestRestoreIsInverseOfConsume(t *testing.T) {
	item := StockItem{ID: "oil", Quantity: 10}

	consumed, err := Consume(item, 4)
	require.NoError(t, err)
	restored, err := Restore(consumed, 4)
	require.NoError(t, err)
	require.InDelta(t, item.Quantity, restored.Quantity, 0.0001)

	_, err = Restore(item, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = Restore(StockItem{IsService: true}, 1)
	require.ErrorIs(t, err, ErrServiceItem)
}

func TestReceiveRefreshesUnitCost(t *testing.T) {
	item := StockItem{ID: "oil", Quantity: 4, UnitCost: 200}

	got, err := Receive(item, 10, 232)
	require.NoError(t, err)
	require.InDelta(t, 14.0, got.Quantity, 0.0001)
	require.InDelta(t, 232.0, got.UnitCost, 0.001)

	// zero cost keeps the last known cost
	got, err = Receive(got, 2, 0)
	require.NoError(t, err)
	require.InDelta(t, 232.0, got.UnitCost, 0.001)

	_, err = Receive(item, -1, 100)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
