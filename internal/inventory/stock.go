package inventory

// qtyEpsilon absorbs float residue when quantities approach zero.
const qtyEpsilon = 1e-4

// Consume subtracts qty from a physical item's on-hand quantity. The caller
// holds a row lock on the item; the conditional check here, committed in the
// same transaction, is what closes the concurrent over-sell window.
func Consume(item StockItem, qty float64) (StockItem, error) {
	if item.IsService {
		return item, ErrServiceItem
	}
	if qty <= 0 {
		return item, ErrInvalidQuantity
	}
	newQty := item.Quantity - qty
	if newQty < -qtyEpsilon {
		return item, ErrInsufficientStock
	}
	if newQty < 0 {
		newQty = 0
	}
	item.Quantity = newQty
	return item, nil
}

// Restore adds back a previously consumed quantity, the compensating inverse
// of Consume.
func Restore(item StockItem, qty float64) (StockItem, error) {
	if item.IsService {
		return item, ErrServiceItem
	}
	if qty <= 0 {
		return item, ErrInvalidQuantity
	}
	item.Quantity += qty
	return item, nil
}

// Receive adds purchased quantity and refreshes the unit cost to the latest
// invoice cost.
func Receive(item StockItem, qty, unitCost float64) (StockItem, error) {
	if item.IsService {
		return item, ErrServiceItem
	}
	if qty <= 0 {
		return item, ErrInvalidQuantity
	}
	item.Quantity += qty
	if unitCost > 0 {
		item.UnitCost = unitCost
	}
	return item, nil
}
