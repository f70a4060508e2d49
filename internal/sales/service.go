package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id string) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
}

// TxRepository exposes every write the sale flows need inside one
// transaction. Stock and cash operations ride the same transaction as the
// sale rows so a failure anywhere leaves no partial writes.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) error
	GetSaleForUpdate(ctx context.Context, id string) (Sale, error)
	MarkCancelled(ctx context.Context, id, reason string, at time.Time) error
	ReplacePaymentLegs(ctx context.Context, id string, legs []PaymentLeg) error
	DeleteSale(ctx context.Context, id string) error
	NextFolio(ctx context.Context) (int64, error)

	GetItemForUpdate(ctx context.Context, id string) (inventory.StockItem, error)
	UpdateItemStock(ctx context.Context, item inventory.StockItem) error

	InsertCashEntry(ctx context.Context, entry cashbox.Entry) error
	DeleteCashEntriesByRelated(ctx context.Context, relatedType, relatedID string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against replayed registrations.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// relatedTypeSale tags cash entries originated by sales.
const relatedTypeSale = "sale"

// Service registers, cancels and hard-deletes point-of-sale sales.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency IdempotencyPort
	now         func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem IdempotencyPort) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// RegisterSale persists a completed sale, decrements physical stock and
// appends one drawer entry per cash leg, all in one transaction.
func (s *Service) RegisterSale(ctx context.Context, input RegisterSaleInput) (Sale, error) {
	if len(input.Lines) == 0 {
		return Sale{}, ErrEmptyCart
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return Sale{}, inventory.ErrInvalidQuantity
		}
	}
	for _, leg := range input.PaymentLegs {
		if !ValidMethod(leg.Method) {
			return Sale{}, fmt.Errorf("sales: unknown payment method %q", leg.Method)
		}
		if leg.Amount <= 0 {
			return Sale{}, errors.New("sales: payment leg amount must be positive")
		}
	}

	saleID := input.SaleID
	if saleID == "" {
		saleID = uuid.NewString()
	}

	insertedKey := false
	idemKey := "sale:" + saleID
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "sales"); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return Sale{}, ErrDuplicateSale
			}
			return Sale{}, err
		}
		insertedKey = true
	}

	now := s.now()
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		folio, err := tx.NextFolio(ctx)
		if err != nil {
			return err
		}

		var lines []SaleLine
		var total float64
		for _, in := range input.Lines {
			item, err := tx.GetItemForUpdate(ctx, in.ItemID)
			if err != nil {
				return err
			}
			price := in.UnitPrice
			if price <= 0 {
				price = item.SellingPrice
			}
			line := SaleLine{
				ItemID:    item.ID,
				Name:      item.Name,
				Quantity:  in.Quantity,
				UnitPrice: price,
				Total:     price * in.Quantity,
				IsService: item.IsService,
			}
			if !item.IsService {
				updated, err := inventory.Consume(item, in.Quantity)
				if err != nil {
					return err
				}
				if err := tx.UpdateItemStock(ctx, updated); err != nil {
					return err
				}
			}
			lines = append(lines, line)
			total += line.Total
		}

		var legTotal float64
		for _, leg := range input.PaymentLegs {
			legTotal += leg.Amount
		}
		if !nearlyEqual(legTotal, total) {
			return ErrPaymentMismatch
		}

		subtotal, tax := ExtractVAT(total)
		legs := make([]PaymentLeg, 0, len(input.PaymentLegs))
		for _, leg := range input.PaymentLegs {
			legs = append(legs, PaymentLeg{Method: leg.Method, Amount: leg.Amount, Reference: leg.Reference})
		}
		sale = Sale{
			ID:          saleID,
			Folio:       folio,
			Lines:       lines,
			PaymentLegs: legs,
			Subtotal:    subtotal,
			Tax:         tax,
			Total:       total,
			Status:      StatusCompleted,
			CreatedBy:   input.ActorID,
			CreatedAt:   now,
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		return s.insertCashLegs(ctx, tx, saleID, sale.Folio, legs, input.ActorID, now)
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return Sale{}, err
	}

	s.record(ctx, input.ActorID, "sales:register", saleID, map[string]any{
		"folio": sale.Folio, "total": sale.Total, "lines": len(sale.Lines),
	})
	return sale, nil
}

// CancelSale marks a sale cancelled, restores physical stock and removes the
// sale's drawer entries. Cancelling an already-cancelled sale is a no-op.
func (s *Service) CancelSale(ctx context.Context, saleID, reason, actorID string) error {
	if saleID == "" {
		return ErrSaleNotFound
	}
	var cancelled bool
	var folio int64
	var total float64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusCancelled {
			return nil
		}
		if err := tx.MarkCancelled(ctx, saleID, reason, s.now()); err != nil {
			return err
		}
		if err := restoreLines(ctx, tx, sale.Lines); err != nil {
			return err
		}
		if err := tx.DeleteCashEntriesByRelated(ctx, relatedTypeSale, saleID); err != nil {
			return err
		}
		cancelled = true
		folio = sale.Folio
		total = sale.Total
		return nil
	})
	if err != nil {
		return err
	}
	if cancelled {
		s.record(ctx, actorID, "sales:cancel", saleID, map[string]any{
			"folio": folio, "total": total, "reason": reason,
		})
	}
	return nil
}

// DeleteSale permanently removes a sale. If the sale was not already
// cancelled, stock is restored first. Runs as one transaction so a crash can
// never leave stock restored but stale cash rows behind. Deleting a missing
// sale is a no-op.
func (s *Service) DeleteSale(ctx context.Context, saleID, actorID string) error {
	if saleID == "" {
		return ErrSaleNotFound
	}
	var deleted bool
	var folio int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			if errors.Is(err, ErrSaleNotFound) {
				return nil
			}
			return err
		}
		if sale.Status != StatusCancelled {
			if err := restoreLines(ctx, tx, sale.Lines); err != nil {
				return err
			}
		}
		if err := tx.DeleteCashEntriesByRelated(ctx, relatedTypeSale, saleID); err != nil {
			return err
		}
		if err := tx.DeleteSale(ctx, saleID); err != nil {
			return err
		}
		deleted = true
		folio = sale.Folio
		return nil
	})
	if err != nil {
		return err
	}
	if deleted {
		s.record(ctx, actorID, "sales:delete", saleID, map[string]any{
			"folio": folio, "irreversible": true,
		})
	}
	return nil
}

// CorrectPaymentLegs replaces the payment legs on a completed sale and
// re-derives the sale's drawer entries. The new legs must still cover the
// sale total; the total itself never changes.
func (s *Service) CorrectPaymentLegs(ctx context.Context, saleID string, legs []LegInput, actorID string) (Sale, error) {
	if len(legs) == 0 {
		return Sale{}, ErrPaymentMismatch
	}
	var updated Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.Status == StatusCancelled {
			return ErrSaleCancelled
		}
		var legTotal float64
		newLegs := make([]PaymentLeg, 0, len(legs))
		for _, leg := range legs {
			if !ValidMethod(leg.Method) {
				return fmt.Errorf("sales: unknown payment method %q", leg.Method)
			}
			if leg.Amount <= 0 {
				return errors.New("sales: payment leg amount must be positive")
			}
			legTotal += leg.Amount
			newLegs = append(newLegs, PaymentLeg{Method: leg.Method, Amount: leg.Amount, Reference: leg.Reference})
		}
		if !nearlyEqual(legTotal, sale.Total) {
			return ErrPaymentMismatch
		}
		if err := tx.ReplacePaymentLegs(ctx, saleID, newLegs); err != nil {
			return err
		}
		if err := tx.DeleteCashEntriesByRelated(ctx, relatedTypeSale, saleID); err != nil {
			return err
		}
		if err := s.insertCashLegs(ctx, tx, saleID, sale.Folio, newLegs, actorID, s.now()); err != nil {
			return err
		}
		sale.PaymentLegs = newLegs
		updated = sale
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	s.record(ctx, actorID, "sales:correct_payment", saleID, map[string]any{
		"legs": len(legs),
	})
	return updated, nil
}

// GetSale loads a sale with its lines and legs.
func (s *Service) GetSale(ctx context.Context, id string) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns sales matching the filter.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	return s.repo.ListSales(ctx, filter)
}

func (s *Service) insertCashLegs(ctx context.Context, tx TxRepository, saleID string, folio int64, legs []PaymentLeg, actorID string, at time.Time) error {
	for _, leg := range legs {
		if leg.Method != MethodCash {
			continue
		}
		entry := cashbox.Entry{
			ID:          uuid.NewString(),
			OccurredAt:  at,
			Direction:   cashbox.DirectionIn,
			Amount:      leg.Amount,
			Concept:     fmt.Sprintf("Venta #%d", folio),
			RelatedType: relatedTypeSale,
			RelatedID:   saleID,
			ActorID:     actorID,
		}
		if err := tx.InsertCashEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func restoreLines(ctx context.Context, tx TxRepository, lines []SaleLine) error {
	for _, line := range lines {
		if line.IsService {
			continue
		}
		item, err := tx.GetItemForUpdate(ctx, line.ItemID)
		if err != nil {
			// The item may have been removed from the catalogue since the
			// sale; nothing left to restore onto.
			if errors.Is(err, inventory.ErrItemNotFound) {
				continue
			}
			return err
		}
		restored, err := inventory.Restore(item, line.Quantity)
		if err != nil {
			return err
		}
		if err := tx.UpdateItemStock(ctx, restored); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: entityID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		slog.Warn("sales audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
