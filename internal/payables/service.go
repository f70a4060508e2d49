package payables

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service. Settlements run
// under a serializable transaction; everything else under the default level.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	WithSerializableTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetAccount(ctx context.Context, id string) (PayableAccount, error)
	ListAccounts(ctx context.Context, status AccountStatus) ([]PayableAccount, error)
	GetSupplier(ctx context.Context, id string) (Supplier, error)
	ListSuppliers(ctx context.Context) ([]Supplier, error)
}

// TxRepository exposes the writes the payable manager needs inside one
// transaction.
type TxRepository interface {
	InsertSupplier(ctx context.Context, supplier Supplier) error
	GetSupplierForUpdate(ctx context.Context, id string) (Supplier, error)
	UpdateSupplierDebt(ctx context.Context, supplier Supplier) error

	InsertAccount(ctx context.Context, account PayableAccount) error
	GetAccountForUpdate(ctx context.Context, id string) (PayableAccount, error)
	UpdateAccount(ctx context.Context, account PayableAccount) error

	GetItemForUpdate(ctx context.Context, id string) (inventory.StockItem, error)
	UpdateItemStock(ctx context.Context, item inventory.StockItem) error

	InsertCashEntry(ctx context.Context, entry cashbox.Entry) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const relatedTypePurchase = "purchase"
const relatedTypePayable = "payable"

// Service manages supplier purchases and payable settlement. Account and
// supplier balances mutate in the same transaction so the running debt never
// drifts inside a single unit of work.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateSupplier registers a creditor with zero opening debt.
func (s *Service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (Supplier, error) {
	if input.Name == "" {
		return Supplier{}, fmt.Errorf("payables: supplier name required")
	}
	now := s.now()
	supplier := Supplier{
		ID:        uuid.NewString(),
		Name:      input.Name,
		Phone:     input.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertSupplier(ctx, supplier)
	})
	if err != nil {
		return Supplier{}, err
	}
	s.record(ctx, input.ActorID, "payables:supplier_create", supplier.ID, map[string]any{"name": supplier.Name})
	return supplier, nil
}

// RegisterPurchase receives supplier merchandise. Stock quantities and unit
// costs update per line; credit terms open a PENDING account and grow the
// supplier's running debt, immediate terms pay the total out of the drawer.
// Everything commits as one transaction.
func (s *Service) RegisterPurchase(ctx context.Context, input PurchaseInput) (PayableAccount, error) {
	if len(input.Lines) == 0 {
		return PayableAccount{}, ErrEmptyPurchase
	}
	for _, line := range input.Lines {
		if line.Quantity <= 0 {
			return PayableAccount{}, inventory.ErrInvalidQuantity
		}
		if line.UnitCost < 0 {
			return PayableAccount{}, ErrInvalidAmount
		}
	}
	switch input.Terms {
	case TermsCredit, TermsImmediate:
	default:
		return PayableAccount{}, fmt.Errorf("payables: unknown purchase terms %q", input.Terms)
	}

	now := s.now()
	var account PayableAccount
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		supplier, err := tx.GetSupplierForUpdate(ctx, input.SupplierID)
		if err != nil {
			return err
		}

		var total float64
		for _, line := range input.Lines {
			item, err := tx.GetItemForUpdate(ctx, line.ItemID)
			if err != nil {
				return err
			}
			updated, err := inventory.Receive(item, line.Quantity, line.UnitCost)
			if err != nil {
				return err
			}
			if err := tx.UpdateItemStock(ctx, updated); err != nil {
				return err
			}
			total += line.Quantity * line.UnitCost
		}

		if input.Terms == TermsCredit {
			account = PayableAccount{
				ID:          uuid.NewString(),
				SupplierID:  supplier.ID,
				InvoiceRef:  input.InvoiceRef,
				TotalAmount: total,
				DueDate:     input.DueDate,
				Status:      StatusPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := tx.InsertAccount(ctx, account); err != nil {
				return err
			}
			supplier.DebtAmount += total
			supplier.UpdatedAt = now
			return tx.UpdateSupplierDebt(ctx, supplier)
		}

		entry := cashbox.Entry{
			ID:          uuid.NewString(),
			OccurredAt:  now,
			Direction:   cashbox.DirectionOut,
			Amount:      total,
			Concept:     fmt.Sprintf("Compra a %s, factura %s", supplier.Name, input.InvoiceRef),
			RelatedType: relatedTypePurchase,
			RelatedID:   input.InvoiceRef,
			ActorID:     input.ActorID,
		}
		return tx.InsertCashEntry(ctx, entry)
	})
	if err != nil {
		return PayableAccount{}, err
	}
	s.record(ctx, input.ActorID, "payables:purchase", input.InvoiceRef, map[string]any{
		"supplier_id": input.SupplierID, "terms": string(input.Terms), "lines": len(input.Lines),
	})
	return account, nil
}

// RegisterPayment settles part or all of a payable account. Runs serializable
// across the account and its supplier so concurrent settlements cannot lose
// an update. Over-payment is rejected outright.
func (s *Service) RegisterPayment(ctx context.Context, accountID string, amount float64, method PaymentMethod, note, actorID string) (PayableAccount, error) {
	if amount <= 0 {
		return PayableAccount{}, ErrInvalidAmount
	}
	switch method {
	case MethodCash, MethodCard, MethodTransfer:
	default:
		return PayableAccount{}, fmt.Errorf("payables: unknown payment method %q", method)
	}

	now := s.now()
	var account PayableAccount
	err := s.repo.WithSerializableTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if current.PaidAmount+amount > current.TotalAmount+settleEpsilon {
			return ErrOverPayment
		}

		supplier, err := tx.GetSupplierForUpdate(ctx, current.SupplierID)
		if err != nil {
			return err
		}

		current.PaidAmount += amount
		if current.Remaining() <= settleEpsilon {
			current.Status = StatusPaid
		} else {
			current.Status = StatusPartial
		}
		current.UpdatedAt = now
		if err := tx.UpdateAccount(ctx, current); err != nil {
			return err
		}

		supplier.DebtAmount -= amount
		supplier.UpdatedAt = now
		if err := tx.UpdateSupplierDebt(ctx, supplier); err != nil {
			return err
		}

		if method == MethodCash {
			entry := cashbox.Entry{
				ID:          uuid.NewString(),
				OccurredAt:  now,
				Direction:   cashbox.DirectionOut,
				Amount:      amount,
				Concept:     fmt.Sprintf("Abono a %s, factura %s", supplier.Name, current.InvoiceRef),
				RelatedType: relatedTypePayable,
				RelatedID:   current.ID,
				ActorID:     actorID,
			}
			if err := tx.InsertCashEntry(ctx, entry); err != nil {
				return err
			}
		}
		account = current
		return nil
	})
	if err != nil {
		return PayableAccount{}, err
	}
	s.record(ctx, actorID, "payables:payment", accountID, map[string]any{
		"amount": amount, "method": string(method), "status": string(account.Status), "note": note,
	})
	return account, nil
}

// GetAccount loads one payable account.
func (s *Service) GetAccount(ctx context.Context, id string) (PayableAccount, error) {
	return s.repo.GetAccount(ctx, id)
}

// ListAccounts returns accounts, optionally filtered by status.
func (s *Service) ListAccounts(ctx context.Context, status AccountStatus) ([]PayableAccount, error) {
	return s.repo.ListAccounts(ctx, status)
}

// GetSupplier loads one supplier.
func (s *Service) GetSupplier(ctx context.Context, id string) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// ListSuppliers returns every supplier.
func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "payables",
		EntityID: entityID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		slog.Warn("payables audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
