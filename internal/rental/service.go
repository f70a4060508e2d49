package rental

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/fleet"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListPayments(ctx context.Context, driverID string) ([]RentalPayment, error)
	ListManualDebts(ctx context.Context, driverID string) ([]ManualDebtEntry, error)
}

// TxRepository exposes the writes a payment capture needs inside one
// transaction.
type TxRepository interface {
	InsertPayment(ctx context.Context, p RentalPayment) error
	InsertManualDebt(ctx context.Context, m ManualDebtEntry) error
	InsertCashEntry(ctx context.Context, entry cashbox.Entry) error
}

// FleetPort provides driver and vehicle master data.
type FleetPort interface {
	GetDriver(ctx context.Context, id string) (fleet.Driver, error)
	GetVehicle(ctx context.Context, id string) (fleet.Vehicle, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

const relatedTypeRental = "rental_payment"

// Service captures rental payments and manual charges and serves statements.
// Balances are never stored; every statement recomputes from full history so
// there is no snapshot to drift.
type Service struct {
	repo  RepositoryPort
	fleet FleetPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, fleetPort FleetPort, audit AuditPort) *Service {
	return &Service{repo: repo, fleet: fleetPort, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// AddRentalPayment persists a payment with the vehicle plate snapshotted and
// DaysCovered derived for display. Cash payments also land in the drawer, in
// the same transaction.
func (s *Service) AddRentalPayment(ctx context.Context, input PaymentInput) (RentalPayment, error) {
	if input.Amount <= 0 {
		return RentalPayment{}, ErrInvalidAmount
	}
	switch input.Method {
	case MethodCash, MethodTransfer:
	default:
		return RentalPayment{}, fmt.Errorf("rental: unknown payment method %q", input.Method)
	}

	driver, err := s.fleet.GetDriver(ctx, input.DriverID)
	if err != nil {
		return RentalPayment{}, err
	}
	if driver.AssignedVehicleID == "" {
		return RentalPayment{}, fleet.ErrNoVehicle
	}
	vehicle, err := s.fleet.GetVehicle(ctx, driver.AssignedVehicleID)
	if err != nil {
		return RentalPayment{}, err
	}

	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = s.now()
	}
	payment := RentalPayment{
		ID:           uuid.NewString(),
		DriverID:     driver.ID,
		VehiclePlate: vehicle.Plate,
		PaidAt:       paidAt,
		Amount:       input.Amount,
		Method:       input.Method,
		Note:         input.Note,
		DaysCovered:  input.Amount / vehicle.DailyRentalCost,
		CreatedBy:    input.ActorID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertPayment(ctx, payment); err != nil {
			return err
		}
		if input.Method != MethodCash {
			return nil
		}
		entry := cashbox.Entry{
			ID:          uuid.NewString(),
			OccurredAt:  paidAt,
			Direction:   cashbox.DirectionIn,
			Amount:      input.Amount,
			Concept:     fmt.Sprintf("Renta %s, %s", vehicle.Plate, driver.Name),
			RelatedType: relatedTypeRental,
			RelatedID:   payment.ID,
			ActorID:     input.ActorID,
		}
		return tx.InsertCashEntry(ctx, entry)
	})
	if err != nil {
		return RentalPayment{}, err
	}
	s.record(ctx, input.ActorID, "rental:payment", payment.ID, map[string]any{
		"driver_id": driver.ID, "amount": input.Amount, "method": string(input.Method),
	})
	return payment, nil
}

// AddManualDebt charges an ad-hoc amount to a driver's account.
func (s *Service) AddManualDebt(ctx context.Context, input ManualDebtInput) (ManualDebtEntry, error) {
	if input.Amount <= 0 {
		return ManualDebtEntry{}, ErrInvalidAmount
	}
	if input.Reason == "" {
		return ManualDebtEntry{}, ErrReasonNeeded
	}
	if _, err := s.fleet.GetDriver(ctx, input.DriverID); err != nil {
		return ManualDebtEntry{}, err
	}

	entry := ManualDebtEntry{
		ID:        uuid.NewString(),
		DriverID:  input.DriverID,
		Amount:    input.Amount,
		Reason:    input.Reason,
		CreatedBy: input.ActorID,
		CreatedAt: s.now(),
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertManualDebt(ctx, entry)
	})
	if err != nil {
		return ManualDebtEntry{}, err
	}
	s.record(ctx, input.ActorID, "rental:manual_debt", entry.ID, map[string]any{
		"driver_id": input.DriverID, "amount": input.Amount, "reason": input.Reason,
	})
	return entry, nil
}

// DriverStatement recomputes a driver's balance from full history and returns
// it with the underlying movements.
func (s *Service) DriverStatement(ctx context.Context, driverID string) (Statement, error) {
	driver, err := s.fleet.GetDriver(ctx, driverID)
	if err != nil {
		return Statement{}, err
	}
	if driver.AssignedVehicleID == "" {
		return Statement{}, fleet.ErrNoVehicle
	}
	vehicle, err := s.fleet.GetVehicle(ctx, driver.AssignedVehicleID)
	if err != nil {
		return Statement{}, err
	}
	payments, err := s.repo.ListPayments(ctx, driverID)
	if err != nil {
		return Statement{}, err
	}
	manualDebts, err := s.repo.ListManualDebts(ctx, driverID)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		Balance:     CalculateDriverDebt(driver, vehicle, payments, manualDebts, s.now()),
		Payments:    payments,
		ManualDebts: manualDebts,
	}, nil
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "rental",
		EntityID: entityID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		slog.Warn("rental audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
