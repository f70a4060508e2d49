package fleet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetDriver(ctx context.Context, id string) (Driver, error)
	ListDrivers(ctx context.Context) ([]Driver, error)
	GetVehicle(ctx context.Context, id string) (Vehicle, error)
	ListVehicles(ctx context.Context) ([]Vehicle, error)
	InsertDriver(ctx context.Context, d Driver) error
	InsertVehicle(ctx context.Context, v Vehicle) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns fleet master data.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: func() time.Time { return time.Now().UTC() }}
}

// CreateDriver registers a driver. The accrual start defaults to today so a
// driver added mid-day starts billing at the next midnight.
func (s *Service) CreateDriver(ctx context.Context, input CreateDriverInput) (Driver, error) {
	if input.Name == "" {
		return Driver{}, errors.New("fleet: driver name required")
	}
	if input.AssignedVehicleID != "" {
		if _, err := s.repo.GetVehicle(ctx, input.AssignedVehicleID); err != nil {
			return Driver{}, err
		}
	}
	now := s.now()
	start := input.AccrualStart
	if start.IsZero() {
		start = now
	}
	driver := Driver{
		ID:                uuid.NewString(),
		Name:              input.Name,
		Phone:             input.Phone,
		AssignedVehicleID: input.AssignedVehicleID,
		AccrualStart:      start,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.InsertDriver(ctx, driver); err != nil {
		return Driver{}, err
	}
	s.record(ctx, input.ActorID, "fleet:driver_create", driver.ID, map[string]any{"name": driver.Name})
	return driver, nil
}

// CreateVehicle registers a rentable unit.
func (s *Service) CreateVehicle(ctx context.Context, input CreateVehicleInput) (Vehicle, error) {
	if input.Plate == "" {
		return Vehicle{}, errors.New("fleet: vehicle plate required")
	}
	if input.DailyRentalCost <= 0 {
		return Vehicle{}, errors.New("fleet: daily rental cost must be positive")
	}
	now := s.now()
	vehicle := Vehicle{
		ID:              uuid.NewString(),
		Plate:           input.Plate,
		Description:     input.Description,
		DailyRentalCost: input.DailyRentalCost,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.InsertVehicle(ctx, vehicle); err != nil {
		return Vehicle{}, err
	}
	s.record(ctx, input.ActorID, "fleet:vehicle_create", vehicle.ID, map[string]any{"plate": vehicle.Plate})
	return vehicle, nil
}

// GetDriver loads one driver.
func (s *Service) GetDriver(ctx context.Context, id string) (Driver, error) {
	return s.repo.GetDriver(ctx, id)
}

// ListDrivers returns every driver.
func (s *Service) ListDrivers(ctx context.Context) ([]Driver, error) {
	return s.repo.ListDrivers(ctx)
}

// GetVehicle loads one vehicle.
func (s *Service) GetVehicle(ctx context.Context, id string) (Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

// ListVehicles returns every vehicle.
func (s *Service) ListVehicles(ctx context.Context) ([]Vehicle, error) {
	return s.repo.ListVehicles(ctx)
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "fleet",
		EntityID: entityID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		slog.Warn("fleet audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
