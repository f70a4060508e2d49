package workshop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/sales"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id string) (ServiceOrder, error)
	ListOrders(ctx context.Context, status OrderStatus) ([]ServiceOrder, error)
	GetPublicView(ctx context.Context, orderID string) (PublicOrderView, error)
}

// TxRepository exposes the writes delivery needs inside one transaction.
type TxRepository interface {
	InsertOrder(ctx context.Context, order ServiceOrder) error
	GetOrderForUpdate(ctx context.Context, id string) (ServiceOrder, error)
	UpdateOrderStatus(ctx context.Context, order ServiceOrder) error
	AttachPaymentLegs(ctx context.Context, id string, legs []PaymentLeg) error
	UpsertPublicView(ctx context.Context, view PublicOrderView) error
	NextFolio(ctx context.Context) (int64, error)

	GetItemForUpdate(ctx context.Context, id string) (inventory.StockItem, error)
	UpdateItemStock(ctx context.Context, item inventory.StockItem) error

	InsertCashEntry(ctx context.Context, entry cashbox.Entry) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ViewCachePort keeps a fast copy of the public projection.
type ViewCachePort interface {
	Put(ctx context.Context, view PublicOrderView) error
	Get(ctx context.Context, orderID string) (PublicOrderView, error)
}

// relatedTypeOrder tags cash entries originated by service orders.
const relatedTypeOrder = "service_order"

// Service drives the service-order state machine. Delivery mirrors the sale
// processor: supply consumption, drawer entries and the public projection all
// commit as one unit of work.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	cache ViewCachePort
	now   func() time.Time

	viewGroup singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, cache ViewCachePort) *Service {
	return &Service{repo: repo, audit: audit, cache: cache, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the clock, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateQuote opens a new order in the pre-committal state. Quotes consume
// nothing.
func (s *Service) CreateQuote(ctx context.Context, input CreateOrderInput) (ServiceOrder, error) {
	if input.CustomerName == "" {
		return ServiceOrder{}, errors.New("workshop: customer name required")
	}
	if len(input.Lines) == 0 {
		return ServiceOrder{}, errors.New("workshop: order needs at least one line")
	}
	now := s.now()
	var order ServiceOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		folio, err := tx.NextFolio(ctx)
		if err != nil {
			return err
		}
		var lines []OrderLine
		var total float64
		for _, in := range input.Lines {
			if in.Quantity <= 0 {
				return inventory.ErrInvalidQuantity
			}
			item, err := tx.GetItemForUpdate(ctx, in.ItemID)
			if err != nil {
				return err
			}
			price := in.UnitPrice
			if price <= 0 {
				price = item.SellingPrice
			}
			line := OrderLine{
				ItemID:    item.ID,
				Name:      item.Name,
				Quantity:  in.Quantity,
				UnitPrice: price,
				Total:     price * in.Quantity,
				IsService: item.IsService,
			}
			lines = append(lines, line)
			total += line.Total
		}
		subtotal, tax := sales.ExtractVAT(total)
		order = ServiceOrder{
			ID:            uuid.NewString(),
			Folio:         folio,
			CustomerName:  input.CustomerName,
			CustomerPhone: input.CustomerPhone,
			VehicleDesc:   input.VehicleDesc,
			VehiclePlate:  input.VehiclePlate,
			Status:        StatusQuote,
			Lines:         lines,
			Subtotal:      subtotal,
			Tax:           tax,
			Total:         total,
			ViewVersion:   1,
			CreatedBy:     input.ActorID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}
		return tx.UpsertPublicView(ctx, ProjectPublicView(order))
	})
	if err != nil {
		return ServiceOrder{}, err
	}
	s.refreshCache(ctx, order)
	s.record(ctx, input.ActorID, "workshop:quote", order.ID, map[string]any{
		"folio": order.Folio, "total": order.Total,
	})
	return order, nil
}

// Schedule moves a quote onto the calendar.
func (s *Service) Schedule(ctx context.Context, orderID, actorID string) (ServiceOrder, error) {
	return s.transition(ctx, orderID, StatusScheduled, "", actorID)
}

// Receive marks the vehicle as in the workshop.
func (s *Service) Receive(ctx context.Context, orderID, actorID string) (ServiceOrder, error) {
	return s.transition(ctx, orderID, StatusInWorkshop, "", actorID)
}

// CancelOrder abandons a non-terminal order. Nothing has been consumed
// before delivery, so no compensation is required. Cancelling twice is a
// no-op.
func (s *Service) CancelOrder(ctx context.Context, orderID, reason, actorID string) error {
	var (
		cancelled bool
		order     ServiceOrder
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status == StatusCancelled {
			return nil
		}
		if !CanTransition(current.Status, StatusCancelled) {
			return ErrInvalidTransition
		}
		current.Status = StatusCancelled
		current.CancelReason = reason
		current.ViewVersion++
		current.UpdatedAt = s.now()
		if err := tx.UpdateOrderStatus(ctx, current); err != nil {
			return err
		}
		if err := tx.UpsertPublicView(ctx, ProjectPublicView(current)); err != nil {
			return err
		}
		cancelled = true
		order = current
		return nil
	})
	if err != nil {
		return err
	}
	if cancelled {
		s.refreshCache(ctx, order)
		s.record(ctx, actorID, "workshop:cancel", orderID, map[string]any{"reason": reason})
	}
	return nil
}

// CompleteService transitions an order to delivered: supplies are consumed,
// one drawer entry is appended per cash leg, payment metadata is attached,
// the delivery timestamp is stamped and the public projection is rewritten,
// all in one transaction.
func (s *Service) CompleteService(ctx context.Context, orderID string, payment PaymentDetails, actorID string) (ServiceOrder, error) {
	if len(payment.Legs) == 0 {
		return ServiceOrder{}, ErrPaymentMismatch
	}
	for _, leg := range payment.Legs {
		if leg.Amount <= 0 {
			return ServiceOrder{}, errors.New("workshop: payment leg amount must be positive")
		}
		switch leg.Method {
		case MethodCash, MethodCard, MethodCardMSI, MethodTransfer:
		default:
			return ServiceOrder{}, fmt.Errorf("workshop: unknown payment method %q", leg.Method)
		}
	}

	now := s.now()
	var order ServiceOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if current.Status == StatusDelivered {
			return ErrAlreadyDelivered
		}
		if !CanTransition(current.Status, StatusDelivered) {
			return ErrInvalidTransition
		}

		var legTotal float64
		for _, leg := range payment.Legs {
			legTotal += leg.Amount
		}
		if math.Abs(legTotal-current.Total) > 0.01 {
			return ErrPaymentMismatch
		}

		for _, line := range current.Lines {
			if line.IsService {
				continue
			}
			item, err := tx.GetItemForUpdate(ctx, line.ItemID)
			if err != nil {
				return err
			}
			updated, err := inventory.Consume(item, line.Quantity)
			if err != nil {
				return err
			}
			if err := tx.UpdateItemStock(ctx, updated); err != nil {
				return err
			}
		}

		current.Status = StatusDelivered
		current.DeliveredAt = &now
		current.PaymentLegs = payment.Legs
		current.ViewVersion++
		current.UpdatedAt = now
		if err := tx.UpdateOrderStatus(ctx, current); err != nil {
			return err
		}
		if err := tx.AttachPaymentLegs(ctx, orderID, payment.Legs); err != nil {
			return err
		}
		for _, leg := range payment.Legs {
			if leg.Method != MethodCash {
				continue
			}
			entry := cashbox.Entry{
				ID:          uuid.NewString(),
				OccurredAt:  now,
				Direction:   cashbox.DirectionIn,
				Amount:      leg.Amount,
				Concept:     fmt.Sprintf("Servicio #%d entregado", current.Folio),
				RelatedType: relatedTypeOrder,
				RelatedID:   orderID,
				ActorID:     actorID,
			}
			if err := tx.InsertCashEntry(ctx, entry); err != nil {
				return err
			}
		}
		if err := tx.UpsertPublicView(ctx, ProjectPublicView(current)); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return ServiceOrder{}, err
	}

	s.refreshCache(ctx, order)
	s.record(ctx, actorID, "workshop:deliver", orderID, map[string]any{
		"folio": order.Folio, "total": order.Total, "note": payment.Note,
	})
	return order, nil
}

// PublicView returns the customer-facing projection, cache first. Cache misses
// for the same order collapse into a single database load.
func (s *Service) PublicView(ctx context.Context, orderID string) (PublicOrderView, error) {
	if s.cache != nil {
		if view, err := s.cache.Get(ctx, orderID); err == nil {
			return view, nil
		}
	}
	resultCh := s.viewGroup.DoChan(orderID, func() (any, error) {
		view, err := s.repo.GetPublicView(context.WithoutCancel(ctx), orderID)
		if err != nil {
			return PublicOrderView{}, err
		}
		if s.cache != nil {
			_ = s.cache.Put(context.WithoutCancel(ctx), view)
		}
		return view, nil
	})
	select {
	case <-ctx.Done():
		return PublicOrderView{}, ctx.Err()
	case res := <-resultCh:
		if res.Err != nil {
			return PublicOrderView{}, res.Err
		}
		return res.Val.(PublicOrderView), nil
	}
}

// GetOrder loads an order with lines and legs.
func (s *Service) GetOrder(ctx context.Context, id string) (ServiceOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns orders, optionally filtered by status.
func (s *Service) ListOrders(ctx context.Context, status OrderStatus) ([]ServiceOrder, error) {
	return s.repo.ListOrders(ctx, status)
}

func (s *Service) transition(ctx context.Context, orderID string, to OrderStatus, reason, actorID string) (ServiceOrder, error) {
	var order ServiceOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !CanTransition(current.Status, to) {
			return ErrInvalidTransition
		}
		current.Status = to
		current.CancelReason = reason
		current.ViewVersion++
		current.UpdatedAt = s.now()
		if err := tx.UpdateOrderStatus(ctx, current); err != nil {
			return err
		}
		if err := tx.UpsertPublicView(ctx, ProjectPublicView(current)); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return ServiceOrder{}, err
	}
	s.refreshCache(ctx, order)
	s.record(ctx, actorID, "workshop:"+string(to), orderID, map[string]any{"folio": order.Folio})
	return order, nil
}

func (s *Service) refreshCache(ctx context.Context, order ServiceOrder) {
	if s.cache == nil {
		return
	}
	// Best effort: the authoritative copy already committed.
	_ = s.cache.Put(ctx, ProjectPublicView(order))
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "service_order",
		EntityID: entityID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		slog.Warn("workshop audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
