package inventory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalogue maintenance and manual stock corrections.
// Sale, service-completion and purchase movements run inside their own
// processors' transactions; this service owns everything else that touches
// stock_items.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// CreateItem registers a new catalogue entry.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (StockItem, error) {
	if input.Name == "" {
		return StockItem{}, errors.New("inventory: name required")
	}
	if input.Quantity < 0 || input.UnitCost < 0 || input.SellingPrice < 0 {
		return StockItem{}, errors.New("inventory: negative values not allowed")
	}
	if input.IsService {
		input.Quantity = 0
	}
	item := StockItem{
		ID:           uuid.NewString(),
		SKU:          input.SKU,
		Name:         input.Name,
		Quantity:     input.Quantity,
		UnitCost:     input.UnitCost,
		SellingPrice: input.SellingPrice,
		IsService:    input.IsService,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.InsertItem(ctx, item)
	})
	if err != nil {
		return StockItem{}, err
	}
	s.record(ctx, input.ActorID, "inventory:create", item.ID, map[string]any{
		"name": item.Name, "qty": item.Quantity, "is_service": item.IsService,
	})
	return item, nil
}

// Adjust applies a manual stock correction. Positive quantities add stock,
// negative quantities remove it subject to the non-negative floor.
func (s *Service) Adjust(ctx context.Context, input AdjustmentInput) (StockItem, error) {
	if input.ItemID == "" {
		return StockItem{}, errors.New("inventory: item id required")
	}
	if input.Qty == 0 {
		return StockItem{}, ErrInvalidQuantity
	}
	var updated StockItem
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItemForUpdate(ctx, input.ItemID)
		if err != nil {
			return err
		}
		if input.Qty > 0 {
			item, err = Restore(item, input.Qty)
		} else {
			item, err = Consume(item, -input.Qty)
		}
		if err != nil {
			return err
		}
		updated = item
		return tx.UpdateItemStock(ctx, item)
	})
	if err != nil {
		return StockItem{}, err
	}
	s.record(ctx, input.ActorID, "inventory:adjust", input.ItemID, map[string]any{
		"qty": input.Qty, "reason": input.Reason, "balance": updated.Quantity,
	})
	return updated, nil
}

// GetItem returns a single item.
func (s *Service) GetItem(ctx context.Context, id string) (StockItem, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems returns the catalogue.
func (s *Service) ListItems(ctx context.Context) ([]StockItem, error) {
	return s.repo.ListItems(ctx)
}

// LowStock lists physical items at or below the threshold.
func (s *Service) LowStock(ctx context.Context, threshold float64) ([]StockItem, error) {
	if threshold < 0 {
		return nil, fmt.Errorf("inventory: threshold must be >= 0")
	}
	return s.repo.LowStock(ctx, threshold)
}

func (s *Service) record(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "stock_item",
		EntityID: entityID,
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		slog.Warn("inventory audit write failed", "action", action, "entity_id", entityID, "err", err)
	}
}
