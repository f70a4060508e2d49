package cashbox

import (
	"context"
	"errors"
)

// errBadWindow rejects inverted time windows before they reach SQL.
var errBadWindow = errors.New("cashbox: window end precedes start")

// ReaderPort abstracts ledger reads for the service.
type ReaderPort interface {
	ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error)
	DrawerSummary(ctx context.Context, filter ListFilter) (Summary, error)
}

// Service exposes read access to the drawer ledger. All writes belong to the
// sale, service-completion, purchase and rental processors.
type Service struct {
	repo ReaderPort
}

// NewService builds Service.
func NewService(repo ReaderPort) *Service {
	return &Service{repo: repo}
}

// ListEntries returns ledger entries for the window.
func (s *Service) ListEntries(ctx context.Context, filter ListFilter) ([]Entry, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, errBadWindow
	}
	return s.repo.ListEntries(ctx, filter)
}

// DrawerSummary aggregates the drawer over the window.
func (s *Service) DrawerSummary(ctx context.Context, filter ListFilter) (Summary, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return Summary{}, errBadWindow
	}
	return s.repo.DrawerSummary(ctx, filter)
}
