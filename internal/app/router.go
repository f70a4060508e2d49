package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/motriz-erp/motriz-erp/internal/cashbox"
	"github.com/motriz-erp/motriz-erp/internal/fleet"
	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/payables"
	"github.com/motriz-erp/motriz-erp/internal/rental"
	"github.com/motriz-erp/motriz-erp/internal/sales"
	"github.com/motriz-erp/motriz-erp/internal/workshop"
	"github.com/motriz-erp/motriz-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	SalesHandler     *sales.Handler
	WorkshopHandler  *workshop.Handler
	PayablesHandler  *payables.Handler
	RentalHandler    *rental.Handler
	FleetHandler     *fleet.Handler
	InventoryHandler *inventory.Handler
	CashboxHandler   *cashbox.Handler
	JobHandler       *jobs.Handler
}

// NewRouter constructs the chi.Router with Motriz defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.SalesHandler != nil {
		r.Route("/sales", params.SalesHandler.MountRoutes)
	}
	if params.WorkshopHandler != nil {
		r.Route("/orders", params.WorkshopHandler.MountRoutes)
	}
	if params.PayablesHandler != nil {
		r.Route("/payables", params.PayablesHandler.MountRoutes)
	}
	if params.RentalHandler != nil {
		r.Route("/rental", params.RentalHandler.MountRoutes)
	}
	if params.FleetHandler != nil {
		r.Route("/fleet", params.FleetHandler.MountRoutes)
	}
	if params.InventoryHandler != nil {
		r.Route("/inventory", params.InventoryHandler.MountRoutes)
	}
	if params.CashboxHandler != nil {
		r.Route("/cashbox", params.CashboxHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	return r
}
