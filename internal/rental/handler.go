package rental

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/motriz-erp/motriz-erp/internal/fleet"
	"github.com/motriz-erp/motriz-erp/internal/platform/httpx"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// Handler wires HTTP endpoints for rental debt.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the rental handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers rental routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/payments", h.addPayment)
	r.Post("/debts", h.addManualDebt)
	r.Get("/drivers/{id}/statement", h.statement)
}

type paymentRequest struct {
	DriverID string    `json:"driver_id" validate:"required"`
	Amount   float64   `json:"amount" validate:"gt=0"`
	Method   string    `json:"method" validate:"required,oneof=CASH TRANSFER"`
	PaidAt   time.Time `json:"paid_at"`
	Note     string    `json:"note"`
}

type manualDebtRequest struct {
	DriverID string  `json:"driver_id" validate:"required"`
	Amount   float64 `json:"amount" validate:"gt=0"`
	Reason   string  `json:"reason" validate:"required"`
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payment, err := h.service.AddRentalPayment(r.Context(), PaymentInput{
		DriverID: req.DriverID,
		Amount:   req.Amount,
		Method:   PaymentMethod(req.Method),
		PaidAt:   req.PaidAt,
		Note:     req.Note,
		ActorID:  shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

func (h *Handler) addManualDebt(w http.ResponseWriter, r *http.Request) {
	var req manualDebtRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.AddManualDebt(r.Context(), ManualDebtInput{
		DriverID: req.DriverID,
		Amount:   req.Amount,
		Reason:   req.Reason,
		ActorID:  shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, entry)
}

func (h *Handler) statement(w http.ResponseWriter, r *http.Request) {
	statement, err := h.service.DriverStatement(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, statement)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fleet.ErrDriverNotFound), errors.Is(err, fleet.ErrVehicleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrReasonNeeded), errors.Is(err, fleet.ErrNoVehicle):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("rental handler failure", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
