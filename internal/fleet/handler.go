package fleet

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/motriz-erp/motriz-erp/internal/platform/httpx"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// Handler wires HTTP endpoints for fleet master data.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the fleet handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers fleet routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/drivers", h.listDrivers)
	r.Post("/drivers", h.createDriver)
	r.Get("/drivers/{id}", h.getDriver)
	r.Get("/vehicles", h.listVehicles)
	r.Post("/vehicles", h.createVehicle)
	r.Get("/vehicles/{id}", h.getVehicle)
}

type createDriverRequest struct {
	Name              string    `json:"name" validate:"required"`
	Phone             string    `json:"phone"`
	AssignedVehicleID string    `json:"assigned_vehicle_id"`
	AccrualStart      time.Time `json:"accrual_start"`
}

type createVehicleRequest struct {
	Plate           string  `json:"plate" validate:"required"`
	Description     string  `json:"description"`
	DailyRentalCost float64 `json:"daily_rental_cost" validate:"gt=0"`
}

func (h *Handler) createDriver(w http.ResponseWriter, r *http.Request) {
	var req createDriverRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	driver, err := h.service.CreateDriver(r.Context(), CreateDriverInput{
		Name:              req.Name,
		Phone:             req.Phone,
		AssignedVehicleID: req.AssignedVehicleID,
		AccrualStart:      req.AccrualStart,
		ActorID:           shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, driver)
}

func (h *Handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var req createVehicleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	vehicle, err := h.service.CreateVehicle(r.Context(), CreateVehicleInput{
		Plate:           req.Plate,
		Description:     req.Description,
		DailyRentalCost: req.DailyRentalCost,
		ActorID:         shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, vehicle)
}

func (h *Handler) getDriver(w http.ResponseWriter, r *http.Request) {
	driver, err := h.service.GetDriver(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, driver)
}

func (h *Handler) listDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.service.ListDrivers(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, drivers)
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	vehicle, err := h.service.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicle)
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListVehicles(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, vehicles)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDriverNotFound), errors.Is(err, ErrVehicleNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error("fleet handler failure", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
