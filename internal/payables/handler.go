package payables

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/motriz-erp/motriz-erp/internal/inventory"
	"github.com/motriz-erp/motriz-erp/internal/platform/httpx"
	"github.com/motriz-erp/motriz-erp/internal/shared"
)

// Handler wires HTTP endpoints for suppliers and payable accounts.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the payables handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payables routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Get("/suppliers/{id}", h.getSupplier)
	r.Post("/purchases", h.registerPurchase)
	r.Get("/accounts", h.listAccounts)
	r.Get("/accounts/{id}", h.getAccount)
	r.Post("/accounts/{id}/payments", h.registerPayment)
}

type createSupplierRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone"`
}

type purchaseLineRequest struct {
	ItemID   string  `json:"item_id" validate:"required"`
	Quantity float64 `json:"quantity" validate:"gt=0"`
	UnitCost float64 `json:"unit_cost" validate:"gte=0"`
}

type purchaseRequest struct {
	SupplierID string                `json:"supplier_id" validate:"required"`
	InvoiceRef string                `json:"invoice_ref" validate:"required"`
	Terms      string                `json:"terms" validate:"required,oneof=CREDIT IMMEDIATE"`
	DueDate    time.Time             `json:"due_date"`
	Lines      []purchaseLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type paymentRequest struct {
	Amount float64 `json:"amount" validate:"gt=0"`
	Method string  `json:"method" validate:"required,oneof=CASH CARD TRANSFER"`
	Note   string  `json:"note"`
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	supplier, err := h.service.CreateSupplier(r.Context(), CreateSupplierInput{
		Name:    req.Name,
		Phone:   req.Phone,
		ActorID: shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) registerPurchase(w http.ResponseWriter, r *http.Request) {
	var req purchaseRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := PurchaseInput{
		SupplierID: req.SupplierID,
		InvoiceRef: req.InvoiceRef,
		Terms:      PurchaseTerms(req.Terms),
		DueDate:    req.DueDate,
		ActorID:    shared.ActorFromContext(r.Context()),
	}
	for _, l := range req.Lines {
		input.Lines = append(input.Lines, PurchaseLineInput{ItemID: l.ItemID, Quantity: l.Quantity, UnitCost: l.UnitCost})
	}
	account, err := h.service.RegisterPurchase(r.Context(), input)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.RegisterPayment(r.Context(), chi.URLParam(r, "id"), req.Amount,
		PaymentMethod(req.Method), req.Note, shared.ActorFromContext(r.Context()))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.service.GetSupplier(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, suppliers)
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context(), AccountStatus(r.URL.Query().Get("status")))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSupplierNotFound), errors.Is(err, ErrAccountNotFound), errors.Is(err, inventory.ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrOverPayment):
		httpx.Problem(w, http.StatusConflict, "Over Payment", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrEmptyPurchase), errors.Is(err, inventory.ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case isSerializationFailure(err):
		httpx.Problem(w, http.StatusConflict, "Concurrent Update", "the account was settled concurrently, retry the payment")
	default:
		h.logger.Error("payables handler failure", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

// isSerializationFailure matches SQLSTATE 40001, raised when a Serializable
// settlement transaction aborts because a concurrent payment committed first.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}
