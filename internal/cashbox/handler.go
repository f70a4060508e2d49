package cashbox

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/motriz-erp/motriz-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the drawer ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the cashbox handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers cashbox routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/entries", h.list)
	r.Get("/summary", h.summary)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, entries)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	summary, err := h.service.DrawerSummary(r.Context(), filter)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (ListFilter, bool) {
	var filter ListFilter
	for _, bound := range []struct {
		name string
		dst  *time.Time
	}{
		{"from", &filter.From},
		{"to", &filter.To},
	} {
		raw := r.URL.Query().Get(bound.name)
		if raw == "" {
			continue
		}
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", bound.name+" must be RFC 3339")
			return ListFilter{}, false
		}
		*bound.dst = parsed
	}
	return filter, true
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	if errors.Is(err, errBadWindow) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	h.logger.Error("cashbox handler failure", slog.Any("error", err))
	httpx.RespondError(w, err)
}
