package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"atelier/internal/subscriptions/service"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/httpx"
	"atelier/pkg/logger"
	"atelier/pkg/model"
)

type SubscriptionHandler struct {
	service service.SubscriptionService
	log     *logger.Logger
}

func NewSubscriptionHandler(service service.SubscriptionService, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		service: service,
		log:     log,
	}
}

func (h *SubscriptionHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httpx.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var sub model.Subscription
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, "Subscribe", apperrors.InvalidInput("Invalid request body"))
		return
	}

	if err := h.service.Subscribe(r.Context(), &sub); err != nil {
		h.writeError(w, "Subscribe", err)
		return
	}

	if err := httpx.WriteCreated(w, sub); err != nil {
		h.log.Error("failed to write created response", "handler", "Subscribe", "error", err)
	}
}

func (h *SubscriptionHandler) Verify(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sub, err := h.service.Verify(r.Context(), ps.ByName("token"))
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := httpx.WriteSuccess(w, sub); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "error", err)
	}
}

func (h *SubscriptionHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	sub, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httpx.WriteSuccess(w, sub); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *SubscriptionHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httpx.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}
	limit = httpx.NormalizeLimit(limit)
	offset = httpx.NormalizeOffset(offset)

	subs, total, err := h.service.GetAll(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httpx.WritePaginated(w, subs, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "error", err)
	}
}

func (h *SubscriptionHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.SubscriptionUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.writeError(w, "Update", apperrors.InvalidInput("Invalid request body"))
		return
	}

	sub, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httpx.WriteSuccess(w, sub); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httpx.WriteNoContent(w)
}

func (h *SubscriptionHandler) MonthlyStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.service.MonthlyStatistics(r.Context())
	if err != nil {
		h.writeError(w, "MonthlyStatistics", err)
		return
	}

	if err := httpx.WriteSuccess(w, stats); err != nil {
		h.log.Error("failed to write success response", "handler", "MonthlyStatistics", "error", err)
	}
}
