package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"atelier/internal/payments/service"
	apperrors "atelier/pkg/errors"
	"atelier/pkg/httpx"
	"atelier/pkg/logger"
)

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httpx.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req service.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}

	pay, err := h.service.Create(r.Context(), ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httpx.WriteCreated(w, pay); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pay, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Get", err)
		return
	}

	if err := httpx.WriteSuccess(w, pay); err != nil {
		h.log.Error("failed to write success response", "handler", "Get", "error", err)
	}
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

func (h *PaymentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "UpdateStatus", apperrors.InvalidInput("Invalid request body"))
		return
	}

	pay, err := h.service.UpdateStatus(r.Context(), ps.ByName("id"), req.Status)
	if err != nil {
		h.writeError(w, "UpdateStatus", err)
		return
	}

	if err := httpx.WriteSuccess(w, pay); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateStatus", "error", err)
	}
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	pay, err := h.service.Refund(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	if err := httpx.WriteSuccess(w, pay); err != nil {
		h.log.Error("failed to write success response", "handler", "Refund", "error", err)
	}
}
