package orders

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/storefront-labs/order-service/internal/domain"
)

// Handler is the HTTP boundary: it translates requests into service and
// store calls and outcomes into status codes.
type Handler struct {
	service *Service
	store   OrderStore
	logger  *slog.Logger
}

func NewHandler(service *Service, store OrderStore, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		store:   store,
		logger:  logger,
	}
}

func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	var order *domain.Order
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		// An empty body is a missing order, not a malformed one.
		if !errors.Is(err, io.EOF) {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		order = nil
	}

	placed, err := h.service.PlaceOrder(r.Context(), order)
	if err != nil {
		h.writePlacementError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, placed)
}

func (h *Handler) writePlacementError(w http.ResponseWriter, err error) {
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		body := map[string]any{"error": rejection.Reason}
		if rejection.AvailableQuantity != nil {
			body["availableQuantity"] = *rejection.AvailableQuantity
		}
		h.writeJSON(w, http.StatusBadRequest, body)
		return
	}

	var unavailable *domain.UnavailableError
	if errors.As(err, &unavailable) {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":     unavailable.Message,
			"reason":    unavailable.Service + " is currently unavailable",
			"timestamp": unavailable.Timestamp.UnixMilli(),
			"orderInfo": map[string]any{
				"skuCode":  unavailable.SkuCode,
				"quantity": unavailable.Quantity,
				"email":    unavailable.Email,
			},
			"suggestion": unavailable.Suggestion,
		})
		return
	}

	h.logger.Error("failed to place order", "error", err)
	h.writeError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	var (
		orders []domain.Order
		err    error
	)

	if email := r.URL.Query().Get("email"); email != "" {
		orders, err = h.store.ListByEmail(r.Context(), email)
	} else {
		orders, err = h.store.List(r.Context())
	}
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found for id: "+id)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleGetByNumber(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.PathValue("orderNumber")
	if orderNumber == "" {
		h.writeError(w, http.StatusBadRequest, "order number is required")
		return
	}

	order, err := h.store.GetByOrderNumber(r.Context(), orderNumber)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "order_number", orderNumber)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found for order number: "+orderNumber)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateOrderRequest struct {
	OrderNumber *string          `json:"orderNumber"`
	SkuCode     *string          `json:"skuCode"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	Email       *string          `json:"email"`
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Quantity != nil && *req.Quantity <= 0 {
		h.writeError(w, http.StatusBadRequest, "order quantity must be positive")
		return
	}
	if req.Price != nil && req.Price.IsNegative() {
		h.writeError(w, http.StatusBadRequest, "order price must be non-negative")
		return
	}

	order, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order for update", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found for id: "+id)
		return
	}

	if req.OrderNumber != nil {
		order.OrderNumber = *req.OrderNumber
	}
	if req.SkuCode != nil {
		order.SkuCode = *req.SkuCode
	}
	if req.Price != nil {
		order.Price = *req.Price
	}
	if req.Quantity != nil {
		order.Quantity = *req.Quantity
	}
	if req.Email != nil {
		order.Email = *req.Email
	}

	if err := h.store.Update(r.Context(), order); err != nil {
		h.logger.Error("failed to update order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order updated", "order_id", id)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "order id is required")
		return
	}

	exists, err := h.store.ExistsByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to check order existence", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !exists {
		h.writeError(w, http.StatusNotFound, "order not found for id: "+id)
		return
	}

	if err := h.store.DeleteByID(r.Context(), id); err != nil {
		h.logger.Error("failed to delete order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("order deleted", "order_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
