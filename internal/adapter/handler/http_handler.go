package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type HTTPHandler struct {
	log       *slog.Logger
	stock     *service.StockService
	checkout  *service.CheckoutService
	lifecycle *service.LifecycleService
	tracer    trace.Tracer
}

func NewHTTPHandler(log *slog.Logger, stock *service.StockService, checkout *service.CheckoutService, lifecycle *service.LifecycleService) *HTTPHandler {
	return &HTTPHandler{
		log:       log,
		stock:     stock,
		checkout:  checkout,
		lifecycle: lifecycle,
		tracer:    otel.Tracer("checkout-http"),
	}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", h.healthCheck)
	r.Post("/api/stock/reserve", h.reserveStock)
	r.Post("/api/checkout", h.doCheckout)
	r.Post("/api/carts/{cartID}/checkout/begin", h.beginCheckout)
	r.Post("/api/carts/{cartID}/checkout/end", h.endCheckout)
	r.Get("/api/carts/{cartID}/checkout/elapsed", h.checkoutElapsed)
	r.Post("/api/carts/{cartID}/lines/{productID}/status", h.changeLineStatus)
	return r
}

type reserveStockRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutRequest struct {
	RequestID string `json:"request_id"`
	CartID    string `json:"cart_id"`
}

type changeStatusRequest struct {
	Status    string `json:"status"`
	ActorID   string `json:"actor_id"`
	ActorRole string `json:"actor_role"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *HTTPHandler) reserveStock(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ReserveStock")
	defer span.End()

	var req reserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return
	}
	if req.ProductID == "" || req.Quantity <= 0 {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "missing required fields"})
		return
	}

	if err := h.stock.Reserve(ctx, req.ProductID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "stock reserved"})
}

func (h *HTTPHandler) doCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "Checkout")
	defer span.End()

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return
	}
	if req.RequestID == "" || req.CartID == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "missing required fields"})
		return
	}

	if err := h.checkout.Checkout(ctx, req.RequestID, req.CartID); err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "order placed successfully"})
}

func (h *HTTPHandler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "BeginCheckout")
	defer span.End()

	if err := h.checkout.Begin(ctx, chi.URLParam(r, "cartID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "checkout started"})
}

func (h *HTTPHandler) endCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "EndCheckout")
	defer span.End()

	if err := h.checkout.End(ctx, chi.URLParam(r, "cartID")); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "checkout ended"})
}

func (h *HTTPHandler) checkoutElapsed(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CheckoutElapsed")
	defer span.End()

	minutes, err := h.checkout.MinutesSinceStarted(ctx, chi.URLParam(r, "cartID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"minutes": minutes})
}

func (h *HTTPHandler) changeLineStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ChangeLineStatus")
	defer span.End()

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "invalid request body"})
		return
	}
	if req.Status == "" || req.ActorID == "" || req.ActorRole == "" {
		writeJSON(w, http.StatusBadRequest, apiResponse{Message: "missing required fields"})
		return
	}

	actor := domain.Actor{ID: req.ActorID, Role: domain.Role(req.ActorRole)}
	err := h.lifecycle.ChangeLineStatus(ctx,
		chi.URLParam(r, "cartID"), chi.URLParam(r, "productID"),
		domain.LineStatus(req.Status), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "status updated"})
}

func (h *HTTPHandler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "error", err)
	}
	writeJSON(w, status, apiResponse{Message: message})
}

// errorStatus maps the domain error taxonomy onto HTTP statuses. Contention
// and scarcity are ordinary outcomes, not server faults.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "not enough stock"
	case errors.Is(err, domain.ErrAttemptsExceeded):
		return http.StatusServiceUnavailable, "high contention, please try again"
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, "checkout already in progress"
	case errors.Is(err, domain.ErrDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, domain.ErrCartPurchased):
		return http.StatusConflict, "cart already purchased"
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, "cart is empty"
	case errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrCartNotFound),
		errors.Is(err, domain.ErrLineNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, "invalid status transition"
	case errors.Is(err, domain.ErrUnauthorizedTransition):
		return http.StatusForbidden, "transition not authorized"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
