package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
)

// --- Order Handlers ---

// PlaceOrder records a checkout. Signed-in callers get the order attached to their account.
func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var payload domain.PlaceOrderPayload
	if !decodeJSON(w, r, &payload) {
		return
	}
	if payload.BillingSameAsShipping {
		payload.BillingAddress = nil
	}
	if !h.validateStruct(w, &payload) {
		return
	}

	placed, err := h.deps.Orders.PlaceOrder(r.Context(), auth.UserIDFrom(r.Context()), payload)
	if err != nil {
		respondWithStoreError(w, "PlaceOrder", err, "Failed to create order")
		return
	}
	respondOK(w, http.StatusCreated, "Order placed! Check your email for Tracking ID.", placed)
}

// TrackOrder serves the public tracking view. The tracking id is the only lookup key.
func (h *HTTPHandler) TrackOrder(w http.ResponseWriter, r *http.Request) {
	trackingID := chi.URLParam(r, "trackingId")
	if trackingID == "" {
		respondWithError(w, http.StatusBadRequest, "Tracking ID is required")
		return
	}

	order, err := h.deps.Orders.TrackOrder(r.Context(), trackingID)
	if err != nil {
		respondWithStoreError(w, "TrackOrder", err, "Failed to fetch order")
		return
	}
	respondOK(w, http.StatusOK, "Order fetched successfully", order)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 20, 100)

	orders, totalCount, err := h.deps.Orders.ListOrders(r.Context(), limit, offset)
	if err != nil {
		respondWithStoreError(w, "ListOrders", err, "Failed to retrieve orders")
		return
	}
	respondOK(w, http.StatusOK, "Orders fetched successfully", map[string]interface{}{
		"orders":     orders,
		"pagination": pageInfo(page, limit, totalCount),
	})
}

// --- Cart Handlers ---

// CartInput wraps the client-side cart, stored as sent.
type CartInput struct {
	Cart json.RawMessage `json:"cart"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	cart, err := h.deps.Carts.GetCart(r.Context(), principal.UserID)
	if err != nil {
		respondWithStoreError(w, "GetCart", err, "Failed to fetch cart")
		return
	}
	respondOK(w, http.StatusOK, "Cart fetched successfully", map[string]interface{}{"cart": cart.Items})
}

func (h *HTTPHandler) UpdateCart(w http.ResponseWriter, r *http.Request) {
	var input CartInput
	if !decodeJSON(w, r, &input) {
		return
	}
	trimmed := bytes.TrimSpace(input.Cart)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		respondWithError(w, http.StatusBadRequest, "Invalid cart payload")
		return
	}

	principal, _ := auth.PrincipalFrom(r.Context())
	cart, err := h.deps.Carts.UpsertCart(r.Context(), principal.UserID, trimmed)
	if err != nil {
		respondWithStoreError(w, "UpsertCart", err, "Failed to update cart")
		return
	}
	respondOK(w, http.StatusOK, "Cart updated successfully", map[string]interface{}{"cart": cart.Items})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	if err := h.deps.Carts.ClearCart(r.Context(), principal.UserID); err != nil {
		respondWithStoreError(w, "ClearCart", err, "Failed to clear cart")
		return
	}
	respondOK(w, http.StatusOK, "Cart cleared successfully", nil)
}

// --- Admin Handlers ---

func (h *HTTPHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.Dashboard.DashboardStats(r.Context())
	if err != nil {
		log.Printf("ERROR: Error fetching admin stats: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch admin stats")
		return
	}
	respondOK(w, http.StatusOK, "Admin stats fetched successfully", map[string]interface{}{"stats": stats})
}

func (h *HTTPHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset := pagination(r, 20, 100)

	users, totalCount, err := h.deps.Users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		respondWithStoreError(w, "ListUsers", err, "Failed to retrieve users")
		return
	}
	respondOK(w, http.StatusOK, "Users returned", map[string]interface{}{
		"users":      users,
		"pagination": pageInfo(page, limit, totalCount),
	})
}

func (h *HTTPHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(r, "userId")
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.deps.Users.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithStoreError(w, "GetUserByID", err, "Failed to retrieve user")
		return
	}
	respondOK(w, http.StatusOK, "User returned", map[string]interface{}{"user": user})
}
