package handler

import (
	"log/slog"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/rl1809/book-exchange/internal/core/domain"
	"github.com/rl1809/book-exchange/internal/core/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type HTTPHandler struct {
	exchanges     *service.ExchangeService
	notifications *service.NotificationService
	logger        *slog.Logger
}

type RequestExchangeHTTPRequest struct {
	OfferedItemID   string `json:"offered_item_id"`
	RequestedItemID string `json:"requested_item_id"`
	RequesterID     string `json:"requester_id"`
	OwnerID         string `json:"owner_id"`
	OwnerEmail      string `json:"owner_email"`
}

type RespondHTTPRequest struct {
	Action      string `json:"action"`
	ResponderID string `json:"responder_id"`
}

type ExchangeHTTPResponse struct {
	ID              string     `json:"id"`
	OfferedItemID   string     `json:"offered_item_id"`
	RequestedItemID string     `json:"requested_item_id"`
	RequesterID     string     `json:"requester_id"`
	OwnerID         string     `json:"owner_id"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	RespondedAt     *time.Time `json:"responded_at,omitempty"`
}

type NotificationHTTPResponse struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	Message       string `json:"message"`
	Link          string `json:"link"`
	RelatedItemID string `json:"related_item_id"`
	CreatedAt     int64  `json:"created_at"`
	IsRead        bool   `json:"is_read"`
}

type StatusHTTPResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ExchangeID string `json:"exchange_id,omitempty"`
}

func NewHTTPHandler(exchanges *service.ExchangeService, notifications *service.NotificationService, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{exchanges: exchanges, notifications: notifications, logger: logger}
}

func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("POST /api/exchanges", h.RequestExchange)
	mux.HandleFunc("GET /api/exchanges/{id}", h.GetExchange)
	mux.HandleFunc("POST /api/exchanges/{id}/respond", h.RespondToExchange)
	mux.HandleFunc("GET /api/users/{id}/exchanges", h.GetExchangesForUser)
	mux.HandleFunc("GET /api/users/{id}/notifications", h.ListNotifications)
	mux.HandleFunc("PUT /api/notifications/{id}/read", h.MarkNotificationRead)
}

func (h *HTTPHandler) RequestExchange(w http.ResponseWriter, r *http.Request) {
	var req RequestExchangeHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusHTTPResponse{Message: "invalid request body"})
		return
	}

	ownerID := req.OwnerID
	if ownerID == "" && req.OwnerEmail != "" {
		id, err := h.exchanges.ResolveUserID(r.Context(), req.OwnerEmail)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		ownerID = id
	}

	exchangeID, err := h.exchanges.RequestExchange(r.Context(), req.OfferedItemID, req.RequestedItemID, req.RequesterID, ownerID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, StatusHTTPResponse{
		Success:    true,
		Message:    "exchange requested",
		ExchangeID: exchangeID,
	})
}

func (h *HTTPHandler) RespondToExchange(w http.ResponseWriter, r *http.Request) {
	var req RespondHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, StatusHTTPResponse{Message: "invalid request body"})
		return
	}

	exchangeID := r.PathValue("id")
	if _, err := h.exchanges.RespondToExchange(r.Context(), exchangeID, req.Action, req.ResponderID); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusHTTPResponse{
		Success:    true,
		Message:    "exchange " + req.Action,
		ExchangeID: exchangeID,
	})
}

func (h *HTTPHandler) GetExchange(w http.ResponseWriter, r *http.Request) {
	exchange, err := h.exchanges.GetExchange(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExchangeResponse(exchange))
}

func (h *HTTPHandler) GetExchangesForUser(w http.ResponseWriter, r *http.Request) {
	exchanges, err := h.exchanges.GetExchangesForUser(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]ExchangeHTTPResponse, 0, len(exchanges))
	for _, e := range exchanges {
		resp = append(resp, toExchangeResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.notifications.ListNotifications(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := make([]NotificationHTTPResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, NotificationHTTPResponse{
			ID:            n.ID,
			Type:          string(n.Type),
			Message:       n.Message,
			Link:          n.Link,
			RelatedItemID: n.RelatedItemID,
			CreatedAt:     n.CreatedAt,
			IsRead:        n.IsRead,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := h.notifications.MarkNotificationRead(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusHTTPResponse{Success: true, Message: "notification marked as read"})
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, StatusHTTPResponse{Success: false, Message: message})
}

func toExchangeResponse(e domain.Exchange) ExchangeHTTPResponse {
	return ExchangeHTTPResponse{
		ID:              e.ID,
		OfferedItemID:   e.OfferedItemID,
		RequestedItemID: e.RequestedItemID,
		RequesterID:     e.RequesterID,
		OwnerID:         e.OwnerID,
		Status:          string(e.Status),
		RequestedAt:     e.RequestedAt,
		RespondedAt:     e.RespondedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
