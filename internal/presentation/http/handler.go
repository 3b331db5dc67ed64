package httppresentation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	appOrder "github.com/refurbly/storefront/internal/application/order"
	appPayment "github.com/refurbly/storefront/internal/application/payment"
	domorder "github.com/refurbly/storefront/internal/domain/order"
	dompayment "github.com/refurbly/storefront/internal/domain/payment"
	"go.uber.org/zap"
)

const (
	headerWebhookSignature = "Stripe-Signature"
	maxWebhookBody         = 1 << 20
)

type OrderService interface {
	CreateOrder(ctx context.Context, userID, userEmail string, in appOrder.CreateOrderInput) (*domorder.Order, error)
	Get(ctx context.Context, orderID, requesterID string, admin bool) (*domorder.Order, error)
	ListByUser(ctx context.Context, userID string, page, pageSize int) ([]*domorder.Order, int64, error)
	ListAll(ctx context.Context, status domorder.Status, page, pageSize int) ([]*domorder.Order, int64, error)
	UpdateStatus(ctx context.Context, orderID string, status domorder.Status, trackingNumber string) (*domorder.Order, error)
}

type PaymentService interface {
	CreateIntent(ctx context.Context, userID string, in appPayment.CreateIntentInput) (*dompayment.Intent, error)
	ConfirmPayment(ctx context.Context, userID, intentID, orderID string) (*domorder.Order, error)
	HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) error
}

type Handler struct {
	orderService   OrderService
	paymentService PaymentService
	metrics        *Metrics
	log            *zap.SugaredLogger
}

func NewHandler(orderSvc OrderService, paymentSvc PaymentService, metrics *Metrics, logger *zap.SugaredLogger) *Handler {
	return &Handler{
		orderService:   orderSvc,
		paymentService: paymentSvc,
		metrics:        metrics,
		log:            logger.With("component", "http_server"),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(h.withRequestID)
	r.Use(h.withIdentity)
	r.Use(h.withTrace)
	r.Use(h.withHTTPMetrics)
	r.Use(h.withAccessLog)

	r.Get("/health", h.handleHealth)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.requireUser(h.handleCreateOrder))
		r.Get("/", h.requireUser(h.handleListOrders))
		r.Get("/admin/all", h.requireAdmin(h.handleListAllOrders))
		r.Get("/{order_id}", h.requireUser(h.handleGetOrder))
		r.Put("/{order_id}/status", h.requireAdmin(h.handleUpdateOrderStatus))
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/create-payment-intent", h.requireUser(h.handleCreatePaymentIntent))
		r.Post("/confirm-payment", h.requireUser(h.handleConfirmPayment))
		r.Post("/webhook", h.handleWebhook)
	})

	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type orderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type shippingAddressRequest struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type createOrderRequest struct {
	Items           []orderItemRequest     `json:"items"`
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
}

func (req *createOrderRequest) validate() string {
	if len(req.Items) == 0 {
		return "items must not be empty"
	}
	for _, it := range req.Items {
		if it.ProductID == "" {
			return "item product_id is required"
		}
		if it.Quantity <= 0 {
			return "item quantity must be greater than zero"
		}
	}
	addr := req.ShippingAddress
	if addr.FullName == "" || addr.Line1 == "" || addr.City == "" || addr.Country == "" {
		return "shipping_address requires full_name, line1, city and country"
	}
	if req.PaymentMethod == "" {
		return "payment_method is required"
	}
	return ""
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	items := make([]appOrder.CreateOrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, appOrder.CreateOrderItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}

	order, err := h.orderService.CreateOrder(r.Context(), user.ID, user.Email, appOrder.CreateOrderInput{
		Items: items,
		ShippingAddress: domorder.ShippingAddress{
			FullName:   req.ShippingAddress.FullName,
			Line1:      req.ShippingAddress.Line1,
			Line2:      req.ShippingAddress.Line2,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	page, pageSize := parsePagination(r)

	orders, total, err := h.orderService.ListByUser(r.Context(), user.ID, page, pageSize)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderListResponse(orders, total, page, pageSize))
}

func (h *Handler) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	status := domorder.Status(r.URL.Query().Get("status"))

	orders, total, err := h.orderService.ListAll(r.Context(), status, page, pageSize)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderListResponse(orders, total, page, pageSize))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())
	orderID := chi.URLParam(r, "order_id")

	order, err := h.orderService.Get(r.Context(), orderID, user.ID, user.Admin())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

type updateOrderStatusRequest struct {
	Status         string `json:"status"`
	TrackingNumber string `json:"tracking_number"`
}

func (h *Handler) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	var req updateOrderStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	status := domorder.Status(req.Status)
	if !status.Valid() {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, status, req.TrackingNumber)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

type createPaymentIntentRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
	OrderID  string  `json:"order_id"`
}

type createPaymentIntentResponse struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

func (h *Handler) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req createPaymentIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Amount <= 0 {
		respondError(w, http.StatusBadRequest, "amount must be greater than zero")
		return
	}

	intent, err := h.paymentService.CreateIntent(r.Context(), user.ID, appPayment.CreateIntentInput{
		Amount:   req.Amount,
		Currency: req.Currency,
		OrderID:  req.OrderID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, createPaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	})
}

type confirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
	OrderID         string `json:"orderId"`
}

func (h *Handler) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req confirmPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PaymentIntentID == "" || req.OrderID == "" {
		respondError(w, http.StatusBadRequest, "paymentIntentId and orderId are required")
		return
	}

	order, err := h.paymentService.ConfirmPayment(r.Context(), user.ID, req.PaymentIntentID, req.OrderID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unable to read payload")
		return
	}

	if err := h.paymentService.HandleWebhook(r.Context(), payload, r.Header.Get(headerWebhookSignature)); err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"received": true})
}

type orderResponse struct {
	ID              string                 `json:"id"`
	UserID          string                 `json:"user_id"`
	Items           []domorder.Item        `json:"items"`
	ShippingAddress shippingAddressRequest `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method"`
	ItemsPrice      float64                `json:"items_price"`
	ShippingPrice   float64                `json:"shipping_price"`
	TaxPrice        float64                `json:"tax_price"`
	TotalPrice      float64                `json:"total_price"`
	Status          string                 `json:"status"`
	IsPaid          bool                   `json:"is_paid"`
	PaidAt          *time.Time             `json:"paid_at,omitempty"`
	IsDelivered     bool                   `json:"is_delivered"`
	DeliveredAt     *time.Time             `json:"delivered_at,omitempty"`
	TrackingNumber  string                 `json:"tracking_number,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

type orderListResponse struct {
	Orders   []orderResponse `json:"orders"`
	Total    int64           `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func toOrderResponse(o *domorder.Order) orderResponse {
	return orderResponse{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  o.Items,
		ShippingAddress: shippingAddressRequest{
			FullName:   o.ShippingAddress.FullName,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		PaymentMethod:  o.PaymentMethod,
		ItemsPrice:     o.ItemsPrice,
		ShippingPrice:  o.ShippingPrice,
		TaxPrice:       o.TaxPrice,
		TotalPrice:     o.TotalPrice,
		Status:         string(o.Status),
		IsPaid:         o.IsPaid,
		PaidAt:         o.PaidAt,
		IsDelivered:    o.IsDelivered,
		DeliveredAt:    o.DeliveredAt,
		TrackingNumber: o.TrackingNumber,
		CreatedAt:      o.CreatedAt,
	}
}

func toOrderListResponse(orders []*domorder.Order, total int64, page, pageSize int) orderListResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return orderListResponse{Orders: out, Total: total, Page: page, PageSize: pageSize}
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
