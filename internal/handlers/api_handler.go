package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"bakery_tracker/internal/models"
	"bakery_tracker/internal/repository"
	"bakery_tracker/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PINHeader carries the shared PIN for gated actions.
const PINHeader = "X-Auth-PIN"

// OrderSubscriber feeds the live order stream.
type OrderSubscriber interface {
	SubscribeOrderEvents(ctx context.Context) (<-chan models.OrderEvent, error)
}

type APIHandler struct {
	orderService   services.OrderService
	catalogService services.CatalogService
	printService   services.PrintService
	subscriber     OrderSubscriber
}

func NewAPIHandler(
	orderService services.OrderService,
	catalogService services.CatalogService,
	printService services.PrintService,
	subscriber OrderSubscriber,
) *APIHandler {
	return &APIHandler{
		orderService:   orderService,
		catalogService: catalogService,
		printService:   printService,
		subscriber:     subscriber,
	}
}

type orderResponse struct {
	models.Order
	Balance decimal.Decimal `json:"balance"`
}

func newOrderResponse(o *models.Order) orderResponse {
	return orderResponse{Order: *o, Balance: o.Balance()}
}

type createOrderRequest struct {
	CustomerName string `json:"customer_name"`
	Note         string `json:"note"`
	Items        []struct {
		ProductName string `json:"product_name"`
		Quantity    int    `json:"quantity"`
	} `json:"items"`
	PaymentMethod string          `json:"payment_method"`
	AdvanceAmount json.RawMessage `json:"advance_amount"`
}

type deliveryRequest struct {
	Delivered *bool `json:"delivered"`
}

type paidRequest struct {
	Paid *bool `json:"paid"`
}

type amountRequest struct {
	Amount json.RawMessage `json:"amount" binding:"required"`
}

type noteRequest struct {
	Note *string `json:"note" binding:"required"`
}

type productRequest struct {
	Name      string          `json:"name"`
	UnitPrice json.RawMessage `json:"unit_price" binding:"required"`
}

// amountText accepts both 12.5 and "12.5" so form inputs can be sent as typed.
func amountText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	text := strings.TrimSpace(string(raw))
	if text == "null" {
		return ""
	}
	return text
}

// Catalog endpoints
func (h *APIHandler) ListProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *APIHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	product, err := h.catalogService.AddProduct(c.Request.Context(), req.Name, amountText(req.UnitPrice))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *APIHandler) UpdateProductPrice(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	product, err := h.catalogService.SetPrice(c.Request.Context(), c.Param("name"), amountText(req.UnitPrice))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Order entry
func (h *APIHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	entry := services.OrderEntry{
		CustomerName:  req.CustomerName,
		Note:          req.Note,
		PaymentMethod: req.PaymentMethod,
		AdvanceAmount: amountText(req.AdvanceAmount),
	}
	for _, item := range req.Items {
		entry.Lines = append(entry.Lines, services.LineSelection{ProductName: item.ProductName, Quantity: item.Quantity})
	}

	order, err := h.orderService.CreateOrder(c.Request.Context(), entry)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOrderResponse(order))
}

func (h *APIHandler) ListOrders(c *gin.Context) {
	var filter repository.OrderFilter
	if raw := c.Query("delivered"); raw != "" {
		delivered, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "delivered must be true or false"})
			return
		}
		filter.Delivered = &delivered
	}

	orders, err := h.orderService.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"orders": out})
}

func (h *APIHandler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.orderService.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

// Lifecycle endpoints. An empty body toggles; a body sets the target state.
func (h *APIHandler) UpdateDelivery(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req deliveryRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, pin := c.Request.Context(), c.GetHeader(PINHeader)
	var order *models.Order
	var err error
	if req.Delivered == nil {
		order, err = h.orderService.ToggleDelivered(ctx, id, pin)
	} else {
		order, err = h.orderService.SetDelivered(ctx, id, *req.Delivered, pin)
	}
	h.respondOrder(c, order, err)
}

func (h *APIHandler) UpdateItemDelivery(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item index"})
		return
	}
	var req deliveryRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, pin := c.Request.Context(), c.GetHeader(PINHeader)
	var order *models.Order
	if req.Delivered == nil {
		order, err = h.orderService.ToggleItemDelivered(ctx, id, index, pin)
	} else {
		order, err = h.orderService.SetItemDelivered(ctx, id, index, *req.Delivered, pin)
	}
	h.respondOrder(c, order, err)
}

func (h *APIHandler) UpdateAmountPaid(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req amountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.EditAmountPaid(c.Request.Context(), id, amountText(req.Amount), c.GetHeader(PINHeader))
	h.respondOrder(c, order, err)
}

func (h *APIHandler) UpdateFullyPaid(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req paidRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ctx, pin := c.Request.Context(), c.GetHeader(PINHeader)
	var order *models.Order
	var err error
	if req.Paid == nil {
		order, err = h.orderService.ToggleFullyPaid(ctx, id, pin)
	} else {
		order, err = h.orderService.SetFullyPaid(ctx, id, *req.Paid, pin)
	}
	h.respondOrder(c, order, err)
}

func (h *APIHandler) UpdateNote(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var req noteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	order, err := h.orderService.EditNote(c.Request.Context(), id, *req.Note, c.GetHeader(PINHeader))
	h.respondOrder(c, order, err)
}

func (h *APIHandler) DeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	if err := h.orderService.DeleteOrder(c.Request.Context(), id, c.GetHeader(PINHeader)); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *APIHandler) PrintOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	t, err := h.printService.PrintOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			h.respondError(c, err)
			return
		}
		log.Printf("Failed to print order %s: %v", id, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to print order"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "printed", "ticket": t.Render()})
}

// StreamOrders pushes order events as server-sent events.
func (h *APIHandler) StreamOrders(c *gin.Context) {
	if h.subscriber == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are not configured"})
		return
	}

	ctx := c.Request.Context()
	events, err := h.subscriber.SubscribeOrderEvents(ctx)
	if err != nil {
		log.Printf("Failed to subscribe to order events: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live updates are unavailable"})
		return
	}

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func (h *APIHandler) respondOrder(c *gin.Context, order *models.Order, err error) {
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOrderResponse(order))
}

func (h *APIHandler) respondError(c *gin.Context, err error) {
	switch {
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid PIN"})
	case errors.Is(err, services.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not connect to the database"})
	}
}

func orderID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return uuid.Nil, false
	}
	return id, true
}

// bindOptionalJSON treats an empty body as "no fields set".
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return false
	}
	return true
}
