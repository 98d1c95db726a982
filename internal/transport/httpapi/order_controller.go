package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
	"github.com/vladislavdragonenkov/fastfood/internal/service/checkout"
	"github.com/vladislavdragonenkov/fastfood/internal/service/order"
)

type OrderController struct {
	checkout *checkout.Service
	orders   *order.Service
	logger   *log.Entry
}

func NewOrderController(checkoutSvc *checkout.Service, orders *order.Service, logger *log.Entry) *OrderController {
	return &OrderController{checkout: checkoutSvc, orders: orders, logger: logger}
}

func (h *OrderController) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/orders")
	g.POST("/checkout", h.Checkout)
	g.GET("", h.List)
	g.GET("/active", h.ListActive)
	g.GET("/:id/timeline", h.Timeline)
	g.PUT("/:id/status", h.UpdateStatus)
}

// Checkout: POST /orders/checkout
func (h *OrderController) Checkout(c *gin.Context) {
	var in CheckoutIn
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}

	customerID, err := uuid.Parse(in.CustomerID)
	if err != nil {
		badRequest(c, "Invalid uuid: "+in.CustomerID)
		return
	}
	items := make([]checkout.ItemInput, 0, len(in.Items))
	for _, item := range in.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			badRequest(c, "Invalid uuid: "+item.ProductID)
			return
		}
		items = append(items, checkout.ItemInput{ProductUUID: productID, Quantity: item.Quantity})
	}

	result, err := h.checkout.Checkout(c.Request.Context(), checkout.Input{CustomerUUID: customerID, Items: items})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, orderOut(result.Order))
}

func (h *OrderController) List(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ordersOut(orders))
}

// ListActive отдаёт очередь кухни.
func (h *OrderController) ListActive(c *gin.Context) {
	orders, err := h.orders.ListActive(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ordersOut(orders))
}

func (h *OrderController) Timeline(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	events, err := h.orders.Timeline(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, timelineOut(events))
}

// UpdateStatus: PUT /orders/:id/status
func (h *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in StatusIn
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	status, err := domain.ParseOrderStatus(in.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	updated, err := h.orders.UpdateStatus(c.Request.Context(), id, status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orderOut(updated))
}
