package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/service/payment"
)

type PaymentController struct {
	svc    *payment.Service
	logger *log.Entry
}

func NewPaymentController(svc *payment.Service, logger *log.Entry) *PaymentController {
	return &PaymentController{svc: svc, logger: logger}
}

func (h *PaymentController) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/payment")
	g.GET("/:id/status", h.GetStatus)
	g.POST("/:id/result", h.Result)
}

// GetStatus: GET /payment/:order_id/status, параметр содержит uuid заказа.
func (h *PaymentController) GetStatus(c *gin.Context) {
	orderID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetStatus(c.Request.Context(), orderID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paymentStatusOut(p))
}

// Result обрабатывает webhook платёжного шлюза: POST /payment/:id/result с {"status": "approved"}.
func (h *PaymentController) Result(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in StatusIn
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}

	updated, err := h.svc.Confirm(c.Request.Context(), id, in.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, paymentStatusOut(updated))
}
