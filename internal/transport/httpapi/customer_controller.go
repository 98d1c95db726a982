package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/service/customer"
)

type CustomerController struct {
	svc    *customer.Service
	logger *log.Entry
}

func NewCustomerController(svc *customer.Service, logger *log.Entry) *CustomerController {
	return &CustomerController{svc: svc, logger: logger}
}

func (h *CustomerController) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/customer")
	g.POST("", h.Create)
	g.GET("/:cpf", h.GetByCPF)
}

// Create: POST /customer
func (h *CustomerController) Create(c *gin.Context) {
	var in CustomerIn
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}

	created, err := h.svc.Create(c.Request.Context(), customer.CreateInput{
		Name:  in.Name,
		CPF:   in.CPF,
		Email: in.Email,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, customerOut(created))
}

// GetByCPF: GET /customer/:cpf
func (h *CustomerController) GetByCPF(c *gin.Context) {
	found, err := h.svc.GetByCPF(c.Request.Context(), c.Param("cpf"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, customerOut(found))
}
