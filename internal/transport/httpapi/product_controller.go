package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/service/catalog"
)

type ProductController struct {
	svc    *catalog.Service
	logger *log.Entry
}

func NewProductController(svc *catalog.Service, logger *log.Entry) *ProductController {
	return &ProductController{svc: svc, logger: logger}
}

func (h *ProductController) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/products")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (in ProductIn) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        in.Name,
		Category:    in.Category,
		PriceMinor:  toMinor(in.Price),
		Description: in.Description,
		Images:      in.Images,
	}
}

func (h *ProductController) Create(c *gin.Context) {
	var in ProductIn
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	created, err := h.svc.Create(c.Request.Context(), in.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, productOut(created))
}

// List: GET /products?category=bebida; без фильтра возвращает весь каталог.
func (h *ProductController) List(c *gin.Context) {
	products, err := h.svc.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	out := make([]ProductOut, 0, len(products))
	for _, p := range products {
		out = append(out, productOut(p))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ProductController) Get(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	product, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, productOut(product))
}

func (h *ProductController) Update(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var in ProductIn
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Invalid request body.")
		return
	}
	updated, err := h.svc.Update(c.Request.Context(), id, in.input())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, productOut(updated))
}

func (h *ProductController) Delete(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// pathUUID разбирает параметр пути; при ошибке уже ответил 400.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, "Invalid uuid: "+raw)
		return uuid.Nil, false
	}
	return id, true
}
