// Package httpapi содержит HTTP API сервиса на gin.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
)

// Controller регистрирует свои маршруты.
type Controller interface {
	RegisterRoutes(r gin.IRouter)
}

type RouterOptions struct {
	Config      config.Config
	Logger      *log.Entry
	Metrics     *metrics.HTTPMetrics
	Controllers []Controller
}

// NewRouter собирает gin.Engine. Порядок middleware важен: request id нужен
// всем остальным, recovery должен обернуть обработчики.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "http")
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(
		RequestID(logger),
		Recovery(logger),
		AccessLog(logger),
		Metrics(opts.Metrics),
		RateLimit(opts.Config.HTTP.RateLimit, opts.Metrics, logger),
	)

	for _, controller := range opts.Controllers {
		controller.RegisterRoutes(engine)
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Not found."})
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method not allowed."})
	})
	return engine
}
