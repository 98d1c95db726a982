package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

const internalErrorDetail = "Internal server error"

// ErrorResponse — единый формат ошибки API.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// statusFor сопоставляет вид доменной ошибки с HTTP-кодом.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsClientError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError отвечает клиенту; внутренние ошибки логируются и не раскрываются.
func writeError(c *gin.Context, logger *log.Entry, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		requestLogger(c, logger).WithError(err).Error("request failed")
		c.AbortWithStatusJSON(code, ErrorResponse{Detail: internalErrorDetail})
		return
	}
	c.AbortWithStatusJSON(code, ErrorResponse{Detail: err.Error()})
}

func badRequest(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Detail: detail})
}
