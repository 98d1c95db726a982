package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/vladislavdragonenkov/fastfood/internal/config"
	"github.com/vladislavdragonenkov/fastfood/internal/metrics"
)

const (
	RequestIDHeader = "X-Request-ID"

	requestIDKey = "request_id"
	loggerKey    = "logger"
)

// RequestID берёт X-Request-ID клиента или генерирует новый и кладёт логгер запроса в контекст.
func RequestID(base *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Set(loggerKey, base.WithField("request_id", id))
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// requestLogger возвращает логгер текущего запроса.
func requestLogger(c *gin.Context, fallback *log.Entry) *log.Entry {
	if v, ok := c.Get(loggerKey); ok {
		if entry, ok := v.(*log.Entry); ok {
			return entry
		}
	}
	return fallback
}

// Recovery превращает панику обработчика в 500 без деталей.
func Recovery(base *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if recovered := recover(); recovered != nil {
				requestLogger(c, base).WithFields(log.Fields{
					"panic": recovered,
					"path":  c.Request.URL.Path,
				}).Error("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Detail: internalErrorDetail})
			}
		}()
		c.Next()
	}
}

// AccessLog пишет строку на каждый запрос; уровень зависит от кода ответа.
func AccessLog(base *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := requestLogger(c, base).WithFields(log.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"route":     c.FullPath(),
			"status":    status,
			"latency":   time.Since(start),
			"client_ip": c.ClientIP(),
			"bytes":     c.Writer.Size(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Info("http request")
		}
	}
}

// Metrics считает запросы по шаблону маршрута.
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.Observe(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// minLimiterIdle: нижняя граница простоя, после которого bucket клиента удаляется.
const minLimiterIdle = time.Minute

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter хранит token bucket на каждый клиентский IP.
// Bucket, простоявший дольше idle, уже полон и равен новому, поэтому чистка его удаляет.
type ipLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	rate      rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	idle := minLimiterIdle
	if limit > 0 {
		if refill := time.Duration(float64(burst) / float64(limit) * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &ipLimiter{
		entries: make(map[string]*limiterEntry),
		rate:    limit,
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweep(now)
	}
	entry, ok := l.entries[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.entries[ip] = entry
	}
	entry.lastSeen = now
	return entry.limiter.AllowN(now, 1)
}

// sweep удаляет клиентов, не приходивших дольше idle. Вызывается под mu.
func (l *ipLimiter) sweep(now time.Time) {
	for ip, entry := range l.entries {
		if now.Sub(entry.lastSeen) >= l.idle {
			delete(l.entries, ip)
		}
	}
	l.lastSweep = now
}

// RateLimit отвечает 429, когда клиент исчерпал свой bucket.
func RateLimit(cfg config.RateLimitConfig, m *metrics.HTTPMetrics, base *log.Entry) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPLimiter(rate.Limit(cfg.Rate), cfg.Burst)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !limiter.allow(ip) {
			m.RateLimited()
			requestLogger(c, base).WithField("client_ip", ip).Warn("rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Detail: "Too many requests."})
			return
		}
		c.Next()
	}
}
