// Package health отдаёт liveness/readiness пробы и сводный статус компонентов.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// Status — состояние компонента.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

const defaultCheckTimeout = 2 * time.Second

// Check — результат одной проверки.
type Check struct {
	Name       string `json:"name"`
	Status     Status `json:"status"`
	Message    string `json:"message,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks,omitempty"`
	Version       string           `json:"version,omitempty"`
	UptimeSeconds int64            `json:"uptime_seconds"`
}

// Checker проверяет один компонент. Реализация должна уважать ctx.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler агрегирует проверки.
type Handler struct {
	mu        sync.RWMutex
	checkers  map[string]Checker
	version   string
	startTime time.Time
	timeout   time.Duration
}

func NewHandler(version string) *Handler {
	return &Handler{
		checkers:  make(map[string]Checker),
		version:   version,
		startTime: time.Now(),
		timeout:   defaultCheckTimeout,
	}
}

func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

// Evaluate выполняет все проверки параллельно с общим таймаутом.
func (h *Handler) Evaluate(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checkers))
	for name := range h.checkers {
		names = append(names, name)
	}
	sort.Strings(names)
	checkers := make([]Checker, len(names))
	for i, name := range names {
		checkers[i] = h.checkers[name]
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	results := make([]Check, len(checkers))
	var wg sync.WaitGroup
	for i, checker := range checkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = checker.Check(ctx)
		}()
	}
	wg.Wait()

	overall := StatusHealthy
	checks := make(map[string]Check, len(results))
	for i, check := range results {
		checks[names[i]] = check
		switch {
		case check.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case check.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:        overall,
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
	}
}

// Ready сообщает, может ли сервис принимать трафик. Degraded считается готовностью.
func (h *Handler) Ready(ctx context.Context) bool {
	return h.Evaluate(ctx).Status != StatusUnhealthy
}

// ServeHTTP отдаёт подробный статус; 503 при unhealthy.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.Evaluate(r.Context())

	code := http.StatusOK
	if response.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(response)
}

// LivenessHandler всегда отвечает 200, пока процесс жив.
func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if !h.Ready(r.Context()) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// PingChecker считает компонент здоровым, если fn вернула nil.
type PingChecker struct {
	name string
	fn   func(ctx context.Context) error
}

func NewPingChecker(name string, fn func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, fn: fn}
}

func (c *PingChecker) Check(ctx context.Context) Check {
	start := time.Now()
	err := c.fn(ctx)
	check := Check{Name: c.name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	}
	return check
}

// OutboxChecker переводит сервис в degraded, когда backlog outbox превышает порог.
type OutboxChecker struct {
	stats      func(ctx context.Context) (domain.OutboxStats, error)
	maxPending int
}

func NewOutboxChecker(repo domain.OutboxRepository, maxPending int) *OutboxChecker {
	return &OutboxChecker{stats: repo.Stats, maxPending: maxPending}
}

func (c *OutboxChecker) Check(ctx context.Context) Check {
	start := time.Now()
	stats, err := c.stats(ctx)
	check := Check{Name: "outbox", Status: StatusHealthy}
	switch {
	case err != nil:
		check.Status = StatusUnhealthy
		check.Message = err.Error()
	case c.maxPending > 0 && stats.PendingCount > c.maxPending:
		check.Status = StatusDegraded
		check.Message = fmt.Sprintf("%d pending messages, threshold %d", stats.PendingCount, c.maxPending)
	}
	check.DurationMs = time.Since(start).Milliseconds()
	return check
}
