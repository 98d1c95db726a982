package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type loadMode string

const (
	modeCheckout    loadMode = "checkout"
	modeCheckoutPay loadMode = "checkout-pay"
	modeFull        loadMode = "full"
)

type config struct {
	baseURL     string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	rps         float64
	timeout     time.Duration
	mode        loadMode
	quantity    int
	priceMinor  int64
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var cfg config
	var modeValue string

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.StringVar(&cfg.baseURL, "url", "http://localhost:8080", "base URL of the HTTP API")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios to execute in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m, 15m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 20, "number of concurrent workers")
	fs.Float64Var(&cfg.rps, "rps", 0, "scenario start rate limit, 0 = unlimited (server limits per IP too)")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-request timeout")
	fs.StringVar(&modeValue, "mode", string(modeCheckout), "load mode: checkout | checkout-pay | full")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity of the single order line")
	fs.Int64Var(&cfg.priceMinor, "price-minor", 2590, "product price in minor units")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode
	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")

	switch {
	case cfg.baseURL == "":
		return cfg, errors.New("url is required")
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.rps < 0:
		return cfg, errors.New("rps must be >= 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.priceMinor <= 0:
		return cfg, errors.New("price-minor must be > 0")
	}
	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch loadMode(strings.TrimSpace(value)) {
	case modeCheckout:
		return modeCheckout, nil
	case modeCheckoutPay:
		return modeCheckoutPay, nil
	case modeFull:
		return modeFull, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := run(ctx, cfg, &http.Client{})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "load test failed: %v\n", err)
		os.Exit(1)
	}

	printReport(result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// run готовит фикстуры и гоняет сценарии пулом воркеров.
func run(ctx context.Context, cfg config, httpClient *http.Client) (report, error) {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()
	client := &apiClient{base: cfg.baseURL, http: httpClient, timeout: cfg.timeout, col: col}

	fx, err := client.setup(ctx, runID, uint64(startedAt.UnixNano()), cfg.priceMinor)
	if err != nil {
		return report{}, fmt.Errorf("setup fixtures: %w", err)
	}

	var limiter *rate.Limiter
	if cfg.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.rps), 1)
	}

	jobs := make(chan int, cfg.concurrency*2)
	var failures atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.concurrency; i++ {
		g.Go(func() error {
			for range jobs {
				if err := client.runScenario(gctx, cfg.mode, fx, cfg.quantity); err != nil {
					failures.Add(1)
				}
			}
			return nil
		})
	}

	dispatchJobs(gctx, jobs, cfg, limiter)
	_ = g.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures.Load() > 0 {
		result.FailedScenarios = failures.Load()
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result, nil
}

func dispatchJobs(ctx context.Context, jobs chan<- int, cfg config, limiter *rate.Limiter) {
	defer close(jobs)

	var deadline <-chan time.Time
	if cfg.duration > 0 {
		timer := time.NewTimer(cfg.duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for i := 0; ; i++ {
		if (cfg.duration <= 0 || cfg.totalSet) && i >= cfg.total {
			return
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case jobs <- i:
		}
	}
}
