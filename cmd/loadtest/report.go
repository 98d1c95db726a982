package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type stepReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt         time.Time             `json:"started_at"`
	DurationSeconds   float64               `json:"duration_seconds"`
	TotalScenarios    int64                 `json:"total_scenarios"`
	SuccessScenarios  int64                 `json:"success_scenarios"`
	FailedScenarios   int64                 `json:"failed_scenarios"`
	ErrorRate         float64               `json:"error_rate"`
	RPS               float64               `json:"rps"`
	ScenarioLatencyMs latencySummary        `json:"scenario_latency_ms"`
	Steps             map[string]stepReport `json:"steps"`
}

type stepStats struct {
	calls     int64
	success   int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

// collector копит результаты шагов; code 0 означает сетевую ошибку.
type collector struct {
	mu    sync.Mutex
	steps map[string]*stepStats
}

const scenarioStep = "scenario"

func newCollector() *collector {
	return &collector{steps: make(map[string]*stepStats)}
}

func (c *collector) record(step string, latency time.Duration, code int, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats, exists := c.steps[step]
	if !exists {
		stats = &stepStats{codes: make(map[string]int64)}
		c.steps[step] = stats
	}

	stats.calls++
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[codeLabel(code)]++
	stats.latencies = append(stats.latencies, float64(latency.Microseconds())/1000.0)
}

func codeLabel(code int) string {
	if code == 0 {
		return "transport_error"
	}
	return strconv.Itoa(code)
}

func (c *collector) buildReport(startedAt time.Time, duration time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := report{
		StartedAt:       startedAt.UTC(),
		DurationSeconds: duration.Seconds(),
		Steps:           make(map[string]stepReport, len(c.steps)),
	}

	if scenario := c.steps[scenarioStep]; scenario != nil {
		result.TotalScenarios = scenario.calls
		result.SuccessScenarios = scenario.success
		result.FailedScenarios = scenario.failed
		result.ErrorRate = ratio(scenario.failed, scenario.calls)
		result.ScenarioLatencyMs = buildLatencySummary(scenario.latencies)
	}
	if duration > 0 {
		result.RPS = float64(result.TotalScenarios) / duration.Seconds()
	}

	for name, stats := range c.steps {
		codes := make(map[string]int64, len(stats.codes))
		for code, count := range stats.codes {
			codes[code] = count
		}
		result.Steps[name] = stepReport{
			Calls:     stats.calls,
			Success:   stats.success,
			Failed:    stats.failed,
			ErrorRate: ratio(stats.failed, stats.calls),
			Codes:     codes,
			LatencyMs: buildLatencySummary(stats.latencies),
		}
	}
	return result
}

func writeJSONReport(path string, result report) error {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- path is an explicit CLI output parameter for local load-test reports.
	file, err := os.Create(cleanPath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func printReport(result report, cfg config) {
	fmt.Println("Load test summary")
	fmt.Printf("mode=%s run=%s total=%d success=%d failed=%d error_rate=%.4f\n",
		cfg.mode, runTarget(cfg),
		result.TotalScenarios, result.SuccessScenarios, result.FailedScenarios, result.ErrorRate,
	)
	fmt.Printf("duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)
	fmt.Printf("scenario latency ms: min=%.2f avg=%.2f p50=%.2f p95=%.2f p99=%.2f max=%.2f\n",
		result.ScenarioLatencyMs.Min,
		result.ScenarioLatencyMs.Avg,
		result.ScenarioLatencyMs.P50,
		result.ScenarioLatencyMs.P95,
		result.ScenarioLatencyMs.P99,
		result.ScenarioLatencyMs.Max,
	)

	names := make([]string, 0, len(result.Steps))
	for name := range result.Steps {
		if name != scenarioStep {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stats := result.Steps[name]
		fmt.Printf("%s: calls=%d success=%d failed=%d error_rate=%.4f p95=%.2fms\n",
			name, stats.Calls, stats.Success, stats.Failed, stats.ErrorRate, stats.LatencyMs.P95)
	}
}

func runTarget(cfg config) string {
	if cfg.duration <= 0 {
		return fmt.Sprintf("count:%d", cfg.total)
	}
	if cfg.totalSet {
		return fmt.Sprintf("duration:%s,max-total:%d", cfg.duration, cfg.total)
	}
	return fmt.Sprintf("duration:%s", cfg.duration)
}

func buildLatencySummary(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var sum float64
	for _, value := range sorted {
		sum += value
	}

	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile интерполирует между соседними рангами.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	weight := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*weight
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}
