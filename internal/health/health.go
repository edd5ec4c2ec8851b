package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/selivandex/regime-lab/internal/adapters/database"
	redisAdapter "github.com/selivandex/regime-lab/internal/adapters/redis"
	"github.com/selivandex/regime-lab/internal/summary"
	"github.com/selivandex/regime-lab/pkg/logger"
	"github.com/selivandex/regime-lab/pkg/models"
)

// dependency is anything whose availability gates readiness
type dependency interface {
	Health() error
}

// RunSource exposes recorded derive runs
type RunSource interface {
	GetLatestRun(ctx context.Context, symbol string) (*summary.Run, error)
	ListRuns(ctx context.Context, limit int) ([]summary.Run, error)
}

// BarSource exposes stored bar series metadata
type BarSource interface {
	GetBarCount(ctx context.Context, symbol, timeframe string) (int, error)
	GetLatestBar(ctx context.Context, symbol, timeframe string) (*models.Bar, error)
}

// SummaryCache exposes the latest cached derive summary per symbol
type SummaryCache interface {
	GetCachedSummary(ctx context.Context, symbol string) (*models.DeriveSummary, error)
}

// Server provides health check and status HTTP endpoints for K8s
// probes and operators
type Server struct {
	server     *http.Server
	db         dependency
	clickhouse dependency
	redis      dependency
	runs       RunSource
	bars       BarSource
	cache      SummaryCache
	symbols    []string
	timeframe  string
	ready      bool
	readyMu    sync.RWMutex
	startTime  time.Time
}

// HealthStatus represents process liveness
type HealthStatus struct {
	Status    string               `json:"status"`
	Timestamp string               `json:"timestamp"`
	Uptime    string               `json:"uptime"`
	Checks    map[string]string    `json:"checks,omitempty"`
	LastRuns  map[string]RunStatus `json:"last_runs,omitempty"`
}

// ReadinessStatus represents dependency readiness
type ReadinessStatus struct {
	Ready     bool              `json:"ready"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// RunStatus reports the most recent derive run for one symbol
type RunStatus struct {
	Status      string `json:"status"`
	FinishedAt  string `json:"finished_at,omitempty"`
	Age         string `json:"age,omitempty"`
	FeatureRows int    `json:"feature_rows,omitempty"`
	Error       string `json:"error,omitempty"`
}

// SymbolStatus is the per-symbol operational snapshot
type SymbolStatus struct {
	LastRun   *RunStatus            `json:"last_run,omitempty"`
	BarCount  int                   `json:"bar_count"`
	LatestBar string                `json:"latest_bar,omitempty"`
	Summary   *models.DeriveSummary `json:"summary,omitempty"`
}

// RunRecord is one entry of the recent-runs list
type RunRecord struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	FinishedAt string `json:"finished_at"`
	Error      string `json:"error,omitempty"`
}

// StatusReport is the full operational snapshot served at /status
type StatusReport struct {
	Timestamp  string                  `json:"timestamp"`
	Symbols    map[string]SymbolStatus `json:"symbols"`
	RecentRuns []RunRecord             `json:"recent_runs"`
}

// NewServer creates new health check server
func NewServer(
	addr string,
	db *database.DB,
	ch *database.ClickHouse,
	redis *redisAdapter.Client,
	runs RunSource,
	bars BarSource,
	cache SummaryCache,
	symbols []string,
	timeframe string,
) *Server {
	mux := http.NewServeMux()

	s := &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		db:         db,
		clickhouse: ch,
		redis:      redis,
		runs:       runs,
		bars:       bars,
		cache:      cache,
		symbols:    symbols,
		timeframe:  timeframe,
		startTime:  time.Now(),
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReadiness)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReadiness)
	mux.HandleFunc("/status", s.handleStatus)

	return s
}

// Start starts the health check server
func (s *Server) Start() error {
	logger.Info("health check server starting",
		zap.String("addr", s.server.Addr),
	)

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	logger.Info("stopping health check server...")
	return s.server.Shutdown(ctx)
}

// SetReady marks the service as ready
func (s *Server) SetReady(ready bool) {
	s.readyMu.Lock()
	defer s.readyMu.Unlock()
	s.ready = ready
}

func (s *Server) dependencyChecks() (map[string]string, bool) {
	checks := make(map[string]string)
	healthy := true

	report := func(name string, err error) {
		if err != nil {
			checks[name] = "unhealthy: " + err.Error()
			healthy = false
		} else {
			checks[name] = "healthy"
		}
	}

	report("database", s.db.Health())
	report("clickhouse", s.clickhouse.Health())
	report("redis", s.redis.Health())

	return checks, healthy
}

func runStatus(run *summary.Run) RunStatus {
	return RunStatus{
		Status:      run.Status,
		FinishedAt:  run.FinishedAt.UTC().Format(time.RFC3339),
		Age:         time.Since(run.FinishedAt).Round(time.Second).String(),
		FeatureRows: run.FeatureRows,
		Error:       run.Error,
	}
}

// lastRunStatuses reports the latest recorded run per configured symbol
func (s *Server) lastRunStatuses(ctx context.Context) map[string]RunStatus {
	statuses := make(map[string]RunStatus, len(s.symbols))
	for _, symbol := range s.symbols {
		run, err := s.runs.GetLatestRun(ctx, symbol)
		switch {
		case err != nil:
			statuses[symbol] = RunStatus{Status: "unknown", Error: err.Error()}
		case run == nil:
			statuses[symbol] = RunStatus{Status: "never_ran"}
		default:
			statuses[symbol] = runStatus(run)
		}
	}
	return statuses
}

// handleHealth answers liveness probes. Returns 200 as long as the
// process is alive, regardless of dependency state. Verbose mode adds
// dependency checks and the last derive run per symbol.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
	}

	if r.URL.Query().Get("verbose") == "true" {
		checks, _ := s.dependencyChecks()
		status.Checks = checks
		status.LastRuns = s.lastRunStatuses(r.Context())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// handleReadiness answers readiness probes. Ready requires startup to
// have completed and every dependency to respond.
func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	s.readyMu.RLock()
	ready := s.ready
	s.readyMu.RUnlock()

	checks, healthy := s.dependencyChecks()
	isReady := ready && healthy

	status := ReadinessStatus{
		Ready:     isReady,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	w.Header().Set("Content-Type", "application/json")
	if isReady {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	json.NewEncoder(w).Encode(status)
}

// handleStatus serves the operational snapshot: per-symbol last run,
// stored bar coverage, cached summary, and the recent run history.
// Sub-queries degrade independently so a failing store still leaves a
// partial report.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report := StatusReport{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Symbols:   make(map[string]SymbolStatus, len(s.symbols)),
	}

	for _, symbol := range s.symbols {
		var st SymbolStatus

		run, err := s.runs.GetLatestRun(ctx, symbol)
		if err != nil {
			logger.Warn("status: failed to load latest run",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		} else if run != nil {
			rs := runStatus(run)
			st.LastRun = &rs
		}

		count, err := s.bars.GetBarCount(ctx, symbol, s.timeframe)
		if err != nil {
			logger.Warn("status: failed to count bars",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		} else {
			st.BarCount = count
		}

		bar, err := s.bars.GetLatestBar(ctx, symbol, s.timeframe)
		if err == nil && bar != nil {
			st.LatestBar = bar.Timestamp.UTC().Format(time.RFC3339)
		}

		cached, err := s.cache.GetCachedSummary(ctx, symbol)
		if err != nil {
			logger.Warn("status: failed to load cached summary",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
		} else if cached != nil {
			st.Summary = cached
		}

		report.Symbols[symbol] = st
	}

	runs, err := s.runs.ListRuns(ctx, 20)
	if err != nil {
		logger.Warn("status: failed to list recent runs", zap.Error(err))
	}
	for _, run := range runs {
		report.RecentRuns = append(report.RecentRuns, RunRecord{
			ID:         run.ID,
			Symbol:     run.Symbol,
			Status:     run.Status,
			FinishedAt: run.FinishedAt.UTC().Format(time.RFC3339),
			Error:      run.Error,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(report)
}
