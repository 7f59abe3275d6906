package tasks

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/domain"
)

const (
	// DefaultListLimit is used when a caller passes no or an invalid limit
	DefaultListLimit = 20

	// MaxListLimit caps how many tasks a single list call returns
	MaxListLimit = 100

	// MarketSubject is the sentinel code used for market-wide jobs
	MarketSubject = "market"
)

var (
	aShareRe  = regexp.MustCompile(`^\d{6}$`)
	otcFundRe = regexp.MustCompile(`^01\d{4}$`)
	hkStockRe = regexp.MustCompile(`^hk\d{5}$`)
	usStockRe = regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`)
)

// Config wires a Service together. Every collaborator is injected
// explicitly; there is no package-level singleton.
type Config struct {
	Workers  int
	MaxLogs  int
	Pipeline Pipeline
	Notifier Notifier
	Renderer ReportRenderer
	Reviewer MarketReviewer
	Log      zerolog.Logger
}

// Service is the task orchestrator: it accepts job submissions, dispatches
// them to the worker pool, and answers status queries from the registry.
type Service struct {
	registry *Registry
	pool     *WorkerPool
	analysis *analysisRunner
	market   *marketRunner
	log      zerolog.Logger
}

// NewService creates the orchestrator and starts its worker pool
func NewService(cfg Config) *Service {
	log := cfg.Log.With().Str("component", "task_service").Logger()
	registry := NewRegistry(cfg.MaxLogs, cfg.Log)

	return &Service{
		registry: registry,
		pool:     NewWorkerPool(cfg.Workers, cfg.Log),
		analysis: &analysisRunner{
			registry: registry,
			pipeline: cfg.Pipeline,
			notifier: cfg.Notifier,
			renderer: cfg.Renderer,
			log:      log,
		},
		market: &marketRunner{
			registry: registry,
			reviewer: cfg.Reviewer,
			log:      log,
		},
		log: log,
	}
}

// Stop shuts down the worker pool, letting in-flight jobs finish
func (s *Service) Stop() {
	s.pool.Stop()
}

// NormalizeCode validates and canonicalizes an instrument code: six digits
// for A-shares (Shanghai/Shenzhen), hk + five digits for Hong Kong, 1-5
// letters for US tickers. OTC fund codes are rejected.
func NormalizeCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	if code == "" {
		return "", fmt.Errorf("missing required parameter: code")
	}

	lower := strings.ToLower(code)
	upper := strings.ToUpper(code)

	switch {
	case aShareRe.MatchString(lower):
		if otcFundRe.MatchString(lower) {
			return "", fmt.Errorf("OTC fund codes are not supported: %s (use an exchange-traded code such as 510300)", code)
		}
		return lower, nil
	case hkStockRe.MatchString(lower):
		return lower, nil
	case usStockRe.MatchString(upper):
		return upper, nil
	default:
		return "", fmt.Errorf("invalid instrument code: %s (A-share: 6 digits, HK: hk+5 digits, US: 1-5 letters)", code)
	}
}

// SubmitAnalysis validates the code, registers a pending task, and
// dispatches the analysis job. It returns immediately; progress is observed
// through GetTaskStatus/ListTasks.
func (s *Service) SubmitAnalysis(code string, reportType domain.ReportType, sendNotification bool) (*Submission, error) {
	normalized, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}

	taskID := newTaskID(normalized)
	s.registry.Create(&Task{
		ID:               taskID,
		Code:             normalized,
		Kind:             KindAnalysis,
		Status:           StatusPending,
		Stage:            "init",
		StartTime:        time.Now(),
		ReportType:       reportType,
		SendNotification: sendNotification,
		Logs:             []LogEntry{},
	})

	s.pool.Submit(func() {
		s.analysis.Run(taskID, normalized, reportType, sendNotification)
	})

	s.log.Info().
		Str("task_id", taskID).
		Str("code", normalized).
		Str("report_type", string(reportType)).
		Bool("send_notification", sendNotification).
		Msg("Analysis task submitted")

	message := "Analysis task submitted, results will appear when ready"
	if sendNotification {
		message = "Analysis task submitted, a notification will be pushed when done"
	}

	return &Submission{
		TaskID:           taskID,
		Code:             normalized,
		Message:          message,
		ReportType:       reportType,
		SendNotification: sendNotification,
	}, nil
}

// SubmitMarketReview registers and dispatches a whole-market review job
func (s *Service) SubmitMarketReview() *Submission {
	taskID := newTaskID("market_review")
	s.registry.Create(&Task{
		ID:               taskID,
		Code:             MarketSubject,
		Kind:             KindMarketReview,
		Status:           StatusPending,
		Stage:            "market_review",
		StartTime:        time.Now(),
		ReportType:       domain.ReportFull,
		SendNotification: false,
		Logs:             []LogEntry{},
	})

	s.pool.Submit(func() {
		s.market.Run(taskID)
	})

	s.log.Info().Str("task_id", taskID).Msg("Market review task submitted")

	return &Submission{
		TaskID:     taskID,
		Code:       MarketSubject,
		Message:    "Market review task submitted, results will appear when ready",
		ReportType: domain.ReportFull,
	}
}

// GetTaskStatus returns a snapshot of the task, or false for an unknown id
func (s *Service) GetTaskStatus(taskID string) (*Task, bool) {
	return s.registry.Get(taskID)
}

// ListTasks returns the most recent tasks. Non-positive limits fall back to
// the default, oversized limits are clamped.
func (s *Service) ListTasks(limit int) []*Task {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.registry.List(limit)
}

// Count returns the number of tracked tasks
func (s *Service) Count() int {
	return s.registry.Count()
}

// newTaskID builds an id that stays readable and recency-sortable like the
// original subject_timestamp form, with a uuid fragment so two submissions
// within the same instant cannot collide.
func newTaskID(subject string) string {
	return fmt.Sprintf("%s_%s_%s",
		subject,
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
	)
}
