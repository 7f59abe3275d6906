package tasks

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockwatch/internal/domain"
)

// mockPipeline scripts fetch and analyze outcomes
type mockPipeline struct {
	fetchErr   error
	analyzeErr error
	result     *domain.AnalysisResult
	fetched    []string
}

func (m *mockPipeline) FetchAndPersistData(code string) error {
	m.fetched = append(m.fetched, code)
	return m.fetchErr
}

func (m *mockPipeline) Analyze(code string) (*domain.AnalysisResult, error) {
	if m.analyzeErr != nil {
		return nil, m.analyzeErr
	}
	return m.result, nil
}

type mockNotifier struct {
	available bool
	sendOK    bool
	sent      []string
}

func (m *mockNotifier) IsAvailable() bool { return m.available }
func (m *mockNotifier) Send(content string) bool {
	m.sent = append(m.sent, content)
	return m.sendOK
}

type mockRenderer struct {
	err        error
	single     int
	dashboards int
}

func (m *mockRenderer) RenderSingle(result *domain.AnalysisResult) (string, error) {
	m.single++
	if m.err != nil {
		return "", m.err
	}
	return "## single report", nil
}

func (m *mockRenderer) RenderDashboard(results []*domain.AnalysisResult) (string, error) {
	m.dashboards++
	if m.err != nil {
		return "", m.err
	}
	return "# dashboard report", nil
}

type mockReviewer struct {
	text string
	err  error
}

func (m *mockReviewer) Run() (string, error) { return m.text, m.err }

func goodResult() *domain.AnalysisResult {
	return &domain.AnalysisResult{
		Code:            "600519",
		Name:            "600519",
		OperationAdvice: "buy",
		SentimentScore:  72,
		TrendPrediction: "up",
		Confidence:      "high",
	}
}

func newAnalysisRunner(reg *Registry, p Pipeline, n Notifier, r ReportRenderer) *analysisRunner {
	return &analysisRunner{
		registry: reg,
		pipeline: p,
		notifier: n,
		renderer: r,
		log:      zerolog.Nop(),
	}
}

func createAnalysisTask(reg *Registry, id string) {
	reg.Create(&Task{
		ID:        id,
		Code:      "600519",
		Kind:      KindAnalysis,
		Status:    StatusPending,
		Stage:     "init",
		StartTime: time.Now(),
		Logs:      []LogEntry{},
	})
}

func TestAnalysisRunner_HappyPath(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	pipeline := &mockPipeline{result: goodResult()}
	renderer := &mockRenderer{}
	runner := newAnalysisRunner(reg, pipeline, &mockNotifier{}, renderer)

	runner.Run("t1", "600519", domain.ReportSimple, false)

	task, ok := reg.Get("t1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, "done", task.Stage)
	assert.Equal(t, 100, task.Progress)
	assert.NotNil(t, task.EndTime)
	assert.Empty(t, task.Error)
	assert.Equal(t, "buy", task.Result["operation_advice"])
	assert.Equal(t, "## single report", task.Result["report_markdown"])
	assert.Equal(t, 1, renderer.single)
	assert.Equal(t, []string{"600519"}, pipeline.fetched)
}

func TestAnalysisRunner_FullReportUsesDashboard(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	renderer := &mockRenderer{}
	runner := newAnalysisRunner(reg, &mockPipeline{result: goodResult()}, &mockNotifier{}, renderer)

	runner.Run("t1", "600519", domain.ReportFull, false)

	assert.Equal(t, 1, renderer.dashboards)
	assert.Equal(t, 0, renderer.single)
}

func TestAnalysisRunner_FetchFailureIsBestEffort(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	pipeline := &mockPipeline{
		fetchErr: fmt.Errorf("provider down"),
		result:   goodResult(),
	}
	runner := newAnalysisRunner(reg, pipeline, &mockNotifier{}, &mockRenderer{})

	runner.Run("t1", "600519", domain.ReportSimple, false)

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusCompleted, task.Status, "fetch failure must not fail the job")

	var sawWarning bool
	for _, entry := range task.Logs {
		if entry.Level == LevelWarning {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning, "fetch failure must be logged as a warning")
}

func TestAnalysisRunner_AnalyzeFailure(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	runner := newAnalysisRunner(reg, &mockPipeline{analyzeErr: fmt.Errorf("no data")}, &mockNotifier{}, &mockRenderer{})
	runner.Run("t1", "600519", domain.ReportSimple, false)

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.Equal(t, "failed", task.Stage)
	assert.Equal(t, 100, task.Progress)
	assert.Contains(t, task.Error, "no data")
	assert.NotNil(t, task.EndTime)
}

func TestAnalysisRunner_NilResultFails(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	runner := newAnalysisRunner(reg, &mockPipeline{}, &mockNotifier{}, &mockRenderer{})
	runner.Run("t1", "600519", domain.ReportSimple, false)

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.NotEmpty(t, task.Error)
}

func TestAnalysisRunner_RenderFailureDegradesToEmptyReport(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	renderer := &mockRenderer{err: fmt.Errorf("template broken")}
	runner := newAnalysisRunner(reg, &mockPipeline{result: goodResult()}, &mockNotifier{}, renderer)

	runner.Run("t1", "600519", domain.ReportSimple, false)

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusCompleted, task.Status, "render failure must not fail the job")
	assert.Equal(t, "", task.Result["report_markdown"])
	assert.Equal(t, "buy", task.Result["operation_advice"], "analysis result survives render failure")
}

func TestAnalysisRunner_NotificationPushed(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	notifier := &mockNotifier{available: true, sendOK: true}
	runner := newAnalysisRunner(reg, &mockPipeline{result: goodResult()}, notifier, &mockRenderer{})

	runner.Run("t1", "600519", domain.ReportSimple, true)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "## single report", notifier.sent[0])

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestAnalysisRunner_NotificationFailureOnlyLogged(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	notifier := &mockNotifier{available: true, sendOK: false}
	runner := newAnalysisRunner(reg, &mockPipeline{result: goodResult()}, notifier, &mockRenderer{})

	runner.Run("t1", "600519", domain.ReportSimple, true)

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusCompleted, task.Status, "push failure never fails the job")

	var sawPushWarning bool
	for _, entry := range task.Logs {
		if entry.Level == LevelWarning {
			sawPushWarning = true
		}
	}
	assert.True(t, sawPushWarning)
}

func TestAnalysisRunner_NoNotificationWhenUnavailable(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	notifier := &mockNotifier{available: false}
	runner := newAnalysisRunner(reg, &mockPipeline{result: goodResult()}, notifier, &mockRenderer{})

	runner.Run("t1", "600519", domain.ReportSimple, true)

	assert.Empty(t, notifier.sent)
}

func TestAnalysisRunner_PanicContained(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	runner := newAnalysisRunner(reg, &panickyPipeline{}, &mockNotifier{}, &mockRenderer{})

	assert.NotPanics(t, func() {
		runner.Run("t1", "600519", domain.ReportSimple, false)
	})

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "panicked")
}

type panickyPipeline struct{}

func (p *panickyPipeline) FetchAndPersistData(code string) error { return nil }
func (p *panickyPipeline) Analyze(code string) (*domain.AnalysisResult, error) {
	panic("pipeline exploded")
}

func TestAnalysisRunner_StageProgression(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	createAnalysisTask(reg, "t1")

	runner := newAnalysisRunner(reg, &mockPipeline{result: goodResult()}, &mockNotifier{}, &mockRenderer{})
	runner.Run("t1", "600519", domain.ReportSimple, false)

	task, _ := reg.Get("t1")
	require.NotEmpty(t, task.Logs)
	assert.Equal(t, "done", task.Stage)
	assert.Equal(t, 100, task.Progress)

	// Log messages record the stage markers in execution order
	var messages []string
	for _, entry := range task.Logs {
		messages = append(messages, entry.Message)
	}
	assert.Equal(t, []string{
		"Task started: 600519",
		"Initializing analysis pipeline",
		"Step 1/3: fetching market data",
		"Market data ready",
		"Step 2/3: running analysis",
		"Step 3/3: rendering report",
		"Report generated",
		"Task completed",
	}, messages)
}

func TestMarketRunner_HappyPath(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(&Task{
		ID:        "m1",
		Code:      MarketSubject,
		Kind:      KindMarketReview,
		Status:    StatusPending,
		Stage:     "market_review",
		StartTime: time.Now(),
		Logs:      []LogEntry{},
	})

	runner := &marketRunner{
		registry: reg,
		reviewer: &mockReviewer{text: "indexes closed higher"},
		log:      zerolog.Nop(),
	}
	runner.Run("m1")

	task, ok := reg.Get("m1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.Contains(t, task.Result["report_markdown"], "indexes closed higher")
	assert.Equal(t, "Market Review", task.Result["name"])
}

func TestMarketRunner_EmptyReviewFails(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(&Task{ID: "m1", Kind: KindMarketReview, Status: StatusPending, StartTime: time.Now()})

	runner := &marketRunner{registry: reg, reviewer: &mockReviewer{text: ""}, log: zerolog.Nop()}
	runner.Run("m1")

	task, _ := reg.Get("m1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.NotEmpty(t, task.Error)
}

func TestMarketRunner_ReviewerErrorFails(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(&Task{ID: "m1", Kind: KindMarketReview, Status: StatusPending, StartTime: time.Now()})

	runner := &marketRunner{
		registry: reg,
		reviewer: &mockReviewer{err: fmt.Errorf("index feed down")},
		log:      zerolog.Nop(),
	}
	runner.Run("m1")

	task, _ := reg.Get("m1")
	assert.Equal(t, StatusFailed, task.Status)
	assert.Contains(t, task.Error, "index feed down")
}
