package tasks

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/domain"
)

// Pipeline is the external collaborator performing the actual analysis work
type Pipeline interface {
	FetchAndPersistData(code string) error
	Analyze(code string) (*domain.AnalysisResult, error)
}

// Notifier pushes a rendered report to the configured channel
type Notifier interface {
	IsAvailable() bool
	Send(content string) bool
}

// ReportRenderer turns analysis results into markdown report text
type ReportRenderer interface {
	RenderSingle(result *domain.AnalysisResult) (string, error)
	RenderDashboard(results []*domain.AnalysisResult) (string, error)
}

// analysisRunner executes a single-instrument analysis job, writing every
// stage transition back into the registry so status queries can watch the
// job move: init -> fetch_data -> analyze -> render_report -> notify -> done.
type analysisRunner struct {
	registry *Registry
	pipeline Pipeline
	notifier Notifier
	renderer ReportRenderer
	log      zerolog.Logger
}

// Run drives the job to a terminal state. It never returns an error: all
// failures are recorded on the task itself.
func (r *analysisRunner) Run(taskID, code string, reportType domain.ReportType, sendNotification bool) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(taskID, fmt.Sprintf("analysis panicked: %v", rec))
		}
	}()

	r.setStatus(taskID, StatusRunning)
	r.logStage(taskID, LevelInfo, fmt.Sprintf("Task started: %s", code), "init", 3)
	r.logStage(taskID, LevelInfo, "Initializing analysis pipeline", "init", 8)

	// Step 1: fetch market data. Best-effort: the pipeline can analyze
	// previously persisted data, so a fetch failure is only a warning.
	r.logStage(taskID, LevelInfo, "Step 1/3: fetching market data", "fetch_data", 18)
	if err := r.pipeline.FetchAndPersistData(code); err != nil {
		r.log.Warn().Err(err).Str("code", code).Msg("Market data fetch failed, continuing with stored data")
		r.logStage(taskID, LevelWarning,
			fmt.Sprintf("Market data fetch failed: %v (continuing with stored data)", err),
			"fetch_data", 35)
	} else {
		r.logStage(taskID, LevelInfo, "Market data ready", "fetch_data", 35)
	}

	// Step 2: analysis
	r.logStage(taskID, LevelInfo, "Step 2/3: running analysis", "analyze", 55)
	result, err := r.pipeline.Analyze(code)
	if err != nil {
		r.fail(taskID, fmt.Sprintf("analysis failed: %v", err))
		return
	}
	if result == nil {
		r.fail(taskID, "analysis returned empty result")
		return
	}

	// Write the partial result immediately so status queries can show the
	// advice and score before the report finishes rendering.
	resultData := result.ToMap()
	r.registry.Update(taskID, TaskUpdate{Result: cloneResult(resultData)})

	// Step 3: render the report. A rendering failure degrades to an empty
	// report; the analysis itself still counts as completed.
	r.logStage(taskID, LevelInfo, "Step 3/3: rendering report", "render_report", 85)
	markdown, renderErr := r.render(result, reportType)
	if renderErr != nil {
		r.log.Warn().Err(renderErr).Str("code", code).Msg("Report rendering failed")
		markdown = ""
	}
	resultData["report_markdown"] = markdown
	r.registry.Update(taskID, TaskUpdate{Result: cloneResult(resultData)})
	r.logStage(taskID, LevelInfo, "Report generated", "render_report", 92)

	// Optional push. Best-effort: outcome is logged, never escalated.
	if sendNotification && r.notifier != nil && r.notifier.IsAvailable() && renderErr == nil {
		r.logStage(taskID, LevelInfo, "Pushing notification", "notify", 95)
		if markdown != "" && r.notifier.Send(markdown) {
			r.logStage(taskID, LevelInfo, "Notification pushed", "notify", 97)
		} else {
			r.logStage(taskID, LevelWarning, "Notification push failed or channel not configured", "notify", 97)
		}
	}

	r.complete(taskID, resultData)
	r.log.Info().
		Str("task_id", taskID).
		Str("code", code).
		Str("advice", result.OperationAdvice).
		Msg("Analysis task completed")
}

func (r *analysisRunner) render(result *domain.AnalysisResult, reportType domain.ReportType) (string, error) {
	if r.renderer == nil {
		return "", fmt.Errorf("no renderer configured")
	}
	if reportType == domain.ReportFull {
		return r.renderer.RenderDashboard([]*domain.AnalysisResult{result})
	}
	return r.renderer.RenderSingle(result)
}

func (r *analysisRunner) setStatus(taskID string, status Status) {
	r.registry.Update(taskID, TaskUpdate{Status: &status})
}

func (r *analysisRunner) logStage(taskID, level, message, stage string, progress int) {
	r.registry.AppendLog(taskID, level, message, &stage, &progress)
}

func (r *analysisRunner) complete(taskID string, resultData map[string]interface{}) {
	status := StatusCompleted
	now := time.Now()
	r.registry.Update(taskID, TaskUpdate{
		Status:  &status,
		Result:  cloneResult(resultData),
		EndTime: &now,
	})
	r.logStage(taskID, LevelInfo, "Task completed", "done", 100)
}

func (r *analysisRunner) fail(taskID, message string) {
	status := StatusFailed
	now := time.Now()
	r.registry.Update(taskID, TaskUpdate{
		Status:  &status,
		Error:   &message,
		EndTime: &now,
	})
	r.logStage(taskID, LevelError, "Task failed: "+message, "failed", 100)
	r.log.Error().Str("task_id", taskID).Str("error", message).Msg("Analysis task failed")
}

// cloneResult copies the top-level result map so the registry's copy cannot
// alias the runner's working map
func cloneResult(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
