package tasks

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MarketReviewer is the external collaborator producing the whole-market
// review narrative. An empty narrative is a failure.
type MarketReviewer interface {
	Run() (string, error)
}

// marketRunner executes a market review job: a single logical stage, in
// contrast to the staged single-instrument runner. The review collaborator
// failing or returning nothing fails the job.
type marketRunner struct {
	registry *Registry
	reviewer MarketReviewer
	log      zerolog.Logger
}

// Run drives the review to a terminal state, recording failures on the task
func (r *marketRunner) Run(taskID string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.fail(taskID, fmt.Sprintf("market review panicked: %v", rec))
		}
	}()

	r.setStatus(taskID, StatusRunning)
	r.logStage(taskID, LevelInfo, "Task started: market review", "market_review", 5)
	r.logStage(taskID, LevelInfo, "Running market review", "market_review", 35)

	review, err := r.reviewer.Run()
	if err != nil {
		r.fail(taskID, fmt.Sprintf("market review failed: %v", err))
		return
	}
	if review == "" {
		r.fail(taskID, "market review returned empty result")
		return
	}

	resultData := map[string]interface{}{
		"name":             "Market Review",
		"report_markdown":  "# Market Review\n\n" + review,
		"analysis_summary": "",
		"trend_prediction": "",
		"operation_advice": "",
	}

	status := StatusCompleted
	now := time.Now()
	r.registry.Update(taskID, TaskUpdate{
		Status:  &status,
		Result:  resultData,
		EndTime: &now,
	})
	r.logStage(taskID, LevelInfo, "Task completed: market review", "done", 100)
	r.log.Info().Str("task_id", taskID).Msg("Market review task completed")
}

func (r *marketRunner) setStatus(taskID string, status Status) {
	r.registry.Update(taskID, TaskUpdate{Status: &status})
}

func (r *marketRunner) logStage(taskID, level, message, stage string, progress int) {
	r.registry.AppendLog(taskID, level, message, &stage, &progress)
}

func (r *marketRunner) fail(taskID, message string) {
	status := StatusFailed
	now := time.Now()
	r.registry.Update(taskID, TaskUpdate{
		Status:  &status,
		Error:   &message,
		EndTime: &now,
	})
	r.logStage(taskID, LevelError, "Task failed: "+message, "failed", 100)
	r.log.Error().Str("task_id", taskID).Str("error", message).Msg("Market review task failed")
}
