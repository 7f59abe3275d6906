package tasks

import (
	"time"

	"github.com/aristath/stockwatch/internal/domain"
)

// Status is the lifecycle state of a task
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is final
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Kind distinguishes the two job types
type Kind string

const (
	KindAnalysis     Kind = "analysis"
	KindMarketReview Kind = "market_review"
)

// Log levels used in task log entries
const (
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// LogEntry is a single progress log line attached to a task
type LogEntry struct {
	TS      string `json:"ts"`
	Level   string `json:"level"`
	Message string `json:"msg"`
}

// Task is the tracked state of one submitted job. The registry owns all Task
// values; callers only ever see clones.
type Task struct {
	ID               string                 `json:"task_id"`
	Code             string                 `json:"code"`
	Kind             Kind                   `json:"kind"`
	Status           Status                 `json:"status"`
	Stage            string                 `json:"stage"`
	Progress         int                    `json:"progress"`
	StartTime        time.Time              `json:"start_time"`
	EndTime          *time.Time             `json:"end_time,omitempty"`
	Result           map[string]interface{} `json:"result"`
	Error            string                 `json:"error,omitempty"`
	ReportType       domain.ReportType      `json:"report_type"`
	SendNotification bool                   `json:"send_notification"`
	Logs             []LogEntry             `json:"logs"`
}

// Clone returns a snapshot safe to hand to readers. Log entries and the
// top-level result map are copied; nested result values are treated as
// immutable once written.
func (t *Task) Clone() *Task {
	c := *t

	if t.EndTime != nil {
		end := *t.EndTime
		c.EndTime = &end
	}

	if t.Result != nil {
		c.Result = make(map[string]interface{}, len(t.Result))
		for k, v := range t.Result {
			c.Result[k] = v
		}
	}

	c.Logs = make([]LogEntry, len(t.Logs))
	copy(c.Logs, t.Logs)

	return &c
}

// TaskUpdate carries a partial field merge for Registry.Update. Nil fields
// are left untouched.
type TaskUpdate struct {
	Status   *Status
	Stage    *string
	Progress *int
	Result   map[string]interface{}
	Error    *string
	EndTime  *time.Time
}

// Submission is the immediate acknowledgment returned by submit calls
type Submission struct {
	TaskID           string            `json:"task_id"`
	Code             string            `json:"code"`
	Message          string            `json:"message"`
	ReportType       domain.ReportType `json:"report_type"`
	SendNotification bool              `json:"send_notification"`
}
