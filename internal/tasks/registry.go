package tasks

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultMaxLogs bounds the per-task log buffer
const DefaultMaxLogs = 200

// Registry is the thread-safe store of task records. A single coarse lock
// guards the whole map: record counts and update rates are low, and every
// update must be atomic with respect to readers.
type Registry struct {
	mu      sync.Mutex
	tasks   map[string]*Task
	maxLogs int
	log     zerolog.Logger
}

// NewRegistry creates a task registry. maxLogs <= 0 selects the default.
func NewRegistry(maxLogs int, log zerolog.Logger) *Registry {
	if maxLogs <= 0 {
		maxLogs = DefaultMaxLogs
	}
	return &Registry{
		tasks:   make(map[string]*Task),
		maxLogs: maxLogs,
		log:     log.With().Str("component", "task_registry").Logger(),
	}
}

// Create inserts a new task record. An existing id is left untouched; the
// caller is responsible for generating unique ids.
func (r *Registry) Create(task *Task) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tasks[task.ID]; exists {
		r.log.Warn().Str("task_id", task.ID).Msg("Task id already exists, create ignored")
		return
	}

	r.tasks[task.ID] = task.Clone()
}

// Get returns a snapshot of the task, or false for an unknown id
func (r *Registry) Get(id string) (*Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, false
	}
	return task.Clone(), true
}

// List returns snapshots of at most limit tasks, most recently started
// first. Ties on start time are broken by id so a single call is
// deterministic.
func (r *Registry) List(limit int) []*Task {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Task, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task.Clone())
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})

	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Count returns the number of tracked tasks
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// Update merges the non-nil fields of update into the task. Unknown ids are
// a no-op. A terminal task never changes status again.
func (r *Registry) Update(id string, update TaskUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return
	}

	if update.Status != nil {
		if task.Status.Terminal() {
			r.log.Warn().
				Str("task_id", id).
				Str("from", string(task.Status)).
				Str("to", string(*update.Status)).
				Msg("Ignoring status change on terminal task")
		} else {
			task.Status = *update.Status
		}
	}
	if update.Stage != nil {
		task.Stage = *update.Stage
	}
	if update.Progress != nil {
		task.Progress = *update.Progress
	}
	if update.Result != nil {
		task.Result = update.Result
	}
	if update.Error != nil {
		task.Error = *update.Error
	}
	if update.EndTime != nil {
		end := *update.EndTime
		task.EndTime = &end
	}
}

// AppendLog appends one log entry and optionally moves stage/progress in the
// same critical section. The log buffer is trimmed FIFO to the configured
// bound. Unknown ids are a no-op.
func (r *Registry) AppendLog(id, level, message string, stage *string, progress *int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return
	}

	task.Logs = append(task.Logs, LogEntry{
		TS:      time.Now().Format(time.RFC3339Nano),
		Level:   level,
		Message: message,
	})
	if len(task.Logs) > r.maxLogs {
		task.Logs = task.Logs[len(task.Logs)-r.maxLogs:]
	}

	if stage != nil {
		task.Stage = *stage
	}
	if progress != nil {
		task.Progress = *progress
	}
}
