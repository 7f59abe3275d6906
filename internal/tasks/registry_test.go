package tasks

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTask(id string, start time.Time) *Task {
	return &Task{
		ID:        id,
		Code:      "600519",
		Kind:      KindAnalysis,
		Status:    StatusPending,
		Stage:     "init",
		StartTime: start,
		Logs:      []LogEntry{},
	}
}

func TestRegistry_CreateAndGet(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	task, ok := reg.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, StatusPending, task.Status)
}

func TestRegistry_GetUnknown(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())

	task, ok := reg.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, task)
}

func TestRegistry_CreateDuplicateIgnored(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())

	first := newTask("t1", time.Now())
	first.Code = "600519"
	reg.Create(first)

	dup := newTask("t1", time.Now())
	dup.Code = "000001"
	reg.Create(dup)

	task, ok := reg.Get("t1")
	require.True(t, ok)
	assert.Equal(t, "600519", task.Code, "existing record must not be overwritten")
}

func TestRegistry_GetReturnsSnapshot(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	snap, _ := reg.Get("t1")
	snap.Status = StatusFailed
	snap.Logs = append(snap.Logs, LogEntry{Message: "tampered"})

	fresh, _ := reg.Get("t1")
	assert.Equal(t, StatusPending, fresh.Status)
	assert.Empty(t, fresh.Logs)
}

func TestRegistry_UpdateMergesFields(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	status := StatusRunning
	stage := "analyze"
	progress := 55
	reg.Update("t1", TaskUpdate{Status: &status, Stage: &stage, Progress: &progress})

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusRunning, task.Status)
	assert.Equal(t, "analyze", task.Stage)
	assert.Equal(t, 55, task.Progress)
	// Untouched fields survive the merge
	assert.Equal(t, "600519", task.Code)
}

func TestRegistry_UpdateUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())

	status := StatusRunning
	assert.NotPanics(t, func() {
		reg.Update("missing", TaskUpdate{Status: &status})
	})
}

func TestRegistry_TerminalStatusNeverReverts(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	completed := StatusCompleted
	reg.Update("t1", TaskUpdate{Status: &completed})

	running := StatusRunning
	reg.Update("t1", TaskUpdate{Status: &running})

	task, _ := reg.Get("t1")
	assert.Equal(t, StatusCompleted, task.Status)
}

func TestRegistry_MultipleResultWrites(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	reg.Update("t1", TaskUpdate{Result: map[string]interface{}{"operation_advice": "hold"}})
	reg.Update("t1", TaskUpdate{Result: map[string]interface{}{
		"operation_advice": "hold",
		"report_markdown":  "## report",
	}})

	task, _ := reg.Get("t1")
	assert.Equal(t, "## report", task.Result["report_markdown"])
}

func TestRegistry_AppendLogTrimsFIFO(t *testing.T) {
	reg := NewRegistry(5, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	for i := 0; i < 8; i++ {
		reg.AppendLog("t1", LevelInfo, fmt.Sprintf("entry %d", i), nil, nil)
	}

	task, _ := reg.Get("t1")
	require.Len(t, task.Logs, 5)
	// Oldest entries dropped, relative order preserved
	assert.Equal(t, "entry 3", task.Logs[0].Message)
	assert.Equal(t, "entry 7", task.Logs[4].Message)
}

func TestRegistry_AppendLogUpdatesStageAndProgress(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	reg.Create(newTask("t1", time.Now()))

	stage := "fetch_data"
	progress := 18
	reg.AppendLog("t1", LevelInfo, "fetching", &stage, &progress)

	task, _ := reg.Get("t1")
	assert.Equal(t, "fetch_data", task.Stage)
	assert.Equal(t, 18, task.Progress)
	require.Len(t, task.Logs, 1)
	assert.Equal(t, LevelInfo, task.Logs[0].Level)
}

func TestRegistry_AppendLogUnknownIsNoop(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	assert.NotPanics(t, func() {
		reg.AppendLog("missing", LevelInfo, "msg", nil, nil)
	})
}

func TestRegistry_ListOrdering(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	base := time.Now()
	reg.Create(newTask("t1", base.Add(-2*time.Minute)))
	reg.Create(newTask("t2", base.Add(-1*time.Minute)))
	reg.Create(newTask("t3", base))

	list := reg.List(10)
	require.Len(t, list, 3)
	assert.Equal(t, "t3", list[0].ID)
	assert.Equal(t, "t2", list[1].ID)
	assert.Equal(t, "t1", list[2].ID)

	for i := 1; i < len(list); i++ {
		assert.False(t, list[i-1].StartTime.Before(list[i].StartTime))
	}
}

func TestRegistry_ListLimit(t *testing.T) {
	reg := NewRegistry(0, zerolog.Nop())
	for i := 0; i < 5; i++ {
		reg.Create(newTask(fmt.Sprintf("t%d", i), time.Now()))
	}

	assert.Len(t, reg.List(3), 3)
	assert.Len(t, reg.List(10), 5)
	assert.Empty(t, reg.List(0))
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	reg := NewRegistry(50, zerolog.Nop())
	for i := 0; i < 10; i++ {
		reg.Create(newTask(fmt.Sprintf("t%d", i), time.Now()))
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("t%d", i)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				progress := j
				reg.AppendLog(id, LevelInfo, "tick", nil, &progress)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Get(id)
				reg.List(5)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		task, ok := reg.Get(fmt.Sprintf("t%d", i))
		require.True(t, ok)
		assert.LessOrEqual(t, len(task.Logs), 50)
	}
}
