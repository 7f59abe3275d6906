package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/stockwatch/internal/scheduler"
	"github.com/aristath/stockwatch/internal/tasks"
)

// SystemHandlers handles system monitoring and manual job trigger endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	service   *tasks.Service
	scheduler *scheduler.Scheduler
	startedAt time.Time
	// Jobs (set after job registration in main.go)
	marketReviewJob  scheduler.Job
	watchlistScanJob scheduler.Job
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(log zerolog.Logger, service *tasks.Service, sched *scheduler.Scheduler) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		service:   service,
		scheduler: sched,
		startedAt: time.Now(),
	}
}

// SetJobs registers job references for manual triggering
// Called after jobs are registered in main.go
func (h *SystemHandlers) SetJobs(marketReview, watchlistScan scheduler.Job) {
	h.marketReviewJob = marketReview
	h.watchlistScanJob = watchlistScan
}

// SystemStatusResponse represents the system status response
type SystemStatusResponse struct {
	Status      string  `json:"status"`
	UptimeSec   int64   `json:"uptime_sec"`
	TaskCount   int     `json:"task_count"`
	Goroutines  int     `json:"goroutines"`
	CPUPercent  float64 `json:"cpu_percent"`
	MemPercent  float64 `json:"mem_percent"`
	MemUsedMB   uint64  `json:"mem_used_mb"`
	HeapAllocMB uint64  `json:"heap_alloc_mb"`
	NumGC       uint32  `json:"num_gc"`
	LastChecked string  `json:"last_checked"`
}

// HandleSystemStatus returns process and host status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	h.log.Debug().Msg("Getting system status")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := SystemStatusResponse{
		Status:      "running",
		UptimeSec:   int64(time.Since(h.startedAt).Seconds()),
		TaskCount:   h.service.Count(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: m.Alloc / 1024 / 1024,
		NumGC:       m.NumGC,
		LastChecked: time.Now().Format(time.RFC3339),
	}

	if vm, err := mem.VirtualMemory(); err == nil {
		response.MemPercent = vm.UsedPercent
		response.MemUsedMB = vm.Used / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to read host memory stats")
	}

	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		response.CPUPercent = percents[0]
	} else if err != nil {
		h.log.Warn().Err(err).Msg("Failed to read CPU stats")
	}

	h.writeJSON(w, response)
}

// HandleTriggerMarketReview triggers the market review job immediately
// POST /api/jobs/market-review
func (h *SystemHandlers) HandleTriggerMarketReview(w http.ResponseWriter, r *http.Request) {
	if h.marketReviewJob == nil {
		h.log.Warn().Msg("Market review job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "Market review job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual market review triggered")

	if err := h.scheduler.RunNow(h.marketReviewJob); err != nil {
		h.log.Error().Err(err).Msg("Failed to trigger market review")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Market review triggered successfully",
	})
}

// HandleTriggerWatchlistScan triggers the watchlist scan job immediately
// POST /api/jobs/watchlist-scan
func (h *SystemHandlers) HandleTriggerWatchlistScan(w http.ResponseWriter, r *http.Request) {
	if h.watchlistScanJob == nil {
		h.log.Warn().Msg("Watchlist scan job not registered yet")
		h.writeJSON(w, map[string]string{
			"status":  "error",
			"message": "Watchlist scan job not registered",
		})
		return
	}

	h.log.Info().Msg("Manual watchlist scan triggered")

	if err := h.scheduler.RunNow(h.watchlistScanJob); err != nil {
		h.log.Error().Err(err).Msg("Failed to trigger watchlist scan")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]string{
		"status":  "success",
		"message": "Watchlist scan triggered successfully",
	})
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
