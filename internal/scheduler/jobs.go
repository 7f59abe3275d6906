package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/internal/tasks"
)

// MarketReviewJob submits a scheduled market review task.
type MarketReviewJob struct {
	service *tasks.Service
	log     zerolog.Logger
}

func NewMarketReviewJob(service *tasks.Service, log zerolog.Logger) *MarketReviewJob {
	return &MarketReviewJob{
		service: service,
		log:     log.With().Str("job", "market_review").Logger(),
	}
}

func (j *MarketReviewJob) Name() string {
	return "market_review"
}

func (j *MarketReviewJob) Run() error {
	sub := j.service.SubmitMarketReview()
	j.log.Info().Str("task_id", sub.TaskID).Msg("Market review submitted")
	return nil
}

// WatchlistScanJob submits an analysis task for every code on the watchlist.
type WatchlistScanJob struct {
	service *tasks.Service
	envFile *config.EnvFile
	log     zerolog.Logger
}

func NewWatchlistScanJob(service *tasks.Service, envFile *config.EnvFile, log zerolog.Logger) *WatchlistScanJob {
	return &WatchlistScanJob{
		service: service,
		envFile: envFile,
		log:     log.With().Str("job", "watchlist_scan").Logger(),
	}
}

func (j *WatchlistScanJob) Name() string {
	return "watchlist_scan"
}

func (j *WatchlistScanJob) Run() error {
	codes, err := j.envFile.Codes()
	if err != nil {
		return err
	}

	if len(codes) == 0 {
		j.log.Info().Msg("Watchlist is empty, nothing to scan")
		return nil
	}

	submitted := 0
	for _, code := range codes {
		sub, err := j.service.SubmitAnalysis(code, domain.ReportSimple, true)
		if err != nil {
			j.log.Warn().Err(err).Str("code", code).Msg("Skipping watchlist entry")
			continue
		}
		submitted++
		j.log.Debug().Str("code", code).Str("task_id", sub.TaskID).Msg("Analysis submitted")
	}

	j.log.Info().
		Int("submitted", submitted).
		Int("total", len(codes)).
		Msg("Watchlist scan complete")

	return nil
}
