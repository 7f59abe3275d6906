package analysis

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/domain"
	"github.com/aristath/stockwatch/pkg/formulas"
)

const (
	// fetchBars is how much history a fetch requests from the provider
	fetchBars = 250

	// minBars is the minimum history needed for indicator computation
	minBars = 30
)

// BarSource fetches daily bars from the market data provider
type BarSource interface {
	GetDailyBars(code string, limit int) ([]domain.DailyBar, error)
}

// Pipeline performs single-instrument analysis: fetch and persist market
// data, then derive an advice from the stored history. Analyze deliberately
// reads from the repository rather than the provider so that a failed fetch
// can fall back to previously persisted data.
type Pipeline struct {
	source BarSource
	repo   *Repository
	log    zerolog.Logger
}

// NewPipeline creates a new analysis pipeline
func NewPipeline(source BarSource, repo *Repository, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		source: source,
		repo:   repo,
		log:    log.With().Str("component", "pipeline").Logger(),
	}
}

// FetchAndPersistData pulls recent daily bars for the code and stores them
func (p *Pipeline) FetchAndPersistData(code string) error {
	bars, err := p.source.GetDailyBars(code, fetchBars)
	if err != nil {
		return fmt.Errorf("fetch failed for %s: %w", code, err)
	}

	if err := p.repo.SaveBars(bars); err != nil {
		return fmt.Errorf("persist failed for %s: %w", code, err)
	}

	p.log.Info().Str("code", code).Int("bars", len(bars)).Msg("Market data persisted")
	return nil
}

// Analyze derives an analysis result from stored history for the code
func (p *Pipeline) Analyze(code string) (*domain.AnalysisResult, error) {
	bars, err := p.repo.GetHistory(code, fetchBars)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", code, err)
	}
	if len(bars) < minBars {
		return nil, fmt.Errorf("insufficient history for %s: have %d bars, need %d", code, len(bars), minBars)
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	lastClose := closes[len(closes)-1]
	rsi := formulas.RSI(closes, 14)
	ma20 := formulas.SMA(closes, 20)
	ma60 := formulas.SMA(closes, 60)
	macd := formulas.MACDHistogram(closes)
	volatility := formulas.AnnualizedVolatility(formulas.Returns(closes))

	score := sentimentScore(lastClose, rsi, ma20, ma60, macd)
	advice := adviceFor(score)
	trend := trendFor(lastClose, ma20, ma60)
	confidence := confidenceFor(len(bars), volatility)

	result := &domain.AnalysisResult{
		Code:            code,
		Name:            code,
		OperationAdvice: advice,
		SentimentScore:  score,
		TrendPrediction: trend,
		Confidence:      confidence,
		LastClose:       lastClose,
		RSI:             deref(rsi),
		MA20:            deref(ma20),
		MA60:            deref(ma60),
		Volatility:      volatility,
	}
	result.AnalysisSummary = summarize(result, len(bars))

	p.log.Info().
		Str("code", code).
		Float64("score", score).
		Str("advice", advice).
		Msg("Analysis complete")

	return result, nil
}

// sentimentScore blends indicator signals into a 0-100 score.
// 50 is neutral; moving-average position and RSI dominate, MACD nudges.
func sentimentScore(lastClose float64, rsi, ma20, ma60, macd *float64) float64 {
	score := 50.0

	if ma20 != nil {
		if lastClose > *ma20 {
			score += 12
		} else {
			score -= 12
		}
	}
	if ma60 != nil {
		if lastClose > *ma60 {
			score += 8
		} else {
			score -= 8
		}
	}

	if rsi != nil {
		switch {
		case *rsi >= 70:
			score -= 15 // overbought
		case *rsi <= 30:
			score += 15 // oversold, contrarian
		default:
			score += (*rsi - 50) * 0.4
		}
	}

	if macd != nil {
		if *macd > 0 {
			score += 5
		} else {
			score -= 5
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func adviceFor(score float64) string {
	switch {
	case score >= 70:
		return "buy"
	case score >= 55:
		return "accumulate"
	case score > 45:
		return "hold"
	case score > 30:
		return "reduce"
	default:
		return "sell"
	}
}

func trendFor(lastClose float64, ma20, ma60 *float64) string {
	if ma20 == nil || ma60 == nil {
		return "sideways"
	}
	switch {
	case lastClose > *ma20 && *ma20 > *ma60:
		return "up"
	case lastClose < *ma20 && *ma20 < *ma60:
		return "down"
	default:
		return "sideways"
	}
}

func confidenceFor(barCount int, volatility float64) string {
	if barCount < 60 {
		return "low"
	}
	if volatility > 0.60 {
		return "low"
	}
	if volatility > 0.35 {
		return "medium"
	}
	return "high"
}

func summarize(r *domain.AnalysisResult, barCount int) string {
	return fmt.Sprintf(
		"%s: close %.2f, RSI %.1f, MA20 %.2f, MA60 %.2f, annualized volatility %.0f%%. "+
			"Trend %s, sentiment %.0f/100, advice: %s (confidence %s, %d bars).",
		r.Code, r.LastClose, r.RSI, r.MA20, r.MA60, r.Volatility*100,
		r.TrendPrediction, r.SentimentScore, r.OperationAdvice, r.Confidence, barCount,
	)
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
