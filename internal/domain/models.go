package domain

import "strings"

// ReportType selects how much detail a rendered report carries
type ReportType string

const (
	ReportSimple ReportType = "simple"
	ReportFull   ReportType = "full"
)

// ReportTypeFromString parses a report type, defaulting to simple
func ReportTypeFromString(s string) ReportType {
	if strings.EqualFold(strings.TrimSpace(s), string(ReportFull)) {
		return ReportFull
	}
	return ReportSimple
}

// AnalysisResult is the outcome of analyzing a single instrument
type AnalysisResult struct {
	Code            string  `json:"code"`
	Name            string  `json:"name"`
	OperationAdvice string  `json:"operation_advice"`
	SentimentScore  float64 `json:"sentiment_score"`
	TrendPrediction string  `json:"trend_prediction"`
	Confidence      string  `json:"confidence"`
	AnalysisSummary string  `json:"analysis_summary"`

	// Supporting indicator values surfaced for display
	LastClose  float64 `json:"last_close"`
	RSI        float64 `json:"rsi"`
	MA20       float64 `json:"ma20"`
	MA60       float64 `json:"ma60"`
	Volatility float64 `json:"volatility"`
}

// ToMap serializes the result to a plain key-value structure for task
// records and JSON responses. Report fields are attached by the caller.
func (r *AnalysisResult) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"code":             r.Code,
		"name":             r.Name,
		"operation_advice": r.OperationAdvice,
		"sentiment_score":  r.SentimentScore,
		"trend_prediction": r.TrendPrediction,
		"confidence":       r.Confidence,
		"analysis_summary": r.AnalysisSummary,
		"last_close":       r.LastClose,
		"rsi":              r.RSI,
		"ma20":             r.MA20,
		"ma60":             r.MA60,
		"volatility":       r.Volatility,
	}
}

// DailyBar is a single day of OHLCV data for an instrument
type DailyBar struct {
	Code   string  `json:"code"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// IndexQuote is a point-in-time snapshot of a market index
type IndexQuote struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Last          float64 `json:"last"`
	ChangePercent float64 `json:"change_percent"`
	Turnover      float64 `json:"turnover"`
}

// MarketOverview aggregates index snapshots for the review report
type MarketOverview struct {
	Date    string       `json:"date"`
	Indexes []IndexQuote `json:"indexes"`
}
