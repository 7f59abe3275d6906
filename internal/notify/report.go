package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stockwatch/internal/domain"
)

// GenerateSingleReport renders a compact markdown report for one instrument
func GenerateSingleReport(result *domain.AnalysisResult) string {
	if result == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%s)\n\n", result.Name, result.Code)
	fmt.Fprintf(&b, "- Advice: **%s**\n", result.OperationAdvice)
	fmt.Fprintf(&b, "- Sentiment: %.0f/100\n", result.SentimentScore)
	fmt.Fprintf(&b, "- Trend: %s (confidence %s)\n", result.TrendPrediction, result.Confidence)
	fmt.Fprintf(&b, "- Close: %.2f | RSI: %.1f | MA20: %.2f | MA60: %.2f\n",
		result.LastClose, result.RSI, result.MA20, result.MA60)

	if result.AnalysisSummary != "" {
		fmt.Fprintf(&b, "\n%s\n", result.AnalysisSummary)
	}

	return b.String()
}

// GenerateDashboardReport renders a full markdown dashboard for a batch of
// results, one section per instrument plus a header
func GenerateDashboardReport(results []*domain.AnalysisResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Analysis Dashboard — %s\n\n", time.Now().Format("2006-01-02"))
	fmt.Fprintf(&b, "%d instruments analyzed.\n\n", len(results))

	for _, r := range results {
		if r == nil {
			continue
		}
		b.WriteString(GenerateSingleReport(r))
		b.WriteString("\n---\n\n")
	}

	return b.String()
}
