package notify

import "github.com/aristath/stockwatch/internal/domain"

// Renderer adapts the report generators to the task runner's renderer
// interface
type Renderer struct{}

// RenderSingle renders the compact single-instrument report
func (Renderer) RenderSingle(result *domain.AnalysisResult) (string, error) {
	return GenerateSingleReport(result), nil
}

// RenderDashboard renders the full dashboard report
func (Renderer) RenderDashboard(results []*domain.AnalysisResult) (string, error) {
	return GenerateDashboardReport(results), nil
}
