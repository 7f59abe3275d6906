package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockwatch/internal/clients/search"
	"github.com/aristath/stockwatch/internal/domain"
)

// IndexSource provides market index snapshots
type IndexSource interface {
	GetIndexQuotes() ([]domain.IndexQuote, error)
}

// Narrator generates narrative text from a prompt (optional AI collaborator)
type Narrator interface {
	Available() bool
	Generate(prompt string) (string, error)
}

// NewsSearcher finds recent market news (optional collaborator)
type NewsSearcher interface {
	Available() bool
	Search(query string, limit int) ([]search.Result, error)
}

// ReviewNotifier persists and optionally pushes a finished review
type ReviewNotifier interface {
	IsAvailable() bool
	Send(content string) bool
	SaveToFile(content, filename string) (string, error)
}

// Service produces the daily whole-market review. The AI narrator and news
// searcher are optional; when absent the review is built from index data
// alone with reduced capability.
type Service struct {
	source   IndexSource
	narrator Narrator
	searcher NewsSearcher
	log      zerolog.Logger
}

// NewService creates a market review service
func NewService(source IndexSource, narrator Narrator, searcher NewsSearcher, log zerolog.Logger) *Service {
	return &Service{
		source:   source,
		narrator: narrator,
		searcher: searcher,
		log:      log.With().Str("component", "market_review").Logger(),
	}
}

// Run executes the review and returns the full markdown text. The report is
// saved through the notifier and pushed when the notifier allows it. An
// empty review is an error: the caller treats it as the job's failure.
func (s *Service) Run(notifier ReviewNotifier) (string, error) {
	overview, err := s.buildOverview()
	if err != nil {
		return "", fmt.Errorf("failed to build market overview: %w", err)
	}

	snapshot := formatOverviewMarkdown(overview)
	narrative := s.buildNarrative(overview)
	if narrative == "" {
		return "", fmt.Errorf("market review produced no narrative")
	}

	full := snapshot + "\n\n---\n\n" + narrative

	filename := fmt.Sprintf("market_review_%s.md", time.Now().Format("20060102"))
	if path, err := notifier.SaveToFile("# Market Review\n\n"+full, filename); err != nil {
		s.log.Warn().Err(err).Msg("Failed to save review report")
	} else {
		s.log.Info().Str("path", path).Msg("Review report saved")
	}

	if notifier.IsAvailable() {
		if notifier.Send("Market Review\n\n" + full) {
			s.log.Info().Msg("Review pushed")
		} else {
			s.log.Warn().Msg("Review push failed")
		}
	}

	return full, nil
}

func (s *Service) buildOverview() (*domain.MarketOverview, error) {
	quotes, err := s.source.GetIndexQuotes()
	if err != nil {
		return nil, err
	}
	if len(quotes) == 0 {
		return nil, fmt.Errorf("no index quotes available")
	}

	return &domain.MarketOverview{
		Date:    time.Now().Format("2006-01-02"),
		Indexes: quotes,
	}, nil
}

// buildNarrative prefers the AI narrator, falling back to a data-driven
// summary when the narrator is missing or fails
func (s *Service) buildNarrative(overview *domain.MarketOverview) string {
	headlines := s.collectHeadlines()

	if s.narrator != nil && s.narrator.Available() {
		text, err := s.narrator.Generate(reviewPrompt(overview, headlines))
		if err == nil && text != "" {
			return text
		}
		s.log.Warn().Err(err).Msg("AI narration failed, falling back to data summary")
	} else {
		s.log.Warn().Msg("AI narrator unavailable, review runs with reduced capability")
	}

	return fallbackNarrative(overview, headlines)
}

func (s *Service) collectHeadlines() []string {
	if s.searcher == nil || !s.searcher.Available() {
		s.log.Warn().Msg("News search unavailable, review runs without headlines")
		return nil
	}

	results, err := s.searcher.Search("stock market today", 5)
	if err != nil {
		s.log.Warn().Err(err).Msg("News search failed, continuing without headlines")
		return nil
	}

	headlines := make([]string, 0, len(results))
	for _, r := range results {
		headlines = append(headlines, r.Title)
	}
	return headlines
}

func reviewPrompt(overview *domain.MarketOverview, headlines []string) string {
	var b strings.Builder
	b.WriteString("Write a concise end-of-day market review in markdown based on this data.\n\n")
	for _, idx := range overview.Indexes {
		fmt.Fprintf(&b, "%s (%s): %.2f (%+.2f%%), turnover %.0f\n",
			idx.Name, idx.Code, idx.Last, idx.ChangePercent, idx.Turnover)
	}
	if len(headlines) > 0 {
		b.WriteString("\nToday's headlines:\n")
		for _, h := range headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}
	return b.String()
}

func fallbackNarrative(overview *domain.MarketOverview, headlines []string) string {
	up := 0
	for _, idx := range overview.Indexes {
		if idx.ChangePercent > 0 {
			up++
		}
	}

	tone := "mixed"
	if up == len(overview.Indexes) {
		tone = "broadly higher"
	} else if up == 0 {
		tone = "broadly lower"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Indexes closed %s on %s: %d of %d tracked indexes advanced.\n",
		tone, overview.Date, up, len(overview.Indexes))

	if len(headlines) > 0 {
		b.WriteString("\nHeadlines:\n")
		for _, h := range headlines {
			fmt.Fprintf(&b, "- %s\n", h)
		}
	}

	return b.String()
}

func formatOverviewMarkdown(overview *domain.MarketOverview) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Market Snapshot — %s\n\n", overview.Date)
	b.WriteString("| Index | Last | Change | Turnover |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, idx := range overview.Indexes {
		fmt.Fprintf(&b, "| %s | %.2f | %+.2f%% | %.0f |\n",
			idx.Name, idx.Last, idx.ChangePercent, idx.Turnover)
	}
	return b.String()
}
