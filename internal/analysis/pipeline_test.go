package analysis

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/aristath/stockwatch/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, InitSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

// mockBarSource returns canned bars or an error
type mockBarSource struct {
	bars []domain.DailyBar
	err  error
}

func (m *mockBarSource) GetDailyBars(code string, limit int) ([]domain.DailyBar, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.bars, nil
}

func makeBars(code string, n int, start float64, step float64) []domain.DailyBar {
	bars := make([]domain.DailyBar, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)*step
		bars[i] = domain.DailyBar{
			Code:   code,
			Date:   fmt.Sprintf("2026-%02d-%02d", 1+i/28, 1+i%28),
			Open:   c - 1,
			High:   c + 2,
			Low:    c - 2,
			Close:  c,
			Volume: 10000 + int64(i),
		}
	}
	return bars
}

func TestFetchAndPersistData(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	source := &mockBarSource{bars: makeBars("600519", 40, 1700, 1)}
	pipeline := NewPipeline(source, repo, zerolog.Nop())

	require.NoError(t, pipeline.FetchAndPersistData("600519"))

	has, err := repo.HasData("600519")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestFetchAndPersistData_SourceError(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	source := &mockBarSource{err: fmt.Errorf("provider down")}
	pipeline := NewPipeline(source, repo, zerolog.Nop())

	err := pipeline.FetchAndPersistData("600519")
	assert.Error(t, err)
}

func TestAnalyze_UsesStoredDataWhenFetchFailed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	// Seed history directly, then point the pipeline at a broken source
	require.NoError(t, repo.SaveBars(makeBars("600519", 80, 1700, 2)))

	pipeline := NewPipeline(&mockBarSource{err: fmt.Errorf("provider down")}, repo, zerolog.Nop())

	result, err := pipeline.Analyze("600519")
	require.NoError(t, err)
	assert.Equal(t, "600519", result.Code)
	assert.NotEmpty(t, result.OperationAdvice)
	assert.NotEmpty(t, result.AnalysisSummary)
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.SaveBars(makeBars("000001", 5, 10, 0.1)))

	pipeline := NewPipeline(&mockBarSource{}, repo, zerolog.Nop())

	_, err := pipeline.Analyze("000001")
	assert.Error(t, err)
}

func TestAnalyze_RisingTrend(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.SaveBars(makeBars("600519", 120, 1500, 3)))

	pipeline := NewPipeline(&mockBarSource{}, repo, zerolog.Nop())

	result, err := pipeline.Analyze("600519")
	require.NoError(t, err)
	assert.Equal(t, "up", result.TrendPrediction)
	assert.Greater(t, result.LastClose, result.MA20)
}

func TestSaveBars_UpsertOverwrites(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())

	bar := domain.DailyBar{Code: "600519", Date: "2026-08-28", Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 10}
	require.NoError(t, repo.SaveBars([]domain.DailyBar{bar}))

	bar.Close = 9.9
	require.NoError(t, repo.SaveBars([]domain.DailyBar{bar}))

	bars, err := repo.GetHistory("600519", 10)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 9.9, bars[0].Close)
}

func TestGetHistory_OldestFirst(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db, zerolog.Nop())
	require.NoError(t, repo.SaveBars(makeBars("600519", 50, 100, 1)))

	bars, err := repo.GetHistory("600519", 20)
	require.NoError(t, err)
	require.Len(t, bars, 20)
	// Most recent 20, returned oldest first
	assert.Less(t, bars[0].Date, bars[19].Date)
	assert.Equal(t, 100.0+49, bars[19].Close)
}

func TestSentimentScore_Bounds(t *testing.T) {
	high := 90.0
	low := 10.0
	pos := 1.0
	neg := -1.0
	ma := 50.0

	// All bearish inputs stay within bounds
	s := sentimentScore(40, &high, &ma, &ma, &neg)
	assert.GreaterOrEqual(t, s, 0.0)

	// All bullish inputs stay within bounds
	s = sentimentScore(60, &low, &ma, &ma, &pos)
	assert.LessOrEqual(t, s, 100.0)
}

func TestAdviceFor(t *testing.T) {
	assert.Equal(t, "buy", adviceFor(75))
	assert.Equal(t, "accumulate", adviceFor(60))
	assert.Equal(t, "hold", adviceFor(50))
	assert.Equal(t, "reduce", adviceFor(40))
	assert.Equal(t, "sell", adviceFor(20))
}
