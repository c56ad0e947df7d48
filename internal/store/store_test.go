package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/pkg/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ivcrush.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleScan() *model.ScanResult {
	return &model.ScanResult{
		Profile:      "balanced",
		TotalScanned: 3,
		Results: []model.AnalysisResult{
			{
				Ticker:     "NVDA",
				Expiration: time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
				Profile:    "balanced",
				VRP:        &model.VRPResult{Ratio: 11.4, Tier: model.VRPExcellent},
				RankedStrategies: []model.Strategy{
					{Type: model.IronCondor, Ticker: "NVDA", Score: 77.5, POP: 0.78},
				},
			},
			{
				Ticker:     "AAPL",
				Expiration: time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC),
				Profile:    "balanced",
				VRP:        &model.VRPResult{Ratio: 3.1, Tier: model.VRPGood},
				RankedStrategies: []model.Strategy{
					{Type: model.IronCondor, Ticker: "AAPL", Score: 61.0, POP: 0.74},
				},
			},
		},
		Skipped: []model.ScanSkip{{Ticker: "TSLA", Reason: "SKIP VRP at 1.1x is below the tradeable bar"}},
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveScan(ctx, "liquid100", sampleScan())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run := runs[0]
	assert.Equal(t, id, run.ID)
	assert.Equal(t, "balanced", run.Profile)
	assert.Equal(t, "liquid100", run.Universe)
	assert.Equal(t, 3, run.TotalScanned)
	assert.Equal(t, 2, run.Tradeable)
	assert.Equal(t, 1, run.Skipped)
}

func TestGetRecommendationsOrderedByScore(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.SaveScan(ctx, "test", sampleScan())
	require.NoError(t, err)

	recs, err := s.GetRecommendations(ctx, id)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "NVDA", recs[0].Ticker)
	assert.Equal(t, "IRON_CONDOR", recs[0].Strategy)
	assert.InDelta(t, 77.5, recs[0].Score, 1e-9)
	assert.InDelta(t, 11.4, recs[0].VRPRatio, 1e-9)
	assert.Equal(t, "AAPL", recs[1].Ticker)

	// the full result round-trips through the JSON column
	var stored model.AnalysisResult
	require.NoError(t, json.Unmarshal(recs[0].Result, &stored))
	assert.Equal(t, "NVDA", stored.Ticker)
	assert.Equal(t, model.VRPExcellent, stored.VRP.Tier)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveScan(ctx, "test", sampleScan())
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	second, err := s.SaveScan(ctx, "test", sampleScan())
	require.NoError(t, err)

	runs, err := s.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, second, runs[0].ID)
	assert.NotEqual(t, first, runs[0].ID)
}
