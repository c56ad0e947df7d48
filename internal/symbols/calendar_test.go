package symbols

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ivcrush/pkg/model"
)

func TestGetUniverse(t *testing.T) {
	assert.Len(t, GetUniverse(UniverseTest), 10)
	assert.NotEmpty(t, GetUniverse(UniverseLiquid100))
	assert.Nil(t, GetUniverse(Universe("nope")))

	assert.True(t, Contains(UniverseTest, "nvda"), "lookup is case-insensitive")
	assert.False(t, Contains(UniverseTest, "XOM"))
}

func writeCalendar(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCalendarLoader_FileEvents(t *testing.T) {
	path := writeCalendar(t, `
events:
  - ticker: nvda
    date: 2026-02-25
    session: AMC
  - ticker: AMD
    date: 2026-02-19
    session: BMO
  - ticker: XOM
    date: 2026-02-20
    session: BMO
`)

	loader := NewCalendarLoader(nil)
	require.NoError(t, loader.LoadFile(path))

	from := time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)
	events, err := loader.Upcoming(context.Background(), UniverseTest, from, 14)
	require.NoError(t, err)

	// XOM is outside the test universe; the rest come back date-sorted
	require.Len(t, events, 2)
	assert.Equal(t, "AMD", events[0].Ticker)
	assert.Equal(t, model.BeforeOpen, events[0].Session)
	assert.Equal(t, "NVDA", events[1].Ticker, "tickers are upcased on load")
}

func TestCalendarLoader_BadDateRejected(t *testing.T) {
	path := writeCalendar(t, `
events:
  - ticker: NVDA
    date: Feb 25
    session: AMC
`)

	loader := NewCalendarLoader(nil)
	err := loader.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad date")
}

func TestCalendarLoader_UpcomingWindowExcludes(t *testing.T) {
	path := writeCalendar(t, `
events:
  - ticker: NVDA
    date: 2026-02-25
    session: AMC
  - ticker: AAPL
    date: 2026-04-30
    session: AMC
`)

	loader := NewCalendarLoader(nil)
	require.NoError(t, loader.LoadFile(path))

	from := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	events, err := loader.Upcoming(context.Background(), UniverseTest, from, 7)
	require.NoError(t, err)

	require.Len(t, events, 1, "events past the window are excluded")
	assert.Equal(t, "NVDA", events[0].Ticker)
}
