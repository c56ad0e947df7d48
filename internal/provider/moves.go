package provider

import (
	"sort"
	"time"

	"ivcrush/pkg/model"
)

// movesFromCandles brackets each past earnings event with daily closes and
// computes the realized reaction. An AMC report moves the next session, so
// the move is report-day close to next close; a BMO report moves the same
// session, prior close to report-day close. Events that cannot be bracketed
// (gaps in the candle history) are skipped, not zeroed.
func movesFromCandles(ticker string, candles []model.Candle, past []model.EarningsEvent) []model.HistoricalMove {
	if len(candles) < 2 {
		return nil
	}
	sorted := make([]model.Candle, len(candles))
	copy(sorted, candles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	moves := make([]model.HistoricalMove, 0, len(past))
	for _, event := range past {
		idx := sessionIndex(sorted, event.Date)
		if idx < 0 {
			continue
		}

		var pre, post model.Candle
		if event.Session == model.BeforeOpen {
			if idx == 0 {
				continue
			}
			pre, post = sorted[idx-1], sorted[idx]
		} else {
			if idx+1 >= len(sorted) {
				continue
			}
			pre, post = sorted[idx], sorted[idx+1]
		}
		if pre.Close <= 0 {
			continue
		}

		moves = append(moves, model.HistoricalMove{
			Ticker:    ticker,
			Date:      event.Date,
			Session:   event.Session,
			PreClose:  pre.Close,
			PostClose: post.Close,
			MovePct:   (post.Close - pre.Close) / pre.Close * 100,
		})
	}

	sort.Slice(moves, func(i, j int) bool { return moves[i].Date.Before(moves[j].Date) })
	return moves
}

// sessionIndex finds the candle for the report date, or the first session
// at or after it when the date fell on a non-trading day.
func sessionIndex(sorted []model.Candle, date time.Time) int {
	day := date.Truncate(24 * time.Hour)
	for i, c := range sorted {
		if !c.Time.Truncate(24 * time.Hour).Before(day) {
			return i
		}
	}
	return -1
}
