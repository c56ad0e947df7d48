package daemon

import "time"

// MarketSchedule holds regular-session hours in US Eastern Time
type MarketSchedule struct {
	OpenHour  int
	OpenMin   int
	CloseHour int
	CloseMin  int
}

// DefaultMarketSchedule is the NYSE/NASDAQ regular session
func DefaultMarketSchedule() MarketSchedule {
	return MarketSchedule{OpenHour: 9, OpenMin: 30, CloseHour: 16, CloseMin: 0}
}

// MarketStatus describes where the current moment sits in the trading day
type MarketStatus struct {
	IsOpen        bool
	IsTradingDay  bool
	CurrentTimeET time.Time
	OpenTime      time.Time
	CloseTime     time.Time
	Reason        string // "open", "weekend", "pre-market", "after-hours"
}

// ETLocation returns US Eastern Time, falling back to fixed EST when the
// zone database is missing.
func ETLocation() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.FixedZone("EST", -5*60*60)
	}
	return loc
}

// GetMarketStatus classifies now against the schedule
func GetMarketStatus(schedule MarketSchedule, now time.Time) MarketStatus {
	now = now.In(ETLocation())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	status := MarketStatus{
		CurrentTimeET: now,
		OpenTime:      today.Add(time.Duration(schedule.OpenHour)*time.Hour + time.Duration(schedule.OpenMin)*time.Minute),
		CloseTime:     today.Add(time.Duration(schedule.CloseHour)*time.Hour + time.Duration(schedule.CloseMin)*time.Minute),
	}

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		status.Reason = "weekend"
		return status
	}
	status.IsTradingDay = true

	switch {
	case now.Before(status.OpenTime):
		status.Reason = "pre-market"
	case !now.Before(status.CloseTime):
		status.Reason = "after-hours"
	default:
		status.IsOpen = true
		status.Reason = "open"
	}
	return status
}
