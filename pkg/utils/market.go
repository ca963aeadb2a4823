package utils

import (
	"time"
)

// EasternLocation is the timezone for US equity and option markets.
var EasternLocation *time.Location

func init() {
	var err error
	EasternLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to EST; DST shifts the session by an hour but the
		// monitor gate stays usable without tzdata.
		EasternLocation = time.FixedZone("EST", -5*60*60)
	}
}

// MarketStatus is the current session state of the US equity market.
type MarketStatus string

const (
	MarketClosed     MarketStatus = "CLOSED"
	MarketPreMarket  MarketStatus = "PRE_MARKET"
	MarketOpen       MarketStatus = "OPEN"
	MarketAfterHours MarketStatus = "AFTER_HOURS"
)

// MarketStatusAt returns the session state at the given instant.
func MarketStatusAt(t time.Time) MarketStatus {
	now := t.In(EasternLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return MarketClosed
	}

	timeMinutes := now.Hour()*60 + now.Minute()

	// Pre-market: 4:00 - 9:30
	if timeMinutes >= 240 && timeMinutes < 570 {
		return MarketPreMarket
	}
	// Regular session: 9:30 - 16:00
	if timeMinutes >= 570 && timeMinutes < 960 {
		return MarketOpen
	}
	// After hours: 16:00 - 20:00
	if timeMinutes >= 960 && timeMinutes < 1200 {
		return MarketAfterHours
	}

	return MarketClosed
}

// GetMarketStatus returns the current session state.
func GetMarketStatus() MarketStatus {
	return MarketStatusAt(time.Now())
}

// IsMarketOpen returns true during the regular session.
func IsMarketOpen() bool {
	return GetMarketStatus() == MarketOpen
}

// NextMarketOpen returns the next regular-session open after t.
func NextMarketOpen(t time.Time) time.Time {
	now := t.In(EasternLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, EasternLocation)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// MarketCloseFor returns the regular-session close on t's trading day.
func MarketCloseFor(t time.Time) time.Time {
	now := t.In(EasternLocation)
	return time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, EasternLocation)
}

// TimeUntilMarketClose returns the duration from t until that day's close.
// Negative once the session has ended.
func TimeUntilMarketClose(t time.Time) time.Duration {
	return MarketCloseFor(t).Sub(t)
}
