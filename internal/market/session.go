package market

import (
	"time"
)

// PSX regular trading session, Monday through Friday local exchange time.
const (
	sessionOpenHour    = 9
	sessionOpenMinute  = 15
	sessionCloseHour   = 15
	sessionCloseMinute = 30
)

// SessionStatus describes whether the exchange is currently trading.
type SessionStatus string

const (
	SessionOpen    SessionStatus = "open"
	SessionClosed  SessionStatus = "closed"
	SessionWeekend SessionStatus = "weekend"
)

// exchangeLocation is the PSX local timezone. time.LoadLocation reads from
// the system tz database; fall back to a fixed UTC+5 zone if it is missing.
var exchangeLocation = loadExchangeLocation()

func loadExchangeLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Karachi")
	if err != nil {
		return time.FixedZone("PKT", 5*60*60)
	}
	return loc
}

// ExchangeTime converts t to the exchange-local timezone.
func ExchangeTime(t time.Time) time.Time {
	return t.In(exchangeLocation)
}

// SessionAt reports the exchange session status at the given instant.
// The session runs 09:15-15:30 exchange time, Monday through Friday;
// the close boundary itself counts as closed.
func SessionAt(t time.Time) SessionStatus {
	local := ExchangeTime(t)

	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return SessionWeekend
	}

	minutes := local.Hour()*60 + local.Minute()
	open := sessionOpenHour*60 + sessionOpenMinute
	close := sessionCloseHour*60 + sessionCloseMinute

	if minutes >= open && minutes < close {
		return SessionOpen
	}
	return SessionClosed
}

// Describe renders the status for inclusion in an agent prompt.
func (s SessionStatus) Describe() string {
	switch s {
	case SessionOpen:
		return "The market is OPEN for trading."
	case SessionWeekend:
		return "The market is CLOSED (weekend). Quote the most recent session's data."
	default:
		return "The market is CLOSED right now. Quote the most recent session's data."
	}
}
