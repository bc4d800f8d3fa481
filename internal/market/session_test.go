package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func exchangeDate(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, exchangeLocation)
}

func TestSessionAt(t *testing.T) {
	// 2026-08-26 is a Wednesday.
	tests := []struct {
		name string
		at   time.Time
		want SessionStatus
	}{
		{"weekday mid-session", exchangeDate(t, 2026, time.August, 26, 11, 0), SessionOpen},
		{"weekday open boundary", exchangeDate(t, 2026, time.August, 26, 9, 15), SessionOpen},
		{"weekday just before open", exchangeDate(t, 2026, time.August, 26, 9, 14), SessionClosed},
		{"weekday close boundary", exchangeDate(t, 2026, time.August, 26, 15, 30), SessionClosed},
		{"weekday just before close", exchangeDate(t, 2026, time.August, 26, 15, 29), SessionOpen},
		{"weekday evening", exchangeDate(t, 2026, time.August, 26, 20, 0), SessionClosed},
		{"saturday", exchangeDate(t, 2026, time.August, 29, 11, 0), SessionWeekend},
		{"sunday", exchangeDate(t, 2026, time.August, 30, 11, 0), SessionWeekend},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionAt(tt.at))
		})
	}
}

func TestSessionAt_ConvertsTimezone(t *testing.T) {
	// 06:00 UTC on a Wednesday is 11:00 in Karachi: session open.
	at := time.Date(2026, time.August, 26, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, SessionOpen, SessionAt(at))
}

func TestSessionStatus_Describe(t *testing.T) {
	assert.Contains(t, SessionOpen.Describe(), "OPEN")
	assert.Contains(t, SessionClosed.Describe(), "CLOSED")
	assert.Contains(t, SessionWeekend.Describe(), "weekend")
}
