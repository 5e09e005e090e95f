package tzone

import (
	"testing"
	"time"
)

func TestUTCDay(t *testing.T) {
	tests := []struct {
		name  string
		epoch int64
		want  string
	}{
		{"start of day", 1424649600, "2015-02-23"},
		{"last second of day", 1424735999, "2015-02-23"},
		{"next day", 1424736000, "2015-02-24"},
		{"afternoon", 1424961882, "2015-02-26"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UTCDay(tt.epoch); got != tt.want {
				t.Errorf("UTCDay(%d) = %q, want %q", tt.epoch, got, tt.want)
			}
		})
	}
}

func TestUTCTime(t *testing.T) {
	if got := UTCTime(1424649600); got != "Mon, 23 Feb 2015 00:00:00" {
		t.Errorf("UTCTime() = %q", got)
	}
}

func TestHoursSince(t *testing.T) {
	now := time.Date(2015, 2, 26, 18, 0, 0, 0, time.UTC)
	epoch := now.Add(-150 * time.Minute).Unix()

	if got := HoursSince(now, epoch); got != 2.5 {
		t.Errorf("HoursSince() = %v, want 2.5", got)
	}

	// Zones other than UTC must not shift the result.
	pst := time.FixedZone("PST", -8*60*60)
	if got := HoursSince(now.In(pst), epoch); got != 2.5 {
		t.Errorf("HoursSince() in PST = %v, want 2.5", got)
	}

	if got := HoursSince(now, now.Add(time.Hour).Unix()); got != -1 {
		t.Errorf("HoursSince() future = %v, want -1", got)
	}
}
