// Package tzone converts buildjson epoch timestamps into the UTC values used
// to name and reason about snapshot shards.
package tzone

import "time"

// DayLayout is the date format of per-day shard names.
const DayLayout = "2006-01-02"

// TimeLayout is used when printing a completion time in logs.
const TimeLayout = "Mon, 02 Jan 2006 15:04:05"

// UTCDateTime returns the epoch timestamp as a UTC time.
func UTCDateTime(epoch int64) time.Time {
	return time.Unix(epoch, 0).UTC()
}

// UTCDay returns the UTC calendar date of epoch, e.g. "2015-02-26".
func UTCDay(epoch int64) string {
	return UTCDateTime(epoch).Format(DayLayout)
}

// UTCTime returns a human readable UTC rendering of epoch.
func UTCTime(epoch int64) string {
	return UTCDateTime(epoch).Format(TimeLayout)
}

// HoursSince returns how many hours passed between epoch and now. The result
// is negative when epoch lies in the future.
func HoursSince(now time.Time, epoch int64) float64 {
	return now.UTC().Sub(UTCDateTime(epoch)).Hours()
}
