// Package jst converts between UTC and Japan Standard Time using a fixed
// +09:00 offset. JST has no daylight saving, so no timezone database is consulted.
package jst

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// Offset is the fixed distance between JST and UTC.
	Offset = 9 * time.Hour

	// LocalLayout is the wall-clock format used in config files and search windows.
	LocalLayout = "2006-01-02 15:04:05"
	// DisplayLayout is the format written to sheets.
	DisplayLayout = "2006/01/02 15:04:05"
	// UTCLayout is the timestamp format the YouTube API accepts and returns.
	UTCLayout = "2006-01-02T15:04:05Z"
	// DateKeyLayout names the daily sheet.
	DateKeyLayout = "20060102"
)

// Zone is a fixed-offset location for JST, usable with cron and time.In.
var Zone = time.FixedZone("JST", int(Offset/time.Second))

var periodPattern = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ParseLocal parses a "YYYY-MM-DD HH:MM:SS" wall-clock string. The result
// carries the JST wall clock in a UTC-located time.Time so that comparisons
// stay pure offset arithmetic.
func ParseLocal(local string) (time.Time, error) {
	t, err := time.Parse(LocalLayout, local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local time %q (want YYYY-MM-DD HH:MM:SS): %w", local, err)
	}
	return t, nil
}

// LocalToUTCISO converts "2024-01-01 00:00:00" (JST) to "2023-12-31T15:00:00Z".
func LocalToUTCISO(local string) (string, error) {
	t, err := ParseLocal(local)
	if err != nil {
		return "", err
	}
	return t.Add(-Offset).Format(UTCLayout), nil
}

// UTCToLocalDisplay converts "2023-12-31T15:00:00Z" to "2024/01/01 00:00:00".
func UTCToLocalDisplay(utcISO string) (string, error) {
	t, err := time.Parse(time.RFC3339, utcISO)
	if err != nil {
		return "", fmt.Errorf("invalid UTC timestamp %q: %w", utcISO, err)
	}
	return DisplayTime(t), nil
}

// ToLocal shifts an instant onto the JST wall clock (UTC-located).
func ToLocal(t time.Time) time.Time {
	return t.UTC().Add(Offset)
}

// DisplayTime formats an instant as a JST display timestamp.
func DisplayTime(t time.Time) string {
	return ToLocal(t).Format(DisplayLayout)
}

// Timestamp is the JST execution timestamp for now.
func Timestamp(now time.Time) string {
	return DisplayTime(now)
}

// DateKey is the JST date of now as YYYYMMDD.
func DateKey(now time.Time) string {
	return ToLocal(now).Format(DateKeyLayout)
}

// WindowEndFor builds the "YYYY-MM-DD HH:MM:SS" end of a search window from a
// date key and a time of day such as "10:01:00".
func WindowEndFor(dateKey, clock string) (string, error) {
	day, err := time.Parse(DateKeyLayout, dateKey)
	if err != nil {
		return "", fmt.Errorf("invalid date key %q: %w", dateKey, err)
	}
	end := day.Format("2006-01-02") + " " + clock
	if _, err := ParseLocal(end); err != nil {
		return "", fmt.Errorf("invalid window end time %q: %w", clock, err)
	}
	return end, nil
}

// PeriodToClock renders an ISO 8601 period of the form PT[nH][nM][nS] as
// HH:MM:SS. Anything else (days, weeks, fractions) yields "00:00:00".
func PeriodToClock(period string) string {
	matches := periodPattern.FindStringSubmatch(period)
	if matches == nil {
		return "00:00:00"
	}

	var total int
	for i, unit := range []int{3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(matches[i+1])
		if err != nil {
			return "00:00:00"
		}
		total += n * unit
	}

	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}
