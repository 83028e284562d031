package corpus

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	// unixEpochSerial is the spreadsheet serial day of 1970-01-01 in the
	// 1900 date system, which already absorbs the fictitious 1900-02-29 and
	// the 1-based day count.
	unixEpochSerial = 25569
	// maxSerial is 9999-12-31, the last date a spreadsheet can represent.
	maxSerial   = 2958465
	secondsADay = 86400
	minutesADay = 24 * 60
)

// SerialDateToString converts a spreadsheet serial date into YYYY-MM-DD.
// Blank, non-numeric, zero or out of range values yield "".
func SerialDateToString(raw string) string {
	v, ok := parseSerial(raw)
	if !ok || v >= maxSerial+1 {
		return ""
	}
	secs := math.Round((v - unixEpochSerial) * secondsADay)
	return time.Unix(int64(secs), 0).UTC().Format("2006-01-02")
}

// SerialTimeToString converts a fractional day into 24-hour HH:MM. When
// the value carries a date part only the fraction is used, so 1.5 gives
// 12:00 where floor(v*24) would give 36:00.
func SerialTimeToString(raw string) string {
	v, ok := parseSerial(raw)
	if !ok {
		return ""
	}
	frac := v - math.Floor(v)
	// 1e-7 of a minute keeps values such as 14:20 (0.59722...) from
	// flooring to the previous minute.
	total := int(math.Floor(frac*minutesADay + 1e-7))
	if total >= minutesADay {
		total = minutesADay - 1
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func parseSerial(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}
