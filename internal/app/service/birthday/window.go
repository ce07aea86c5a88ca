package birthday

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	monthDayLayout = "01-02"
)

// MonthDay reduces a date to its "MM-DD" recurrence key.
func MonthDay(t time.Time) string {
	return t.Format(monthDayLayout)
}

// matchKeys returns the month-day keys celebrated on day. Users born on
// 02-29 are celebrated on 02-28 in non-leap years.
func matchKeys(day time.Time) []string {
	keys := []string{MonthDay(day)}
	if day.Month() == time.February && day.Day() == 28 && !isLeap(day.Year()) {
		keys = append(keys, "02-29")
	}
	return keys
}

func isLeap(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q", s)
	}
	return h*60 + m, nil
}

// InWindow reports whether now's time of day is inside [start, end].
// Equal bounds mean the whole day and start > end wraps midnight. A malformed
// bound yields true together with the parse error.
func InWindow(now time.Time, start, end string) (bool, error) {
	s, err := ParseClock(start)
	if err != nil {
		return true, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return true, err
	}
	cur := now.Hour()*60 + now.Minute()
	switch {
	case s == e:
		return true, nil
	case s < e:
		return s <= cur && cur <= e, nil
	default:
		return cur >= s || cur <= e, nil
	}
}
