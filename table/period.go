package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Frequency codes inferred from period formats.
const (
	FreqAnnual    = "A"
	FreqSemester  = "S"
	FreqTrimester = "T"
	FreqQuarterly = "Q"
	FreqMonthly   = "M"
	FreqWeekly    = "W"
	FreqDaily     = "D"
)

// ParsePeriod parses an SDMX time period and returns the start of the
// period in UTC together with the frequency implied by its format.
//
// Supported forms: YYYY, YYYY-MM, YYYY-MM-DD, YYYY-Sn, YYYY-Tn, YYYY-Qn,
// YYYY-Www, and the reporting forms YYYY-An, YYYY-Mmm, YYYY-Dddd.
func ParsePeriod(p string) (time.Time, string, error) {
	p = strings.TrimSpace(p)
	bad := func() (time.Time, string, error) {
		return time.Time{}, "", fmt.Errorf("%w: unsupported period %q", ErrShaping, p)
	}

	if len(p) < 4 {
		return bad()
	}
	year, err := strconv.Atoi(p[:4])
	if err != nil {
		return bad()
	}
	if len(p) == 4 {
		return date(year, 1, 1), FreqAnnual, nil
	}
	if p[4] != '-' || len(p) < 6 {
		return bad()
	}
	rest := p[5:]

	if t, err := time.Parse("2006-01-02", p); err == nil {
		return t.UTC(), FreqDaily, nil
	}
	if len(rest) == 2 {
		if m, err := strconv.Atoi(rest); err == nil && m >= 1 && m <= 12 {
			return date(year, time.Month(m), 1), FreqMonthly, nil
		}
	}

	n, err := strconv.Atoi(rest[1:])
	if err != nil || n < 1 {
		return bad()
	}
	switch rest[0] {
	case 'A':
		if n != 1 {
			return bad()
		}
		return date(year, 1, 1), FreqAnnual, nil
	case 'S':
		if n > 2 {
			return bad()
		}
		return date(year, time.Month((n-1)*6+1), 1), FreqSemester, nil
	case 'T':
		if n > 3 {
			return bad()
		}
		return date(year, time.Month((n-1)*4+1), 1), FreqTrimester, nil
	case 'Q':
		if n > 4 {
			return bad()
		}
		return date(year, time.Month((n-1)*3+1), 1), FreqQuarterly, nil
	case 'M':
		if n > 12 {
			return bad()
		}
		return date(year, time.Month(n), 1), FreqMonthly, nil
	case 'W':
		if n > 53 {
			return bad()
		}
		return isoWeekStart(year, n), FreqWeekly, nil
	case 'D':
		if n > 366 {
			return bad()
		}
		return date(year, 1, n), FreqDaily, nil
	}
	return bad()
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// isoWeekStart returns the Monday of ISO week w of year.
// January 4th always falls in week 1.
func isoWeekStart(year, w int) time.Time {
	jan4 := date(year, 1, 4)
	offset := (int(jan4.Weekday()) + 6) % 7
	return jan4.AddDate(0, 0, -offset+(w-1)*7)
}
