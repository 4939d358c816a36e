package periods

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	minYear = 1990
	maxYear = 9999
)

// Period is one reporting month. Quarters are represented by their closing
// month, so Q4 2024 and December 2024 are the same Period.
type Period struct {
	Year  int
	Month int
}

var (
	yearMonthPattern   = regexp.MustCompile(`^(\d{4})[-_./]?(\d{2})$`)
	monthYearPattern   = regexp.MustCompile(`^(\d{2})[-_./](\d{4})$`)
	yearQuarterPattern = regexp.MustCompile(`^(\d{4})[-_ ]?q([1-4])$`)
	quarterYearPattern = regexp.MustCompile(`^q([1-4])[-_ ]?(\d{4})$`)
)

// Parse normalizes a raw period token. Accepted spellings are YYYYMM,
// YYYY-MM, YYYY_MM, YYYY.MM, YYYY/MM, MM-YYYY, MM/YYYY, YYYYQn, YYYY-Qn,
// YYYY_Qn, Qn-YYYY and "Qn YYYY", case-insensitive.
func Parse(raw string) (Period, error) {
	token := strings.ToLower(strings.TrimSpace(raw))
	if token == "" {
		return Period{}, &ParseError{Raw: raw, Reason: "empty"}
	}

	var year, month int
	switch {
	case yearMonthPattern.MatchString(token):
		m := yearMonthPattern.FindStringSubmatch(token)
		year, month = atoi(m[1]), atoi(m[2])
	case monthYearPattern.MatchString(token):
		m := monthYearPattern.FindStringSubmatch(token)
		month, year = atoi(m[1]), atoi(m[2])
	case yearQuarterPattern.MatchString(token):
		m := yearQuarterPattern.FindStringSubmatch(token)
		year, month = atoi(m[1]), atoi(m[2])*3
	case quarterYearPattern.MatchString(token):
		m := quarterYearPattern.FindStringSubmatch(token)
		month, year = atoi(m[1])*3, atoi(m[2])
	default:
		return Period{}, &ParseError{Raw: raw}
	}

	if year < minYear || year > maxYear {
		return Period{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("year %d out of range", year)}
	}
	if month < 1 || month > 12 {
		return Period{}, &ParseError{Raw: raw, Reason: fmt.Sprintf("month %d out of range", month)}
	}
	return Period{Year: year, Month: month}, nil
}

// MustParse is Parse for literals known to be valid; it panics otherwise.
func MustParse(raw string) Period {
	p, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// String returns the canonical YYYYMM identifier.
func (p Period) String() string {
	return fmt.Sprintf("%04d%02d", p.Year, p.Month)
}

// IsZero reports whether p is the zero Period.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Quarter returns the calendar quarter (1-4) containing p.
func (p Period) Quarter() int {
	return (p.Month-1)/3 + 1
}

// IsQuarterEnd reports whether p is the closing month of a quarter.
func (p Period) IsQuarterEnd() bool {
	return p.Month%3 == 0
}

// Before reports whether p is earlier than other.
func (p Period) Before(other Period) bool {
	return p.Compare(other) < 0
}

// Compare returns -1, 0, or +1 ordering p against other chronologically.
func (p Period) Compare(other Period) int {
	switch {
	case p.Year != other.Year:
		if p.Year < other.Year {
			return -1
		}
		return 1
	case p.Month != other.Month:
		if p.Month < other.Month {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// AddMonths returns the period n months after p (n may be negative).
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	return Period{Year: idx / 12, Month: idx%12 + 1}
}

// End returns the instant the period closes: midnight UTC on the first day of
// the following month.
func (p Period) End() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
}

// Published reports whether a filing for p can exist at now, given the lag
// between a period closing and the regulator publishing it. The month that
// contains now is never published.
func (p Period) Published(now time.Time, lag time.Duration) bool {
	return !now.Before(p.End().Add(lag))
}

// FromTime returns the period containing t (in UTC).
func FromTime(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// LatestPublishedQuarter returns the most recent quarter-end period that is
// published at now.
func LatestPublishedQuarter(now time.Time, lag time.Duration) Period {
	p := FromTime(now)
	for !p.IsQuarterEnd() || !p.Published(now, lag) {
		p = p.AddMonths(-1)
	}
	return p
}

// QuarterRange returns every quarter-end period between from and to,
// inclusive, in chronological order. Bounds that are not quarter ends are
// rounded inward.
func QuarterRange(from, to Period) []Period {
	for !from.IsQuarterEnd() {
		from = from.AddMonths(1)
	}
	var out []Period
	for p := from; !to.Before(p); p = p.AddMonths(3) {
		out = append(out, p)
	}
	return out
}
