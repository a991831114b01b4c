package calc

import (
	"fmt"
	"math"
	"strings"
	"time"

	"sales_insight/pkg/core/table"
)

// Period is a calendar year-month, the grouping key for sales and targets.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod reads "2006-01".
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q (want YYYY-MM): %w", s, err)
	}
	return PeriodOf(t), nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// MarshalText lets periods serialize as "YYYY-MM".
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Start is the first day of the period.
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the last calendar day of the period.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, -1)
}

// Days is the number of calendar days in the period.
func (p Period) Days() int {
	return p.End().Day()
}

func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// minSerialLabel is 1901-01-01 as a spreadsheet serial.
const minSerialLabel = 367

// monthNames covers English and Turkish names after header-style folding.
var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January, "ocak": time.January,
	"february": time.February, "feb": time.February, "subat": time.February,
	"march": time.March, "mar": time.March, "mart": time.March,
	"april": time.April, "apr": time.April, "nisan": time.April,
	"may": time.May, "mayis": time.May,
	"june": time.June, "jun": time.June, "haziran": time.June,
	"july": time.July, "jul": time.July, "temmuz": time.July,
	"august": time.August, "aug": time.August, "agustos": time.August,
	"september": time.September, "sep": time.September, "sept": time.September, "eylul": time.September,
	"october": time.October, "oct": time.October, "ekim": time.October,
	"november": time.November, "nov": time.November, "kasim": time.November,
	"december": time.December, "dec": time.December, "aralik": time.December,
}

// ResolvePeriod turns a target row's period label and year cells into a
// Period. The label may be a month number, a month name (optionally with
// its own year), or a full date.
func ResolvePeriod(label, year string) (Period, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Period{}, false
	}
	y, hasYear := parseYear(year)

	// Month numbers; spreadsheets often hand them over as "3.0".
	if f, ok := table.ParseOptionalNumber(label); ok {
		if f == math.Trunc(f) && f >= 1 && f <= 12 {
			if !hasYear {
				return Period{}, false
			}
			return Period{Year: y, Month: time.Month(int(f))}, true
		}
		// Small numbers are neither months nor serial dates worth trusting.
		if f < minSerialLabel {
			return Period{}, false
		}
	}

	var month time.Month
	for _, tok := range strings.FieldsFunc(label, func(r rune) bool {
		return r == ' ' || r == '-' || r == '/' || r == '.' || r == ','
	}) {
		if m, ok := monthNames[table.NormalizeHeader(tok)]; ok && month == 0 {
			month = m
			continue
		}
		if ty, ok := parseYear(tok); ok && !hasYear {
			y, hasYear = ty, true
		}
	}
	if month != 0 && hasYear {
		return Period{Year: y, Month: month}, true
	}

	if t, ok := table.ParseDate(label); ok {
		return PeriodOf(t), true
	}
	return Period{}, false
}

func parseYear(s string) (int, bool) {
	f, ok := table.ParseOptionalNumber(s)
	if !ok {
		return 0, false
	}
	y := int(f)
	if y < 1900 || y > 9999 {
		return 0, false
	}
	return y, true
}
