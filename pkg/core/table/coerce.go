package table

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// dateLayouts are tried in order. Slashed and dotted dates are day-first;
// "01-02-06" is the month-first short form spreadsheets emit for serial
// dates with the default number format.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02.01.2006",
	"2.1.2006",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"02-01-2006",
	"01-02-06",
	"1-2-06",
	"2006-01",
	"01/2006",
	"01.2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"20060102",
}

var (
	serialPattern = regexp.MustCompile(`^\d+(\.\d+)?$`)
	// 1,500 and 12,345,678.90
	commaGrouped = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// maxExcelSerial is 9999-12-31.
const maxExcelSerial = 2958465

// ParseDate accepts the date shapes found in uploaded sheets, including raw
// spreadsheet serial numbers. The result is truncated to the calendar day.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if serialPattern.MatchString(s) && len(s) != 8 {
		f, err := strconv.ParseFloat(s, 64)
		if err == nil && f >= 1 && f <= maxExcelSerial {
			t, err := excelize.ExcelDateToTime(f, false)
			if err == nil {
				return dayOf(t), true
			}
		}
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dayOf(t), true
		}
	}
	return time.Time{}, false
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var amountNoise = strings.NewReplacer(" ", "", " ", "", "TL", "", "₺", "", "$", "", "€", "", "USD", "", "EUR", "")

// ParseAmount coerces a money cell to a non-negative decimal. Invalid or
// negative values become zero.
func ParseAmount(raw string) decimal.Decimal {
	d, ok := parseDecimal(raw)
	if !ok || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ParseOptionalNumber reads a numeric cell that may legitimately be blank.
func ParseOptionalNumber(raw string) (float64, bool) {
	d, ok := parseDecimal(raw)
	if !ok {
		return 0, false
	}
	return d.InexactFloat64(), true
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	s := amountNoise.Replace(strings.TrimSpace(raw))
	if s == "" {
		return decimal.Zero, false
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d, true
	}
	if commaGrouped.MatchString(s) {
		if d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "")); err == nil {
			return d, true
		}
	}
	// 1.234,56 and 1234,56
	if strings.Contains(s, ",") {
		alt := strings.ReplaceAll(s, ".", "")
		alt = strings.Replace(alt, ",", ".", 1)
		if d, err := decimal.NewFromString(alt); err == nil {
			return d, true
		}
	}
	return decimal.Zero, false
}
