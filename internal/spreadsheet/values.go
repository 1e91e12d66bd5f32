package spreadsheet

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02.01.2006 15:04",
	"02.01.2006",
	"2.1.2006",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1/2/06",
}

// ParseDate understands the usual textual date layouts and excel serial numbers.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	// серийный номер даты excel, например 45292
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		t, err := excelize.ExcelDateToTime(f, false)
		if err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseNumber accepts "2.5", "2,5" and "1 250,5".
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
