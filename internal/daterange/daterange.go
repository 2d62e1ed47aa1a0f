// Package daterange turns a named period into a concrete inclusive
// [start, end] range and scopes trades to it.
package daterange

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"

	"github.com/kjannette/trahn-journal/internal/models"
)

// Filter is a named period. The set is closed: Resolve handles every value.
type Filter string

const (
	Today        Filter = "today"
	Yesterday    Filter = "yesterday"
	ThisWeek     Filter = "this-week"
	LastWeek     Filter = "last-week"
	ThisMonth    Filter = "this-month"
	LastMonth    Filter = "last-month"
	LastThreeMon Filter = "last-3-months"
	ThisYear     Filter = "this-year"
	LastYear     Filter = "last-year"
	All          Filter = "all"
)

// Filters lists every filter in menu order.
var Filters = []Filter{
	Today, Yesterday, ThisWeek, LastWeek, ThisMonth, LastMonth,
	LastThreeMon, ThisYear, LastYear, All,
}

var shortTokens = map[string]Filter{
	"this-wk":   ThisWeek,
	"last-wk":   LastWeek,
	"this-mo":   ThisMonth,
	"last-mo":   LastMonth,
	"last-3-mo": LastThreeMon,
	"this-yr":   ThisYear,
	"last-yr":   LastYear,
}

// Parse maps a token to a Filter. An empty token means All.
func Parse(s string) (Filter, error) {
	if s == "" {
		return All, nil
	}
	for _, f := range Filters {
		if string(f) == s {
			return f, nil
		}
	}
	if f, ok := shortTokens[s]; ok {
		return f, nil
	}
	return "", fmt.Errorf("unknown date filter %q", s)
}

// Range is an inclusive instant range.
type Range struct {
	Start time.Time
	End   time.Time
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Resolve returns the range for f relative to now, with day boundaries at
// 00:00:00.000 and 23:59:59.999 in now's location. All yields None.
func Resolve(f Filter, now time.Time) optional.Option[Range] {
	loc := now.Location()
	y, m, d := now.Date()
	day := func(year int, month time.Month, dd int) time.Time {
		return time.Date(year, month, dd, 0, 0, 0, 0, loc)
	}
	span := func(first, last time.Time) optional.Option[Range] {
		return optional.Some(Range{Start: startOfDay(first), End: endOfDay(last)})
	}

	switch f {
	case Today:
		return span(day(y, m, d), day(y, m, d))
	case Yesterday:
		return span(day(y, m, d-1), day(y, m, d-1))
	case ThisWeek:
		mon := monday(day(y, m, d))
		return span(mon, mon.AddDate(0, 0, 6))
	case LastWeek:
		mon := monday(day(y, m, d)).AddDate(0, 0, -7)
		return span(mon, mon.AddDate(0, 0, 6))
	case ThisMonth:
		return span(day(y, m, 1), day(y, m+1, 0))
	case LastMonth:
		return span(day(y, m-1, 1), day(y, m, 0))
	case LastThreeMon:
		return span(day(y, m-3, 1), day(y, m, 0))
	case ThisYear:
		return span(day(y, time.January, 1), day(y, time.December, 31))
	case LastYear:
		return span(day(y-1, time.January, 1), day(y-1, time.December, 31))
	case All:
		return optional.None[Range]()
	}
	return optional.None[Range]()
}

// monday returns the Monday starting the ISO week containing t.
func monday(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -offset)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// Apply keeps the trades whose trade date falls inside f's range. Trade dates
// are read as midnight in now's location. All returns trades unchanged.
func Apply(trades []models.Trade, f Filter, now time.Time) []models.Trade {
	opt := Resolve(f, now)
	if opt.IsNone() {
		return trades
	}
	r := opt.Unwrap()

	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		d, err := time.ParseInLocation(time.DateOnly, t.TradeDate, now.Location())
		if err != nil {
			continue
		}
		if r.Contains(d) {
			out = append(out, t)
		}
	}
	return out
}
