// Package pnl holds the per-trade financial arithmetic. Every function is pure
// and derives its result from stored trade fields only.
package pnl

import (
	"math"
	"time"

	"github.com/kjannette/trahn-journal/internal/models"
)

// StopLossMultiplier is applied to a leg's entry price to get its stop level.
const StopLossMultiplier = 1.5

// LegPnl returns the P/L of one leg. A short (Sell) leg profits when price
// falls, a long (Buy) leg when it rises. No rounding is applied.
func LegPnl(entry, exit float64, quantity int, typ models.TradeType) float64 {
	if typ == models.Sell {
		return (entry - exit) * float64(quantity)
	}
	return (exit - entry) * float64(quantity)
}

func CEPnl(t models.Trade) float64 {
	return LegPnl(t.CEEntryPrice, t.CEExitPrice, t.Quantity, t.Type)
}

func PEPnl(t models.Trade) float64 {
	return LegPnl(t.PEEntryPrice, t.PEExitPrice, t.Quantity, t.Type)
}

// TotalPnl is the sum of both legs priced with the trade's shared type and
// quantity.
func TotalPnl(t models.Trade) float64 {
	return CEPnl(t) + PEPnl(t)
}

// StopLoss returns the stop level for an entry price, or 0 when the entry is
// not a positive finite number.
func StopLoss(entry float64) float64 {
	if math.IsNaN(entry) || math.IsInf(entry, 0) || entry <= 0 {
		return 0
	}
	return entry * StopLossMultiplier
}

// TradeDay returns the weekday name of an ISO date. The date is read as a UTC
// calendar day so the viewer's offset can never shift it.
func TradeDay(tradeDate string) string {
	d, ok := parseDate(tradeDate)
	if !ok {
		return ""
	}
	return d.Weekday().String()
}

// TradeDayOfMonth returns the day-of-month of an ISO date in UTC, or 0.
func TradeDayOfMonth(tradeDate string) int {
	d, ok := parseDate(tradeDate)
	if !ok {
		return 0
	}
	return d.Day()
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Derived bundles every computed value for one trade.
type Derived struct {
	TradeDay string  `json:"tradeDay"`
	CEPnl    float64 `json:"cePnl"`
	PEPnl    float64 `json:"pePnl"`
	TotalPnl float64 `json:"totalPnl"`
	CESL     float64 `json:"ceSl"`
	PESL     float64 `json:"peSl"`
}

func Derive(t models.Trade) Derived {
	ce, pe := CEPnl(t), PEPnl(t)
	return Derived{
		TradeDay: TradeDay(t.TradeDate),
		CEPnl:    ce,
		PEPnl:    pe,
		TotalPnl: ce + pe,
		CESL:     StopLoss(t.CEEntryPrice),
		PESL:     StopLoss(t.PEEntryPrice),
	}
}
