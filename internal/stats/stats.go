// Package stats aggregates per-trade P/L into summary metrics and
// time-ordered series.
package stats

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/pnl"
)

// ProfitFactor is gross profit over gross loss magnitude. +Inf marks a
// non-empty book with no losing trades.
type ProfitFactor float64

func (p ProfitFactor) IsInf() bool {
	return math.IsInf(float64(p), 1)
}

// String renders the infinity sentinel as a glyph, finite values to 2dp.
func (p ProfitFactor) String() string {
	if p.IsInf() {
		return "∞"
	}
	return strconv.FormatFloat(float64(p), 'f', 2, 64)
}

// MarshalJSON encodes +Inf as the string "Infinity"; encoding/json refuses
// raw infinities.
func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.IsInf() {
		return []byte(`"Infinity"`), nil
	}
	return json.Marshal(float64(p))
}

func (p *ProfitFactor) UnmarshalJSON(b []byte) error {
	if string(b) == `"Infinity"` {
		*p = ProfitFactor(math.Inf(1))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*p = ProfitFactor(f)
	return nil
}

// Summary is the fixed-shape statistics record for a set of trades.
type Summary struct {
	TotalTrades  int          `json:"totalTrades" yaml:"total_trades"`
	BuyTrades    int          `json:"buyTrades" yaml:"buy_trades"`
	SellTrades   int          `json:"sellTrades" yaml:"sell_trades"`
	WinningCount int          `json:"winningTrades" yaml:"winning_trades"`
	LosingCount  int          `json:"losingTrades" yaml:"losing_trades"`
	TotalPnl     float64      `json:"totalPnl" yaml:"total_pnl"`
	GrossProfit  float64      `json:"grossProfit" yaml:"gross_profit"`
	GrossLoss    float64      `json:"grossLoss" yaml:"gross_loss"`
	WinRate      float64      `json:"winRate" yaml:"win_rate"`
	AvgWin       float64      `json:"avgWin" yaml:"avg_win"`
	AvgLoss      float64      `json:"avgLoss" yaml:"avg_loss"`
	ProfitFactor ProfitFactor `json:"profitFactor" yaml:"profit_factor"`
	BestTrade    float64      `json:"bestTrade" yaml:"best_trade"`
	WorstTrade   float64      `json:"worstTrade" yaml:"worst_trade"`
	// MaxDrawdown is the largest peak-to-trough fall of the cumulative P/L
	// curve, in currency units.
	MaxDrawdown float64 `json:"maxDrawdown" yaml:"max_drawdown"`
}

// Summarize computes the summary for trades. Order does not matter except
// for MaxDrawdown, which walks the cumulative series.
func Summarize(trades []models.Trade) Summary {
	var s Summary
	s.TotalTrades = len(trades)
	if s.TotalTrades == 0 {
		return s
	}

	var lossSum float64
	for i, t := range trades {
		switch t.Type {
		case models.Buy:
			s.BuyTrades++
		case models.Sell:
			s.SellTrades++
		}

		p := pnl.TotalPnl(t)
		s.TotalPnl += p
		switch {
		case p > 0:
			s.WinningCount++
			s.GrossProfit += p
		case p < 0:
			s.LosingCount++
			lossSum += p
		}

		if i == 0 || p > s.BestTrade {
			s.BestTrade = p
		}
		if i == 0 || p < s.WorstTrade {
			s.WorstTrade = p
		}
	}
	// An empty book reports zero; otherwise best is floored and worst
	// ceilinged at zero.
	s.BestTrade = math.Max(s.BestTrade, 0)
	s.WorstTrade = math.Min(s.WorstTrade, 0)

	s.GrossLoss = math.Abs(lossSum)
	s.WinRate = float64(s.WinningCount) / float64(s.TotalTrades) * 100
	if s.WinningCount > 0 {
		s.AvgWin = s.GrossProfit / float64(s.WinningCount)
	}
	if s.LosingCount > 0 {
		s.AvgLoss = s.GrossLoss / float64(s.LosingCount)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = ProfitFactor(s.GrossProfit / s.GrossLoss)
	} else {
		s.ProfitFactor = ProfitFactor(math.Inf(1))
	}

	s.MaxDrawdown = maxDrawdown(Cumulative(trades))
	return s
}

// Point is one step of the cumulative P/L curve.
type Point struct {
	TradeID    int64   `json:"tradeId"`
	TradeDate  string  `json:"tradeDate"`
	ExitTime   string  `json:"exitTime"`
	Pnl        float64 `json:"pnl"`
	Cumulative float64 `json:"cumulative"`
}

// Cumulative orders trades by trade date plus CE exit time and returns the
// running P/L. The CE exit is the canonical event time even when the PE leg
// closed later.
func Cumulative(trades []models.Trade) []Point {
	sorted := make([]models.Trade, len(trades))
	copy(sorted, trades)
	sort.SliceStable(sorted, func(i, j int) bool {
		return eventTime(sorted[i]).Before(eventTime(sorted[j]))
	})

	out := make([]Point, 0, len(sorted))
	var running float64
	for _, t := range sorted {
		p := pnl.TotalPnl(t)
		running += p
		out = append(out, Point{
			TradeID:    t.ID,
			TradeDate:  t.TradeDate,
			ExitTime:   t.CEExitTime,
			Pnl:        p,
			Cumulative: running,
		})
	}
	return out
}

// eventTime returns the composite timestamp; unparsable stamps yield the zero
// time and so sort first.
func eventTime(t models.Trade) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if ts, err := time.Parse(layout, t.TradeDate+"T"+t.CEExitTime); err == nil {
			return ts
		}
	}
	if ts, err := time.Parse(time.DateOnly, t.TradeDate); err == nil {
		return ts
	}
	return time.Time{}
}

func maxDrawdown(points []Point) float64 {
	var peak, worst float64
	for _, p := range points {
		if p.Cumulative > peak {
			peak = p.Cumulative
		}
		if dd := peak - p.Cumulative; dd > worst {
			worst = dd
		}
	}
	return worst
}

// Day is the P/L bucket for one trade date.
type Day struct {
	Date   string  `json:"date"`
	Trades int     `json:"trades"`
	Pnl    float64 `json:"pnl"`
}

// Daily buckets trades by trade date, ascending.
func Daily(trades []models.Trade) []Day {
	byDate := make(map[string]*Day)
	for _, t := range trades {
		d, ok := byDate[t.TradeDate]
		if !ok {
			d = &Day{Date: t.TradeDate}
			byDate[t.TradeDate] = d
		}
		d.Trades++
		d.Pnl += pnl.TotalPnl(t)
	}

	out := make([]Day, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}
