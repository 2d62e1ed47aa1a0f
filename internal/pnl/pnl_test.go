package pnl

import (
	"math"
	"testing"

	"github.com/kjannette/trahn-journal/internal/models"
)

func scenarioTrade(typ models.TradeType) models.Trade {
	return models.Trade{
		ID:           1,
		TradeDate:    "2024-06-10",
		Strike:       23500,
		Type:         typ,
		Quantity:     375,
		CEEntryPrice: 100,
		CEExitPrice:  80,
		PEEntryPrice: 50,
		PEExitPrice:  60,
		CEExitTime:   "15:10:00",
	}
}

func TestScenarioA_Sell(t *testing.T) {
	tr := scenarioTrade(models.Sell)
	if got := CEPnl(tr); got != 7500 {
		t.Fatalf("CE pnl: got %v, want 7500", got)
	}
	if got := PEPnl(tr); got != -3750 {
		t.Fatalf("PE pnl: got %v, want -3750", got)
	}
	if got := TotalPnl(tr); got != 3750 {
		t.Fatalf("total pnl: got %v, want 3750", got)
	}
}

func TestScenarioB_Buy(t *testing.T) {
	tr := scenarioTrade(models.Buy)
	if got := CEPnl(tr); got != -7500 {
		t.Fatalf("CE pnl: got %v, want -7500", got)
	}
	if got := PEPnl(tr); got != 3750 {
		t.Fatalf("PE pnl: got %v, want 3750", got)
	}
	if got := TotalPnl(tr); got != -3750 {
		t.Fatalf("total pnl: got %v, want -3750", got)
	}
}

func TestTotalEqualsSumOfLegs(t *testing.T) {
	prices := [][4]float64{
		{100, 80, 50, 60},
		{12.35, 0, 7.1, 19.95},
		{0, 0, 0, 0},
		{250.5, 260.75, 3.05, 1.2},
	}
	for _, typ := range []models.TradeType{models.Buy, models.Sell} {
		for _, p := range prices {
			for _, qty := range []int{1, 25, 375, 1800} {
				tr := models.Trade{Type: typ, Quantity: qty,
					CEEntryPrice: p[0], CEExitPrice: p[1], PEEntryPrice: p[2], PEExitPrice: p[3]}
				want := LegPnl(p[0], p[1], qty, typ) + LegPnl(p[2], p[3], qty, typ)
				if got := TotalPnl(tr); got != want {
					t.Fatalf("%s %v x%d: total %v != legs %v", typ, p, qty, got, want)
				}
			}
		}
	}
}

func TestLegPnl_TypeFlipNegates(t *testing.T) {
	cases := [][2]float64{{100, 80}, {80, 100}, {15.5, 15.5}, {0.05, 42}}
	for _, c := range cases {
		sell := LegPnl(c[0], c[1], 50, models.Sell)
		buy := LegPnl(c[0], c[1], 50, models.Buy)
		if sell != -buy {
			t.Fatalf("entry=%v exit=%v: sell %v is not -buy %v", c[0], c[1], sell, buy)
		}
	}
}

func TestStopLoss(t *testing.T) {
	if got := StopLoss(100); got != 150 {
		t.Fatalf("StopLoss(100) = %v, want 150", got)
	}
	if got := StopLoss(0.4); math.Abs(got-0.6) > 1e-12 {
		t.Fatalf("StopLoss(0.4) = %v, want 0.6", got)
	}
	for _, in := range []float64{0, -5, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := StopLoss(in); got != 0 {
			t.Fatalf("StopLoss(%v) = %v, want 0", in, got)
		}
	}
}

func TestTradeDay(t *testing.T) {
	cases := map[string]string{
		"2024-06-10": "Monday",
		"2024-06-16": "Sunday",
		"2024-01-01": "Monday",
		"2024-02-29": "Thursday",
		"":           "",
		"not-a-date": "",
	}
	for in, want := range cases {
		if got := TradeDay(in); got != want {
			t.Fatalf("TradeDay(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTradeDayOfMonth(t *testing.T) {
	if got := TradeDayOfMonth("2024-06-09"); got != 9 {
		t.Fatalf("got %d, want 9", got)
	}
	if got := TradeDayOfMonth("junk"); got != 0 {
		t.Fatalf("got %d, want 0", got)
	}
}

func TestDerive(t *testing.T) {
	d := Derive(scenarioTrade(models.Sell))
	if d.TradeDay != "Monday" || d.CEPnl != 7500 || d.PEPnl != -3750 || d.TotalPnl != 3750 {
		t.Fatalf("unexpected derived values: %+v", d)
	}
	if d.CESL != 150 || d.PESL != 75 {
		t.Fatalf("unexpected stop levels: %+v", d)
	}
}
