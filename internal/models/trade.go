package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TradeType is the directional stance shared by both legs of a trade.
type TradeType string

const (
	Buy  TradeType = "Buy"
	Sell TradeType = "Sell"
)

func (t TradeType) Valid() bool {
	return t == Buy || t == Sell
}

// ParseTradeType accepts the wire values plus their upper/lower case forms.
func ParseTradeType(s string) (TradeType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return "", fmt.Errorf("invalid trade type %q, expected Buy|Sell", s)
	}
}

// Trade is one paired CE/PE options position.
type Trade struct {
	ID           int64     `json:"id" yaml:"id"`
	TradeDate    string    `json:"tradeDate" yaml:"trade_date"`
	Strike       int       `json:"strike" yaml:"strike"`
	Type         TradeType `json:"type" yaml:"type"`
	Quantity     int       `json:"quantity" yaml:"quantity"`
	CEEntryPrice float64   `json:"ceEntryPrice" yaml:"ce_entry_price"`
	CEExitPrice  float64   `json:"ceExitPrice" yaml:"ce_exit_price"`
	PEEntryPrice float64   `json:"peEntryPrice" yaml:"pe_entry_price"`
	PEExitPrice  float64   `json:"peExitPrice" yaml:"pe_exit_price"`
	CEEntryTime  string    `json:"ceEntryTime" yaml:"ce_entry_time"`
	CEExitTime   string    `json:"ceExitTime" yaml:"ce_exit_time"`
	PEEntryTime  string    `json:"peEntryTime" yaml:"pe_entry_time"`
	PEExitTime   string    `json:"peExitTime" yaml:"pe_exit_time"`
	Notes        string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Normalize trims values the sheet backend tends to decorate. See NormalizeIn;
// dates are taken in the local zone.
func (t *Trade) Normalize() {
	t.NormalizeIn(time.Local)
}

// NormalizeIn converts a date that comes back as a full ISO timestamp to the
// calendar date in loc. The sheet stores local midnight, serialized in UTC.
func (t *Trade) NormalizeIn(loc *time.Location) {
	if ts, err := time.Parse(time.RFC3339, t.TradeDate); err == nil {
		t.TradeDate = ts.In(loc).Format(time.DateOnly)
	} else if i := strings.IndexByte(t.TradeDate, 'T'); i > 0 {
		t.TradeDate = t.TradeDate[:i]
	}
	t.Type, _ = ParseTradeTypeOr(string(t.Type), t.Type)
}

// ParseTradeTypeOr parses s, returning fallback unchanged when s is not a
// recognised type.
func ParseTradeTypeOr(s string, fallback TradeType) (TradeType, bool) {
	tt, err := ParseTradeType(s)
	if err != nil {
		return fallback, false
	}
	return tt, true
}

// Columns is the fixed positional layout of a trade row in the backend sheet.
// The backend maps columns to fields by index, so this order is part of the
// persistence contract.
var Columns = []string{
	"id", "tradeDate", "strike", "type", "quantity",
	"ceEntryPrice", "ceExitPrice", "peEntryPrice", "peExitPrice",
	"ceEntryTime", "ceExitTime", "peEntryTime", "peExitTime", "notes",
}

var ErrRowShape = errors.New("row does not match trade column layout")

// Row encodes the trade as sheet cells in Columns order.
func (t Trade) Row() []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.TradeDate,
		strconv.Itoa(t.Strike),
		string(t.Type),
		strconv.Itoa(t.Quantity),
		formatPrice(t.CEEntryPrice),
		formatPrice(t.CEExitPrice),
		formatPrice(t.PEEntryPrice),
		formatPrice(t.PEExitPrice),
		t.CEEntryTime,
		t.CEExitTime,
		t.PEEntryTime,
		t.PEExitTime,
		t.Notes,
	}
}

// TradeFromRow decodes positional cells. A row may omit the trailing notes
// cell, as sheet rows with an empty last column often do.
func TradeFromRow(cells []string) (Trade, error) {
	if len(cells) != len(Columns) && len(cells) != len(Columns)-1 {
		return Trade{}, fmt.Errorf("%w: got %d cells, want %d", ErrRowShape, len(cells), len(Columns))
	}

	var (
		t   Trade
		err error
	)
	p := rowParser{cells: cells}
	t.ID = p.int64(0)
	t.TradeDate = cells[1]
	t.Strike = p.int(2)
	t.Type, err = ParseTradeType(cells[3])
	if err != nil {
		return Trade{}, fmt.Errorf("%w: column type: %v", ErrRowShape, err)
	}
	t.Quantity = p.int(4)
	t.CEEntryPrice = p.float(5)
	t.CEExitPrice = p.float(6)
	t.PEEntryPrice = p.float(7)
	t.PEExitPrice = p.float(8)
	t.CEEntryTime = cells[9]
	t.CEExitTime = cells[10]
	t.PEEntryTime = cells[11]
	t.PEExitTime = cells[12]
	if len(cells) == len(Columns) {
		t.Notes = cells[13]
	}
	if p.err != nil {
		return Trade{}, p.err
	}
	t.Normalize()
	return t, nil
}

type rowParser struct {
	cells []string
	err   error
}

func (p *rowParser) fail(i int, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: column %s: %v", ErrRowShape, Columns[i], err)
	}
}

func (p *rowParser) int64(i int) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(p.cells[i]), 10, 64)
	if err != nil {
		// Sheets hands numbers back as floats ("1700000000000.0").
		f, ferr := strconv.ParseFloat(strings.TrimSpace(p.cells[i]), 64)
		if ferr != nil {
			p.fail(i, err)
			return 0
		}
		return int64(f)
	}
	return n
}

func (p *rowParser) int(i int) int {
	return int(p.int64(i))
}

func (p *rowParser) float(i int) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(p.cells[i]), 64)
	if err != nil {
		p.fail(i, err)
		return 0
	}
	return f
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
