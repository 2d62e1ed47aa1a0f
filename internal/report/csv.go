// Package report renders trade collections for export: CSV rows for
// spreadsheets and a YAML statistics summary.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/pnl"
)

var ErrNoData = errors.New("no data to export")

var CSVHeader = []string{
	"Trade Date", "Trade Day", "Strike", "Quantity", "Total PNL",
	"CE Entry", "CE Exit", "CE SL", "CE Entry Time", "CE Exit Time", "CE PNL",
	"PE Entry", "PE Exit", "PE Entry Time", "PE Exit Time", "PE SL", "PE PNL",
	"Notes",
}

// WriteCSV writes the header and one row per trade. Prices are written as
// entered; computed P/L and stop-loss values are fixed to two decimals.
func WriteCSV(w io.Writer, trades []models.Trade) error {
	if len(trades) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range trades {
		if err := cw.Write(csvRow(t)); err != nil {
			return fmt.Errorf("write csv row %d: %w", t.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(t models.Trade) []string {
	d := pnl.Derive(t)
	return []string{
		t.TradeDate,
		d.TradeDay,
		strconv.Itoa(t.Strike),
		strconv.Itoa(t.Quantity),
		fixed(d.TotalPnl),
		price(t.CEEntryPrice),
		price(t.CEExitPrice),
		fixed(d.CESL),
		t.CEEntryTime,
		t.CEExitTime,
		fixed(d.CEPnl),
		price(t.PEEntryPrice),
		price(t.PEExitPrice),
		t.PEEntryTime,
		t.PEExitTime,
		fixed(d.PESL),
		fixed(d.PEPnl),
		t.Notes,
	}
}

func fixed(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func price(v float64) string {
	return decimal.NewFromFloat(v).String()
}
