package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/kjannette/trahn-journal/internal/models"
)

// csvTrade maps the input columns of an exported CSV. Derived columns
// (day, P/L, stop-loss) are ignored on import and recomputed on read.
type csvTrade struct {
	TradeDate    string  `csv:"Trade Date"`
	Strike       int     `csv:"Strike"`
	Quantity     int     `csv:"Quantity"`
	CEEntryPrice float64 `csv:"CE Entry"`
	CEExitPrice  float64 `csv:"CE Exit"`
	CEEntryTime  string  `csv:"CE Entry Time"`
	CEExitTime   string  `csv:"CE Exit Time"`
	PEEntryPrice float64 `csv:"PE Entry"`
	PEExitPrice  float64 `csv:"PE Exit"`
	PEEntryTime  string  `csv:"PE Entry Time"`
	PEExitTime   string  `csv:"PE Exit Time"`
	Notes        string  `csv:"Notes"`
}

// ReadCSV parses a file in the WriteCSV layout back into drafts. The layout
// has no type column, so every draft gets typ. Drafts are not validated.
func ReadCSV(r io.Reader, typ models.TradeType) ([]models.TradeDraft, error) {
	var rows []*csvTrade
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}

	drafts := make([]models.TradeDraft, 0, len(rows))
	for i, row := range rows {
		if row == nil || row.TradeDate == "" {
			return nil, fmt.Errorf("row %d: %w", i+2, errMissingDate)
		}
		drafts = append(drafts, row.draft(typ))
	}
	return drafts, nil
}

var errMissingDate = errors.New("missing trade date")

func (c csvTrade) draft(typ models.TradeType) models.TradeDraft {
	return models.DraftFrom(models.Trade{
		TradeDate:    c.TradeDate,
		Strike:       c.Strike,
		Type:         typ,
		Quantity:     c.Quantity,
		CEEntryPrice: c.CEEntryPrice,
		CEExitPrice:  c.CEExitPrice,
		PEEntryPrice: c.PEEntryPrice,
		PEExitPrice:  c.PEExitPrice,
		CEEntryTime:  c.CEEntryTime,
		CEExitTime:   c.CEExitTime,
		PEEntryTime:  c.PEEntryTime,
		PEExitTime:   c.PEExitTime,
		Notes:        c.Notes,
	})
}
