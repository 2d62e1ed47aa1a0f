package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/stats"
)

func sellTrade() models.Trade {
	return models.Trade{
		ID:           1,
		TradeDate:    "2024-06-10",
		Strike:       23500,
		Type:         models.Sell,
		Quantity:     375,
		CEEntryPrice: 100,
		CEExitPrice:  80,
		PEEntryPrice: 50,
		PEExitPrice:  60,
		CEEntryTime:  "09:15:00",
		CEExitTime:   "15:10:00",
		PEEntryTime:  "09:15:00",
		PEExitTime:   "15:10:00",
		Notes:        `gap up, "held"`,
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Trade{sellTrade()}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(CSVHeader, ","), lines[0])
	assert.Equal(t,
		`2024-06-10,Monday,23500,375,3750.00,100,80,150.00,09:15:00,15:10:00,7500.00,50,60,09:15:00,15:10:00,75.00,-3750.00,"gap up, ""held"""`,
		lines[1])
}

func TestWriteCSV_RoundTripsThroughReader(t *testing.T) {
	tr := sellTrade()
	tr.Notes = "line one\nline two"
	tr.CEEntryPrice = 101.25

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Trade{tr}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Len(t, records[1], len(CSVHeader))
	assert.Equal(t, "101.25", records[1][5])
	assert.Equal(t, "151.88", records[1][7])
	assert.Equal(t, "line one\nline two", records[1][17])
}

func TestWriteCSV_NoData(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteCSV(&buf, nil), ErrNoData)
	assert.Zero(t, buf.Len())
}

func TestFilter(t *testing.T) {
	a := sellTrade()
	b := sellTrade()
	b.ID, b.Strike, b.Type, b.Notes = 2, 22000, models.Buy, "Expiry day scalp"

	trades := []models.Trade{a, b}

	assert.Len(t, Filter{}.Apply(trades), 2)
	assert.Equal(t, []models.Trade{b}, Filter{Text: "220"}.Apply(trades))
	assert.Equal(t, []models.Trade{b}, Filter{Text: "EXPIRY"}.Apply(trades))
	assert.Equal(t, []models.Trade{a}, Filter{Type: models.Sell}.Apply(trades))
	assert.Empty(t, Filter{Text: "gap", Type: models.Buy}.Apply(trades))
	assert.NotNil(t, Filter{Text: "nothing"}.Apply(trades))
}

func TestWriteStatsYAML(t *testing.T) {
	s := stats.Summarize([]models.Trade{sellTrade()})
	require.True(t, s.ProfitFactor.IsInf())

	r := NewStatsReport("this-month", time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC), s, stats.Daily([]models.Trade{sellTrade()}))

	var buf bytes.Buffer
	require.NoError(t, WriteStatsYAML(&buf, r))
	out := buf.String()
	assert.Contains(t, out, "range: this-month")
	assert.Contains(t, out, "profit_factor: .inf")
	assert.Contains(t, out, "total_pnl: 3750")

	var decoded StatsReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 1, decoded.Summary.TotalTrades)
	require.Len(t, decoded.Daily, 1)
	assert.Equal(t, "2024-06-10", decoded.Daily[0].Date)
}

func TestReadCSV_ReadsExportedRows(t *testing.T) {
	tr := sellTrade()
	tr.CEEntryPrice = 101.25

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.Trade{tr}))

	drafts, err := ReadCSV(&buf, models.Sell)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	require.NoError(t, drafts[0].Validate())

	got := drafts[0].Trade(tr.ID)
	assert.Equal(t, tr, got)
}

func TestReadCSV_MissingDate(t *testing.T) {
	in := strings.Join(CSVHeader, ",") + "\n" +
		",Monday,23500,375,0,100,80,150,09:15:00,15:10:00,0,50,60,09:15:00,15:10:00,75,0,\n"

	_, err := ReadCSV(strings.NewReader(in), models.Buy)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
}
