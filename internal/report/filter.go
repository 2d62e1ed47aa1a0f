package report

import (
	"strconv"
	"strings"

	"github.com/kjannette/trahn-journal/internal/models"
)

// Filter narrows a report. Text matches the strike or the notes, case
// insensitively; an empty Type matches both sides.
type Filter struct {
	Text string
	Type models.TradeType
}

func (f Filter) Match(t models.Trade) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Text))
	if q == "" {
		return true
	}
	return strings.Contains(strconv.Itoa(t.Strike), q) ||
		strings.Contains(strings.ToLower(t.Notes), q)
}

func (f Filter) Apply(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}
