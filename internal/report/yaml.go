package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kjannette/trahn-journal/internal/stats"
)

// StatsReport is the document written by WriteStatsYAML.
type StatsReport struct {
	Range       string        `yaml:"range"`
	GeneratedAt time.Time     `yaml:"generated_at"`
	Summary     stats.Summary `yaml:"summary"`
	Daily       []DailyRow    `yaml:"daily,omitempty"`
}

type DailyRow struct {
	Date   string  `yaml:"date"`
	Trades int     `yaml:"trades"`
	Pnl    float64 `yaml:"pnl"`
}

func NewStatsReport(rangeName string, generatedAt time.Time, s stats.Summary, days []stats.Day) StatsReport {
	r := StatsReport{Range: rangeName, GeneratedAt: generatedAt.UTC(), Summary: s}
	for _, d := range days {
		r.Daily = append(r.Daily, DailyRow{Date: d.Date, Trades: d.Trades, Pnl: d.Pnl})
	}
	return r
}

// WriteStatsYAML encodes r. An infinite profit factor is written as .inf.
func WriteStatsYAML(w io.Writer, r StatsReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode stats yaml: %w", err)
	}
	return enc.Close()
}
