package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/config"
	"github.com/kjannette/trahn-journal/internal/daterange"
	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/logger"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/pnl"
	"github.com/kjannette/trahn-journal/internal/remotestore"
	"github.com/kjannette/trahn-journal/internal/report"
	"github.com/kjannette/trahn-journal/internal/stats"
	"github.com/kjannette/trahn-journal/internal/storeobs"
)

var filterFlag = &cli.StringFlag{
	Name:    "filter",
	Aliases: []string{"f"},
	Value:   string(daterange.All),
	Usage:   "Date filter: today, yesterday, this-week, last-week, this-month, last-month, last-3-months, this-year, last-year, all",
}

// stderrNotifier prints rollback notices where the user will see them.
type stderrNotifier struct{}

func (stderrNotifier) Notify(msg string) {
	fmt.Fprintln(os.Stderr, "!", msg)
}

// openJournal builds a manager against the configured store and loads it.
func openJournal(ctx context.Context, cmd *cli.Command) (*journal.Manager, time.Duration, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, 0, fmt.Errorf("load config: %w", err)
	}
	endpoint := cfg.JournalEndpoint
	if v := cmd.String("endpoint"); v != "" {
		endpoint = v
	}
	timeout := cfg.RemoteTimeout()
	if v := int(cmd.Int("timeout")); v > 0 {
		timeout = time.Duration(v) * time.Second
	}

	log, err := logger.New(cmd.String("log-level"))
	if err != nil {
		return nil, 0, err
	}
	zap.ReplaceGlobals(log)

	client := remotestore.New(remotestore.Config{Endpoint: endpoint, Timeout: timeout})
	mgr := journal.NewManager(storeobs.Wrap(client, log), stderrNotifier{}, log)
	if err := mgr.Load(ctx); err != nil {
		if errors.Is(err, journal.ErrSetupRequired) {
			return nil, 0, errors.New("journal endpoint not configured: set JOURNAL_ENDPOINT or pass --endpoint")
		}
		return nil, 0, err
	}
	return mgr, timeout, nil
}

func filtered(mgr *journal.Manager, cmd *cli.Command) ([]models.Trade, daterange.Filter, error) {
	f, err := daterange.Parse(cmd.String("filter"))
	if err != nil {
		return nil, "", err
	}
	return mgr.Filtered(f, time.Now()), f, nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List trades with computed P/L",
		Flags: []cli.Flag{filterFlag},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, _, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}
			trades, _, err := filtered(mgr, cmd)
			if err != nil {
				return err
			}
			return printTrades(os.Stdout, trades)
		},
	}
}

func printTrades(w io.Writer, trades []models.Trade) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "ID\tDate\tDay\tStrike\tType\tQty\tCE P/L\tPE P/L\tTotal\t")
	for _, t := range trades {
		d := pnl.Derive(t)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%d\t%.2f\t%.2f\t%.2f\t\n",
			t.ID, t.TradeDate, d.TradeDay, t.Strike, t.Type, t.Quantity, d.CEPnl, d.PEPnl, d.TotalPnl)
	}
	return tw.Flush()
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregate statistics",
		Flags: []cli.Flag{
			filterFlag,
			&cli.BoolFlag{Name: "yaml", Usage: "Write the report as YAML"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			mgr, _, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}
			trades, f, err := filtered(mgr, cmd)
			if err != nil {
				return err
			}
			s := stats.Summarize(trades)
			if cmd.Bool("yaml") {
				return report.WriteStatsYAML(os.Stdout, report.NewStatsReport(string(f), time.Now(), s, stats.Daily(trades)))
			}
			return printSummary(os.Stdout, s)
		},
	}
}

func printSummary(w io.Writer, s stats.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trades\t%d (buy %d, sell %d)\n", s.TotalTrades, s.BuyTrades, s.SellTrades)
	fmt.Fprintf(tw, "Winners / losers\t%d / %d\n", s.WinningCount, s.LosingCount)
	fmt.Fprintf(tw, "Win rate\t%.2f%%\n", s.WinRate)
	fmt.Fprintf(tw, "Total P/L\t%.2f\n", s.TotalPnl)
	fmt.Fprintf(tw, "Avg win / loss\t%.2f / %.2f\n", s.AvgWin, s.AvgLoss)
	fmt.Fprintf(tw, "Profit factor\t%s\n", s.ProfitFactor)
	fmt.Fprintf(tw, "Best / worst\t%.2f / %.2f\n", s.BestTrade, s.WorstTrade)
	fmt.Fprintf(tw, "Max drawdown\t%.2f\n", s.MaxDrawdown)
	return tw.Flush()
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export trades as CSV",
		Flags: []cli.Flag{
			filterFlag,
			&cli.StringFlag{Name: "q", Usage: "Match strike or notes"},
			&cli.StringFlag{Name: "type", Usage: "Only Buy or Sell trades"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file (default stdout)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rf := report.Filter{Text: cmd.String("q")}
			if v := cmd.String("type"); v != "" {
				tt, err := models.ParseTradeType(v)
				if err != nil {
					return err
				}
				rf.Type = tt
			}

			mgr, _, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}
			trades, _, err := filtered(mgr, cmd)
			if err != nil {
				return err
			}
			trades = rf.Apply(trades)
			if len(trades) == 0 {
				return errors.New("no data to export")
			}

			var w io.Writer = os.Stdout
			if path := cmd.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create %s: %w", path, err)
				}
				defer f.Close()
				w = f
			}
			return report.WriteCSV(w, trades)
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Add every row of an exported CSV as a new trade",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "CSV file to read"},
			&cli.StringFlag{Name: "type", Value: string(models.Sell), Usage: "Trade type for every row: Buy or Sell"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			tt, err := models.ParseTradeType(cmd.String("type"))
			if err != nil {
				return err
			}
			f, err := os.Open(cmd.String("in"))
			if err != nil {
				return err
			}
			defer f.Close()

			drafts, err := report.ReadCSV(f, tt)
			if err != nil {
				return err
			}

			mgr, timeout, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}

			bar := progressbar.Default(int64(len(drafts)), "importing")
			var failed int
			for i := range drafts {
				if err := addAndWait(ctx, mgr, drafts[i], timeout); err != nil {
					failed++
					zap.L().Warn("import row failed", zap.Int("row", i+2), zap.Error(err))
				}
				_ = bar.Add(1)
			}
			fmt.Printf("\nimported %d of %d trades\n", len(drafts)-failed, len(drafts))
			if failed > 0 {
				return fmt.Errorf("%d rows failed", failed)
			}
			return nil
		},
	}
}

func addAndWait(ctx context.Context, mgr *journal.Manager, d models.TradeDraft, timeout time.Duration) error {
	_, p, err := mgr.Add(ctx, d)
	if err != nil {
		return err
	}
	return waitFor(ctx, p, timeout)
}

func waitFor(ctx context.Context, p *journal.Pending, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout+time.Second)
		defer cancel()
	}
	return p.Wait(ctx)
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "Record a trade",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "date", Value: time.Now().Format(time.DateOnly), Usage: "Trade date `YYYY-MM-DD`"},
			&cli.IntFlag{Name: "strike", Required: true},
			&cli.StringFlag{Name: "type", Value: string(models.Sell), Usage: "Buy or Sell"},
			&cli.IntFlag{Name: "qty", Required: true},
			&cli.FloatFlag{Name: "ce-entry", Required: true},
			&cli.FloatFlag{Name: "ce-exit", Required: true},
			&cli.FloatFlag{Name: "pe-entry", Required: true},
			&cli.FloatFlag{Name: "pe-exit", Required: true},
			&cli.StringFlag{Name: "ce-entry-time", Value: "09:15:00"},
			&cli.StringFlag{Name: "ce-exit-time", Value: "15:15:00"},
			&cli.StringFlag{Name: "pe-entry-time", Value: "09:15:00"},
			&cli.StringFlag{Name: "pe-exit-time", Value: "15:15:00"},
			&cli.StringFlag{Name: "notes"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			d := draftFromFlags(cmd)
			if err := d.Validate(); err != nil {
				return err
			}

			mgr, timeout, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}
			t, p, err := mgr.Add(ctx, d)
			if err != nil {
				return err
			}
			if err := waitFor(ctx, p, timeout); err != nil {
				return err
			}
			fmt.Printf("added trade %d: total P/L %.2f\n", t.ID, pnl.TotalPnl(t))
			return nil
		},
	}
}

func draftFromFlags(cmd *cli.Command) models.TradeDraft {
	strike, qty := int(cmd.Int("strike")), int(cmd.Int("qty"))
	ceIn, ceOut := float64(cmd.Float("ce-entry")), float64(cmd.Float("ce-exit"))
	peIn, peOut := float64(cmd.Float("pe-entry")), float64(cmd.Float("pe-exit"))
	return models.TradeDraft{
		TradeDate:    cmd.String("date"),
		Strike:       &strike,
		Type:         models.TradeType(cmd.String("type")),
		Quantity:     &qty,
		CEEntryPrice: &ceIn,
		CEExitPrice:  &ceOut,
		PEEntryPrice: &peIn,
		PEExitPrice:  &peOut,
		CEEntryTime:  cmd.String("ce-entry-time"),
		CEExitTime:   cmd.String("ce-exit-time"),
		PEEntryTime:  cmd.String("pe-entry-time"),
		PEExitTime:   cmd.String("pe-exit-time"),
		Notes:        cmd.String("notes"),
	}
}

// updateFlags are all optional: only the flags given replace fields of the
// stored trade.
func updateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "date", Usage: "Trade date `YYYY-MM-DD`"},
		&cli.IntFlag{Name: "strike"},
		&cli.StringFlag{Name: "type", Usage: "Buy or Sell"},
		&cli.IntFlag{Name: "qty"},
		&cli.FloatFlag{Name: "ce-entry"},
		&cli.FloatFlag{Name: "ce-exit"},
		&cli.FloatFlag{Name: "pe-entry"},
		&cli.FloatFlag{Name: "pe-exit"},
		&cli.StringFlag{Name: "ce-entry-time"},
		&cli.StringFlag{Name: "ce-exit-time"},
		&cli.StringFlag{Name: "pe-entry-time"},
		&cli.StringFlag{Name: "pe-exit-time"},
		&cli.StringFlag{Name: "notes"},
	}
}

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Usage:     "Edit a trade; unset flags keep their stored values",
		ArgsUsage: "ID",
		Flags:     updateFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseIDArg(cmd)
			if err != nil {
				return err
			}

			mgr, timeout, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}
			current, ok := mgr.Get(id)
			if !ok {
				return fmt.Errorf("%w: %d", journal.ErrTradeNotFound, id)
			}

			d := models.DraftFrom(current)
			overrideDraft(cmd, &d)
			t, p, err := mgr.Update(ctx, id, d)
			if err != nil {
				return err
			}
			if err := waitFor(ctx, p, timeout); err != nil {
				return err
			}
			fmt.Printf("updated trade %d: total P/L %.2f\n", t.ID, pnl.TotalPnl(t))
			return nil
		},
	}
}

func overrideDraft(cmd *cli.Command, d *models.TradeDraft) {
	setStr := func(name string, dst *string) {
		if cmd.IsSet(name) {
			*dst = cmd.String(name)
		}
	}
	setInt := func(name string, dst **int) {
		if cmd.IsSet(name) {
			v := int(cmd.Int(name))
			*dst = &v
		}
	}
	setFloat := func(name string, dst **float64) {
		if cmd.IsSet(name) {
			v := float64(cmd.Float(name))
			*dst = &v
		}
	}

	setStr("date", &d.TradeDate)
	if cmd.IsSet("type") {
		d.Type = models.TradeType(cmd.String("type"))
	}
	setInt("strike", &d.Strike)
	setInt("qty", &d.Quantity)
	setFloat("ce-entry", &d.CEEntryPrice)
	setFloat("ce-exit", &d.CEExitPrice)
	setFloat("pe-entry", &d.PEEntryPrice)
	setFloat("pe-exit", &d.PEExitPrice)
	setStr("ce-entry-time", &d.CEEntryTime)
	setStr("ce-exit-time", &d.CEExitTime)
	setStr("pe-entry-time", &d.PEEntryTime)
	setStr("pe-exit-time", &d.PEExitTime)
	setStr("notes", &d.Notes)
}

func parseIDArg(cmd *cli.Command) (int64, error) {
	id, err := strconv.ParseInt(cmd.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid trade id %q", cmd.Args().First())
	}
	return id, nil
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a trade by id",
		ArgsUsage: "ID",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id, err := parseIDArg(cmd)
			if err != nil {
				return err
			}

			mgr, timeout, err := openJournal(ctx, cmd)
			if err != nil {
				return err
			}
			p, err := mgr.Delete(ctx, id)
			if err != nil {
				return err
			}
			if err := waitFor(ctx, p, timeout); err != nil {
				return err
			}
			fmt.Printf("deleted trade %d\n", id)
			return nil
		},
	}
}
