package repository

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjannette/trahn-journal/internal/models"
)

// RowsTable holds one record per sheet row. row_num keeps insertion order,
// trade_id is the numeric form of the id cell used for lookups.
const RowsTable = "journal_rows"

// cellColumns are the physical column names of the positional cells, in
// models.Columns order.
var cellColumns = func() []string {
	out := make([]string, len(models.Columns))
	for i, c := range models.Columns {
		out[i] = snake(c)
	}
	return out
}()

func CellColumns() []string {
	return append([]string(nil), cellColumns...)
}

func snake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

func createTableSQL(rowNumDecl, idType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", RowsTable)
	fmt.Fprintf(&b, "\trow_num %s,\n", rowNumDecl)
	fmt.Fprintf(&b, "\ttrade_id %s NOT NULL", idType)
	for _, c := range cellColumns {
		fmt.Fprintf(&b, ",\n\t%s TEXT NOT NULL DEFAULT ''", c)
	}
	b.WriteString("\n)")
	return b.String()
}

func createIndexSQL() string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_trade_id ON %s (trade_id)", RowsTable, RowsTable)
}

// fitCells pads or truncates cells to the column layout and extracts the
// trade id from the first cell. Ids are compared numerically, so "17e11" and
// "170000000000" address the same row.
func fitCells(cells []string) (int64, []string, error) {
	fitted := make([]string, len(cellColumns))
	copy(fitted, cells)
	id, err := cellID(fitted[0])
	if err != nil {
		return 0, nil, err
	}
	return id, fitted, nil
}

func cellID(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: id cell %q", models.ErrRowShape, s)
	}
	return int64(f), nil
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanCells(row scannable) ([]string, error) {
	cells := make([]string, len(cellColumns))
	dest := make([]any, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return cells, nil
}

func collectCells(rows rowsIter) ([][]string, error) {
	out := [][]string{}
	for rows.Next() {
		cells, err := scanCells(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cells)
	}
	return out, rows.Err()
}
