package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RowRepo stores sheet rows in Postgres.
type RowRepo struct {
	pool *pgxpool.Pool
}

func NewRowRepo(pool *pgxpool.Pool) *RowRepo {
	return &RowRepo{pool: pool}
}

func (r *RowRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createTableSQL("BIGSERIAL PRIMARY KEY", "BIGINT")); err != nil {
		return fmt.Errorf("create %s: %w", RowsTable, err)
	}
	if _, err := r.pool.Exec(ctx, createIndexSQL()); err != nil {
		return fmt.Errorf("index %s: %w", RowsTable, err)
	}
	return nil
}

// Rows returns every row in insertion order.
func (r *RowRepo) Rows(ctx context.Context) ([][]string, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s ORDER BY row_num ASC`,
		strings.Join(cellColumns, ", "), RowsTable,
	))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCells(rows)
}

func (r *RowRepo) Append(ctx context.Context, cells []string) error {
	id, fitted, err := fitCells(cells)
	if err != nil {
		return err
	}

	args := make([]any, 0, len(fitted)+1)
	args = append(args, id)
	for _, c := range fitted {
		args = append(args, c)
	}

	_, err = r.pool.Exec(ctx, fmt.Sprintf(
		`INSERT INTO %s (trade_id, %s) VALUES (%s)`,
		RowsTable, strings.Join(cellColumns, ", "), placeholders(1, len(args)),
	), args...)
	return err
}

// Replace overwrites the first row whose id matches. It reports whether a
// row was found.
func (r *RowRepo) Replace(ctx context.Context, id int64, cells []string) (bool, error) {
	newID, fitted, err := fitCells(cells)
	if err != nil {
		return false, err
	}

	sets := make([]string, 0, len(cellColumns)+1)
	args := []any{id, newID}
	sets = append(sets, "trade_id = $2")
	for i, c := range cellColumns {
		args = append(args, fitted[i])
		sets = append(sets, fmt.Sprintf("%s = $%d", c, len(args)))
	}

	tag, err := r.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %[1]s SET %[2]s
		 WHERE row_num = (SELECT MIN(row_num) FROM %[1]s WHERE trade_id = $1)`,
		RowsTable, strings.Join(sets, ", "),
	), args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Remove deletes the last row whose id matches.
func (r *RowRepo) Remove(ctx context.Context, id int64) (bool, error) {
	var rowNum int64
	err := r.pool.QueryRow(ctx, fmt.Sprintf(
		`DELETE FROM %[1]s
		 WHERE row_num = (SELECT MAX(row_num) FROM %[1]s WHERE trade_id = $1)
		 RETURNING row_num`, RowsTable,
	), id).Scan(&rowNum)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Truncate removes every row.
func (r *RowRepo) Truncate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s RESTART IDENTITY`, RowsTable))
	return err
}

func placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ps, ", ")
}
