package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteRowRepo stores sheet rows in a local SQLite file.
type SQLiteRowRepo struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *zap.Logger
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists.
func OpenSQLite(path string, log *zap.Logger) (*SQLiteRowRepo, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		path = "./data/journal.db"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory %q: %w", filepath.Dir(path), err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	r := &SQLiteRowRepo{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}
	if err := r.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	log.Info("sqlite row store ready", zap.String("path", path))
	return r, nil
}

func (r *SQLiteRowRepo) ensureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createTableSQL("INTEGER PRIMARY KEY AUTOINCREMENT", "INTEGER")); err != nil {
		return fmt.Errorf("create %s: %w", RowsTable, err)
	}
	if _, err := r.db.ExecContext(ctx, createIndexSQL()); err != nil {
		return fmt.Errorf("index %s: %w", RowsTable, err)
	}
	return nil
}

func (r *SQLiteRowRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRowRepo) Rows(ctx context.Context) ([][]string, error) {
	query, args, err := r.sq.Select(cellColumns...).From(RowsTable).OrderBy("row_num ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCells(rows)
}

func (r *SQLiteRowRepo) Append(ctx context.Context, cells []string) error {
	id, fitted, err := fitCells(cells)
	if err != nil {
		return err
	}

	values := make([]any, 0, len(fitted)+1)
	values = append(values, id)
	for _, c := range fitted {
		values = append(values, c)
	}

	query, args, err := r.sq.Insert(RowsTable).
		Columns(append([]string{"trade_id"}, cellColumns...)...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	_, err = r.db.ExecContext(ctx, query, args...)
	return err
}

func (r *SQLiteRowRepo) Replace(ctx context.Context, id int64, cells []string) (bool, error) {
	newID, fitted, err := fitCells(cells)
	if err != nil {
		return false, err
	}

	return r.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		rowNum, found, err := r.findRow(ctx, tx, id, "row_num ASC")
		if err != nil || !found {
			return false, err
		}

		set := map[string]any{"trade_id": newID}
		for i, c := range cellColumns {
			set[c] = fitted[i]
		}
		query, args, err := r.sq.Update(RowsTable).SetMap(set).Where(squirrel.Eq{"row_num": rowNum}).ToSql()
		if err != nil {
			return false, fmt.Errorf("build update: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (r *SQLiteRowRepo) Remove(ctx context.Context, id int64) (bool, error) {
	return r.inTx(ctx, func(tx *sql.Tx) (bool, error) {
		rowNum, found, err := r.findRow(ctx, tx, id, "row_num DESC")
		if err != nil || !found {
			return false, err
		}

		query, args, err := r.sq.Delete(RowsTable).Where(squirrel.Eq{"row_num": rowNum}).ToSql()
		if err != nil {
			return false, fmt.Errorf("build delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (r *SQLiteRowRepo) findRow(ctx context.Context, tx *sql.Tx, id int64, order string) (int64, bool, error) {
	query, args, err := r.sq.Select("row_num").
		From(RowsTable).
		Where(squirrel.Eq{"trade_id": id}).
		OrderBy(order).
		Limit(1).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("build lookup: %w", err)
	}

	var rowNum int64
	err = tx.QueryRowContext(ctx, query, args...).Scan(&rowNum)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rowNum, true, nil
}

func (r *SQLiteRowRepo) inTx(ctx context.Context, fn func(*sql.Tx) (bool, error)) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	ok, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return ok, nil
}
