// Package export writes a loaded table into other stores for offline use.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	// Pure-Go SQLite driver registered as "sqlite".
	_ "github.com/glebarez/go-sqlite"

	"github.com/okian/profitboard/internal/domain/model"
)

// RecordsTable is the table every export replaces.
const RecordsTable = "records"

// ErrBadColumn reports a measure name that is not a safe SQL identifier.
var ErrBadColumn = errors.New("measure is not a valid column name")

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLite replaces the records table of the database at path with the rows of
// t and returns how many rows were written. Measures are stored as NUMERIC,
// missing values as NULL and unknown columns as a JSON object in extra.
func SQLite(ctx context.Context, path string, t *model.Table) (int, error) {
	if t == nil {
		return 0, errors.New("export: nil table")
	}
	for _, m := range t.Measures {
		if !identifier.MatchString(m) {
			return 0, fmt.Errorf("%w: %q", ErrBadColumn, m)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, fmt.Errorf("sql.Open: %w", err)
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS `+RecordsTable); err != nil {
		return 0, fmt.Errorf("drop: %w", err)
	}
	if _, err := tx.ExecContext(ctx, createStatement(t.Measures)); err != nil {
		return 0, fmt.Errorf("create: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertStatement(t.Measures))
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range t.Records {
		args, err := rowArgs(r, t.Measures)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return t.Len(), nil
}

func createStatement(measures []string) string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE ` + RecordsTable + ` (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    date TEXT,
    coach TEXT,
    player TEXT,
    club TEXT`)
	for _, m := range measures {
		b.WriteString(",\n    " + m + " NUMERIC")
	}
	b.WriteString(",\n    extra TEXT\n)")
	return b.String()
}

func insertStatement(measures []string) string {
	cols := append([]string{"date", "coach", "player", "club"}, measures...)
	cols = append(cols, "extra")
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return `INSERT INTO ` + RecordsTable + ` (` + strings.Join(cols, ", ") + `) VALUES (` + marks + `)`
}

func rowArgs(r model.Record, measures []string) ([]any, error) {
	args := make([]any, 0, len(measures)+5)
	if r.HasDate() {
		args = append(args, r.Date.Format(model.DateLayout))
	} else {
		args = append(args, nil)
	}
	args = append(args, r.Coach, r.Player, r.Club)
	for _, m := range measures {
		if v, ok := r.Measure(m); ok {
			args = append(args, v.String())
		} else {
			args = append(args, nil)
		}
	}
	if len(r.Extra) == 0 {
		return append(args, nil), nil
	}
	extra, err := json.Marshal(r.Extra)
	if err != nil {
		return nil, err
	}
	return append(args, string(extra)), nil
}
