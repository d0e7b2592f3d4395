// Package export writes tables to formats other than CSV and XLSX.
package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/KaramelBytes/darwinprep/internal/table"
)

// WriteSQLite stores t as tableName in the SQLite database at path,
// replacing any existing table of that name. Numeric columns are typed REAL
// and missing cells become NULL.
func WriteSQLite(ctx context.Context, path, tableName string, t *table.Table) error {
	if tableName == "" {
		return fmt.Errorf("sqlite: empty table name")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	defer db.Close()

	numeric := make([]bool, len(t.Columns))
	defs := make([]string, len(t.Columns))
	for j, c := range t.Columns {
		typ := "TEXT"
		if t.IsNumeric(c) {
			numeric[j] = true
			typ = "REAL"
		}
		defs[j] = quoteIdent(c) + " " + typ
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	name := quoteIdent(tableName)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
		return fmt.Errorf("sqlite: drop %s: %w", tableName, err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("sqlite: create %s: %w", tableName, err)
	}
	if len(t.Columns) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", name, marks))
		if err != nil {
			return fmt.Errorf("sqlite: prepare insert: %w", err)
		}
		defer stmt.Close()
		args := make([]any, len(t.Columns))
		for i, row := range t.Rows {
			for j, cell := range row {
				switch {
				case table.IsMissing(cell):
					args[j] = nil
				case numeric[j]:
					args[j] = table.ParseFloat(cell)
				default:
					args[j] = cell
				}
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("sqlite: insert row %d: %w", i+1, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
