package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"

	"github.com/ka2n/jobharvest/api/record"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

const insertJob = `INSERT INTO jobs (seq, job_id, title, location, posting_date, url, company, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

// SQLite writes records into a fresh database file with a single jobs table.
// The database is built under a temp name and renamed over dest.
type SQLite struct{}

var _ Writer = SQLite{}

func (SQLite) Write(ctx context.Context, records []record.Normalized, dest string) (int64, error) {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return 0, ioError(err, dest, "Failed to create output directory")
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*.db")
	if err != nil {
		return 0, ioError(err, dest, "Failed to create temporary database")
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()

	if err := fillDatabase(ctx, tmpPath, records); err != nil {
		_ = os.Remove(tmpPath)
		return 0, ioError(err, dest, "Failed to write records")
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		_ = os.Remove(tmpPath)
		return 0, ioError(err, dest, "Failed to stat database")
	}
	if err := replace(tmpPath, dest); err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func fillDatabase(ctx context.Context, path string, records []record.Normalized) (err error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertJob)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, r := range records {
		var id sql.NullString
		if r.ID != nil {
			id = sql.NullString{String: *r.ID, Valid: true}
		}
		row := Row(r)
		if _, err := stmt.ExecContext(ctx, i+1, id, row[1], row[2], row[3], row[4], row[5], row[6]); err != nil {
			return err
		}
	}
	return tx.Commit()
}
