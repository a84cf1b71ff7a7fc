// Package persist is a SQLite-backed recorder of every op the Event
// Loop retires (spec.md §6's optional database sink), adapted from the
// teacher's datarecording.sqliteWriter: open a fresh file, buffer
// inserts, flush in batches and on exit. Unlike the teacher, this
// package records one fixed schema rather than an arbitrary
// reflect-discovered struct, so it drops the fatih/structs dependency
// entirely (see DESIGN.md).
package persist

import (
	"database/sql"
	"fmt"
	"os"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// Record is one retired op's timing row (spec.md §3's OpEntry, flattened
// for storage).
type Record struct {
	OpID        int64
	Kind        string
	LauncherPID int64
	DeviceUID   int64 // 0 if the op touched no device
	StartTime   int64
	EndTime     int64
}

// Recorder buffers Records and flushes them to a SQLite file in
// batches, mirroring the teacher's sqliteWriter. DB is embedded, as in
// the teacher, so callers and tests can issue ad hoc queries directly.
type Recorder struct {
	*sql.DB

	batchSize int
	buffer    []Record
}

// NewRecorder opens (creating if absent) path+".sqlite3", creates the
// "ops" table if it does not already exist, and registers a Flush on
// exit so a fatal diagnostic still persists every row recorded so far.
func NewRecorder(path string) (*Recorder, error) {
	if path == "" {
		path = "irsim_" + xid.New().String()
	}

	filename := path + ".sqlite3"

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("persist: opening %s: %w", filename, err)
	}

	const createTableSQL = `CREATE TABLE IF NOT EXISTS ops (
		op_id INTEGER,
		kind TEXT,
		launcher_pid INTEGER,
		device_uid INTEGER,
		start_time INTEGER,
		end_time INTEGER
	);`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("persist: creating ops table: %w", err)
	}

	r := &Recorder{DB: db, batchSize: 10000}
	atexit.Register(func() { _ = r.Flush() })

	return r, nil
}

// Record buffers one retired op, flushing automatically once the
// buffer reaches batchSize.
func (r *Recorder) Record(rec Record) {
	r.buffer = append(r.buffer, rec)
	if len(r.buffer) >= r.batchSize {
		_ = r.Flush()
	}
}

// RecordOp adapts the engine's runner.OpRecorder call shape onto
// Record, so *Recorder can be handed to a Runner without this package
// importing runner.
func (r *Recorder) RecordOp(opID int64, kind string, launcherPID int64, deviceUID int64, startTime, endTime int64) {
	r.Record(Record{
		OpID:        opID,
		Kind:        kind,
		LauncherPID: launcherPID,
		DeviceUID:   deviceUID,
		StartTime:   startTime,
		EndTime:     endTime,
	})
}

// Flush writes every buffered Record inside a single transaction.
func (r *Recorder) Flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("persist: beginning transaction: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO ops
		(op_id, kind, launcher_pid, device_uid, start_time, end_time)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("persist: preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range r.buffer {
		if _, err := stmt.Exec(rec.OpID, rec.Kind, rec.LauncherPID, rec.DeviceUID, rec.StartTime, rec.EndTime); err != nil {
			tx.Rollback()
			return fmt.Errorf("persist: inserting row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist: committing transaction: %w", err)
	}

	r.buffer = r.buffer[:0]
	return nil
}

// Close flushes any buffered rows and closes the underlying connection.
func (r *Recorder) Close() error {
	if err := r.Flush(); err != nil {
		return err
	}
	return r.DB.Close()
}

// RemoveFile deletes the SQLite file at path+".sqlite3".
func RemoveFile(path string) error {
	return os.Remove(path + ".sqlite3")
}
