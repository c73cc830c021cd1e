package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"vinosuggest-engine/internal/domain"
)

const lockRetry = 50 * time.Millisecond

// CSVRepository keeps one headerless row per record in a flat file. A sidecar
// "<path>.lock" file guards it against other processes.
type CSVRepository struct {
	path string
	mu   sync.Mutex
	lock *flock.Flock
}

type csvRow struct {
	fields []string
	line   int
}

func NewCSVRepository(path string) (*CSVRepository, error) {
	if path == "" {
		return nil, errors.New("csv store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv store: %w", err)
	}
	return &CSVRepository{path: path, lock: flock.New(path + ".lock")}, nil
}

func (r *CSVRepository) Path() string { return r.path }

func (r *CSVRepository) Close() error { return nil }

func (r *CSVRepository) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = r.lock.TryLockContext(ctx, lockRetry)
	} else {
		ok, err = r.lock.TryRLockContext(ctx, lockRetry)
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", r.path, err)
	}
	if !ok {
		return fmt.Errorf("failed to lock %s", r.path)
	}
	defer func() { _ = r.lock.Unlock() }()

	return fn()
}

// readRows returns every row with its line number. A missing file is an
// empty store.
func (r *CSVRepository) readRows() ([]csvRow, error) {
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", r.path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows []csvRow
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, csvRow{fields: fields, line: line})
	}
	return rows, nil
}

func findRow(rows []csvRow, username string) (csvRow, bool) {
	for _, row := range rows {
		if len(row.fields) > 0 && row.fields[0] == username {
			return row, true
		}
	}
	return csvRow{}, false
}

func (r *CSVRepository) Exists(ctx context.Context, username string) (bool, error) {
	var found bool
	err := r.withLock(ctx, false, func() error {
		rows, err := r.readRows()
		if err != nil {
			return err
		}
		_, found = findRow(rows, username)
		return nil
	})
	return found, err
}

func (r *CSVRepository) Get(ctx context.Context, username string) (domain.PreferenceRecord, error) {
	var rec domain.PreferenceRecord
	err := r.withLock(ctx, false, func() error {
		rows, err := r.readRows()
		if err != nil {
			return err
		}
		row, ok := findRow(rows, username)
		if !ok {
			return ErrNotFound
		}
		rec, err = decodeRecord(row.fields, row.line)
		return err
	})
	return rec, err
}

func (r *CSVRepository) List(ctx context.Context) ([]domain.PreferenceRecord, error) {
	var out []domain.PreferenceRecord
	err := r.withLock(ctx, false, func() error {
		rows, err := r.readRows()
		if err != nil {
			return err
		}
		out = make([]domain.PreferenceRecord, 0, len(rows))
		for _, row := range rows {
			rec, err := decodeRecord(row.fields, row.line)
			if err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// Put appends one row. The duplicate check and the append happen under the
// same exclusive lock.
func (r *CSVRepository) Put(ctx context.Context, rec domain.PreferenceRecord) error {
	return r.withLock(ctx, true, func() error {
		rows, err := r.readRows()
		if err != nil {
			return err
		}
		if _, dup := findRow(rows, rec.Username); dup {
			return ErrDuplicateUsername
		}

		f, err := os.OpenFile(r.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", r.path, err)
		}
		defer f.Close()

		// a hand-edited file may lack the final newline
		if err := ensureTrailingNewline(f); err != nil {
			return fmt.Errorf("failed to append to %s: %w", r.path, err)
		}

		w := csv.NewWriter(f)
		if err := w.Write(encodeRecord(rec)); err != nil {
			return fmt.Errorf("failed to append to %s: %w", r.path, err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("failed to append to %s: %w", r.path, err)
		}
		return f.Sync()
	})
}

func ensureTrailingNewline(f *os.File) error {
	st, err := f.Stat()
	if err != nil {
		return err
	}
	if st.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, st.Size()-1); err != nil {
		return err
	}
	if last[0] == '\n' {
		return nil
	}
	_, err = f.Write([]byte{'\n'})
	return err
}

// Delete drops every row for username and rewrites the file through a temp
// file and rename. Other rows are written back unchanged.
func (r *CSVRepository) Delete(ctx context.Context, username string) error {
	return r.withLock(ctx, true, func() error {
		rows, err := r.readRows()
		if err != nil {
			return err
		}

		kept := make([][]string, 0, len(rows))
		for _, row := range rows {
			if len(row.fields) > 0 && row.fields[0] == username {
				continue
			}
			kept = append(kept, row.fields)
		}
		if len(kept) == len(rows) {
			return ErrNotFound
		}
		return r.rewrite(kept)
	})
}

func (r *CSVRepository) rewrite(rows [][]string) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to rewrite %s: %w", r.path, err)
	}
	return nil
}
