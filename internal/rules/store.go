package rules

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HendryAvila/kiln/internal/csvtable"
	"github.com/gofrs/flock"
)

// ErrUnreadableTable is returned by Save when the rule file exists but
// cannot be parsed. Save refuses to overwrite it.
var ErrUnreadableTable = errors.New("rules: rule table is unreadable")

// LoadReport summarizes a (re)load of the rule file.
type LoadReport struct {
	Rows       int             `json:"rows"`
	Duplicates []Key           `json:"duplicates,omitempty"`
	Defaulted  []DefaultedCell `json:"defaulted,omitempty"`
	// Err is the read or parse failure that was recovered as an empty
	// rule set. Nil when the file loaded or simply does not exist.
	Err error `json:"-"`
}

// SaveResult reports what Save did.
type SaveResult struct {
	Created bool `json:"created"`
	Rows    int  `json:"rows"`
}

// Store owns the rule table: the rows in file order plus a composite-key
// index pointing at the first row for each key.
//
// Rows with a duplicated key (possible only through manual edits of the
// file) are kept so they survive write-back, but they are never matched:
// the first row in load order wins.
type Store struct {
	path   string
	lock   *flock.Flock
	logger *slog.Logger

	mu      sync.Mutex
	rows    []Rule
	index   map[Key]int
	modTime time.Time
	size    int64
}

// NewStore opens the rule table at path and loads it. A missing or
// corrupt file yields an empty store; see Load.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: logger,
		index:  make(map[Key]int),
	}
	s.Load()
	return s
}

// Path returns the rule file path.
func (s *Store) Path() string { return s.path }

// Load rereads the rule file. Read and parse failures are recovered as an
// empty rule set, logged, and reported in LoadReport.Err; they never fail
// a prediction.
func (s *Store) Load() LoadReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *Store) loadLocked() LoadReport {
	rows, defaulted, info, err := s.readFile()
	if err != nil {
		s.logger.Warn("rule table unreadable, using empty rule set", "path", s.path, "error", err)
		rows = nil
	}
	dups := s.setRows(rows)
	s.setStat(info)

	for _, d := range dups {
		s.logger.Warn("duplicate rule key, first row wins", "path", s.path, "key", d.String())
	}
	for _, d := range defaulted {
		s.logger.Warn("malformed rule value read as 0", "path", s.path, "row", d.Row, "column", d.Column, "raw", d.Raw)
	}
	return LoadReport{Rows: len(s.rows), Duplicates: dups, Defaulted: defaulted, Err: err}
}

// readFile returns the parsed rows and file info. A missing or empty file
// is an empty table, not an error.
func (s *Store) readFile() ([]Rule, []DefaultedCell, os.FileInfo, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil, nil
		}
		return nil, nil, nil, fmt.Errorf("rules: read %s: %w", s.path, err)
	}
	info, _ := os.Stat(s.path)

	rows, defaulted, err := decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, csvtable.ErrNoHeader) {
			return nil, nil, info, nil
		}
		return nil, nil, info, fmt.Errorf("rules: parse %s: %w", s.path, err)
	}
	return rows, defaulted, info, nil
}

func (s *Store) setRows(rows []Rule) []Key {
	var dups []Key
	s.rows = rows
	s.index = make(map[Key]int, len(rows))
	for i, r := range rows {
		k := r.Key()
		if _, seen := s.index[k]; seen {
			dups = append(dups, k)
			continue
		}
		s.index[k] = i
	}
	return dups
}

func (s *Store) setStat(info os.FileInfo) {
	if info == nil {
		s.modTime, s.size = time.Time{}, 0
		return
	}
	s.modTime, s.size = info.ModTime(), info.Size()
}

// refreshLocked reloads when the file changed on disk since the last load,
// so edits by another process are picked up at request time.
func (s *Store) refreshLocked() {
	info, err := os.Stat(s.path)
	switch {
	case err != nil && s.modTime.IsZero():
		return
	case err != nil:
		s.loadLocked()
	case !info.ModTime().Equal(s.modTime) || info.Size() != s.size:
		s.loadLocked()
	}
}

// Find returns the rule matching key exactly. An empty table never
// matches.
func (s *Store) Find(key Key) (Rule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	if len(s.index) == 0 {
		return Rule{}, false
	}
	i, ok := s.index[key]
	if !ok {
		return Rule{}, false
	}
	return s.rows[i], true
}

// Save validates rule and writes it to the table: the first row with the
// same key is overwritten in place, otherwise the rule is appended.
//
// The read-modify-write runs under an exclusive lock on a sidecar lock
// file, so concurrent savers in other processes serialize instead of
// losing each other's rows. The table is written to a temporary file and
// renamed over the original; readers never observe a partial table.
func (s *Store) Save(rule Rule) (SaveResult, error) {
	rule = rule.Normalize()
	if err := rule.Validate(); err != nil {
		return SaveResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return SaveResult{}, fmt.Errorf("rules: create dir: %w", err)
	}
	if err := s.lock.Lock(); err != nil {
		return SaveResult{}, fmt.Errorf("rules: lock: %w", err)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("rule table unlock failed", "path", s.path, "error", err)
		}
	}()

	rows, _, _, err := s.readFile()
	if err != nil {
		return SaveResult{}, fmt.Errorf("%w: %v", ErrUnreadableTable, err)
	}

	created := true
	key := rule.Key()
	for i := range rows {
		if rows[i].Key() == key {
			rows[i] = rule
			created = false
			break
		}
	}
	if created {
		rows = append(rows, rule)
	}

	if err := s.writeFile(rows); err != nil {
		return SaveResult{}, err
	}

	s.setRows(rows)
	info, _ := os.Stat(s.path)
	s.setStat(info)

	return SaveResult{Created: created, Rows: len(rows)}, nil
}

func (s *Store) writeFile(rows []Rule) error {
	data, err := encode(rows)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("rules: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("rules: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("rules: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("rules: close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("rules: chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("rules: replace %s: %w", s.path, err)
	}
	return nil
}

// All returns every row in file order, duplicates included.
func (s *Store) All() []Rule {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	out := make([]Rule, len(s.rows))
	copy(out, s.rows)
	return out
}

// Len returns the number of rows in the table.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.refreshLocked()
	return len(s.rows)
}
