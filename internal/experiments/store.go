// Package experiments keeps a log of fired test tiles: what went into the
// kiln and what came out. Observations sit next to predictions so the
// correction rules can be tuned against real results.
//
// The log lives in SQLite (WAL mode) under the configured data directory.
package experiments

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/kiln/internal/glaze"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// DefaultCone is the firing cone recorded when none is given.
const DefaultCone = "6"

var (
	ErrNotFound     = errors.New("experiments: not found")
	ErrInvalidEntry = errors.New("invalid experiment")
)

// ─── Types ───────────────────────────────────────────────────────────────────

// Experiment is one logged firing.
type Experiment struct {
	ID                     string   `json:"id"`
	BaseGlazeID            string   `json:"base_glaze_id"`
	OverlayGlazeID         string   `json:"overlay_glaze_id,omitempty"`
	ClearCoat              string   `json:"clear_coat"`
	BaseCoats              int      `json:"base_coats"`
	OverlayCoats           int      `json:"overlay_coats"`
	Application            string   `json:"application"`
	Placement              string   `json:"placement"`
	TextureLevel           int      `json:"texture_level"`
	ObservedRunLabel       string   `json:"observed_run_label,omitempty"`
	ObservedCoveragePct    *float64 `json:"observed_overlay_coverage_pct,omitempty"`
	ObservedVariegationPct *float64 `json:"observed_variegation_pct,omitempty"`
	FiringCone             string   `json:"firing_cone"`
	KilnNotes              string   `json:"kiln_notes,omitempty"`
	Notes                  string   `json:"notes,omitempty"`
	CreatedAt              string   `json:"created_at"`
}

// AddParams holds the input for logging a firing.
type AddParams struct {
	BaseGlazeID            string   `json:"base_glaze_id" validate:"required"`
	OverlayGlazeID         string   `json:"overlay_glaze_id"`
	ClearCoat              string   `json:"clear_coat" validate:"oneof=none gloss satin_matte"`
	BaseCoats              int      `json:"base_coats" validate:"gte=1,lte=5"`
	OverlayCoats           int      `json:"overlay_coats" validate:"gte=0,lte=4"`
	Application            string   `json:"application" validate:"oneof=brushed dipped poured"`
	Placement              string   `json:"placement" validate:"oneof=flat vertical_wall rim inside_bowl over_texture"`
	TextureLevel           int      `json:"texture_level" validate:"gte=0,lte=10"`
	ObservedRunLabel       string   `json:"observed_run_label" validate:"omitempty,oneof=Low Medium High"`
	ObservedCoveragePct    *float64 `json:"observed_overlay_coverage_pct" validate:"omitempty,gte=0,lte=100"`
	ObservedVariegationPct *float64 `json:"observed_variegation_pct" validate:"omitempty,gte=0,lte=100"`
	FiringCone             string   `json:"firing_cone" validate:"max=8"`
	KilnNotes              string   `json:"kiln_notes"`
	Notes                  string   `json:"notes"`
}

// ListOptions filters List. Empty fields match everything. A zero Limit
// means the configured maximum; a negative Limit returns every match.
type ListOptions struct {
	BaseGlazeID    string
	OverlayGlazeID string
	ClearCoat      string
	Limit          int
}

// ComboCount is the number of firings logged for one combination.
type ComboCount struct {
	BaseGlazeID    string `json:"base_glaze_id"`
	OverlayGlazeID string `json:"overlay_glaze_id"`
	ClearCoat      string `json:"clear_coat"`
	Firings        int    `json:"firings"`
}

// Stats holds aggregate log statistics.
type Stats struct {
	TotalExperiments int            `json:"total_experiments"`
	Combinations     int            `json:"combinations"`
	ByRunLabel       map[string]int `json:"by_run_label"`
	TopCombos        []ComboCount   `json:"top_combos"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds experiment log configuration.
type Config struct {
	DataDir        string
	MaxListResults int
}

// DefaultConfig returns the default configuration for the experiment log.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:        filepath.Join(home, ".kiln"),
		MaxListResults: 50,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the experiment log backed by SQLite.
type Store struct {
	db  *sql.DB
	cfg Config
}

// New opens (or creates) the experiment log in cfg.DataDir and runs
// migrations.
func New(cfg Config) (*Store, error) {
	if cfg.MaxListResults <= 0 {
		cfg.MaxListResults = DefaultConfig().MaxListResults
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("experiments: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "experiments.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("experiments: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("experiments: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("experiments: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS experiments (
			id                            TEXT    PRIMARY KEY,
			base_glaze_id                 TEXT    NOT NULL,
			overlay_glaze_id              TEXT    NOT NULL DEFAULT '',
			clear_coat                    TEXT    NOT NULL DEFAULT 'none',
			base_coats                    INTEGER NOT NULL,
			overlay_coats                 INTEGER NOT NULL,
			application                   TEXT    NOT NULL,
			placement                     TEXT    NOT NULL,
			texture_level                 INTEGER NOT NULL,
			observed_run_label            TEXT    NOT NULL DEFAULT '',
			observed_overlay_coverage_pct REAL,
			observed_variegation_pct      REAL,
			firing_cone                   TEXT    NOT NULL DEFAULT '6',
			kiln_notes                    TEXT    NOT NULL DEFAULT '',
			notes                         TEXT    NOT NULL DEFAULT '',
			created_at                    TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%d %H:%M:%f', 'now'))
		);

		CREATE INDEX IF NOT EXISTS idx_experiments_combo
			ON experiments(base_glaze_id, overlay_glaze_id, clear_coat);
		CREATE INDEX IF NOT EXISTS idx_experiments_created ON experiments(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Validation ──────────────────────────────────────────────────────────────

var validate = validator.New()

// Normalize trims text fields, canonicalizes enum spellings and fills the
// default firing cone. Values that do not parse are left for Validate to
// reject.
func (p AddParams) Normalize() AddParams {
	p.BaseGlazeID = strings.TrimSpace(p.BaseGlazeID)
	p.OverlayGlazeID = strings.TrimSpace(p.OverlayGlazeID)
	if cc, err := glaze.ParseClearCoat(p.ClearCoat); err == nil {
		p.ClearCoat = string(cc)
	}
	if a, err := glaze.ParseApplication(p.Application); err == nil {
		p.Application = string(a)
	}
	if pl, err := glaze.ParsePlacement(p.Placement); err == nil {
		p.Placement = string(pl)
	}
	if label := strings.TrimSpace(p.ObservedRunLabel); label != "" {
		p.ObservedRunLabel = strings.ToUpper(label[:1]) + strings.ToLower(label[1:])
	}
	p.FiringCone = strings.TrimSpace(p.FiringCone)
	if p.FiringCone == "" {
		p.FiringCone = DefaultCone
	}
	p.KilnNotes = strings.TrimSpace(p.KilnNotes)
	p.Notes = strings.TrimSpace(p.Notes)
	return p
}

// Validate rejects out-of-range values. The error wraps ErrInvalidEntry.
func (p AddParams) Validate() error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "oneof" {
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s] (got %v)", fe.Field(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), deref(fe.Value())))
	}
	return fmt.Errorf("%w: %s", ErrInvalidEntry, strings.Join(msgs, "; "))
}

func deref(v any) any {
	if f, ok := v.(*float64); ok && f != nil {
		return *f
	}
	return v
}

// ─── Experiments ─────────────────────────────────────────────────────────────

const selectColumns = `id, base_glaze_id, overlay_glaze_id, clear_coat, base_coats, overlay_coats,
	application, placement, texture_level, observed_run_label,
	observed_overlay_coverage_pct, observed_variegation_pct,
	firing_cone, kiln_notes, notes, created_at`

// Add normalizes, validates and records a firing. It returns the stored
// row with its generated ID.
func (s *Store) Add(p AddParams) (*Experiment, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO experiments (id, base_glaze_id, overlay_glaze_id, clear_coat, base_coats, overlay_coats,
		                          application, placement, texture_level, observed_run_label,
		                          observed_overlay_coverage_pct, observed_variegation_pct,
		                          firing_cone, kiln_notes, notes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, p.BaseGlazeID, p.OverlayGlazeID, p.ClearCoat, p.BaseCoats, p.OverlayCoats,
		p.Application, p.Placement, p.TextureLevel, p.ObservedRunLabel,
		nullableFloat(p.ObservedCoveragePct), nullableFloat(p.ObservedVariegationPct),
		p.FiringCone, p.KilnNotes, p.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("experiments: insert: %w", err)
	}
	return s.Get(id)
}

// Get retrieves one experiment by ID. A missing ID wraps ErrNotFound.
func (s *Store) Get(id string) (*Experiment, error) {
	row := s.db.QueryRow(`SELECT `+selectColumns+` FROM experiments WHERE id = ?`, strings.TrimSpace(id))
	e, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns experiments newest first, filtered by combination.
func (s *Store) List(opts ListOptions) ([]Experiment, error) {
	limit := opts.Limit
	switch {
	case limit < 0:
		limit = -1
	case limit == 0 || limit > s.cfg.MaxListResults:
		limit = s.cfg.MaxListResults
	}

	query := `SELECT ` + selectColumns + ` FROM experiments WHERE 1 = 1`
	args := []any{}

	if v := strings.TrimSpace(opts.BaseGlazeID); v != "" {
		query += " AND base_glaze_id = ?"
		args = append(args, v)
	}
	if v := strings.TrimSpace(opts.OverlayGlazeID); v != "" {
		query += " AND overlay_glaze_id = ?"
		args = append(args, v)
	}
	if opts.ClearCoat != "" {
		cc, err := glaze.ParseClearCoat(opts.ClearCoat)
		if err != nil {
			return nil, err
		}
		query += " AND clear_coat = ?"
		args = append(args, string(cc))
	}

	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("experiments: list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Experiment
	for rows.Next() {
		e, err := scanExperiment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// Delete removes an experiment. Deleting a missing ID wraps ErrNotFound.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM experiments WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("experiments: delete: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// Stats returns aggregate counts over the whole log. topN bounds the
// per-combination list.
func (s *Store) Stats(topN int) (*Stats, error) {
	if topN <= 0 {
		topN = 5
	}
	stats := &Stats{ByRunLabel: map[string]int{}}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM experiments`).Scan(&stats.TotalExperiments); err != nil {
		return nil, fmt.Errorf("experiments: stats: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM (SELECT 1 FROM experiments GROUP BY base_glaze_id, overlay_glaze_id, clear_coat)`,
	).Scan(&stats.Combinations); err != nil {
		return nil, fmt.Errorf("experiments: stats: %w", err)
	}

	rows, err := s.db.Query(
		`SELECT observed_run_label, COUNT(*) FROM experiments
		 WHERE observed_run_label != '' GROUP BY observed_run_label`)
	if err != nil {
		return nil, fmt.Errorf("experiments: stats: %w", err)
	}
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.ByRunLabel[label] = n
	}
	err = rows.Err()
	_ = rows.Close()
	if err != nil {
		return nil, fmt.Errorf("experiments: stats: %w", err)
	}

	rows, err = s.db.Query(
		`SELECT base_glaze_id, overlay_glaze_id, clear_coat, COUNT(*) AS n FROM experiments
		 GROUP BY base_glaze_id, overlay_glaze_id, clear_coat
		 ORDER BY n DESC, base_glaze_id, overlay_glaze_id, clear_coat
		 LIMIT ?`, topN)
	if err != nil {
		return nil, fmt.Errorf("experiments: stats: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var c ComboCount
		if err := rows.Scan(&c.BaseGlazeID, &c.OverlayGlazeID, &c.ClearCoat, &c.Firings); err != nil {
			return nil, err
		}
		stats.TopCombos = append(stats.TopCombos, c)
	}
	return stats, rows.Err()
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanExperiment(sc scanner) (*Experiment, error) {
	var e Experiment
	var cov, vari sql.NullFloat64
	if err := sc.Scan(
		&e.ID, &e.BaseGlazeID, &e.OverlayGlazeID, &e.ClearCoat, &e.BaseCoats, &e.OverlayCoats,
		&e.Application, &e.Placement, &e.TextureLevel, &e.ObservedRunLabel,
		&cov, &vari, &e.FiringCone, &e.KilnNotes, &e.Notes, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	if cov.Valid {
		e.ObservedCoveragePct = &cov.Float64
	}
	if vari.Valid {
		e.ObservedVariegationPct = &vari.Float64
	}
	return &e, nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
