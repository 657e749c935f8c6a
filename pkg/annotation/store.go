// Package annotation stores DROMA sample and drug annotations in SQLite and
// serves them as the canonical vocabulary for harmonization.
package annotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// ErrTableNotFound is returned when an annotation table is missing.
var ErrTableNotFound = errors.New("annotation table not found")

// Store wraps the annotation database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	busyTimeoutMS int
	create        bool
	logger        *slog.Logger
}

// WithBusyTimeout sets the SQLite busy timeout in milliseconds.
func WithBusyTimeout(ms int) Option {
	return func(c *openConfig) { c.busyTimeoutMS = ms }
}

// WithLogger sets the logger used to report writes.
func WithLogger(l *slog.Logger) Option {
	return func(c *openConfig) { c.logger = l }
}

// WithoutCreate opens an existing database without creating missing tables.
func WithoutCreate() Option {
	return func(c *openConfig) { c.create = false }
}

// Open opens (or creates) the SQLite database at path and ensures sample_anno
// and drug_anno exist.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{busyTimeoutMS: 5000, create: true, logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(wal)&_pragma=busy_timeout(%d)", path, cfg.busyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open annotation db: %w", err)
	}

	if cfg.create {
		for _, t := range []table{sampleTable, drugTable} {
			if _, err := db.Exec(t.ddl()); err != nil {
				db.Close()
				return nil, fmt.Errorf("create %s table: %w", t.name, err)
			}
			if _, err := db.Exec(t.indexDDL()); err != nil {
				db.Close()
				return nil, fmt.Errorf("create %s index: %w", t.name, err)
			}
		}
	}
	return &Store{db: db, logger: cfg.logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Tables lists every table in the database, sorted by name.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// TableExists reports whether name is a table in the database.
func (s *Store) TableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", name, err)
	}
	return n > 0, nil
}

func (s *Store) requireTable(ctx context.Context, t table) error {
	ok, err := s.TableExists(ctx, t.name)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", t.name, ErrTableNotFound)
	}
	return nil
}

// FetchCanonicalEntries implements harmonize.CanonicalSource. Each row becomes
// one entry; ProjectRawName and AlternateName (split on ':' or '|') are aliases.
func (s *Store) FetchCanonicalEntries(ctx context.Context, kind harmonize.Kind, project string) ([]harmonize.CanonicalEntry, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireTable(ctx, t); err != nil {
		return nil, err
	}

	alt := "''"
	if t.altCol != "" {
		alt = quote(t.altCol)
	}
	name := quote(t.nameCol)
	q := fmt.Sprintf(`SELECT rowid, %s, COALESCE(ProjectID, ''), COALESCE(ProjectRawName, ''), COALESCE(%s, ''), COALESCE(IndexID, '')
		FROM %s WHERE %s IS NOT NULL AND TRIM(%s) <> '' AND (? = '' OR ProjectID = ?) ORDER BY rowid`,
		name, alt, t.name, name, name)
	rows, err := s.db.QueryContext(ctx, q, project, project)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	var entries []harmonize.CanonicalEntry
	for rows.Next() {
		var (
			rowid                               int64
			canonical, proj, raw, alternate, id string
		)
		if err := rows.Scan(&rowid, &canonical, &proj, &raw, &alternate, &id); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		if id == "" {
			id = "row:" + strconv.FormatInt(rowid, 10)
		}
		entries = append(entries, harmonize.CanonicalEntry{
			ID:            id,
			CanonicalName: canonical,
			Aliases:       aliases(canonical, raw, alternate),
			Project:       proj,
		})
	}
	return entries, rows.Err()
}

func aliases(name, raw, alternate string) []string {
	var out []string
	seen := map[string]bool{name: true}
	add := func(a string) {
		a = strings.TrimSpace(a)
		if a == "" || seen[a] {
			return
		}
		seen[a] = true
		out = append(out, a)
	}
	add(raw)
	for _, a := range strings.FieldsFunc(alternate, func(r rune) bool { return r == ':' || r == '|' }) {
		add(a)
	}
	return out
}

// Projects lists the distinct non-empty project IDs of kind, sorted.
func (s *Store) Projects(ctx context.Context, kind harmonize.Kind) ([]string, error) {
	t, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	if err := s.requireTable(ctx, t); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT DISTINCT ProjectID FROM %s WHERE ProjectID <> '' ORDER BY ProjectID`, t.name))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}
