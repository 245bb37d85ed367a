package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/anntune/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/anntune/internal/core/domain"
	"github.com/custodia-labs/anntune/internal/core/ports/driven"
)

// FileName is the database file created inside the results directory.
const FileName = "results.db"

// Ensure Store implements the interface.
var _ driven.ResultsStore = (*Store)(nil)

// Store is a SQLite-backed results table.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) dir/results.db and applies pending migrations.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)

	// Open database with WAL mode so readers never block the sweep
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(FULL)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	currentVersion, err := s.SchemaVersion(context.Background())
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_trials.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.apply(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) apply(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

type knobJSON struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Append inserts one trial row.
func (s *Store) Append(ctx context.Context, o domain.TrialOutcome) error {
	knobs := make([]knobJSON, len(o.Configuration.Values))
	for i, kv := range o.Configuration.Values {
		knobs[i] = knobJSON{Name: kv.Name, Value: kv.Value}
	}
	configJSON, err := json.Marshal(knobs)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	var (
		buildMs, searchMs                       sql.NullInt64
		recall10, avgSearch, distComps, recall1 sql.NullFloat64
		score, recallPenalty, timePenalty       sql.NullFloat64
		recallOK, buildOK, searchOK             sql.NullBool
	)
	if m := o.Metrics; m != nil {
		buildMs = sql.NullInt64{Int64: m.BuildMs, Valid: true}
		searchMs = sql.NullInt64{Int64: m.SearchMs, Valid: true}
		recall10 = sql.NullFloat64{Float64: m.Recall10, Valid: true}
		avgSearch = nullFloat(m.AvgSearchMs)
		distComps = nullFloat(m.DistComps)
		recall1 = nullFloat(m.Recall1)
	}
	if sc := o.Score; sc != nil {
		score = sql.NullFloat64{Float64: sc.Value, Valid: true}
		recallPenalty = sql.NullFloat64{Float64: sc.RecallPenalty, Valid: true}
		timePenalty = sql.NullFloat64{Float64: sc.TimePenalty, Valid: true}
		recallOK = sql.NullBool{Bool: sc.RecallOK, Valid: true}
		buildOK = sql.NullBool{Bool: sc.BuildOK, Valid: true}
		searchOK = sql.NullBool{Bool: sc.SearchOK, Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trials (
			id, strategy, dataset, configuration, config_key, rationale, status,
			build_ms, search_ms, recall10, avg_search_ms, dist_comps, recall1,
			score, recall_penalty, time_penalty, recall_ok, build_ok, search_ok,
			pass, finished_at, duration_ns, diagnostic
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.ID, string(o.Strategy), o.Dataset, string(configJSON), o.Configuration.Key(),
		nullString(o.Configuration.Rationale), string(o.Status),
		buildMs, searchMs, recall10, avgSearch, distComps, recall1,
		score, recallPenalty, timePenalty, recallOK, buildOK, searchOK,
		o.Pass(), o.Timestamp.UTC().Format(time.RFC3339Nano), int64(o.Duration),
		nullString(o.Diagnostic))
	if err != nil {
		return fmt.Errorf("inserting trial: %w", err)
	}
	return nil
}

// All returns every trial ordered by sequence.
func (s *Store) All(ctx context.Context) ([]domain.TrialOutcome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, dataset, configuration, rationale, status,
			build_ms, search_ms, recall10, avg_search_ms, dist_comps, recall1,
			score, recall_penalty, time_penalty, recall_ok, build_ok, search_ok,
			pass, finished_at, duration_ns, diagnostic
		FROM trials ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying trials: %w", err)
	}
	defer rows.Close()

	outcomes := []domain.TrialOutcome{}
	for rows.Next() {
		o, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		o.Sequence = len(outcomes) + 1
		outcomes = append(outcomes, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trials: %w", err)
	}
	return outcomes, nil
}

// scanTrial scans a single trial row.
func scanTrial(rows *sql.Rows) (*domain.TrialOutcome, error) {
	var (
		o                                       domain.TrialOutcome
		strategy, status, configJSON, finished  string
		rationale, diagnostic                   sql.NullString
		buildMs, searchMs                       sql.NullInt64
		recall10, avgSearch, distComps, recall1 sql.NullFloat64
		score, recallPenalty, timePenalty       sql.NullFloat64
		recallOK, buildOK, searchOK             sql.NullBool
		pass                                    bool
		durationNs                              int64
	)

	if err := rows.Scan(&o.ID, &strategy, &o.Dataset, &configJSON, &rationale, &status,
		&buildMs, &searchMs, &recall10, &avgSearch, &distComps, &recall1,
		&score, &recallPenalty, &timePenalty, &recallOK, &buildOK, &searchOK,
		&pass, &finished, &durationNs, &diagnostic); err != nil {
		return nil, fmt.Errorf("scanning trial: %w", err)
	}

	o.Strategy = domain.Strategy(strategy)
	o.Status = domain.TrialStatus(status)
	if !o.Status.IsValid() {
		return nil, fmt.Errorf("trial %s: %w: status %q", o.ID, domain.ErrUnsupportedType, status)
	}

	var knobs []knobJSON
	if err := json.Unmarshal([]byte(configJSON), &knobs); err != nil {
		return nil, fmt.Errorf("unmarshalling configuration of trial %s: %w", o.ID, err)
	}
	values := make([]domain.KnobValue, len(knobs))
	for i, k := range knobs {
		values[i] = domain.KnobValue{Name: k.Name, Value: k.Value}
	}
	o.Configuration = domain.NewConfiguration(values, rationale.String)

	ts, err := time.Parse(time.RFC3339Nano, finished)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp of trial %s: %w", o.ID, err)
	}
	o.Timestamp = ts
	o.Duration = time.Duration(durationNs)
	o.Diagnostic = diagnostic.String

	if buildMs.Valid && searchMs.Valid && recall10.Valid {
		o.Metrics = &domain.MetricsRecord{
			BuildMs:     buildMs.Int64,
			SearchMs:    searchMs.Int64,
			Recall10:    recall10.Float64,
			AvgSearchMs: floatPtr(avgSearch),
			DistComps:   floatPtr(distComps),
			Recall1:     floatPtr(recall1),
		}
	}
	if score.Valid {
		o.Score = &domain.Score{
			Value:         score.Float64,
			RecallPenalty: recallPenalty.Float64,
			TimePenalty:   timePenalty.Float64,
			Pass:          pass,
			RecallOK:      recallOK.Bool,
			BuildOK:       buildOK.Bool,
			SearchOK:      searchOK.Bool,
		}
	}

	return &o, nil
}

// nullString converts an empty string to sql.NullString.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}
