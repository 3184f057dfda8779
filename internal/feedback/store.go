// Package feedback implements the Beta-Binomial posterior feedback loop of
// §4.5: entities earn a boost or a suppression penalty from accumulated
// wikilink-application feedback, decayed by recency so that old signal
// cannot indefinitely outvote recent correction.
package feedback

import (
	"database/sql"
	"fmt"
	"math"
	"sync"
	"time"

	"vaultlink/internal/logging"

	_ "modernc.org/sqlite"
)

const (
	priorAlpha = 1.0
	priorBeta  = 1.0

	defaultHalfLife = 30 * 24 * time.Hour

	tierLearningMaxN   = 5.0
	tierStrongMean     = 0.80
	tierWeakMean       = 0.50
	tierDevelopingMean = tierWeakMean
	championMinN       = 20.0
	championMinMean    = 0.95

	boostWeak       = -2.0
	boostDeveloping = 1.0
	boostStrong     = 2.0
	boostChampion   = 10.0

	suppressionMinN = 10.0
)

// Store persists feedback events and computes boosts/suppressions per the
// Beta-Binomial posterior model. It implements scoring.FeedbackSource.
type Store struct {
	db *sql.DB
	mu sync.RWMutex

	halfLife      time.Duration
	hardCutoff    float64
	suppressed    map[string]bool
	suppressedMu  sync.RWMutex
}

// Event is one recorded feedback observation.
type Event struct {
	Entity    string
	Context   string
	NotePath  string
	Correct   bool
	Timestamp time.Time
}

// Journey aggregates per-stage counts for observability's journey view.
type Journey struct {
	Discover int
	Suggest  int
	Apply    int
	Learn    int
	Adapt    int
}

// Open opens (creating if absent) the feedback database at dbPath and
// ensures its schema exists. hardCutoff is the active mode's suppression
// hard-cutoff posterior (§4.4); it may be changed later via SetHardCutoff
// when the active strictness mode changes.
func Open(dbPath string, hardCutoff float64) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("feedback: open database: %w", err)
	}

	s := &Store{
		db:         db,
		halfLife:   defaultHalfLife,
		hardCutoff: hardCutoff,
		suppressed: make(map[string]bool),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("feedback: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS wikilink_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entity TEXT NOT NULL,
		context TEXT,
		note_path TEXT,
		correct INTEGER NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_wikilink_feedback_entity ON wikilink_feedback(entity);

	CREATE TABLE IF NOT EXISTS wikilink_applications (
		entity TEXT NOT NULL,
		note_path TEXT NOT NULL,
		applied_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_wikilink_applications_entity ON wikilink_applications(entity);

	CREATE TABLE IF NOT EXISTS wikilink_suppressions (
		entity TEXT PRIMARY KEY,
		false_positive_rate REAL NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetHardCutoff updates the suppression hard-cutoff posterior, called when
// the active strictness mode changes.
func (s *Store) SetHardCutoff(cutoff float64) {
	s.mu.Lock()
	s.hardCutoff = cutoff
	s.mu.Unlock()
}

// Record appends one feedback event at the current time. Best-effort: a
// transient store failure is logged, never returned as a fatal error to
// the caller's suggestion flow (§4.5's failure semantics), but IS returned
// here so a direct caller (e.g. the CLI's `feedback record` command) can
// surface it.
func (s *Store) Record(entity, context, notePath string, correct bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	correctInt := 0
	if correct {
		correctInt = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO wikilink_feedback (entity, context, note_path, correct, timestamp) VALUES (?, ?, ?, ?, ?)`,
		entity, context, notePath, correctInt, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryFeedback).Warn("record feedback for %s failed: %v", entity, err)
		return fmt.Errorf("feedback: record: %w", err)
	}
	return nil
}

// posterior computes the decayed Beta-Binomial posterior (alpha, beta) for
// an entity from its feedback event history.
func (s *Store) posterior(entity string) (alpha, beta float64, err error) {
	rows, err := s.db.Query(
		`SELECT correct, timestamp FROM wikilink_feedback WHERE entity = ?`, entity,
	)
	if err != nil {
		return priorAlpha, priorBeta, err
	}
	defer rows.Close()

	now := time.Now().UTC()
	alpha, beta = priorAlpha, priorBeta

	for rows.Next() {
		var correct int
		var ts string
		if err := rows.Scan(&correct, &ts); err != nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		days := now.Sub(t).Hours() / 24
		weight := math.Pow(2, -days/(s.halfLife.Hours()/24))
		if correct == 1 {
			alpha += weight
		} else {
			beta += weight
		}
	}
	return alpha, beta, rows.Err()
}

// effectiveSamples returns N_eff = α+β−2 rounded to three decimals, so the
// sub-second decay between recording an event and reading it back does not
// drop a freshly recorded batch below a tier or suppression threshold.
func effectiveSamples(alpha, beta float64) float64 {
	return math.Round((alpha+beta-priorAlpha-priorBeta)*1000) / 1000
}

// Boost returns the entity's current signed boost per the tier table of
// §4.5. On any store failure it degrades to 0 (never suppressed), per the
// engine's best-effort failure semantics.
func (s *Store) Boost(entity string) float64 {
	alpha, beta, err := s.posterior(entity)
	if err != nil {
		logging.Get(logging.CategoryFeedback).Warn("boost lookup for %s degraded: %v", entity, err)
		return 0
	}
	mean := alpha / (alpha + beta)
	nEff := effectiveSamples(alpha, beta)

	switch {
	case nEff < tierLearningMaxN:
		return 0
	case nEff >= championMinN && mean >= championMinMean:
		return boostChampion
	case mean >= tierStrongMean:
		return boostStrong
	case mean >= tierDevelopingMean:
		return boostDeveloping
	default:
		return boostWeak
	}
}

// IsSuppressed reports whether entity is on the suppression list, per the
// cached result of the last UpdateSuppressionList call. Degrades to false
// when the cache has never been populated or the store is unavailable.
func (s *Store) IsSuppressed(entity string) bool {
	s.suppressedMu.RLock()
	defer s.suppressedMu.RUnlock()
	return s.suppressed[entity]
}

// UpdateSuppressionList recomputes every entity's suppression row from its
// current posterior. Idempotent: safe to call repeatedly or retry after a
// partial failure.
func (s *Store) UpdateSuppressionList() error {
	rows, err := s.db.Query(`SELECT DISTINCT entity FROM wikilink_feedback`)
	if err != nil {
		logging.Get(logging.CategoryFeedback).Warn("update suppression list failed to list entities: %v", err)
		return fmt.Errorf("feedback: update suppression list: %w", err)
	}

	var entities []string
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err == nil {
			entities = append(entities, e)
		}
	}
	rows.Close()

	s.mu.RLock()
	cutoff := s.hardCutoff
	s.mu.RUnlock()

	next := make(map[string]bool, len(entities))
	for _, entity := range entities {
		alpha, beta, err := s.posterior(entity)
		if err != nil {
			continue
		}
		mean := alpha / (alpha + beta)
		nEff := effectiveSamples(alpha, beta)
		fpr := 1 - mean

		suppressed := nEff >= suppressionMinN && fpr >= cutoff
		next[entity] = suppressed

		if _, err := s.db.Exec(
			`INSERT INTO wikilink_suppressions (entity, false_positive_rate, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(entity) DO UPDATE SET false_positive_rate = excluded.false_positive_rate, updated_at = excluded.updated_at`,
			entity, fpr, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			logging.Get(logging.CategoryFeedback).Warn("persist suppression row for %s failed: %v", entity, err)
		}
	}

	s.suppressedMu.Lock()
	s.suppressed = next
	s.suppressedMu.Unlock()

	return nil
}

// Journey aggregates per-stage counts for entity across the application
// and feedback tables, for the CLI's `feedback journey` command.
func (s *Store) Journey(entity string) (Journey, error) {
	var j Journey

	row := s.db.QueryRow(`SELECT COUNT(*) FROM wikilink_applications WHERE entity = ?`, entity)
	if err := row.Scan(&j.Apply); err != nil {
		return j, fmt.Errorf("feedback: journey apply count: %w", err)
	}

	row = s.db.QueryRow(`SELECT COUNT(*) FROM wikilink_feedback WHERE entity = ? AND correct = 1`, entity)
	if err := row.Scan(&j.Learn); err != nil {
		return j, fmt.Errorf("feedback: journey learn count: %w", err)
	}

	row = s.db.QueryRow(`SELECT COUNT(*) FROM wikilink_feedback WHERE entity = ?`, entity)
	if err := row.Scan(&j.Adapt); err != nil {
		return j, fmt.Errorf("feedback: journey adapt count: %w", err)
	}

	return j, nil
}

// RecordApplication records that entity's suggestion was applied to a
// note, feeding the journey's apply-stage count.
func (s *Store) RecordApplication(entity, notePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO wikilink_applications (entity, note_path, applied_at) VALUES (?, ?, ?)`,
		entity, notePath, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryFeedback).Warn("record application for %s failed: %v", entity, err)
		return fmt.Errorf("feedback: record application: %w", err)
	}
	return nil
}
