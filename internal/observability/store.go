// Package observability persists every scored candidate and applied
// wikilink, and answers the timeline/comparison/dashboard queries of §4.6.
// It creates the entities, note_links, wikilink_applications,
// suggestion_events, graph_snapshots and entity_recency tables; the feedback
// and suppression tables belong to FeedbackStore. Its queries read only its
// own tables.
package observability

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"vaultlink/internal/logging"
	"vaultlink/internal/scoring"
	"vaultlink/internal/vault"

	_ "modernc.org/sqlite"
)

// Store persists suggestion events, applications, and graph snapshots, and
// answers observability queries over them.
type Store struct {
	db            *sql.DB
	retentionDays int
}

// Open opens (creating if absent) the observability database at dbPath.
// retentionDays configures Purge's default window; 0 uses the spec
// default of 90 days.
func Open(dbPath string, retentionDays int) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("observability: open database: %w", err)
	}
	if retentionDays <= 0 {
		retentionDays = 90
	}
	s := &Store{db: db, retentionDays: retentionDays}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("observability: init schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		name TEXT PRIMARY KEY,
		category TEXT,
		path TEXT,
		aliases_json TEXT,
		hub_score INTEGER
	);
	CREATE TABLE IF NOT EXISTS note_links (
		note_path TEXT,
		target TEXT
	);
	CREATE TABLE IF NOT EXISTS wikilink_applications (
		entity TEXT,
		note_path TEXT,
		applied_at TEXT
	);
	CREATE TABLE IF NOT EXISTS suggestion_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		note_path TEXT,
		entity TEXT,
		total_score REAL,
		breakdown_json TEXT,
		threshold REAL,
		passed INTEGER,
		strictness TEXT,
		timestamp TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_suggestion_events_entity ON suggestion_events(entity);
	CREATE INDEX IF NOT EXISTS idx_suggestion_events_timestamp ON suggestion_events(timestamp);

	CREATE TABLE IF NOT EXISTS graph_snapshots (
		timestamp TEXT,
		metric TEXT,
		value REAL,
		details_json TEXT
	);
	CREATE TABLE IF NOT EXISTS entity_recency (
		entity TEXT PRIMARY KEY,
		last_touched_at TEXT
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SuggestionEventRow is one persisted scored-candidate record.
type SuggestionEventRow struct {
	ID         int64
	NotePath   string
	Entity     string
	TotalScore float64
	Breakdown  scoring.Breakdown
	Threshold  float64
	Passed     bool
	Strictness string
	Timestamp  time.Time
}

// RecordSuggestionEvent persists one scored candidate, passing or failing.
// Best-effort: a store failure is logged and returned, never panics; the
// engine's call site treats a non-nil error as a degrade-and-warn per §7's
// StoreUnavailable policy.
func (s *Store) RecordSuggestionEvent(row SuggestionEventRow) error {
	breakdownJSON, err := json.Marshal(row.Breakdown)
	if err != nil {
		return fmt.Errorf("observability: marshal breakdown: %w", err)
	}
	passedInt := 0
	if row.Passed {
		passedInt = 1
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now().UTC()
	}
	_, err = s.db.Exec(
		`INSERT INTO suggestion_events (note_path, entity, total_score, breakdown_json, threshold, passed, strictness, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.NotePath, row.Entity, row.TotalScore, string(breakdownJSON), row.Threshold, passedInt, row.Strictness,
		row.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryObservability).Warn("record suggestion event for %s failed: %v", row.Entity, err)
		return fmt.Errorf("observability: record suggestion event: %w", err)
	}

	if _, err := s.db.Exec(
		`INSERT INTO entity_recency (entity, last_touched_at) VALUES (?, ?)
		 ON CONFLICT(entity) DO UPDATE SET last_touched_at = excluded.last_touched_at`,
		row.Entity, row.Timestamp.Format(time.RFC3339),
	); err != nil {
		logging.Get(logging.CategoryObservability).Warn("update entity recency for %s failed: %v", row.Entity, err)
	}
	return nil
}

// RecordApplication records that entity's suggestion was applied to a note.
func (s *Store) RecordApplication(entity, notePath string) error {
	_, err := s.db.Exec(
		`INSERT INTO wikilink_applications (entity, note_path, applied_at) VALUES (?, ?, ?)`,
		entity, notePath, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		logging.Get(logging.CategoryObservability).Warn("record application for %s failed: %v", entity, err)
		return fmt.Errorf("observability: record application: %w", err)
	}
	return nil
}

// RecencyMap returns every tracked entity's last-touched unix-second
// timestamp, normalized the same way the scoring pipeline normalizes
// candidate names, for VaultStats.LastTouched.
func (s *Store) RecencyMap() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT entity, last_touched_at FROM entity_recency`)
	if err != nil {
		return nil, fmt.Errorf("observability: recency map: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var entity, ts string
		if err := rows.Scan(&entity, &ts); err != nil {
			continue
		}
		touched, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		out[vault.Normalize(entity)] = touched.Unix()
	}
	return out, rows.Err()
}

// RecordNoteLinks replaces notePath's recorded outgoing links with targets,
// the corpus-wide data source CooccurrenceGraph aggregates over. Called once
// per Suggest so note_links always reflects each note's links as of its
// most recent suggestion request.
func (s *Store) RecordNoteLinks(notePath string, targets []string) error {
	if notePath == "" {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("observability: record note links: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM note_links WHERE note_path = ?`, notePath); err != nil {
		tx.Rollback()
		return fmt.Errorf("observability: record note links: %w", err)
	}
	for _, target := range targets {
		if _, err := tx.Exec(`INSERT INTO note_links (note_path, target) VALUES (?, ?)`, notePath, target); err != nil {
			tx.Rollback()
			return fmt.Errorf("observability: record note links: %w", err)
		}
	}
	return tx.Commit()
}

// CooccurrenceGraph aggregates note_links into a normalized PMI cooccurrence
// table keyed by (candidate, linked-entity) and a Jaccard note-note edge
// weight table keyed by EdgeWeightKey, for VaultStats.Cooccurrence and
// VaultStats.EdgeWeight. Both degrade to empty maps, never an error, when
// fewer than two notes have recorded links yet.
func (s *Store) CooccurrenceGraph() (map[string]map[string]float64, map[string]float64, error) {
	rows, err := s.db.Query(`SELECT note_path, target FROM note_links`)
	if err != nil {
		return nil, nil, fmt.Errorf("observability: cooccurrence graph: %w", err)
	}
	defer rows.Close()

	noteTargets := make(map[string]map[string]bool)
	for rows.Next() {
		var notePath, target string
		if err := rows.Scan(&notePath, &target); err != nil {
			continue
		}
		set, ok := noteTargets[notePath]
		if !ok {
			set = make(map[string]bool)
			noteTargets[notePath] = set
		}
		set[vault.Normalize(target)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	cooccurrence := make(map[string]map[string]float64)
	edgeWeight := make(map[string]float64)
	if len(noteTargets) < 2 {
		return cooccurrence, edgeWeight, nil
	}

	docFreq := make(map[string]int)
	for _, set := range noteTargets {
		for target := range set {
			docFreq[target]++
		}
	}
	n := float64(len(noteTargets))

	notePaths := make([]string, 0, len(noteTargets))
	for p := range noteTargets {
		notePaths = append(notePaths, p)
	}
	sort.Strings(notePaths)

	pairDocCount := make(map[[2]string]int)
	for _, set := range noteTargets {
		targets := make([]string, 0, len(set))
		for t := range set {
			targets = append(targets, t)
		}
		sort.Strings(targets)
		for i := 0; i < len(targets); i++ {
			for j := i + 1; j < len(targets); j++ {
				pairDocCount[[2]string{targets[i], targets[j]}]++
			}
		}
	}
	for pair, countAB := range pairDocCount {
		a, b := pair[0], pair[1]
		npmi := normalizedPMI(n, float64(docFreq[a]), float64(docFreq[b]), float64(countAB))
		if cooccurrence[a] == nil {
			cooccurrence[a] = make(map[string]float64)
		}
		if cooccurrence[b] == nil {
			cooccurrence[b] = make(map[string]float64)
		}
		cooccurrence[a][b] = npmi
		cooccurrence[b][a] = npmi
	}

	for i := 0; i < len(notePaths); i++ {
		for j := i + 1; j < len(notePaths); j++ {
			a, b := notePaths[i], notePaths[j]
			edgeWeight[scoring.EdgeWeightKey(a, b)] = jaccard(noteTargets[a], noteTargets[b])
		}
	}

	return cooccurrence, edgeWeight, nil
}

// normalizedPMI computes NPMI(a,b) over n documents, clamped to [0,1]:
// negative association (NPMI < 0) contributes nothing to cooccurrence.
func normalizedPMI(n, docFreqA, docFreqB, docFreqAB float64) float64 {
	if docFreqAB <= 0 || docFreqA <= 0 || docFreqB <= 0 {
		return 0
	}
	pA := docFreqA / n
	pB := docFreqB / n
	pAB := docFreqAB / n
	if pAB >= 1 {
		return 1 // every document contains both: maximal association
	}
	pmi := math.Log(pAB / (pA * pB))
	npmi := pmi / -math.Log(pAB)
	if npmi < 0 {
		return 0
	}
	if npmi > 1 {
		return 1
	}
	return npmi
}

// jaccard returns |a∩b| / |a∪b| for two note's linked-target sets, the
// note-note affinity proxy behind EdgeWeight.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	shared := 0
	for t := range a {
		if b[t] {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// EntityScoreTimeline returns entity's suggestion events over the trailing
// `days` window, chronologically ordered, capped at limit.
func (s *Store) EntityScoreTimeline(entity string, days, limit int) ([]SuggestionEventRow, error) {
	if limit <= 0 {
		limit = 100
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := s.db.Query(
		`SELECT id, note_path, entity, total_score, breakdown_json, threshold, passed, strictness, timestamp
		 FROM suggestion_events WHERE entity = ? AND timestamp >= ? ORDER BY timestamp ASC LIMIT ?`,
		entity, cutoff, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("observability: entity score timeline: %w", err)
	}
	defer rows.Close()

	var out []SuggestionEventRow
	for rows.Next() {
		var r SuggestionEventRow
		var breakdownJSON, ts string
		var passedInt int
		if err := rows.Scan(&r.ID, &r.NotePath, &r.Entity, &r.TotalScore, &breakdownJSON, &r.Threshold, &passedInt, &r.Strictness, &ts); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(breakdownJSON), &r.Breakdown)
		r.Passed = passedInt == 1
		r.Timestamp, _ = time.Parse(time.RFC3339, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LayerAverages is one bucket's per-layer average breakdown.
type LayerAverages struct {
	Bucket    string
	Count     int
	Breakdown scoring.Breakdown
}

// Granularity selects day or week bucketing for LayerContributionTimeseries.
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

// LayerContributionTimeseries buckets every suggestion event's breakdown
// fields by day or ISO week, reporting the per-bucket average (never sum)
// of each field, over the trailing `days` window.
func (s *Store) LayerContributionTimeseries(granularity Granularity, days int) ([]LayerAverages, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := s.db.Query(
		`SELECT breakdown_json, timestamp FROM suggestion_events WHERE timestamp >= ? ORDER BY timestamp ASC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("observability: layer contribution timeseries: %w", err)
	}
	defer rows.Close()

	type accum struct {
		sum   scoring.Breakdown
		count int
	}
	buckets := make(map[string]*accum)
	var order []string

	for rows.Next() {
		var breakdownJSON, ts string
		if err := rows.Scan(&breakdownJSON, &ts); err != nil {
			continue
		}
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			continue
		}
		var b scoring.Breakdown
		if err := json.Unmarshal([]byte(breakdownJSON), &b); err != nil {
			continue
		}

		key := bucketKey(granularity, t)
		a, ok := buckets[key]
		if !ok {
			a = &accum{}
			buckets[key] = a
			order = append(order, key)
		}
		addBreakdown(&a.sum, b)
		a.count++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(order)
	out := make([]LayerAverages, 0, len(order))
	for _, key := range order {
		a := buckets[key]
		out = append(out, LayerAverages{Bucket: key, Count: a.count, Breakdown: averageBreakdown(a.sum, a.count)})
	}
	return out, nil
}

func bucketKey(g Granularity, t time.Time) string {
	if g == GranularityWeek {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return t.Format("2006-01-02")
}

func addBreakdown(sum *scoring.Breakdown, b scoring.Breakdown) {
	sum.ContentMatch += b.ContentMatch
	sum.CooccurrenceBoost += b.CooccurrenceBoost
	sum.TypeBoost += b.TypeBoost
	sum.ContextBoost += b.ContextBoost
	sum.RecencyBoost += b.RecencyBoost
	sum.CrossFolderBoost += b.CrossFolderBoost
	sum.HubBoost += b.HubBoost
	sum.FeedbackAdjustment += b.FeedbackAdjustment
	sum.SuppressionPenalty += b.SuppressionPenalty
	sum.SemanticBoost += b.SemanticBoost
	sum.EdgeWeightBoost += b.EdgeWeightBoost
}

func averageBreakdown(sum scoring.Breakdown, count int) scoring.Breakdown {
	if count == 0 {
		return scoring.Breakdown{}
	}
	n := float64(count)
	return scoring.Breakdown{
		ContentMatch:       sum.ContentMatch / n,
		CooccurrenceBoost:  sum.CooccurrenceBoost / n,
		TypeBoost:          sum.TypeBoost / n,
		ContextBoost:       sum.ContextBoost / n,
		RecencyBoost:       sum.RecencyBoost / n,
		CrossFolderBoost:   sum.CrossFolderBoost / n,
		HubBoost:           sum.HubBoost / n,
		FeedbackAdjustment: sum.FeedbackAdjustment / n,
		SuppressionPenalty: sum.SuppressionPenalty / n,
		SemanticBoost:      sum.SemanticBoost / n,
		EdgeWeightBoost:    sum.EdgeWeightBoost / n,
	}
}

// SnapshotComparison is the result of comparing two graph snapshots.
type SnapshotComparison struct {
	MetricChanges   map[string]float64 // metric -> (t2 value - t1 value)
	HubScoreChanges map[string]int     // entity -> hub score delta
}

// RecordGraphSnapshot persists one metric observation at the given time.
func (s *Store) RecordGraphSnapshot(timestamp time.Time, metric string, value float64, detailsJSON string) error {
	_, err := s.db.Exec(
		`INSERT INTO graph_snapshots (timestamp, metric, value, details_json) VALUES (?, ?, ?, ?)`,
		timestamp.UTC().Format(time.RFC3339), metric, value, detailsJSON,
	)
	if err != nil {
		return fmt.Errorf("observability: record graph snapshot: %w", err)
	}
	return nil
}

// CompareGraphSnapshots returns the metric and hub-score deltas between the
// snapshot nearest t1 and the snapshot nearest t2.
func (s *Store) CompareGraphSnapshots(t1, t2 time.Time) (SnapshotComparison, error) {
	cmp := SnapshotComparison{MetricChanges: map[string]float64{}, HubScoreChanges: map[string]int{}}

	m1, err := s.metricsNear(t1)
	if err != nil {
		return cmp, err
	}
	m2, err := s.metricsNear(t2)
	if err != nil {
		return cmp, err
	}
	for metric, v2 := range m2 {
		if v1, ok := m1[metric]; ok {
			cmp.MetricChanges[metric] = v2 - v1
		}
	}

	h1, err := s.hubScoresNear(t1)
	if err != nil {
		return cmp, err
	}
	h2, err := s.hubScoresNear(t2)
	if err != nil {
		return cmp, err
	}
	for entity, v2 := range h2 {
		if v1, ok := h1[entity]; ok {
			cmp.HubScoreChanges[entity] = v2 - v1
		}
	}
	return cmp, nil
}

func (s *Store) metricsNear(t time.Time) (map[string]float64, error) {
	rows, err := s.db.Query(
		`SELECT metric, value FROM graph_snapshots
		 WHERE timestamp = (SELECT timestamp FROM graph_snapshots ORDER BY ABS(strftime('%s', timestamp) - strftime('%s', ?)) ASC LIMIT 1)`,
		t.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: metrics near: %w", err)
	}
	defer rows.Close()

	out := map[string]float64{}
	for rows.Next() {
		var metric string
		var value float64
		if err := rows.Scan(&metric, &value); err == nil {
			out[metric] = value
		}
	}
	return out, rows.Err()
}

func (s *Store) hubScoresNear(t time.Time) (map[string]int, error) {
	rows, err := s.db.Query(
		`SELECT details_json FROM graph_snapshots
		 WHERE metric = 'hub_scores_top10'
		 ORDER BY ABS(strftime('%s', timestamp) - strftime('%s', ?)) ASC LIMIT 1`,
		t.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: hub scores near: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	if rows.Next() {
		var detailsJSON string
		if err := rows.Scan(&detailsJSON); err == nil {
			_ = json.Unmarshal([]byte(detailsJSON), &out)
		}
	}
	return out, rows.Err()
}

// LayerStatus classifies a layer's recent activity for the dashboard.
type LayerStatus string

const (
	LayerContributing LayerStatus = "contributing"
	LayerDormant      LayerStatus = "dormant"
	LayerZeroData     LayerStatus = "zero-data"
)

// DashboardData holds the top entities and per-layer status returned by
// ExtendedDashboardData. Feedback and suppression data are not included.
type DashboardData struct {
	TopEntities   []EntityFrequency
	LayerStatuses map[string]LayerStatus
}

// EntityFrequency pairs an entity name with its suggestion event count.
type EntityFrequency struct {
	Entity string
	Count  int
}

// ExtendedDashboardData aggregates the last `days` of suggestion events
// into top entities by frequency and a per-layer activity classification.
func (s *Store) ExtendedDashboardData(days int) (DashboardData, error) {
	var data DashboardData
	data.LayerStatuses = make(map[string]LayerStatus)

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(time.RFC3339)
	rows, err := s.db.Query(
		`SELECT entity, COUNT(*) c FROM suggestion_events WHERE timestamp >= ? GROUP BY entity ORDER BY c DESC LIMIT 10`,
		cutoff,
	)
	if err != nil {
		return data, fmt.Errorf("observability: dashboard top entities: %w", err)
	}
	for rows.Next() {
		var ef EntityFrequency
		if err := rows.Scan(&ef.Entity, &ef.Count); err == nil {
			data.TopEntities = append(data.TopEntities, ef)
		}
	}
	rows.Close()

	avgs, err := s.LayerContributionTimeseries(GranularityDay, days)
	if err != nil {
		return data, err
	}
	totals := map[string]float64{
		"content_match": 0, "cooccurrence": 0, "type_boost": 0, "context_boost": 0, "recency": 0,
		"cross_folder": 0, "hub_boost": 0, "feedback": 0, "semantic": 0, "edge_weight": 0,
	}
	eventCount := 0
	for _, bucket := range avgs {
		eventCount += bucket.Count
		totals["content_match"] += bucket.Breakdown.ContentMatch * float64(bucket.Count)
		totals["cooccurrence"] += bucket.Breakdown.CooccurrenceBoost * float64(bucket.Count)
		totals["type_boost"] += bucket.Breakdown.TypeBoost * float64(bucket.Count)
		totals["context_boost"] += bucket.Breakdown.ContextBoost * float64(bucket.Count)
		totals["recency"] += bucket.Breakdown.RecencyBoost * float64(bucket.Count)
		totals["cross_folder"] += bucket.Breakdown.CrossFolderBoost * float64(bucket.Count)
		totals["hub_boost"] += bucket.Breakdown.HubBoost * float64(bucket.Count)
		totals["feedback"] += bucket.Breakdown.FeedbackAdjustment * float64(bucket.Count)
		totals["semantic"] += bucket.Breakdown.SemanticBoost * float64(bucket.Count)
		totals["edge_weight"] += bucket.Breakdown.EdgeWeightBoost * float64(bucket.Count)
	}
	for layer, total := range totals {
		switch {
		case eventCount == 0:
			data.LayerStatuses[layer] = LayerZeroData
		case total == 0:
			data.LayerStatuses[layer] = LayerDormant
		default:
			data.LayerStatuses[layer] = LayerContributing
		}
	}
	return data, nil
}

// Purge deletes suggestion events and graph snapshots older than the
// configured retention window. Idempotent: safe to call repeatedly.
func (s *Store) Purge() error {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays).Format(time.RFC3339)
	if _, err := s.db.Exec(`DELETE FROM suggestion_events WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("observability: purge suggestion events: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM graph_snapshots WHERE timestamp < ?`, cutoff); err != nil {
		return fmt.Errorf("observability: purge graph snapshots: %w", err)
	}
	return nil
}
