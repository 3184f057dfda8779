// Package vault owns the in-memory EntityIndex: the searchable catalog of
// linkable entities built from vault scans, plus the fsnotify-driven watcher
// that marks it stale.
package vault

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"vaultlink/internal/errkind"
	"vaultlink/internal/logging"
)

// State is the EntityIndex lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateStale
	StateError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateStale:
		return "stale"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Stats summarizes an EntityIndex snapshot.
type Stats struct {
	Total       int
	PerCategory map[Category]int
}

// DefaultExcludedFolders are never scanned for entities.
var DefaultExcludedFolders = []string{"daily", "templates", "attachments", "inbox", "clippings"}

type entitySnapshot struct {
	entities []*Entity
	byName   map[string]*Entity              // normalized canonical name -> entity
	byAlias  map[string][]*Entity            // normalized alias -> entities (len(alias) >= 3 only)
	byStem   map[string]*Entity              // stemmed normalized name -> entity, single-word names only
	perCat   map[Category]int
}

// EntityIndex is the process-wide singleton described in §3: a
// {uninitialized -> ready -> stale -> ready} state machine whose live
// snapshot is swapped atomically so readers never observe a half-built
// index.
type EntityIndex struct {
	snapshot atomic.Pointer[entitySnapshot]
	state    atomic.Int32

	vaultRoot       string
	excludedFolders []string
	buildMu         sync.Mutex
}

// NewEntityIndex constructs an uninitialized index rooted at vaultRoot.
func NewEntityIndex(vaultRoot string, excludedFolders []string) *EntityIndex {
	if excludedFolders == nil {
		excludedFolders = DefaultExcludedFolders
	}
	idx := &EntityIndex{vaultRoot: vaultRoot, excludedFolders: excludedFolders}
	idx.state.Store(int32(StateUninitialized))
	return idx
}

// IsReady reports whether the index has a usable snapshot.
func (idx *EntityIndex) IsReady() bool {
	return State(idx.state.Load()) == StateReady
}

// MarkStale transitions a ready index to stale without discarding the
// current snapshot; in-flight lookups keep working against it until the
// next successful Initialize call swaps it out.
func (idx *EntityIndex) MarkStale() {
	idx.state.CompareAndSwap(int32(StateReady), int32(StateStale))
}

// State returns the current lifecycle stage.
func (idx *EntityIndex) State() State {
	return State(idx.state.Load())
}

// Stats reports the current snapshot's entity counts.
func (idx *EntityIndex) Stats() Stats {
	snap := idx.snapshot.Load()
	if snap == nil {
		return Stats{PerCategory: map[Category]int{}}
	}
	cp := make(map[Category]int, len(snap.perCat))
	for k, v := range snap.perCat {
		cp[k] = v
	}
	return Stats{Total: len(snap.entities), PerCategory: cp}
}

// Entities returns every entity in the current snapshot. Callers must treat
// the slice as read-only.
func (idx *EntityIndex) Entities() []*Entity {
	snap := idx.snapshot.Load()
	if snap == nil {
		return nil
	}
	return snap.entities
}

// CategoryOf returns the category of the entity whose canonical name
// normalizes to name.
func (idx *EntityIndex) CategoryOf(name string) (Category, bool) {
	snap := idx.snapshot.Load()
	if snap == nil {
		return "", false
	}
	e, ok := snap.byName[Normalize(name)]
	if !ok {
		return "", false
	}
	return e.Category, true
}

// HubScoreOf returns the hub score of the entity whose canonical name
// normalizes to name.
func (idx *EntityIndex) HubScoreOf(name string) (int, bool) {
	snap := idx.snapshot.Load()
	if snap == nil {
		return 0, false
	}
	e, ok := snap.byName[Normalize(name)]
	if !ok {
		return 0, false
	}
	return e.HubScore, true
}

// Lookup resolves a single normalized token to matching candidates: an
// exact canonical-name match, or an alias match (aliases shorter than 3
// characters are ignored per §4.2). Stem matching is driven by the matcher
// via StemIndex, since it requires scanning surrounding words.
func (idx *EntityIndex) Lookup(token string) []Candidate {
	snap := idx.snapshot.Load()
	if snap == nil {
		return nil
	}
	normalized := Normalize(token)
	var out []Candidate
	if e, ok := snap.byName[normalized]; ok {
		out = append(out, Candidate{Entity: e, Kind: MatchExact})
	}
	if es, ok := snap.byAlias[normalized]; ok {
		for _, e := range es {
			out = append(out, Candidate{Entity: e, Kind: MatchAlias})
		}
	}
	return out
}

// StemIndex returns the stemmed-name -> entity map for single-word
// canonical names, used by the matcher's stem match kind.
func (idx *EntityIndex) StemIndex() map[string]*Entity {
	snap := idx.snapshot.Load()
	if snap == nil {
		return nil
	}
	return snap.byStem
}

var wikilinkPattern = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)

// Initialize scans every Markdown file under vaultRoot, except the excluded
// folders, building a fresh snapshot off to the side and swapping it in
// atomically. On any scan failure the index transitions to error; lookups
// against the previous snapshot (if any) keep working until the next
// successful call.
func (idx *EntityIndex) Initialize(vaultRoot string) error {
	idx.buildMu.Lock()
	defer idx.buildMu.Unlock()

	timer := logging.StartTimer(logging.CategoryIndex, "Initialize")
	defer timer.Stop()

	idx.vaultRoot = vaultRoot

	type rawNote struct {
		name   string
		folder string
		path   string
		fm     frontmatter
		body   string
	}

	var notes []rawNote

	err := filepath.Walk(vaultRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(vaultRoot, path)
		if relErr != nil {
			rel = path
		}
		if info.IsDir() {
			if idx.isExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.ToLower(filepath.Ext(path)) != ".md" {
			return nil
		}
		if idx.isExcluded(rel) {
			return nil
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		fm, body, fmErr := parseFrontmatter(string(data))
		if fmErr != nil {
			logging.Get(logging.CategoryIndex).Warn("%s: %s", path, fmErr.Error())
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		folder := filepath.Dir(rel)
		if folder == "." {
			folder = ""
		}
		notes = append(notes, rawNote{name: name, folder: folder, path: rel, fm: fm, body: body})
		return nil
	})
	if err != nil {
		idx.state.Store(int32(StateError))
		logging.Get(logging.CategoryIndex).Error("scan failed: %v", err)
		return errkind.Wrap(errkind.InvalidFixture, "vault scan failed", err)
	}

	snap := &entitySnapshot{
		byName: make(map[string]*Entity, len(notes)),
		byAlias: make(map[string][]*Entity),
		byStem:  make(map[string]*Entity),
		perCat:  make(map[Category]int),
	}

	inLinks := make(map[string]int)
	for _, n := range notes {
		for _, m := range wikilinkPattern.FindAllStringSubmatch(n.body, -1) {
			inLinks[Normalize(m[1])]++
		}
	}

	for _, n := range notes {
		category := classify(n.fm.Type, n.folder)
		normalized := Normalize(n.name)
		hub := inLinks[normalized] + n.fm.HubBoost
		e := &Entity{
			Name:     n.name,
			Category: category,
			Path:     n.path,
			Aliases:  n.fm.Aliases,
			HubScore: hub,
			Folder:   n.folder,
		}
		snap.entities = append(snap.entities, e)
		snap.byName[normalized] = e
		snap.perCat[category]++

		if !strings.Contains(normalized, " ") {
			snap.byStem[Stem(normalized)] = e
		}
		for _, alias := range n.fm.Aliases {
			na := Normalize(alias)
			if len(na) < 3 {
				continue
			}
			snap.byAlias[na] = append(snap.byAlias[na], e)
		}
	}

	idx.snapshot.Store(snap)
	idx.state.Store(int32(StateReady))
	logging.Get(logging.CategoryIndex).Info("index built: %d entities from %s", len(snap.entities), vaultRoot)
	return nil
}

func (idx *EntityIndex) isExcluded(relPath string) bool {
	if relPath == "." || relPath == "" {
		return false
	}
	segments := strings.Split(filepath.ToSlash(relPath), "/")
	for _, seg := range segments {
		for _, ex := range idx.excludedFolders {
			if strings.EqualFold(seg, ex) {
				return true
			}
		}
	}
	return false
}

// Stem reduces a single word by stripping the longest recognized suffix:
// "ing", "ed", "ly", "es", "s". Minimum resulting stem length is enforced by
// callers, not here.
func Stem(word string) string {
	for _, suf := range []string{"ing", "ed", "ly", "es", "s"} {
		if strings.HasSuffix(word, suf) && len(word)-len(suf) >= 1 {
			return word[:len(word)-len(suf)]
		}
	}
	return word
}
