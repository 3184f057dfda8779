package match

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"vaultlink/internal/vault"
)

// minStemLength is the minimum stemmed-word length eligible for a stem
// match (§4.2).
const minStemLength = 3

// minAliasLength is the minimum alias length eligible for an alias match;
// shorter aliases are ignored entirely (§4.2).
const minAliasLength = 3

var wordPattern = regexp.MustCompile(`[A-Za-z][A-Za-z']*`)

type rawMatch struct {
	entity *vault.Entity
	kind   vault.MatchKind
	start  int
	end    int
}

// Matches converts note text into an ordered candidate list, one entry per
// entity at its first occurrence, preserving first-occurrence order.
// Protected zones (frontmatter, fenced code, inline code, existing
// wikilinks) are excised before matching and can never produce a match.
func Matches(text string, idx *vault.EntityIndex) []vault.Candidate {
	masked := mask(text)
	lower := strings.ToLower(masked)

	var raw []rawMatch
	entities := idx.Entities()

	for _, e := range entities {
		for _, loc := range boundedFindAll(lower, e.Name) {
			raw = append(raw, rawMatch{entity: e, kind: vault.MatchExact, start: loc[0], end: loc[1]})
		}
		for _, alias := range e.Aliases {
			if len(vault.Normalize(alias)) < minAliasLength {
				continue
			}
			locs := boundedFindAll(lower, alias)
			if isShortCodeAlias(alias) {
				locs = filterCaseSensitive(masked, alias, locs)
			}
			for _, loc := range locs {
				raw = append(raw, rawMatch{entity: e, kind: vault.MatchAlias, start: loc[0], end: loc[1]})
			}
		}
	}

	stemIndex := idx.StemIndex()
	if len(stemIndex) > 0 {
		for _, loc := range wordPattern.FindAllStringIndex(masked, -1) {
			word := masked[loc[0]:loc[1]]
			normalized := vault.Normalize(word)
			stemmed := vault.Stem(normalized)
			if len(stemmed) < minStemLength {
				continue
			}
			e, ok := stemIndex[stemmed]
			if !ok || strings.EqualFold(vault.Normalize(e.Name), normalized) {
				continue
			}
			raw = append(raw, rawMatch{entity: e, kind: vault.MatchStem, start: loc[0], end: loc[1]})
		}
	}

	accepted := resolveOverlaps(raw)
	return firstOccurrencePerEntity(accepted)
}

// boundedFindAll finds every case-insensitive, word-boundary-delimited
// occurrence of name in lower (already lowercased). name is matched
// literally with hyphens treated as interchangeable with spaces, mirroring
// the index's own normalization.
func boundedFindAll(lower string, name string) [][2]int {
	pattern := boundaryPattern(name)
	var out [][2]int
	for _, loc := range pattern.FindAllStringSubmatchIndex(lower, -1) {
		// loc[4:6] is the span of capture group 2 (the name itself),
		// excluding the boundary characters captured in groups 1 and 3.
		out = append(out, [2]int{loc[4], loc[5]})
	}
	return out
}

var boundaryCache sync.Map // string -> *regexp.Regexp

func boundaryPattern(name string) *regexp.Regexp {
	if p, ok := boundaryCache.Load(name); ok {
		return p.(*regexp.Regexp)
	}
	escaped := regexp.QuoteMeta(strings.ToLower(name))
	escaped = strings.ReplaceAll(escaped, "-", "[- ]")
	escaped = strings.ReplaceAll(escaped, " ", "[- ]")
	p := regexp.MustCompile(`(^|[^A-Za-z0-9])(` + escaped + `)([^A-Za-z0-9]|$)`)
	actual, _ := boundaryCache.LoadOrStore(name, p)
	return actual.(*regexp.Regexp)
}

// isShortCodeAlias reports whether alias is the 2-3 character uppercase
// short-code class (e.g. "TS", "ML") §4.2 warns produces false positives.
func isShortCodeAlias(alias string) bool {
	if len(alias) < 2 || len(alias) > 3 {
		return false
	}
	for _, r := range alias {
		if !unicode.IsUpper(r) {
			return false
		}
	}
	return true
}

// filterCaseSensitive keeps only locations where the original (unlowered)
// text is itself uppercase at that span, approximating "surrounding text is
// majority-uppercase or punctuation-bounded" without a full context scan.
func filterCaseSensitive(masked, alias string, locs [][2]int) [][2]int {
	var out [][2]int
	for _, loc := range locs {
		// boundaryPattern captures group 2 as the alias body; locate it
		// within the match span by re-deriving the inner bounds.
		match := masked[loc[0]:loc[1]]
		trimmed := strings.TrimFunc(match, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
		if trimmed == strings.ToUpper(trimmed) {
			out = append(out, loc)
		}
	}
	return out
}

// resolveOverlaps sorts matches by start ascending then span length
// descending, accepting the first (longest) match at any contested span
// and discarding shorter matches that overlap it.
func resolveOverlaps(raw []rawMatch) []rawMatch {
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].start != raw[j].start {
			return raw[i].start < raw[j].start
		}
		return (raw[i].end - raw[i].start) > (raw[j].end - raw[j].start)
	})

	var accepted []rawMatch
	lastEnd := -1
	for _, m := range raw {
		if m.start < lastEnd {
			continue
		}
		accepted = append(accepted, m)
		lastEnd = m.end
	}
	return accepted
}

// firstOccurrencePerEntity collapses accepted matches to one Candidate per
// entity, keeping the earliest span and preferring exact over alias over
// stem when two kinds tie on offset.
func firstOccurrencePerEntity(accepted []rawMatch) []vault.Candidate {
	kindRank := map[vault.MatchKind]int{vault.MatchExact: 0, vault.MatchAlias: 1, vault.MatchStem: 2}

	best := make(map[string]rawMatch)
	for _, m := range accepted {
		key := vault.Normalize(m.entity.Name)
		existing, ok := best[key]
		if !ok || m.start < existing.start ||
			(m.start == existing.start && kindRank[m.kind] < kindRank[existing.kind]) {
			best[key] = m
		}
	}

	out := make([]vault.Candidate, 0, len(best))
	for _, m := range best {
		out = append(out, vault.Candidate{Entity: m.entity, Kind: m.kind, Offset: m.start})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}
