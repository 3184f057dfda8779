// Package match converts note text into an ordered candidate-entity match
// list, respecting the protected zones that the engine must never read as
// prose: YAML frontmatter, fenced code, inline code, and existing wikilinks.
package match

import (
	"regexp"
	"strings"
)

var (
	fencedCodePattern = regexp.MustCompile(`(?s)` + "```" + `.*?` + "```")
	inlineCodePattern = regexp.MustCompile("`[^`\n]+`")
	wikilinkPattern   = regexp.MustCompile(`\[\[[^\]]+\]\]`)
)

// mask replaces every protected span with ASCII spaces of identical byte
// length, so candidate offsets computed over the result line up exactly
// with the original text and no reprojection arithmetic is needed. The
// original text is never touched — callers must pass the masked copy to
// matching and the original to reconstruct surrounding output.
func mask(text string) string {
	out := []byte(text)

	blank := func(start, end int) {
		for i := start; i < end; i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}

	if start, end, ok := frontmatterSpan(text); ok {
		blank(start, end)
	}
	for _, loc := range fencedCodePattern.FindAllStringIndex(string(out), -1) {
		blank(loc[0], loc[1])
	}
	for _, loc := range inlineCodePattern.FindAllStringIndex(string(out), -1) {
		blank(loc[0], loc[1])
	}
	for _, loc := range wikilinkPattern.FindAllStringIndex(string(out), -1) {
		blank(loc[0], loc[1])
	}

	return string(out)
}

// frontmatterSpan locates a leading "---\n ... \n---" fence.
func frontmatterSpan(text string) (start, end int, ok bool) {
	if len(text) < 4 || text[:4] != "---\n" {
		return 0, 0, false
	}
	rest := text[4:]
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return 0, 0, false
	}
	return 0, 4 + idx + len("\n---"), true
}

// WikilinkOffsets returns the byte offset of every existing wikilink's
// opening "[[" in text, in first-occurrence order, for context_boost's
// proximity window.
func WikilinkOffsets(text string) []int {
	locs := wikilinkPattern.FindAllStringIndex(text, -1)
	out := make([]int, len(locs))
	for i, loc := range locs {
		out[i] = loc[0]
	}
	return out
}

// ExtractWikilinks returns the raw (un-normalized) targets of every existing wikilink
// in text ("[[Target]]" or "[[Target|Display]]"), in first-occurrence order.
func ExtractWikilinks(text string) []string {
	var out []string
	for _, loc := range wikilinkPattern.FindAllStringIndex(text, -1) {
		inner := text[loc[0]+2 : loc[1]-2]
		target := inner
		if pipe := strings.IndexByte(inner, '|'); pipe >= 0 {
			target = inner[:pipe]
		}
		out = append(out, target)
	}
	return out
}
