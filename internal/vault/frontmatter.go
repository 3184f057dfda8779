package vault

import (
	"strings"

	"gopkg.in/yaml.v3"

	"vaultlink/internal/errkind"
)

// frontmatter is the subset of YAML frontmatter fields the index reads.
type frontmatter struct {
	Type     string   `yaml:"type"`
	Aliases  []string `yaml:"aliases"`
	HubBoost int      `yaml:"hub_boost"`
}

// splitFrontmatter separates a leading "---\n ... \n---" fence from the rest
// of the note body. Returns ok=false when no fence is present.
func splitFrontmatter(text string) (fm string, body string, ok bool) {
	if !strings.HasPrefix(text, "---\n") && text != "---" {
		return "", text, false
	}
	rest := strings.TrimPrefix(text, "---\n")
	idx := strings.Index(rest, "\n---")
	if idx < 0 {
		return "", text, false
	}
	fm = rest[:idx]
	after := rest[idx+len("\n---"):]
	after = strings.TrimPrefix(after, "\n")
	return fm, after, true
}

// parseFrontmatter parses the YAML fence. A malformed fence is MalformedNote:
// the caller treats the note as if it had no frontmatter and emits a warning,
// never failing the index build.
func parseFrontmatter(text string) (frontmatter, string, *errkind.Error) {
	fmText, body, ok := splitFrontmatter(text)
	if !ok {
		return frontmatter{}, text, nil
	}
	var fm frontmatter
	if err := yaml.Unmarshal([]byte(fmText), &fm); err != nil {
		return frontmatter{}, text, errkind.Wrap(errkind.MalformedNote, "frontmatter parse failed", err)
	}
	return fm, body, nil
}
