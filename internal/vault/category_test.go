package vault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyNoteTextPrefersExplicitFrontmatterType(t *testing.T) {
	text := "---\ntype: people\n---\nBody.\n"
	assert.Equal(t, CategoryPeople, ClassifyNoteText(text, "projects"))
}

func TestClassifyNoteTextFallsBackToFolderRule(t *testing.T) {
	text := "No frontmatter here.\n"
	assert.Equal(t, CategoryProjects, ClassifyNoteText(text, "projects/active"))
}

func TestClassifyNoteTextDefaultsToOther(t *testing.T) {
	text := "No frontmatter, no matching folder.\n"
	assert.Equal(t, CategoryOther, ClassifyNoteText(text, "miscellaneous"))
}

func TestClassifyNoteTextIgnoresUnrecognizedFrontmatterType(t *testing.T) {
	text := "---\ntype: not-a-real-category\n---\nBody.\n"
	assert.Equal(t, CategoryHealth, ClassifyNoteText(text, "health/journal"))
}
