package vault

import (
	"regexp"
	"strings"
)

// folderRule maps a folder-name pattern to the category assigned when no
// explicit frontmatter type is present.
type folderRule struct {
	pattern  *regexp.Regexp
	category Category
}

// folderRules is checked top to bottom; first match wins. Grounded on the
// folder/topic pattern-table convention used for vault classification.
var folderRules = []folderRule{
	{regexp.MustCompile(`(?i)^(people|contacts|team)(/|$)`), CategoryPeople},
	{regexp.MustCompile(`(?i)^(projects|work)(/|$)`), CategoryProjects},
	{regexp.MustCompile(`(?i)^(tech|technologies|stack|tools)(/|$)`), CategoryTechnologies},
	{regexp.MustCompile(`(?i)^(orgs|organizations|companies)(/|$)`), CategoryOrganizations},
	{regexp.MustCompile(`(?i)^(places|locations|travel)(/|$)`), CategoryLocations},
	{regexp.MustCompile(`(?i)^(health|medical|fitness)(/|$)`), CategoryHealth},
	{regexp.MustCompile(`(?i)^(acronyms|glossary)(/|$)`), CategoryAcronyms},
	{regexp.MustCompile(`(?i)^(pets|animals)(/|$)`), CategoryAnimals},
	{regexp.MustCompile(`(?i)^(media|books|movies|shows)(/|$)`), CategoryMedia},
	{regexp.MustCompile(`(?i)^(events|calendar)(/|$)`), CategoryEvents},
	{regexp.MustCompile(`(?i)^(documents|docs|contracts)(/|$)`), CategoryDocuments},
	{regexp.MustCompile(`(?i)^(finance|budget|investments)(/|$)`), CategoryFinance},
	{regexp.MustCompile(`(?i)^(food|recipes|cooking)(/|$)`), CategoryFood},
	{regexp.MustCompile(`(?i)^(hobbies|crafts|games)(/|$)`), CategoryHobbies},
	{regexp.MustCompile(`(?i)^(concepts|ideas|notes)(/|$)`), CategoryConcepts},
}

// validTypeCategories accepts a frontmatter `type` value only when it names
// one of the enumerated categories; anything else falls through to the
// folder rule table.
var validTypeCategories = map[string]Category{
	"people": CategoryPeople, "projects": CategoryProjects, "technologies": CategoryTechnologies,
	"organizations": CategoryOrganizations, "locations": CategoryLocations, "concepts": CategoryConcepts,
	"health": CategoryHealth, "acronyms": CategoryAcronyms, "other": CategoryOther,
	"animals": CategoryAnimals, "media": CategoryMedia, "events": CategoryEvents,
	"documents": CategoryDocuments, "finance": CategoryFinance, "food": CategoryFood,
	"hobbies": CategoryHobbies,
}

// ClassifyNoteText determines a note's own category the same way an entity's
// category is determined: explicit frontmatter `type`, then the folder rule
// table, defaulting to "other". Used by callers scoring a note that may not
// itself be an indexed entity (e.g. a brand-new note being scored for
// suggestions).
func ClassifyNoteText(text, folder string) Category {
	fm, _, _ := parseFrontmatter(text)
	return classify(fm.Type, folder)
}

// classify determines an entity's category: explicit frontmatter type, then
// the folder rule table, defaulting to "other".
func classify(fmType, folder string) Category {
	if fmType != "" {
		if c, ok := validTypeCategories[strings.ToLower(strings.TrimSpace(fmType))]; ok {
			return c
		}
	}
	for _, rule := range folderRules {
		if rule.pattern.MatchString(folder) {
			return rule.category
		}
	}
	return CategoryOther
}
