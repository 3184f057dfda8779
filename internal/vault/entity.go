package vault

import "strings"

// Category is the enumerated entity category set from the data model.
type Category string

const (
	CategoryPeople         Category = "people"
	CategoryProjects       Category = "projects"
	CategoryTechnologies   Category = "technologies"
	CategoryOrganizations  Category = "organizations"
	CategoryLocations      Category = "locations"
	CategoryConcepts       Category = "concepts"
	CategoryHealth         Category = "health"
	CategoryAcronyms       Category = "acronyms"
	CategoryOther          Category = "other"
	CategoryAnimals        Category = "animals"
	CategoryMedia          Category = "media"
	CategoryEvents         Category = "events"
	CategoryDocuments      Category = "documents"
	CategoryFinance        Category = "finance"
	CategoryFood           Category = "food"
	CategoryHobbies        Category = "hobbies"
)

// allCategories lists every category in stats() iteration order.
var allCategories = []Category{
	CategoryPeople, CategoryProjects, CategoryTechnologies, CategoryOrganizations,
	CategoryLocations, CategoryConcepts, CategoryHealth, CategoryAcronyms,
	CategoryOther, CategoryAnimals, CategoryMedia, CategoryEvents,
	CategoryDocuments, CategoryFinance, CategoryFood, CategoryHobbies,
}

// Entity is a linkable target: a note whose basename is its canonical name.
type Entity struct {
	Name     string // canonical display name, verbatim from the note basename
	Category Category
	Path     string
	Aliases  []string
	HubScore int
	Folder   string
}

// MatchKind is the kind of textual match that produced a Candidate.
type MatchKind string

const (
	MatchExact MatchKind = "exact"
	MatchStem  MatchKind = "stem"
	MatchAlias MatchKind = "alias"
)

// Candidate is an ephemeral (entity, match kind, first-occurrence span) tuple
// living for the duration of one suggestion call.
type Candidate struct {
	Entity *Entity
	Kind   MatchKind
	Offset int
}

// Normalize applies the case-normalization rule shared by every lookup:
// lowercase, hyphens become spaces, internal whitespace collapses.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
