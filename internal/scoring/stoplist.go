package scoring

// articleStopList is the fixed set of English articles, pronouns, and
// prepositions the article_filter layer drops outright.
var articleStopList = map[string]bool{
	"a": true, "an": true, "the": true,
	"i": true, "you": true, "he": true, "she": true, "it": true, "we": true, "they": true,
	"me": true, "him": true, "her": true, "us": true, "them": true,
	"my": true, "your": true, "his": true, "its": true, "our": true, "their": true,
	"in": true, "on": true, "at": true, "by": true, "for": true, "with": true, "about": true,
	"against": true, "between": true, "into": true, "through": true, "during": true,
	"before": true, "after": true, "above": true, "below": true, "to": true, "from": true,
	"up": true, "down": true, "of": true, "off": true, "over": true, "under": true,
	"and": true, "or": true, "but": true, "so": true, "nor": true,
}
