// Package query builds YouTube search expressions from a search name and
// inclusion and exclusion terms.
package query

import (
	"strings"
)

// Construct returns `"<name>" (<a | b>) -<c> -<d>`. Empty clauses are left
// out. Terms keep their input order so logs stay diffable across runs.
func Construct(name string, include, exclude []string) string {
	parts := []string{`"` + name + `"`}
	if len(include) > 0 {
		parts = append(parts, "("+strings.Join(include, " | ")+")")
	}
	if len(exclude) > 0 {
		parts = append(parts, exclusions(exclude))
	}

	return strings.TrimSpace(strings.Join(parts, " "))
}

// SplitPhrases separates raw phrases into inclusion terms and exclusion terms.
// A phrase starting with "-" is an exclusion; the dash is removed.
func SplitPhrases(phrases []string) (include, exclude []string) {
	for _, phrase := range phrases {
		phrase = strings.TrimSpace(phrase)
		if phrase == "" {
			continue
		}
		if strings.HasPrefix(phrase, "-") {
			exclude = append(exclude, strings.TrimSpace(phrase[1:]))
			continue
		}
		include = append(include, phrase)
	}

	return include, exclude
}

// Expression renders the terms of a run for storage. Raw phrases are stored
// verbatim when given, otherwise the inclusion terms followed by the negated
// exclusion terms.
func Expression(phrases, include, exclude []string) string {
	if len(phrases) > 0 {
		return strings.Join(phrases, ", ")
	}
	terms := make([]string, 0, len(include)+len(exclude))
	terms = append(terms, include...)
	for _, term := range exclude {
		terms = append(terms, "-"+term)
	}

	return strings.Join(terms, ", ")
}

func exclusions(terms []string) string {
	tokens := make([]string, len(terms))
	for i, term := range terms {
		tokens[i] = "-" + term
	}
	return strings.Join(tokens, " ")
}
