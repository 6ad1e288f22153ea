// Package copywriter derives display titles and public marketing copy from raw
// AI image descriptions using keyword rules.
package copywriter

import (
	"regexp"
	"strings"
)

// MaxTitleWords is the maximum number of words kept in a generated title.
const MaxTitleWords = 3

// minTitleWordLen is the length a word must exceed to be kept in a title.
const minTitleWordLen = 2

// CallToAction closes every marketing description.
const CallToAction = "Consider bringing this vision to life as part of your personal art collection."

var nonWord = regexp.MustCompile(`\W+`)

// rule maps a set of keywords to the clause emitted when any of them occurs.
type rule struct {
	keywords []string
	clause   string
}

// category is an ordered rule list with a fallback clause.
// The first rule with a matching keyword wins.
type category struct {
	rules    []rule
	fallback string
}

func (c category) clause(lowered string) string {
	for _, r := range c.rules {
		if containsAny(lowered, r.keywords) {
			return r.clause
		}
	}
	return c.fallback
}

var (
	styleCategory = category{
		rules: []rule{
			{keywords: []string{"black and white", "monochrome"}, clause: "A striking black and white tattoo design "},
			{keywords: []string{"color", "colored"}, clause: "A vibrant colored tattoo design "},
		},
		fallback: "An intricate tattoo design ",
	}

	placementCategory = category{
		rules: []rule{
			{keywords: []string{"small", "minimal"}, clause: "perfect for small placements. "},
			{keywords: []string{"large", "bold"}, clause: "ideal for larger canvas work. "},
		},
		fallback: "suitable for various body placements. ",
	}

	themeCategory = category{
		rules: []rule{
			{
				keywords: []string{"strength", "power"},
				clause:   "Symbolizing strength and resilience, this design captures the essence of inner power. ",
			},
			{
				keywords: []string{"love", "heart"},
				clause:   "Expressing deep emotion and connection, this piece represents love in its purest form. ",
			},
			{
				keywords: []string{"freedom", "spirit"},
				clause:   "Embodying freedom and spirituality, this tattoo speaks to the wandering soul. ",
			},
		},
		fallback: "Carrying deep personal meaning, this design tells your unique story. ",
	}

	// categories are evaluated in order and their clauses concatenated.
	categories = []category{styleCategory, placementCategory, themeCategory}
)

var tattooKeywords = []string{"tattoo", "ink", "body art"}

// Title builds a short display title from the first three words of the
// description that are longer than two characters, each capitalized.
//
// Example: "a cat sitting quietly in a dark forest" -> "Cat Sitting Quietly"
func Title(description string) string {
	words := make([]string, 0, MaxTitleWords)
	for _, word := range nonWord.Split(strings.ToLower(description), -1) {
		if len(word) <= minTitleWordLen {
			continue
		}
		words = append(words, capitalize(word))
		if len(words) == MaxTitleWords {
			break
		}
	}
	return strings.Join(words, " ")
}

// MarketingDescription assembles public-facing copy from the style, placement
// and theme clauses that match the description, followed by CallToAction.
// Categories without a keyword match contribute their generic clause.
func MarketingDescription(description string) string {
	lowered := strings.ToLower(description)

	var b strings.Builder
	for _, c := range categories {
		b.WriteString(c.clause(lowered))
	}
	b.WriteString(CallToAction)
	return b.String()
}

// IsTattoo reports whether the description uses tattoo vocabulary.
func IsTattoo(description string) bool {
	return containsAny(strings.ToLower(description), tattooKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// capitalize upper-cases the first letter of a single word token.
func capitalize(word string) string {
	if word == "" {
		return word
	}
	return strings.ToUpper(word[:1]) + word[1:]
}
