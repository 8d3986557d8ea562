package pricing

import (
	"fmt"
	"regexp"
	"strings"
)

// ConditionGrade is a record's physical condition on the Goldmine/Discogs
// scale, ordered from best (Mint) to worst (Poor).
type ConditionGrade int

const (
	Mint ConditionGrade = iota
	NearMint
	VeryGoodPlus
	VeryGood
	GoodPlus
	Good
	Fair
	Poor
)

// AllGrades lists every grade in descending order of quality.
var AllGrades = []ConditionGrade{Mint, NearMint, VeryGoodPlus, VeryGood, GoodPlus, Good, Fair, Poor}

// ConsignorGrades are the grades consignors may list under (better conditions only).
var ConsignorGrades = []ConditionGrade{Mint, NearMint, VeryGoodPlus, VeryGood}

// discogsLabels maps each grade to Discogs's exact condition label spelling.
// These are the keys of the marketplace price-suggestions response.
var discogsLabels = map[ConditionGrade]string{
	Mint:         "Mint (M)",
	NearMint:     "Near Mint (NM or M-)",
	VeryGoodPlus: "Very Good Plus (VG+)",
	VeryGood:     "Very Good (VG)",
	GoodPlus:     "Good Plus (G+)",
	Good:         "Good (G)",
	Fair:         "Fair (F)",
	Poor:         "Poor (P)",
}

var abbreviations = map[ConditionGrade]string{
	Mint:         "M",
	NearMint:     "NM",
	VeryGoodPlus: "VG+",
	VeryGood:     "VG",
	GoodPlus:     "G+",
	Good:         "G",
	Fair:         "F",
	Poor:         "P",
}

// synonyms is the declarative matching table used against free-text
// marketplace condition strings and listing titles. Lowercase only.
var synonyms = map[ConditionGrade][]string{
	Mint:         {"mint", "m", "still sealed", "sealed"},
	NearMint:     {"near mint", "nm", "m-"},
	VeryGoodPlus: {"very good plus", "vg+", "vg plus"},
	VeryGood:     {"very good", "vg"},
	GoodPlus:     {"good plus", "g+", "g plus"},
	Good:         {"good", "g"},
	Fair:         {"fair", "f"},
	Poor:         {"poor", "p"},
}

var gradeMatchers = buildGradeMatchers()

func buildGradeMatchers() map[ConditionGrade]*regexp.Regexp {
	matchers := make(map[ConditionGrade]*regexp.Regexp, len(synonyms))
	for grade, terms := range synonyms {
		patterns := make([]string, 0, len(terms))
		for _, term := range terms {
			patterns = append(patterns, synonymPattern(term))
		}
		matchers[grade] = regexp.MustCompile(strings.Join(patterns, "|"))
	}
	return matchers
}

// synonymPattern wraps a synonym in word boundaries where the synonym's
// edges are word characters. A trailing "+" or "-" cannot carry a \b
// (there is no word boundary between a symbol and end-of-string).
func synonymPattern(term string) string {
	p := regexp.QuoteMeta(strings.ToLower(term))
	if isWordChar(term[0]) {
		p = `\b` + p
	}
	if isWordChar(term[len(term)-1]) {
		p = p + `\b`
	}
	return p
}

func isWordChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// DiscogsLabel returns the canonical Discogs display string, e.g.
// "Very Good Plus (VG+)".
func (g ConditionGrade) DiscogsLabel() string {
	return discogsLabels[g]
}

// Abbreviation returns the short grade code, e.g. "VG+".
func (g ConditionGrade) Abbreviation() string {
	return abbreviations[g]
}

func (g ConditionGrade) String() string {
	return g.DiscogsLabel()
}

// Synonyms returns the free-text terms recognised for this grade.
func (g ConditionGrade) Synonyms() []string {
	return synonyms[g]
}

// QualityIndex returns 0 for the best grade (Mint) through 7 for Poor.
// Used for display ordering only, never for pricing math.
func (g ConditionGrade) QualityIndex() int {
	return int(g)
}

// MatchesText reports whether any synonym of the grade appears in the given
// free text, case-insensitively and on word boundaries. The canonical
// Discogs label always matches its own grade.
func (g ConditionGrade) MatchesText(text string) bool {
	if text == "" {
		return false
	}
	re, ok := gradeMatchers[g]
	if !ok {
		return false
	}
	return re.MatchString(strings.ToLower(text))
}

// ParseCondition resolves user input to a grade. It accepts abbreviations
// ("VG+"), plain names ("Very Good Plus") and full Discogs labels
// ("Very Good Plus (VG+)"), case-insensitively.
func ParseCondition(s string) (ConditionGrade, error) {
	needle := strings.ToLower(strings.TrimSpace(s))
	if needle == "" {
		return Mint, fmt.Errorf("empty condition")
	}
	for _, g := range AllGrades {
		if needle == strings.ToLower(g.DiscogsLabel()) || needle == strings.ToLower(g.Abbreviation()) {
			return g, nil
		}
		// Plain name is the label without the parenthesised code.
		name := g.DiscogsLabel()
		if i := strings.Index(name, " ("); i > 0 {
			name = name[:i]
		}
		if needle == strings.ToLower(name) {
			return g, nil
		}
	}
	// Loose aliases like "m-" or "vg plus".
	for _, g := range AllGrades {
		for _, syn := range g.Synonyms() {
			if needle == syn {
				return g, nil
			}
		}
	}
	return Mint, fmt.Errorf("unknown condition %q", s)
}

// GradesForRole returns the grades a user may assign. Consignors are
// restricted to the upper half of the scale.
func GradesForRole(role string) []ConditionGrade {
	if role == "consignor" {
		return ConsignorGrades
	}
	return AllGrades
}
