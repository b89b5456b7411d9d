// Package genre defines the canonical genre vocabulary and the normalizer
// that maps free-text genre strings into it.
package genre

// Canonical is one member of the closed genre vocabulary.
type Canonical string

// The full vocabulary. Every normalization resolves to one of these.
const (
	Rap        Canonical = "rap"
	RnB        Canonical = "r&b"
	Pop        Canonical = "pop"
	Rock       Canonical = "rock"
	Electronic Canonical = "electronic"
	Jazz       Canonical = "jazz"
	Classical  Canonical = "classical"
	Latin      Canonical = "latin"
	Folk       Canonical = "folk"
	Country    Canonical = "country"
	Other      Canonical = "other"
)

// All lists the vocabulary in a fixed order, Other last.
var All = []Canonical{Rap, RnB, Pop, Rock, Electronic, Jazz, Classical, Latin, Folk, Country, Other}

// Classification is the outcome of classifying one (artist[, track]) key.
// MainGenres holds at most two genres ordered by descending weight and is
// never empty; SubGenres holds at most three more, disjoint from MainGenres.
type Classification struct {
	MainGenres []Canonical `json:"mainGenres"`
	SubGenres  []Canonical `json:"subGenres"`
}

// Unclassified is the guaranteed floor result when every signal source
// yields nothing.
func Unclassified() Classification {
	return Classification{MainGenres: []Canonical{Other}, SubGenres: []Canonical{}}
}
