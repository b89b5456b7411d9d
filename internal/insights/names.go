package insights

import (
	"sort"
	"strings"

	"github.com/justestif/moodfm/internal/genre"
)

// Display casing for phase labels.
var displayNames = map[genre.Canonical]string{
	genre.Rap:        "Rap",
	genre.RnB:        "R&B",
	genre.Pop:        "Pop",
	genre.Rock:       "Rock",
	genre.Electronic: "Electronic",
	genre.Jazz:       "Jazz",
	genre.Classical:  "Classical",
	genre.Latin:      "Latin",
	genre.Folk:       "Folk",
	genre.Country:    "Country",
	genre.Other:      "Eclectic",
}

// A genre must hold at least this share of a phase's plays to make the
// label.
const labelShareThreshold = 0.15

// phaseLabel names a phase after its up-to-two dominant genres, e.g.
// "Rock & Folk". A phase with no genre above the threshold is "Mixed Bag".
func phaseLabel(mix map[genre.Canonical]float64) string {
	type share struct {
		g     genre.Canonical
		value float64
	}

	shares := make([]share, 0, len(mix))
	for g, value := range mix {
		if g == genre.Other || value < labelShareThreshold {
			continue
		}
		shares = append(shares, share{g: g, value: value})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].value != shares[j].value {
			return shares[i].value > shares[j].value
		}
		return shares[i].g < shares[j].g
	})

	if len(shares) == 0 {
		return "Mixed Bag"
	}
	if len(shares) == 1 {
		return displayNames[shares[0].g]
	}
	return strings.Join([]string{displayNames[shares[0].g], displayNames[shares[1].g]}, " & ")
}
