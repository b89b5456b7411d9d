package genre

// taxonomy maps each canonical genre to the free-text synonyms and subgenre
// names that resolve to it exactly. The reverse index built from this table
// also maps every canonical genre to itself, which makes Normalize idempotent.
var taxonomy = map[Canonical][]string{
	Rap: {
		"hip hop", "hip-hop", "hiphop", "trap", "drill", "grime", "gangsta rap",
		"boom bap", "cloud rap", "mumble rap", "conscious hip hop", "uk hip hop",
	},
	RnB: {
		"rnb", "r and b", "rhythm and blues", "soul", "neo soul", "neo-soul",
		"funk", "motown", "new jack swing", "contemporary r&b", "quiet storm",
	},
	Pop: {
		"synthpop", "synth-pop", "electropop", "dance pop", "dance-pop", "k-pop",
		"kpop", "j-pop", "jpop", "indie pop", "dream pop", "power pop",
		"bubblegum pop", "art pop", "teen pop", "britpop",
	},
	Rock: {
		"metal", "punk", "emo", "hardcore", "indie rock", "alternative",
		"alternative rock", "alt rock", "classic rock", "hard rock", "grunge",
		"shoegaze", "post-rock", "post-punk", "prog rock", "progressive rock",
		"psychedelic", "garage rock", "heavy metal", "black metal", "death metal",
		"metalcore", "pop punk", "ska",
	},
	Electronic: {
		"edm", "house", "techno", "trance", "dubstep", "drum and bass",
		"drum & bass", "dnb", "electronica", "idm", "ambient", "breakbeat",
		"deep house", "future bass", "garage", "uk garage", "electro",
		"downtempo", "chillwave", "synthwave",
	},
	Jazz: {
		"bebop", "swing", "big band", "smooth jazz", "jazz fusion", "free jazz",
		"cool jazz", "hard bop", "bossa nova", "ragtime", "dixieland",
	},
	Classical: {
		"orchestral", "symphony", "baroque", "opera", "chamber music",
		"romantic era", "contemporary classical", "piano", "choral",
		"early music", "minimalism",
	},
	Latin: {
		"reggaeton", "salsa", "bachata", "cumbia", "merengue", "latin pop",
		"latin trap", "bossa", "mariachi", "banda", "corridos", "flamenco",
	},
	Folk: {
		"singer-songwriter", "singer songwriter", "acoustic", "americana",
		"indie folk", "folk rock", "celtic", "traditional", "bluegrass folk",
		"world music", "world",
	},
	Country: {
		"bluegrass", "honky tonk", "honky-tonk", "outlaw country", "alt-country",
		"country pop", "country rock", "western", "nashville sound",
	},
}

// keywordRule associates a genre family with the substrings that imply it.
// Rules are scanned in order and the first hit wins, so narrower families
// come before broader ones (rap before rock keeps "trap" out of "rock").
type keywordRule struct {
	family   Canonical
	keywords []string
}

var keywordRules = []keywordRule{
	{Rap, []string{"rap", "hip", "trap", "drill", "grime", "mc"}},
	{RnB, []string{"r&b", "rnb", "soul", "funk"}},
	{Rock, []string{"rock", "metal", "punk", "emo", "hardcore", "grunge", "core"}},
	{Electronic, []string{"electro", "techno", "house", "edm", "dub", "bass", "rave", "dance", "synth"}},
	{Pop, []string{"pop"}},
	{Jazz, []string{"jazz", "bop", "swing"}},
	{Classical, []string{"classical", "orchestra", "symphon", "baroque", "opera"}},
	{Latin, []string{"latin", "reggaeton", "salsa", "cumbia", "bachata", "samba"}},
	{Folk, []string{"folk", "acoustic", "songwriter", "americana"}},
	{Country, []string{"country", "bluegrass", "honky"}},
}

// reverseIndex maps known strings, including the canonical names themselves,
// to their canonical genre. Built once at package init.
var reverseIndex = buildReverseIndex()

func buildReverseIndex() map[string]Canonical {
	idx := make(map[string]Canonical, 256)
	for canonical, synonyms := range taxonomy {
		idx[string(canonical)] = canonical
		for _, s := range synonyms {
			idx[s] = canonical
		}
	}
	idx[string(Other)] = Other
	return idx
}
