package lastfm

// Tag is a raw genre signal: a free-text tag name with a popularity count.
// Counts run 0-100 for track tags and may be absent for artist tags.
type Tag struct {
	Name  string `json:"name"`
	Count int    `json:"count,omitempty"`
	URL   string `json:"url,omitempty"`
}

// trackTagsResponse is the JSON response for track.getTopTags.
type trackTagsResponse struct {
	TopTags struct {
		Tag  []Tag `json:"tag"`
		Attr struct {
			Artist string `json:"artist"`
			Track  string `json:"track"`
		} `json:"@attr"`
	} `json:"toptags"`
}

// artistTagsResponse is the JSON response for artist.getTopTags.
type artistTagsResponse struct {
	TopTags struct {
		Tag  []Tag `json:"tag"`
		Attr struct {
			Artist string `json:"artist"`
		} `json:"@attr"`
	} `json:"toptags"`
}

// artistInfoResponse is the JSON response for artist.getInfo, reduced to the
// bio text this core consumes.
type artistInfoResponse struct {
	Artist struct {
		Name string `json:"name"`
		Bio  struct {
			Summary string `json:"summary"`
		} `json:"bio"`
	} `json:"artist"`
}

// apiError is the provider-reported error payload.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
