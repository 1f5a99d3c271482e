package domain

// PreferenceProfile describes what a user likes and what they refuse to
// watch. Zero values mean the constraint is not set. Profiles are loadable
// from YAML files via the repository package.
type PreferenceProfile struct {
	FavoriteGenres        []string `json:"favoriteGenres,omitempty" yaml:"favorite_genres"`
	PreferredStudios      []string `json:"preferredStudios,omitempty" yaml:"preferred_studios"`
	PreferredDemographics []string `json:"preferredDemographics,omitempty" yaml:"preferred_demographics"`
	DislikedGenres        []string `json:"dislikedGenres,omitempty" yaml:"disliked_genres"`

	// MinScore rejects candidates whose average score is below it. Only
	// applied when the candidate has a score.
	MinScore float64 `json:"minScore,omitempty" yaml:"min_score"`
	// MaxEpisodes rejects candidates longer than it. Only applied when both
	// it and the candidate's episode count are set.
	MaxEpisodes int `json:"maxEpisodes,omitempty" yaml:"max_episodes"`
	YearMin     int `json:"yearMin,omitempty" yaml:"year_min"`
	YearMax     int `json:"yearMax,omitempty" yaml:"year_max"`
}

// IsEmpty reports whether the profile constrains nothing at all.
func (p PreferenceProfile) IsEmpty() bool {
	return len(p.FavoriteGenres) == 0 &&
		len(p.PreferredStudios) == 0 &&
		len(p.PreferredDemographics) == 0 &&
		len(p.DislikedGenres) == 0 &&
		p.MinScore == 0 && p.MaxEpisodes == 0 &&
		p.YearMin == 0 && p.YearMax == 0
}
