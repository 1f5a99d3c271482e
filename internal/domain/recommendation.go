package domain

// ReasonKind names one explainable dimension of a recommendation.
type ReasonKind string

const (
	ReasonGenre       ReasonKind = "genre"
	ReasonStudio      ReasonKind = "studio"
	ReasonDemographic ReasonKind = "demographic"
	ReasonYear        ReasonKind = "year"
	ReasonTag         ReasonKind = "tag"
	ReasonScore       ReasonKind = "score"
)

// Reason is one explainable contribution justifying why a candidate was
// recommended.
type Reason struct {
	Kind   ReasonKind `json:"kind"`
	Value  string     `json:"value"`
	Weight float64    `json:"weight"`
}

// RecommendationResult pairs a candidate with its similarity score and the
// reasons it ranked where it did.
type RecommendationResult struct {
	Record  AnimeRecord `json:"record"`
	Score   float64     `json:"score"`
	Reasons []Reason    `json:"reasons,omitempty"`
}

// FactorWeights configures the pairwise similarity score. The weights are
// free-form reals and need not sum to 1.
type FactorWeights struct {
	Genre       float64 `json:"genre" mapstructure:"genre"`
	Studio      float64 `json:"studio" mapstructure:"studio"`
	Score       float64 `json:"score" mapstructure:"score"`
	Year        float64 `json:"year" mapstructure:"year"`
	Episodes    float64 `json:"episodes" mapstructure:"episodes"`
	Demographic float64 `json:"demographic" mapstructure:"demographic"`
	Tags        float64 `json:"tags" mapstructure:"tags"`
}

// DefaultFactorWeights returns the stock similarity weighting, biased toward
// genre and tag overlap.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		Genre:       0.30,
		Studio:      0.10,
		Score:       0.15,
		Year:        0.10,
		Episodes:    0.05,
		Demographic: 0.10,
		Tags:        0.20,
	}
}

// FactorScores carries the per-factor breakdown of one pairwise comparison.
type FactorScores struct {
	Genre       float64 `json:"genre"`
	Studio      float64 `json:"studio"`
	Score       float64 `json:"score"`
	Year        float64 `json:"year"`
	Episodes    float64 `json:"episodes"`
	Demographic float64 `json:"demographic"`
	Tags        float64 `json:"tags"`
}
