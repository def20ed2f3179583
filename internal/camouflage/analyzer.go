package camouflage

import (
	"time"

	"hide-and-seek/server/internal/geom"
)

// Spot is a candidate hiding location near an analyzed position.
type Spot struct {
	Position   geom.Vec3  `json:"position"`
	ObjectType ObjectType `json:"objectType"`
	Cover      float64    `json:"cover"`
	Distance   float64    `json:"distance"`
}

// AnalysisResult is what the environment analyzer reports for a position.
type AnalysisResult struct {
	Spots            []Spot    `json:"spots"`
	EnvironmentScore float64   `json:"environmentScore"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
}

// Clone returns a copy whose spot slice shares no memory with the original.
func (r AnalysisResult) Clone() AnalysisResult {
	cloned := r
	if len(r.Spots) > 0 {
		cloned.Spots = append([]Spot(nil), r.Spots...)
	}
	return cloned
}

// Analyzer scores the environment around a position. How spots are found
// and scored is the analyzer's business; the manager only consumes the
// result shape.
type Analyzer interface {
	Analyze(position geom.Vec3) AnalysisResult
}
