// Package environment provides the default environment analyzer: it scans
// world props near a position and scores them as hiding spots. The scoring
// is a simple heuristic; the manager only depends on the result contract.
package environment

import (
	"math"
	"sort"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/geom"
	"hide-and-seek/server/internal/sched"
)

// Prop is a piece of environmental furniture a player could imitate.
type Prop struct {
	ID         string
	Position   geom.Vec3
	ObjectType camouflage.ObjectType
	Model      string
	Scale      geom.Vec3
	Color      camouflage.Color
	// Cover is the prop's intrinsic concealment value in [0,1].
	Cover float64
}

// PropSource yields the props near a position. The hub implements this
// over its obstacle set.
type PropSource interface {
	PropsNear(position geom.Vec3, radius float64) []Prop
}

// PropSourceFunc adapts a function into a PropSource.
type PropSourceFunc func(position geom.Vec3, radius float64) []Prop

// PropsNear implements PropSource.
func (f PropSourceFunc) PropsNear(position geom.Vec3, radius float64) []Prop {
	if f == nil {
		return nil
	}
	return f(position, radius)
}

// Config tunes the analyzer.
type Config struct {
	// Radius bounds the scan around the queried position.
	Radius float64
	// MaxSpots caps how many spots a result carries.
	MaxSpots int
}

const (
	defaultRadius   = 12.0
	defaultMaxSpots = 8
)

// Analyzer is the default camouflage.Analyzer implementation.
type Analyzer struct {
	cfg   Config
	props PropSource
	clock sched.Clock
}

// New constructs an analyzer over the given prop source.
func New(cfg Config, props PropSource, clock sched.Clock) *Analyzer {
	if cfg.Radius <= 0 {
		cfg.Radius = defaultRadius
	}
	if cfg.MaxSpots <= 0 {
		cfg.MaxSpots = defaultMaxSpots
	}
	if clock == nil {
		clock = sched.SystemClock{}
	}
	return &Analyzer{cfg: cfg, props: props, clock: clock}
}

// Analyze scores the environment around position. Spots are ordered best
// cover first; the environment score is the mean spot quality.
func (a *Analyzer) Analyze(position geom.Vec3) camouflage.AnalysisResult {
	result := camouflage.AnalysisResult{AnalyzedAt: a.clock.Now()}
	if a.props == nil {
		return result
	}

	props := a.props.PropsNear(position, a.cfg.Radius)
	if len(props) == 0 {
		return result
	}

	spots := make([]camouflage.Spot, 0, len(props))
	total := 0.0
	for _, prop := range props {
		distance := position.DistanceTo(prop.Position)
		if distance > a.cfg.Radius {
			continue
		}
		quality := spotQuality(prop.Cover, distance, a.cfg.Radius)
		spots = append(spots, camouflage.Spot{
			Position:   prop.Position,
			ObjectType: prop.ObjectType,
			Cover:      quality,
			Distance:   distance,
		})
		total += quality
	}
	if len(spots) == 0 {
		return result
	}

	sort.SliceStable(spots, func(i, j int) bool {
		return spots[i].Cover > spots[j].Cover
	})
	if len(spots) > a.cfg.MaxSpots {
		spots = spots[:a.cfg.MaxSpots]
	}

	result.Spots = spots
	result.EnvironmentScore = total / float64(len(spots))
	if result.EnvironmentScore > 1 {
		result.EnvironmentScore = 1
	}
	return result
}

// spotQuality blends intrinsic cover with proximity: a close prop with
// good cover scores near 1, a distant bare one near 0.
func spotQuality(cover, distance, radius float64) float64 {
	if radius <= 0 {
		return cover
	}
	proximity := 1 - math.Min(distance/radius, 1)
	quality := 0.6*cover + 0.4*proximity
	if quality < 0 {
		return 0
	}
	if quality > 1 {
		return 1
	}
	return quality
}
