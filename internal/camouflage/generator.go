package camouflage

import "hide-and-seek/server/internal/geom"

// Difficulty selects how challenging generated disguises should be to spot.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// GeneratorStats is an opaque health snapshot from the generator.
type GeneratorStats struct {
	Generated  uint64 `json:"generated"`
	CacheSize  int    `json:"cacheSize"`
	SkillLevel int    `json:"skillLevel"`
}

// Generator produces ranked disguise candidates for a position. Lists are
// best-first: index 0 is the top-ranked candidate.
type Generator interface {
	Generate(position geom.Vec3) []Candidate
	GenerateByType(position geom.Vec3, objectType ObjectType) []Candidate
	GenerateByDifficulty(position geom.Vec3, difficulty Difficulty) []Candidate
	// SetSkillLevel adjusts the single global difficulty knob.
	SetSkillLevel(level int)
	// PurgeExpired drops the generator's own expired internal candidates.
	PurgeExpired()
	Stats() GeneratorStats
}
