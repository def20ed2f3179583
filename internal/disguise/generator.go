// Package disguise provides the default camouflage generator: it ranks
// catalog archetypes by believability, adjusted by the global skill knob,
// and keeps a short-lived internal cache of generated lists.
package disguise

import (
	"sort"
	"time"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/geom"
	"hide-and-seek/server/internal/sched"
)

// Config tunes the generator.
type Config struct {
	// CacheTTL bounds how long a generated list is reused for a position.
	CacheTTL time.Duration
	// QuantizeStep buckets nearby positions onto one cache slot.
	QuantizeStep float64
}

const (
	defaultCacheTTL     = 10 * time.Second
	defaultQuantizeStep = 0.5

	// Skill tilts believability by up to this much in either direction.
	skillSpread = 0.1
	maxSkill    = 10
)

type cachedList struct {
	candidates  []camouflage.Candidate
	generatedAt time.Time
}

// Generator is the default camouflage.Generator implementation.
type Generator struct {
	cfg     Config
	clock   sched.Clock
	catalog CatalogDefinitions

	skillLevel int
	cache      map[string]*cachedList
	generated  uint64
}

// New constructs a generator over the given catalog. An empty catalog uses
// the built-in defaults.
func New(cfg Config, catalog CatalogDefinitions, clock sched.Clock) *Generator {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.QuantizeStep <= 0 {
		cfg.QuantizeStep = defaultQuantizeStep
	}
	if len(catalog) == 0 {
		catalog = DefaultCatalog()
	}
	if clock == nil {
		clock = sched.SystemClock{}
	}
	return &Generator{
		cfg:        cfg,
		clock:      clock,
		catalog:    catalog,
		skillLevel: maxSkill / 2,
		cache:      make(map[string]*cachedList),
	}
}

// Generate returns candidates for a position, best first.
func (g *Generator) Generate(position geom.Vec3) []camouflage.Candidate {
	key := position.QuantizedKey(g.cfg.QuantizeStep)
	now := g.clock.Now()
	if entry, ok := g.cache[key]; ok && now.Sub(entry.generatedAt) < g.cfg.CacheTTL {
		return cloneCandidates(entry.candidates)
	}

	candidates := make([]camouflage.Candidate, 0, len(g.catalog))
	for _, archetype := range g.catalog {
		candidates = append(candidates, archetype.candidate(g.believability(archetype)))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].BelievabilityScore > candidates[j].BelievabilityScore
	})

	g.cache[key] = &cachedList{candidates: candidates, generatedAt: now}
	g.generated++
	return cloneCandidates(candidates)
}

// GenerateByType returns only candidates of the requested object type.
func (g *Generator) GenerateByType(position geom.Vec3, objectType camouflage.ObjectType) []camouflage.Candidate {
	all := g.Generate(position)
	filtered := make([]camouflage.Candidate, 0, len(all))
	for _, candidate := range all {
		if candidate.ObjectType == objectType {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

// GenerateByDifficulty filters candidates into believability bands: easy
// disguises are the most convincing, hard ones the least.
func (g *Generator) GenerateByDifficulty(position geom.Vec3, difficulty camouflage.Difficulty) []camouflage.Candidate {
	lo, hi := difficultyBand(difficulty)
	all := g.Generate(position)
	filtered := make([]camouflage.Candidate, 0, len(all))
	for _, candidate := range all {
		if candidate.BelievabilityScore >= lo && candidate.BelievabilityScore <= hi {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

func difficultyBand(difficulty camouflage.Difficulty) (float64, float64) {
	switch difficulty {
	case camouflage.DifficultyEasy:
		return 0.75, 1.0
	case camouflage.DifficultyHard:
		return 0.0, 0.5
	default:
		return 0.4, 0.85
	}
}

// SetSkillLevel adjusts the single global difficulty knob. Generated lists
// from before the change stay cached until they expire.
func (g *Generator) SetSkillLevel(level int) {
	if level < 0 {
		level = 0
	}
	if level > maxSkill {
		level = maxSkill
	}
	g.skillLevel = level
}

// PurgeExpired drops internal candidate lists past their TTL.
func (g *Generator) PurgeExpired() {
	now := g.clock.Now()
	for key, entry := range g.cache {
		if now.Sub(entry.generatedAt) >= g.cfg.CacheTTL {
			delete(g.cache, key)
		}
	}
}

// Stats reports generator health counters.
func (g *Generator) Stats() camouflage.GeneratorStats {
	return camouflage.GeneratorStats{
		Generated:  g.generated,
		CacheSize:  len(g.cache),
		SkillLevel: g.skillLevel,
	}
}

// Dispose drops the internal cache.
func (g *Generator) Dispose() {
	g.cache = make(map[string]*cachedList)
}

// believability tilts the archetype's base score by the global skill knob:
// skill 5 is neutral, 0 subtracts the full spread, 10 adds it.
func (g *Generator) believability(archetype ArchetypeDefinition) float64 {
	tilt := (float64(g.skillLevel)/maxSkill - 0.5) * 2 * skillSpread
	score := archetype.BaseBelievability + tilt
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func cloneCandidates(candidates []camouflage.Candidate) []camouflage.Candidate {
	cloned := make([]camouflage.Candidate, len(candidates))
	for i, candidate := range candidates {
		cloned[i] = candidate
		cloned[i].Restrictions = candidate.CloneRestrictions()
	}
	return cloned
}
