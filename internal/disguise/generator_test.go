package disguise

import (
	"math"
	"testing"
	"time"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/geom"
)

type settableClock struct {
	now time.Time
}

func newSettableClock() *settableClock {
	return &settableClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *settableClock) Now() time.Time { return c.now }

func (c *settableClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestGenerator(cfg Config) (*Generator, *settableClock) {
	clock := newSettableClock()
	return New(cfg, nil, clock), clock
}

func TestGenerateRanksByBelievability(t *testing.T) {
	g, _ := newTestGenerator(Config{})

	candidates := g.Generate(geom.Vec3{})
	if len(candidates) != 3 {
		t.Fatalf("candidates = %d", len(candidates))
	}
	wantOrder := []camouflage.ObjectType{camouflage.ObjectBox, camouflage.ObjectSphere, camouflage.ObjectCylinder}
	for i, want := range wantOrder {
		if candidates[i].ObjectType != want {
			t.Fatalf("rank %d = %q, want %q", i, candidates[i].ObjectType, want)
		}
	}
	// Skill starts neutral, so base believability comes through untouched.
	if math.Abs(candidates[0].BelievabilityScore-0.85) > 1e-12 {
		t.Fatalf("crate believability = %v", candidates[0].BelievabilityScore)
	}
}

func TestCatalogRestrictionsCarryThrough(t *testing.T) {
	g, _ := newTestGenerator(Config{})
	byType := make(map[camouflage.ObjectType]camouflage.Candidate)
	for _, c := range g.Generate(geom.Vec3{}) {
		byType[c.ObjectType] = c
	}

	crate := byType[camouflage.ObjectBox]
	if len(crate.Restrictions) != 1 || crate.Restrictions[0].Kind != camouflage.RestrictionSpeedFactor || crate.Restrictions[0].Factor != 0.25 {
		t.Fatalf("crate restrictions = %#v", crate.Restrictions)
	}
	boulder := byType[camouflage.ObjectSphere]
	if len(boulder.Restrictions) != 1 || boulder.Restrictions[0].Kind != camouflage.RestrictionRooted {
		t.Fatalf("boulder restrictions = %#v", boulder.Restrictions)
	}
	// Unset catalog duration falls back to the shared default.
	if crate.EffectiveDuration() != camouflage.DefaultCandidateDuration {
		t.Fatalf("crate duration = %v", crate.EffectiveDuration())
	}
}

func TestSkillLevelTiltsScores(t *testing.T) {
	g, _ := newTestGenerator(Config{})

	g.SetSkillLevel(10)
	high := g.Generate(geom.Vec3{X: 1})[2] // barrel, base 0.65
	if math.Abs(high.BelievabilityScore-0.75) > 1e-12 {
		t.Fatalf("skill 10 barrel = %v, want 0.75", high.BelievabilityScore)
	}

	g.SetSkillLevel(0)
	low := g.Generate(geom.Vec3{X: 30})[2]
	if math.Abs(low.BelievabilityScore-0.55) > 1e-12 {
		t.Fatalf("skill 0 barrel = %v, want 0.55", low.BelievabilityScore)
	}

	// Out-of-range levels clamp.
	g.SetSkillLevel(99)
	if g.Stats().SkillLevel != 10 {
		t.Fatalf("skill = %d, want clamped 10", g.Stats().SkillLevel)
	}
	g.SetSkillLevel(-3)
	if g.Stats().SkillLevel != 0 {
		t.Fatalf("skill = %d, want clamped 0", g.Stats().SkillLevel)
	}
}

func TestGenerateCachesPerBucketUntilTTL(t *testing.T) {
	g, clock := newTestGenerator(Config{})

	g.Generate(geom.Vec3{X: 1.0})
	g.Generate(geom.Vec3{X: 1.2}) // same 0.5-unit bucket
	if g.Stats().Generated != 1 {
		t.Fatalf("generated = %d, want 1", g.Stats().Generated)
	}

	// A skill change does not invalidate a live cache entry.
	g.SetSkillLevel(10)
	cached := g.Generate(geom.Vec3{X: 0.9})
	if math.Abs(cached[0].BelievabilityScore-0.85) > 1e-12 {
		t.Fatalf("cached believability = %v, want pre-change 0.85", cached[0].BelievabilityScore)
	}

	clock.advance(10 * time.Second)
	fresh := g.Generate(geom.Vec3{X: 1.0})
	if g.Stats().Generated != 2 {
		t.Fatalf("generated = %d after TTL, want 2", g.Stats().Generated)
	}
	if math.Abs(fresh[0].BelievabilityScore-0.95) > 1e-12 {
		t.Fatalf("fresh believability = %v, want 0.95", fresh[0].BelievabilityScore)
	}
}

func TestGenerateReturnsIndependentCopies(t *testing.T) {
	g, _ := newTestGenerator(Config{})

	first := g.Generate(geom.Vec3{})
	first[0].BelievabilityScore = 0
	first[0].Restrictions[0].Factor = 0.99

	second := g.Generate(geom.Vec3{})
	if second[0].BelievabilityScore == 0 {
		t.Fatal("caller mutation leaked into the cache")
	}
	if second[0].Restrictions[0].Factor == 0.99 {
		t.Fatal("restriction mutation leaked into the cache")
	}
}

func TestGenerateByType(t *testing.T) {
	g, _ := newTestGenerator(Config{})

	boxes := g.GenerateByType(geom.Vec3{}, camouflage.ObjectBox)
	if len(boxes) != 1 || boxes[0].ObjectType != camouflage.ObjectBox {
		t.Fatalf("boxes = %#v", boxes)
	}
	if ferns := g.GenerateByType(geom.Vec3{}, camouflage.ObjectType("fern")); len(ferns) != 0 {
		t.Fatalf("unknown type yielded %d candidates", len(ferns))
	}
}

func TestGenerateByDifficultyBands(t *testing.T) {
	g, _ := newTestGenerator(Config{})

	easy := g.GenerateByDifficulty(geom.Vec3{}, camouflage.DifficultyEasy)
	if len(easy) != 2 {
		t.Fatalf("easy candidates = %d, want crate and boulder", len(easy))
	}
	for _, c := range easy {
		if c.BelievabilityScore < 0.75 {
			t.Fatalf("easy band includes %v", c.BelievabilityScore)
		}
	}

	hard := g.GenerateByDifficulty(geom.Vec3{}, camouflage.DifficultyHard)
	if len(hard) != 0 {
		t.Fatalf("hard candidates = %d, want none from default catalog", len(hard))
	}

	// The medium band tops out at 0.85 inclusive, so the whole default
	// catalog qualifies.
	medium := g.GenerateByDifficulty(geom.Vec3{}, camouflage.DifficultyMedium)
	if len(medium) != 3 {
		t.Fatalf("medium candidates = %d, want 3", len(medium))
	}
}

func TestPurgeExpiredAndDispose(t *testing.T) {
	g, clock := newTestGenerator(Config{})

	g.Generate(geom.Vec3{X: 1})
	clock.advance(6 * time.Second)
	g.Generate(geom.Vec3{X: 30})

	clock.advance(5 * time.Second) // first entry 11s old, second 5s
	g.PurgeExpired()
	if g.Stats().CacheSize != 1 {
		t.Fatalf("cache size = %d after purge, want 1", g.Stats().CacheSize)
	}

	g.Dispose()
	if g.Stats().CacheSize != 0 {
		t.Fatalf("cache size = %d after dispose", g.Stats().CacheSize)
	}
}

func TestCustomCatalogAndDurations(t *testing.T) {
	catalog := CatalogDefinitions{
		{
			ID:                "topiary",
			ObjectType:        string(camouflage.ObjectCylinder),
			Model:             "prop_topiary",
			ScaleX:            1, ScaleY: 2, ScaleZ: 1,
			BaseBelievability: 0.9,
			DurationMs:        12_000,
		},
	}
	g := New(Config{}, catalog, newSettableClock())

	candidates := g.Generate(geom.Vec3{})
	if len(candidates) != 1 || candidates[0].Model != "prop_topiary" {
		t.Fatalf("candidates = %#v", candidates)
	}
	if candidates[0].EffectiveDuration() != 12*time.Second {
		t.Fatalf("duration = %v", candidates[0].EffectiveDuration())
	}
}
