package environment

import (
	"fmt"
	"math"
	"testing"
	"time"

	"hide-and-seek/server/internal/camouflage"
	"hide-and-seek/server/internal/geom"
	"hide-and-seek/server/internal/sched"
)

func fixedClock() sched.Clock {
	at := time.UnixMilli(1_700_000_000_000)
	return sched.ClockFunc(func() time.Time { return at })
}

func staticProps(props ...Prop) PropSource {
	return PropSourceFunc(func(geom.Vec3, float64) []Prop {
		return props
	})
}

func TestAnalyzeOrdersSpotsBestCoverFirst(t *testing.T) {
	a := New(Config{Radius: 10}, staticProps(
		Prop{ID: "far-bare", Position: geom.Vec3{X: 9}, ObjectType: camouflage.ObjectCylinder, Cover: 0.2},
		Prop{ID: "close-covered", Position: geom.Vec3{X: 1}, ObjectType: camouflage.ObjectBox, Cover: 0.9},
		Prop{ID: "mid", Position: geom.Vec3{X: 5}, ObjectType: camouflage.ObjectSphere, Cover: 0.6},
	), fixedClock())

	result := a.Analyze(geom.Vec3{})
	if len(result.Spots) != 3 {
		t.Fatalf("spots = %d", len(result.Spots))
	}
	wantOrder := []camouflage.ObjectType{camouflage.ObjectBox, camouflage.ObjectSphere, camouflage.ObjectCylinder}
	for i, want := range wantOrder {
		if result.Spots[i].ObjectType != want {
			t.Fatalf("spot[%d] = %q, want %q", i, result.Spots[i].ObjectType, want)
		}
	}
	for i := 1; i < len(result.Spots); i++ {
		if result.Spots[i].Cover > result.Spots[i-1].Cover {
			t.Fatal("spots not sorted by quality")
		}
	}
	if result.AnalyzedAt.IsZero() {
		t.Fatal("AnalyzedAt not stamped")
	}
}

func TestAnalyzeFiltersPropsOutsideRadius(t *testing.T) {
	a := New(Config{Radius: 5}, staticProps(
		Prop{ID: "in", Position: geom.Vec3{X: 3}, ObjectType: camouflage.ObjectBox, Cover: 0.5},
		Prop{ID: "out", Position: geom.Vec3{X: 6}, ObjectType: camouflage.ObjectSphere, Cover: 0.9},
	), fixedClock())

	result := a.Analyze(geom.Vec3{})
	if len(result.Spots) != 1 || result.Spots[0].ObjectType != camouflage.ObjectBox {
		t.Fatalf("spots = %#v", result.Spots)
	}
	if result.Spots[0].Distance != 3 {
		t.Fatalf("distance = %v", result.Spots[0].Distance)
	}
}

func TestAnalyzeCapsSpots(t *testing.T) {
	props := make([]Prop, 12)
	for i := range props {
		props[i] = Prop{
			ID:         fmt.Sprintf("prop-%d", i),
			Position:   geom.Vec3{X: float64(i)},
			ObjectType: camouflage.ObjectBox,
			Cover:      0.5,
		}
	}
	a := New(Config{Radius: 20, MaxSpots: 4}, staticProps(props...), fixedClock())

	result := a.Analyze(geom.Vec3{})
	if len(result.Spots) != 4 {
		t.Fatalf("spots = %d, want cap of 4", len(result.Spots))
	}
}

func TestAnalyzeEmptyEnvironment(t *testing.T) {
	cases := []struct {
		name   string
		source PropSource
	}{
		{"nil source", nil},
		{"no props", staticProps()},
		{"all out of range", staticProps(Prop{Position: geom.Vec3{X: 100}, Cover: 1})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := New(Config{Radius: 5}, tc.source, fixedClock())
			result := a.Analyze(geom.Vec3{})
			if len(result.Spots) != 0 || result.EnvironmentScore != 0 {
				t.Fatalf("result = %#v", result)
			}
			if result.AnalyzedAt.IsZero() {
				t.Fatal("AnalyzedAt not stamped on empty result")
			}
		})
	}
}

func TestSpotQualityBlendsCoverAndProximity(t *testing.T) {
	// Adjacent prop with full cover is a perfect spot.
	if got := spotQuality(1, 0, 10); math.Abs(got-1) > 1e-12 {
		t.Fatalf("quality = %v, want 1", got)
	}
	// At the radius edge only the cover term remains.
	if got := spotQuality(0.5, 10, 10); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("quality = %v, want 0.3", got)
	}
	// Bare prop at the edge is worthless.
	if got := spotQuality(0, 10, 10); got != 0 {
		t.Fatalf("quality = %v, want 0", got)
	}
}
