package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.TickRate != 15 || cfg.PropCount != 24 {
		t.Fatalf("world defaults = %d/%d", cfg.TickRate, cfg.PropCount)
	}
	if cfg.MaxActiveCamouflages != 1 {
		t.Fatalf("MaxActiveCamouflages = %d", cfg.MaxActiveCamouflages)
	}
	if cfg.CacheTTL != 30*time.Second || cfg.MaxCacheSize != 50 {
		t.Fatalf("cache defaults = %v/%d", cfg.CacheTTL, cfg.MaxCacheSize)
	}
	if cfg.FadeOut != 500*time.Millisecond || cfg.FadeIn != 500*time.Millisecond {
		t.Fatalf("fade defaults = %v/%v", cfg.FadeOut, cfg.FadeIn)
	}
	if !cfg.HasSink("console") || cfg.HasSink("json") {
		t.Fatalf("sink defaults = %v", cfg.LogSinks)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("TICK_RATE", "30")
	t.Setenv("CAMO_MAX_ACTIVE", "4")
	t.Setenv("CAMO_CACHE_TTL", "45s")
	t.Setenv("LOG_SINKS", "console,json,sqlite")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" || cfg.TickRate != 30 {
		t.Fatalf("overrides = %q/%d", cfg.HTTPAddr, cfg.TickRate)
	}
	if cfg.MaxActiveCamouflages != 4 || cfg.CacheTTL != 45*time.Second {
		t.Fatalf("camouflage overrides = %d/%v", cfg.MaxActiveCamouflages, cfg.CacheTTL)
	}
	for _, sink := range []string{"console", "json", "sqlite"} {
		if !cfg.HasSink(sink) {
			t.Fatalf("sink %q missing from %v", sink, cfg.LogSinks)
		}
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("malformed duration", func(t *testing.T) {
		t.Setenv("CAMO_CACHE_TTL", "not-a-duration")
		if _, err := Load(); err == nil {
			t.Fatal("Load accepted a malformed duration")
		}
	})
	t.Run("non-positive tick rate", func(t *testing.T) {
		t.Setenv("TICK_RATE", "0")
		if _, err := Load(); err == nil {
			t.Fatal("Load accepted TICK_RATE=0")
		}
	})
}
