package server

import (
	"sync/atomic"
	"time"
)

type telemetryCounters struct {
	activations       atomic.Uint64
	failedActivations atomic.Uint64
	containedErrors   atomic.Uint64
	autoReverts       atomic.Uint64
	manualReverts     atomic.Uint64
	forcedReverts     atomic.Uint64

	bytesSent          atomic.Uint64
	entitiesSent       atomic.Uint64
	tickDurationMillis atomic.Int64
}

type telemetrySnapshot struct {
	Activations       uint64 `json:"activations"`
	FailedActivations uint64 `json:"failedActivations"`
	ContainedErrors   uint64 `json:"containedErrors"`
	AutoReverts       uint64 `json:"autoReverts"`
	ManualReverts     uint64 `json:"manualReverts"`
	ForcedReverts     uint64 `json:"forcedReverts"`
	BytesSent         uint64 `json:"bytesSent"`
	EntitiesSent      uint64 `json:"entitiesSent"`
	TickDuration      int64  `json:"tickDurationMillis"`
}

func (t *telemetryCounters) RecordBroadcast(bytes, entities int) {
	if bytes > 0 {
		t.bytesSent.Add(uint64(bytes))
	}
	if entities > 0 {
		t.entitiesSent.Add(uint64(entities))
	}
}

func (t *telemetryCounters) RecordTickDuration(d time.Duration) {
	t.tickDurationMillis.Store(d.Milliseconds())
}

func (t *telemetryCounters) snapshot() telemetrySnapshot {
	return telemetrySnapshot{
		Activations:       t.activations.Load(),
		FailedActivations: t.failedActivations.Load(),
		ContainedErrors:   t.containedErrors.Load(),
		AutoReverts:       t.autoReverts.Load(),
		ManualReverts:     t.manualReverts.Load(),
		ForcedReverts:     t.forcedReverts.Load(),
		BytesSent:         t.bytesSent.Load(),
		EntitiesSent:      t.entitiesSent.Load(),
		TickDuration:      t.tickDurationMillis.Load(),
	}
}
