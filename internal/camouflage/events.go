package camouflage

import "time"

// FailureReason labels a structured activation failure.
type FailureReason string

const (
	FailureNoOptions            FailureReason = "no-options"
	FailureGenerationFailed     FailureReason = "generation-failed"
	FailureTransformationFailed FailureReason = "transformation-failed"
)

// EndReason records why a transformation ended.
type EndReason string

const (
	EndReasonManual EndReason = "manual"
	EndReasonAuto   EndReason = "auto"
	EndReasonForced EndReason = "forced"
)

// StartedEvent fires when a player's transformation pipeline completes.
type StartedEvent struct {
	PlayerID string
	State    TransformationState
}

// EndedEvent fires when a transformation is reverted for any reason.
type EndedEvent struct {
	PlayerID string
	Reason   EndReason
	State    TransformationState
}

// ActivatedEvent fires when the manager records a new camouflage session.
type ActivatedEvent struct {
	Session Session
}

// DeactivatedEvent fires when a session is removed.
type DeactivatedEvent struct {
	PlayerID string
	Reason   EndReason
	At       time.Time
}

// FailedEvent fires for structured activation failures.
type FailedEvent struct {
	PlayerID string
	Reason   FailureReason
}

// ErrorEvent fires when an unexpected panic is contained at a manager
// boundary.
type ErrorEvent struct {
	PlayerID string
	Err      error
}
