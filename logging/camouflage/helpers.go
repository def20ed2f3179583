package camouflage

import (
	"context"

	"hide-and-seek/server/logging"
)

const (
	// EventActivated is emitted when a camouflage session is recorded.
	EventActivated logging.EventType = "camouflage.activated"
	// EventDeactivated is emitted when a session is removed.
	EventDeactivated logging.EventType = "camouflage.deactivated"
	// EventFailed is emitted for structured activation failures.
	EventFailed logging.EventType = "camouflage.failed"
	// EventError is emitted when a panic is contained at a manager boundary.
	EventError logging.EventType = "camouflage.error"
	// EventTransformStarted is emitted when a transform pipeline completes.
	EventTransformStarted logging.EventType = "camouflage.transform_started"
	// EventTransformEnded is emitted when a transformation reverts.
	EventTransformEnded logging.EventType = "camouflage.transform_ended"
)

// ActivatedPayload captures the disguise a player activated.
type ActivatedPayload struct {
	ObjectType    string  `json:"objectType"`
	Believability float64 `json:"believability"`
	DurationMs    int64   `json:"durationMs"`
	FromCache     bool    `json:"fromCache,omitempty"`
}

// Activated publishes a session activation event.
func Activated(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload ActivatedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventActivated,
		Tick:     tick,
		Actor:    player,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// DeactivatedPayload records why a session ended.
type DeactivatedPayload struct {
	Reason string `json:"reason"`
}

// Deactivated publishes a session removal event.
func Deactivated(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload DeactivatedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventDeactivated,
		Tick:     tick,
		Actor:    player,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// FailedPayload names the structured failure reason.
type FailedPayload struct {
	Reason string `json:"reason"`
}

// Failed publishes a structured activation failure.
func Failed(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload FailedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventFailed,
		Tick:     tick,
		Actor:    player,
		Severity: logging.SeverityWarn,
		Payload:  payload,
	})
}

// ErrorPayload carries a contained panic or pipeline error.
type ErrorPayload struct {
	Error string `json:"error"`
}

// ActivationError publishes a contained unexpected failure.
func ActivationError(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload ErrorPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventError,
		Tick:     tick,
		Actor:    player,
		Severity: logging.SeverityError,
		Payload:  payload,
	})
}

// TransformPayload describes a transform or revert transition.
type TransformPayload struct {
	ObjectType string `json:"objectType,omitempty"`
	Reason     string `json:"reason,omitempty"`
	DurationMs int64  `json:"durationMs,omitempty"`
}

// TransformStarted publishes a completed transform pipeline.
func TransformStarted(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload TransformPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventTransformStarted,
		Tick:     tick,
		Actor:    player,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

// TransformEnded publishes a completed revert.
func TransformEnded(ctx context.Context, pub logging.Publisher, tick uint64, player logging.EntityRef, payload TransformPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventTransformEnded,
		Tick:     tick,
		Actor:    player,
		Severity: logging.SeverityInfo,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	event.Category = logging.CategoryCamouflage
	pub.Publish(ctx, event)
}
