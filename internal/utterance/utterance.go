// Package utterance defines the core data types flowing through the signalbox
// pipeline: the incoming utterance request, the typed entities extracted from
// it, the conversation turns kept per session, and the result returned to the
// host application.
package utterance

import (
	"strconv"
	"time"
)

// EntityType classifies an extracted value.
type EntityType string

const (
	// EntityProduct is a menu item or product name (e.g., "pizza").
	EntityProduct EntityType = "product"

	// EntityQuantity is a count of items; always a positive integer.
	EntityQuantity EntityType = "quantity"

	// EntityPrice is a monetary amount; always non-negative.
	EntityPrice EntityType = "price"

	// EntityTable is a table number in the range [1, 100].
	EntityTable EntityType = "table"

	// EntitySize is a portion or item size (small/medium/large).
	EntitySize EntityType = "size"

	// EntityPage is a navigation target within the host application.
	EntityPage EntityType = "page"

	// EntityState is a status value (e.g., "free", "occupied", "reserved").
	EntityState EntityType = "state"
)

// Span is a half-open character range [Start, End) in the normalized input.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Entity is a typed, positioned value extracted from an utterance.
type Entity struct {
	// Type classifies the entity (product, quantity, ...).
	Type EntityType `json:"type"`

	// Value is the raw extracted value, normalized (e.g., "2", "pizza").
	Value string `json:"value"`

	// Span locates the entity in the normalized input text.
	Span Span `json:"span"`

	// Confidence is the extraction certainty in [0, 1].
	Confidence float64 `json:"confidence"`

	// ResolvedFromContext is true when the entity was not present in the
	// current utterance but was carried over from a recent conversation turn.
	ResolvedFromContext bool `json:"resolved_from_context,omitempty"`
}

// Int returns the entity value as an integer.
func (e Entity) Int() (int, bool) {
	n, err := strconv.Atoi(e.Value)
	return n, err == nil
}

// Float returns the entity value as a float.
func (e Entity) Float() (float64, bool) {
	f, err := strconv.ParseFloat(e.Value, 64)
	return f, err == nil
}

// AppContext is the host application state supplied with every request. The
// pipeline reads it for context-based confidence boosts and execution
// parameters; it never mutates it.
type AppContext struct {
	// CurrentPage is the host view the user is on (e.g., "/menu", "checkout").
	CurrentPage string `json:"current_page,omitempty"`

	// CartItemCount is the number of items currently in the cart.
	CartItemCount int `json:"cart_item_count,omitempty"`

	// AuthenticatedUserID identifies the signed-in user, empty if anonymous.
	AuthenticatedUserID string `json:"authenticated_user_id,omitempty"`

	// Locale is the host UI locale (e.g., "de-CH").
	Locale string `json:"locale,omitempty"`

	// Extra carries host-specific values passed through to command handlers.
	Extra map[string]any `json:"extra,omitempty"`
}

// Request is one transcribed utterance to interpret.
type Request struct {
	// ID is a unique identifier for this request (UUID). Transports assign
	// one at ingress when the caller did not.
	ID string `json:"id,omitempty"`

	// SessionID groups requests into one conversation. Requests sharing a
	// session are processed strictly one at a time.
	SessionID string `json:"session_id,omitempty"`

	// UserID identifies the requesting user; empty for anonymous use.
	UserID string `json:"user_id,omitempty"`

	// Transcript is the raw text from the speech recognizer.
	Transcript string `json:"transcript"`

	// RecognitionConfidence is the recognizer's own certainty in [0, 1].
	// Nil when the recognizer did not report one.
	RecognitionConfidence *float64 `json:"recognition_confidence,omitempty"`

	// Language is the BCP 47 tag of the transcript (e.g., "de-CH", "en").
	Language string `json:"language,omitempty"`

	// App is the host application state at the time of the utterance.
	App AppContext `json:"app_context"`

	// Timestamp is when the utterance was received.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Stage names one step of the interpretation pipeline.
type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageClassify   Stage = "classify"
	StageExtract    Stage = "extract"
	StageContext    Stage = "context"
	StageValidate   Stage = "validate"
	StagePlan       Stage = "plan"
	StageExecute    Stage = "execute"
)

// StageError is a structured, non-panicking pipeline error. The pipeline
// records these on the result instead of propagating Go errors to the caller.
type StageError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e StageError) Error() string {
	return string(e.Stage) + ": " + e.Message
}

// Turn is an immutable snapshot of one processed utterance, kept in a bounded
// per-session history and consulted when later utterances omit entities.
type Turn struct {
	// ID is the request ID the turn was produced from.
	ID string `json:"id,omitempty"`

	// Timestamp is when the turn completed.
	Timestamp time.Time `json:"timestamp"`

	// Input is the original (raw) utterance text.
	Input string `json:"input"`

	// Intent is the resolved intent, empty if none was found.
	Intent string `json:"intent,omitempty"`

	// Entities are the entities attached to the matched command.
	Entities []Entity `json:"entities,omitempty"`

	// Confidence is the final confidence of the invocation.
	Confidence float64 `json:"confidence"`

	// Summary is a short description of the outcome (the user-facing message).
	Summary string `json:"summary,omitempty"`
}

// Result is the outcome of interpreting one utterance. Every pipeline
// invocation produces exactly one Result; failures are expressed through
// Success=false plus Errors and Suggestions, never through a Go error.
type Result struct {
	// RequestID is the originating request's ID.
	RequestID string `json:"request_id,omitempty"`

	// Success reports whether a command was matched and executed.
	Success bool `json:"success"`

	// Action is the host action identifier produced by the command handler
	// (e.g., "add_to_cart").
	Action string `json:"action,omitempty"`

	// Data is the handler's action payload.
	Data map[string]any `json:"data,omitempty"`

	// Message is the user-facing response text.
	Message string `json:"message"`

	// Confidence is the final interpretation confidence in [0, 1].
	Confidence float64 `json:"confidence"`

	// Intent is the resolved intent identifier, empty if none.
	Intent string `json:"intent,omitempty"`

	// Entities are the typed values the command was executed with.
	Entities []Entity `json:"entities,omitempty"`

	// Warnings lists recoverable oddities (missing entity, dialect fallback).
	Warnings []string `json:"warnings,omitempty"`

	// Errors lists the structured stage errors that occurred.
	Errors []StageError `json:"errors,omitempty"`

	// Suggestions are recovery hints for the user; always non-empty on failure.
	Suggestions []string `json:"suggestions,omitempty"`

	// NextActions are follow-up commands the user might say next.
	NextActions []string `json:"next_actions,omitempty"`

	// ProcessingTimeMs is the wall-clock interpretation time.
	ProcessingTimeMs int64 `json:"processing_time_ms"`

	// Cached is true when the result was served from the utterance cache
	// without re-running the pipeline.
	Cached bool `json:"cached"`
}

// Clone returns a deep copy of the result. Cached results are cloned on both
// store and load so a caller mutating a Result can never corrupt the cache.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	if r.Data != nil {
		out.Data = make(map[string]any, len(r.Data))
		for k, v := range r.Data {
			out.Data[k] = v
		}
	}
	out.Entities = append([]Entity(nil), r.Entities...)
	out.Warnings = append([]string(nil), r.Warnings...)
	out.Errors = append([]StageError(nil), r.Errors...)
	out.Suggestions = append([]string(nil), r.Suggestions...)
	out.NextActions = append([]string(nil), r.NextActions...)
	return &out
}
