package pipeline

import (
	"log/slog"
	"time"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/nlu"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// processingContext is the mutable state threaded through the stages of a
// single invocation. It is created on entry, discarded on exit and never
// shared between invocations.
type processingContext struct {
	req       utterance.Request
	sessionID string
	startedAt time.Time
	logger    *slog.Logger

	// normalized is the preprocessed transcript all later stages operate on.
	normalized string

	// confidence is the running certainty in [0, 1]. The classifier raises
	// it, the context analyzer boosts it; it never silently decreases.
	confidence float64

	intent       string
	alternatives []nlu.Alternative
	entities     []utterance.Entity

	// history is a snapshot of the session's recent turns, newest first,
	// taken under the session lock before the stages run.
	history []utterance.Turn

	// def is the command resolved by the validator, nil when none matched.
	def *command.Definition

	// plan is set by the planner, nil when planning was skipped.
	plan *executionPlan

	// outcome is the handler's result, nil when the handler did not run or
	// failed.
	outcome *command.Outcome

	warnings []string
	errors   []utterance.StageError
}

func newProcessingContext(req utterance.Request, sessionID string, history []utterance.Turn, logger *slog.Logger) *processingContext {
	return &processingContext{
		req:       req,
		sessionID: sessionID,
		startedAt: time.Now(),
		logger:    logger,
		history:   history,
	}
}

// raiseConfidence sets the running confidence to v when v is higher,
// clamped to [0, 1]. Stages cannot lower confidence through this path.
func (p *processingContext) raiseConfidence(v float64) {
	if v > p.confidence {
		p.confidence = clamp01(v)
	}
}

// boostConfidence adds delta to the running confidence, clamped to [0, 1].
func (p *processingContext) boostConfidence(delta float64) {
	p.confidence = clamp01(p.confidence + delta)
}

func (p *processingContext) addWarning(msg string) {
	p.warnings = append(p.warnings, msg)
}

func (p *processingContext) addError(stage utterance.Stage, msg string) {
	p.errors = append(p.errors, utterance.StageError{Stage: stage, Message: msg})
}

// failed reports whether any stage has recorded a hard error.
func (p *processingContext) failed() bool { return len(p.errors) > 0 }

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
