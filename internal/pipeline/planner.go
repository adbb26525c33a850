package pipeline

import (
	"context"
	"time"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// strategy is how a planned command should be carried out.
type strategy string

const (
	// strategyImmediate executes the command right away.
	strategyImmediate strategy = "immediate"

	// strategyConfirmed marks the command as one the client should confirm
	// with the user. Execution still happens in this invocation; the
	// strategy is advisory metadata for the caller.
	strategyConfirmed strategy = "confirmed"
)

// precondition is a check that must hold before execution. A blocking
// precondition that fails stops the command from running.
type precondition struct {
	name     string
	message  string
	blocking bool
}

// executionPlan is the planner's output: the invocation to run, how to run
// it, and what must hold first.
type executionPlan struct {
	strategy      strategy
	invocation    command.Invocation
	preconditions []precondition
}

// blocked returns the first failing blocking precondition, if any.
func (ep *executionPlan) blocked() (precondition, bool) {
	for _, pc := range ep.preconditions {
		if pc.blocking {
			return pc, true
		}
	}
	return precondition{}, false
}

// plan turns the validated command and entities into an execution plan.
// The planner computes only — it never touches external state.
func (e *Engine) plan(ctx context.Context, p *processingContext) {
	if p.def == nil {
		return
	}

	inv := command.Invocation{
		Params:    map[string]string{},
		UserID:    p.req.UserID,
		SessionID: p.sessionID,
		Timestamp: time.Now().UTC(),
		App:       p.req.App,
	}
	for _, typ := range entityParamOrder {
		if ent, ok := firstEntity(p.entities, typ); ok {
			inv.Params[string(typ)] = ent.Value
		}
	}

	ep := &executionPlan{
		invocation: inv,
		strategy:   strategyFor(p.def.Category),
	}

	if p.def.Category == command.CategoryTransaction && p.req.UserID == "" {
		ep.preconditions = append(ep.preconditions, precondition{
			name:     "authenticated",
			message:  "authentication required: please sign in before ordering",
			blocking: true,
		})
		p.addError(utterance.StagePlan, "authentication required for command "+p.def.Name)
	}

	p.plan = ep
	p.logger.Debug("planning complete",
		"command", p.def.Name,
		"strategy", string(ep.strategy),
		"params", len(inv.Params))
}

// entityParamOrder fixes which entity types become invocation parameters
// and in what precedence the first-of-type rule applies.
var entityParamOrder = []utterance.EntityType{
	utterance.EntityProduct,
	utterance.EntityQuantity,
	utterance.EntityPrice,
	utterance.EntityTable,
	utterance.EntitySize,
	utterance.EntityPage,
	utterance.EntityState,
}

// strategyFor maps a command category to its execution strategy.
// Transactions want an explicit confirmation step; everything else runs
// immediately.
func strategyFor(cat command.Category) strategy {
	if cat == command.CategoryTransaction {
		return strategyConfirmed
	}
	return strategyImmediate
}
