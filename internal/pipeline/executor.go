package pipeline

import (
	"context"
	"regexp"
	"strings"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// placeholderRe matches unresolved {param} placeholders left in a response
// template after substitution.
var placeholderRe = regexp.MustCompile(`\{[a-z_]+\}`)

// recoverySuggestions is offered whenever an invocation fails and the
// resolved command carries no suggestions of its own.
var recoverySuggestions = []string{
	"Try rephrasing your request",
	"Say 'help' to see what you can ask for",
}

// execute runs the planned command handler. A failing blocking precondition
// stops the handler from ever being invoked; a handler error becomes a stage
// error. The handler is called at most once per invocation.
func (e *Engine) execute(ctx context.Context, p *processingContext) {
	if p.def == nil || p.plan == nil {
		return
	}

	if pc, isBlocked := p.plan.blocked(); isBlocked {
		p.logger.Info("execution blocked by precondition", "command", p.def.Name, "precondition", pc.name)
		return
	}

	if p.def.Handler == nil {
		p.addError(utterance.StageExecute, "command "+p.def.Name+" has no handler")
		return
	}

	outcome, err := await(ctx, func() (command.Outcome, error) {
		return p.def.Handler.Execute(ctx, p.plan.invocation)
	})
	if err != nil {
		p.addError(utterance.StageExecute, "command handler failed: "+err.Error())
		p.logger.Error("command handler failed", "command", p.def.Name, "error", err)
		return
	}

	p.outcome = &outcome
	p.logger.Debug("execution complete", "command", p.def.Name, "action", outcome.Action)
}

// finalize shapes the invocation's state into the result returned to the
// caller. Every invocation ends here, whether it succeeded, failed a stage
// or ran out of time.
func (e *Engine) finalize(p *processingContext) *utterance.Result {
	result := &utterance.Result{
		RequestID:  p.req.ID,
		Intent:     p.intent,
		Entities:   p.entities,
		Confidence: p.confidence,
		Warnings:   p.warnings,
		Errors:     p.errors,
	}

	if p.outcome != nil && !p.failed() {
		result.Success = true
		result.Action = p.outcome.Action
		result.Data = p.outcome.Data
		result.Message = renderTemplate(p.def.Response, p.plan.invocation.Params)
		if result.Message == "" {
			result.Message = "OK"
		}
		result.Suggestions = append([]string(nil), p.def.Suggestions...)
		result.NextActions = append([]string(nil), p.def.NextActions...)
		return result
	}

	result.Success = false
	result.Message = e.failureMessage(p)
	if p.def != nil && len(p.def.Suggestions) > 0 {
		result.Suggestions = append([]string(nil), p.def.Suggestions...)
	} else {
		result.Suggestions = append([]string(nil), recoverySuggestions...)
	}
	return result
}

// failureMessage picks the user-facing message for a failed invocation.
// Diagnostic detail stays in the errors list; this is the sentence a voice
// client reads back.
func (e *Engine) failureMessage(p *processingContext) string {
	if p.plan != nil {
		if pc, isBlocked := p.plan.blocked(); isBlocked {
			return pc.message
		}
	}
	if len(p.errors) == 0 {
		return "Sorry, I could not process that request"
	}
	first := p.errors[0]
	if strings.Contains(first.Message, "deadline") {
		return "That took too long to process, please try again"
	}
	switch first.Stage {
	case utterance.StagePreprocess:
		return "I did not catch that, please try again"
	case utterance.StageExecute:
		return "Something went wrong while running your command"
	default:
		return "Sorry, I did not understand that request"
	}
}

// renderTemplate substitutes {param} placeholders in a response template
// with invocation parameters. Placeholders with no value collapse, along
// with any doubled spaces they leave behind.
func renderTemplate(template string, params map[string]string) string {
	if template == "" {
		return ""
	}
	out := template
	for key, value := range params {
		out = strings.ReplaceAll(out, "{"+key+"}", value)
	}
	out = placeholderRe.ReplaceAllString(out, "")
	return strings.Join(strings.Fields(out), " ")
}
