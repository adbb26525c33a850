package pipeline

import (
	"context"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// historyLookback is how many recent turns the validator searches when a
// required entity is missing from the current utterance.
const historyLookback = 3

// validate resolves the classified intent to a registered command and checks
// that every required entity is present, filling gaps from recent
// conversation turns. An unresolvable intent is a hard error; a missing
// required entity is only a warning — the command handler decides whether it
// can proceed without it.
func (e *Engine) validate(ctx context.Context, p *processingContext) {
	def, ok := e.registry.FindByIntent(p.intent, p.req.UserID)
	if !ok {
		p.addError(utterance.StageValidate, "no command found for intent "+quoteIntent(p.intent))
		return
	}
	p.def = &def

	for _, required := range def.Required {
		if _, found := firstEntity(p.entities, required); found {
			continue
		}
		if ent, found := entityFromHistory(p.history, required); found {
			ent.ResolvedFromContext = true
			p.entities = append(p.entities, ent)
			p.addWarning(string(required) + " resolved from conversation context")
			continue
		}
		p.addWarning("missing required entity: " + string(required))
	}

	p.logger.Debug("validation complete", "command", def.Name, "entities", len(p.entities))
}

// entityFromHistory searches the most recent turns, newest first, for an
// entity of the given type.
func entityFromHistory(history []utterance.Turn, typ utterance.EntityType) (utterance.Entity, bool) {
	turns := history
	if len(turns) > historyLookback {
		turns = turns[:historyLookback]
	}
	for _, turn := range turns {
		if ent, ok := firstEntity(turn.Entities, typ); ok {
			return ent, true
		}
	}
	return utterance.Entity{}, false
}

// quoteIntent quotes an intent for error messages, showing empty intents
// explicitly.
func quoteIntent(intent string) string {
	return `"` + intent + `"`
}
