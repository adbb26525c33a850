// Package command defines registered voice commands and the registry that
// resolves an intent to a command definition.
//
// A Definition binds language patterns and an intent to an opaque execution
// handler supplied by the host. Definitions are registered once (globally or
// per user) and never removed for the lifetime of the process.
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// Category groups commands by the kind of effect they have.
type Category string

const (
	// CategoryNavigation commands move the user around the host application.
	CategoryNavigation Category = "navigation"

	// CategoryTransaction commands mutate business state (cart, orders,
	// tables) and require an authenticated user.
	CategoryTransaction Category = "transaction"

	// CategoryInformation commands only read and present state.
	CategoryInformation Category = "information"

	// CategoryControl commands steer the assistant itself (help, cancel).
	CategoryControl Category = "control"
)

// Invocation carries the prepared parameters for one handler call.
type Invocation struct {
	// Params maps entity type names to extracted values (e.g. "product" ->
	// "pizza", "quantity" -> "2"). Missing optional entities are absent.
	Params map[string]string

	// UserID is the requesting user, empty for anonymous invocations.
	UserID string

	// SessionID is the conversation the invocation belongs to.
	SessionID string

	// Timestamp is when the pipeline prepared the invocation.
	Timestamp time.Time

	// App is the raw application context supplied with the request.
	App utterance.AppContext
}

// Outcome is what a handler returns on success.
type Outcome struct {
	// Action is the host action identifier (e.g., "add_to_cart").
	Action string

	// Data is the action payload handed back to the host.
	Data map[string]any
}

// Handler executes a matched command. Implementations are supplied by the
// host and may perform I/O; they receive the invocation context and must
// honor its deadline.
type Handler interface {
	Execute(ctx context.Context, inv Invocation) (Outcome, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, inv Invocation) (Outcome, error)

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, inv Invocation) (Outcome, error) {
	return f(ctx, inv)
}

// Definition is one registered voice command. Definitions are immutable after
// registration; the registry and pipeline only ever read them.
type Definition struct {
	// Name uniquely identifies the definition within its namespace.
	Name string

	// Patterns is the ordered list of language patterns the classifier scores
	// the utterance against. A pattern matches when all of its words occur in
	// the normalized input.
	Patterns []string

	// Intent is the abstract action this command implements (e.g. "add_item").
	Intent string

	// Category selects the execution strategy and preconditions.
	Category Category

	// Weight scales the classifier's pattern score for this definition,
	// clamped to [0, 1].
	Weight float64

	// Required lists entity types the command needs; missing ones are
	// resolved from recent conversation turns when possible.
	Required []utterance.EntityType

	// Optional lists entity types the command uses when present.
	Optional []utterance.EntityType

	// Handler is the opaque execution callback.
	Handler Handler

	// Response is the user-facing message template. Entity values are
	// substituted for {type} placeholders (e.g. "{quantity}x {product}").
	Response string

	// Suggestions are follow-up phrases offered after this command succeeds.
	Suggestions []string

	// NextActions are host action identifiers likely to follow this command.
	NextActions []string
}

// Validate reports whether the definition is registrable.
func (d *Definition) Validate() error {
	switch {
	case d.Name == "":
		return fmt.Errorf("command has no name")
	case d.Intent == "":
		return fmt.Errorf("command %q has no intent", d.Name)
	case len(d.Patterns) == 0:
		return fmt.Errorf("command %q has no patterns", d.Name)
	case d.Handler == nil:
		return fmt.Errorf("command %q has no handler", d.Name)
	}
	return nil
}

// Loader supplies per-user custom command definitions from an external store.
// The engine loads a user's custom commands once, on their first utterance.
type Loader interface {
	LoadCustom(ctx context.Context, userID string) ([]Definition, error)
}
