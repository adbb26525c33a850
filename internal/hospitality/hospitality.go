// Package hospitality ships the built-in command set for a voice-controlled
// ordering and table-service app: cart manipulation, checkout, navigation
// and table management, with German and English trigger phrases.
//
// The handlers keep their state in memory, scoped per session. A host that
// owns a real cart replaces them by registering its own definitions.
package hospitality

import (
	"fmt"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// Service implements the built-in command handlers over an in-memory cart
// and table board.
type Service struct {
	catalog *Catalog
	state   *state
}

// NewService creates the built-in handler service from the embedded catalog.
func NewService() (*Service, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}
	return &Service{catalog: catalog, state: newState()}, nil
}

// Catalog returns the menu the service sells from.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Lexicons returns the extraction vocabulary contributed by the menu.
func (s *Service) Lexicons() map[utterance.EntityType]map[string]string {
	return map[utterance.EntityType]map[string]string{
		utterance.EntityProduct: s.catalog.Lexicon(),
	}
}

// Definitions returns the built-in command set in registration order.
//
// Order matters twice: classification ties go to the earlier definition, so
// specific commands (checkout, remove_item) precede add_item, whose trigger
// words ("möchte", "want") appear in almost any ordering sentence.
func (s *Service) Definitions() []command.Definition {
	return []command.Definition{
		{
			Name:     "navigate",
			Intent:   "navigate",
			Category: command.CategoryNavigation,
			Weight:   1.0,
			Patterns: []string{"gehe", "gehe zum", "go", "go to"},
			Required: []utterance.EntityType{utterance.EntityPage},
			Handler:  command.HandlerFunc(s.navigate),
			Response: "Navigiere zu {page}",
		},
		{
			Name:     "set_table_status",
			Intent:   "set_table_status",
			Category: command.CategoryControl,
			Weight:   1.0,
			Patterns: []string{"tisch", "tisch als", "table", "mark table"},
			Required: []utterance.EntityType{utterance.EntityTable, utterance.EntityState},
			Handler:  command.HandlerFunc(s.setTableStatus),
			Response: "Tisch {table} ist jetzt {state}",
		},
		{
			Name:        "checkout",
			Intent:      "checkout",
			Category:    command.CategoryTransaction,
			Weight:      1.0,
			Patterns:    []string{"bezahlen", "möchte bezahlen", "pay", "to pay"},
			Handler:     command.HandlerFunc(s.checkout),
			Response:    "Alles klar, weiter zur Kasse",
			NextActions: []string{"navigate"},
		},
		{
			Name:     "remove_item",
			Intent:   "remove_item",
			Category: command.CategoryTransaction,
			Weight:   1.0,
			Patterns: []string{"entfernen", "möchte entfernen", "entferne", "remove"},
			Required: []utterance.EntityType{utterance.EntityProduct},
			Handler:  command.HandlerFunc(s.removeItem),
			Response: "{product} aus dem Warenkorb entfernt",
		},
		{
			Name:     "modify_item",
			Intent:   "modify_item",
			Category: command.CategoryTransaction,
			Weight:   1.0,
			Patterns: []string{"gross", "klein", "ändere", "change"},
			Required: []utterance.EntityType{utterance.EntityProduct, utterance.EntitySize},
			Handler:  command.HandlerFunc(s.modifyItem),
			Response: "{product} auf {size} geändert",
		},
		{
			Name:        "show_cart",
			Intent:      "show_cart",
			Category:    command.CategoryInformation,
			Weight:      1.0,
			Patterns:    []string{"warenkorb", "zeig warenkorb", "cart", "show cart"},
			Handler:     command.HandlerFunc(s.showCart),
			Response:    "Hier ist dein Warenkorb",
			NextActions: []string{"checkout", "add_item"},
		},
		{
			Name:        "help",
			Intent:      "help",
			Category:    command.CategoryInformation,
			Weight:      0.8,
			Patterns:    []string{"hilfe", "hilf mir", "help", "help me"},
			Handler:     command.HandlerFunc(s.help),
			Response:    "Das kannst du sagen",
			Suggestions: []string{"Ich möchte eine Pizza", "Zeig mir den Warenkorb", "Ich möchte bezahlen"},
		},
		{
			Name:        "add_item",
			Intent:      "add_item",
			Category:    command.CategoryTransaction,
			Weight:      1.0,
			Patterns:    []string{"möchte", "ich möchte", "want", "i want"},
			Required:    []utterance.EntityType{utterance.EntityProduct},
			Optional:    []utterance.EntityType{utterance.EntityQuantity, utterance.EntitySize},
			Handler:     command.HandlerFunc(s.addItem),
			Response:    "{quantity} {product} in den Warenkorb gelegt",
			NextActions: []string{"show_cart", "checkout"},
		},
	}
}

// Register adds the built-in command set to the registry.
func (s *Service) Register(reg *command.Registry) error {
	for _, def := range s.Definitions() {
		if err := reg.Register(def); err != nil {
			return fmt.Errorf("registering %s: %w", def.Name, err)
		}
	}
	return nil
}
