// Package sqlite persists user-defined commands in a SQLite database.
//
// Stored commands carry no code: their handler emits the stored action name
// together with the invocation parameters, and the client decides what the
// action means. That keeps custom commands pure data.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/utterance"
)

const schema = `CREATE TABLE IF NOT EXISTS custom_commands (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT NOT NULL,
	name       TEXT NOT NULL,
	intent     TEXT NOT NULL,
	category   TEXT NOT NULL,
	weight     REAL NOT NULL DEFAULT 1.0,
	patterns   TEXT NOT NULL,
	required   TEXT NOT NULL DEFAULT '[]',
	optional   TEXT NOT NULL DEFAULT '[]',
	action     TEXT NOT NULL,
	response   TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	UNIQUE (user_id, name)
);`

// StoredCommand is one user-defined command row.
type StoredCommand struct {
	Name     string   `json:"name"`
	Intent   string   `json:"intent"`
	Category string   `json:"category"`
	Weight   float64  `json:"weight"`
	Patterns []string `json:"patterns"`
	Required []string `json:"required,omitempty"`
	Optional []string `json:"optional,omitempty"`

	// Action is what the emitted outcome reports to the client.
	Action string `json:"action"`

	// Response is the spoken confirmation template.
	Response string `json:"response,omitempty"`
}

// Store reads and writes custom commands. It implements command.Loader.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts a custom command for the user.
func (s *Store) Save(ctx context.Context, userID string, cmd StoredCommand) error {
	if userID == "" {
		return fmt.Errorf("custom command %q has no user", cmd.Name)
	}

	patterns, err := json.Marshal(cmd.Patterns)
	if err != nil {
		return fmt.Errorf("encoding patterns: %w", err)
	}
	required, err := json.Marshal(cmd.Required)
	if err != nil {
		return fmt.Errorf("encoding required entities: %w", err)
	}
	optional, err := json.Marshal(cmd.Optional)
	if err != nil {
		return fmt.Errorf("encoding optional entities: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO custom_commands
		(user_id, name, intent, category, weight, patterns, required, optional, action, response, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, cmd.Name, cmd.Intent, cmd.Category, cmd.Weight,
		string(patterns), string(required), string(optional),
		cmd.Action, cmd.Response, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving custom command %q: %w", cmd.Name, err)
	}
	return nil
}

// Delete removes the user's custom command by name.
func (s *Store) Delete(ctx context.Context, userID, name string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM custom_commands WHERE user_id = ? AND name = ?", userID, name)
	if err != nil {
		return fmt.Errorf("deleting custom command %q: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("custom command %q not found for user %s", name, userID)
	}
	return nil
}

// LoadCustom returns the user's stored commands as definitions, oldest
// first so registration order is stable across restarts.
func (s *Store) LoadCustom(ctx context.Context, userID string) ([]command.Definition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, intent, category, weight, patterns, required, optional, action, response
		FROM custom_commands WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying custom commands: %w", err)
	}
	defer rows.Close()

	var defs []command.Definition
	for rows.Next() {
		var cmd StoredCommand
		var patterns, required, optional string
		if err := rows.Scan(&cmd.Name, &cmd.Intent, &cmd.Category, &cmd.Weight,
			&patterns, &required, &optional, &cmd.Action, &cmd.Response); err != nil {
			return nil, fmt.Errorf("scanning custom command: %w", err)
		}
		if err := json.Unmarshal([]byte(patterns), &cmd.Patterns); err != nil {
			return nil, fmt.Errorf("decoding patterns for %q: %w", cmd.Name, err)
		}
		if err := json.Unmarshal([]byte(required), &cmd.Required); err != nil {
			return nil, fmt.Errorf("decoding required entities for %q: %w", cmd.Name, err)
		}
		if err := json.Unmarshal([]byte(optional), &cmd.Optional); err != nil {
			return nil, fmt.Errorf("decoding optional entities for %q: %w", cmd.Name, err)
		}
		defs = append(defs, toDefinition(cmd))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading custom commands: %w", err)
	}
	return defs, nil
}

// toDefinition converts a stored row into a runnable definition whose
// handler emits the stored action.
func toDefinition(cmd StoredCommand) command.Definition {
	return command.Definition{
		Name:     cmd.Name,
		Intent:   cmd.Intent,
		Category: command.Category(cmd.Category),
		Weight:   cmd.Weight,
		Patterns: cmd.Patterns,
		Required: toEntityTypes(cmd.Required),
		Optional: toEntityTypes(cmd.Optional),
		Response: cmd.Response,
		Handler:  emitHandler(cmd.Action),
	}
}

func toEntityTypes(names []string) []utterance.EntityType {
	if len(names) == 0 {
		return nil
	}
	out := make([]utterance.EntityType, len(names))
	for i, n := range names {
		out[i] = utterance.EntityType(n)
	}
	return out
}

// emitHandler returns a handler that reports the stored action and passes
// the invocation parameters through to the client.
func emitHandler(action string) command.Handler {
	return command.HandlerFunc(func(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
		data := make(map[string]any, len(inv.Params))
		for k, v := range inv.Params {
			data[k] = v
		}
		return command.Outcome{Action: action, Data: data}, nil
	})
}

var _ command.Loader = (*Store)(nil)
