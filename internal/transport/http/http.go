// Package http implements the HTTP transport for signalbox.
//
// This transport exposes a small REST API: POST /v1/commands interprets an
// utterance, GET /v1/commands lists what the caller can say. It is best
// suited for web clients, phones, and services that prefer HTTP-based
// communication.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/nadzzz/signalbox/docs"
	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/transport"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// maxRequestBytes bounds an utterance request body.
const maxRequestBytes = 1 << 20

// Transport implements transport.Transport over HTTP.
type Transport struct {
	port     int
	registry *command.Registry
	server   *http.Server
}

// New creates a new HTTP transport on the given port. The registry backs
// the command listing endpoint.
func New(port int, registry *command.Registry) *Transport {
	return &Transport{port: port, registry: registry}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the handler.
func (t *Transport) Listen(ctx context.Context, handler transport.Handler) error {
	mux := http.NewServeMux()

	// POST /v1/commands — interpret one utterance.
	mux.HandleFunc("POST /v1/commands", func(w http.ResponseWriter, r *http.Request) {
		t.handleProcess(w, r, handler)
	})

	// GET /v1/commands — list the commands the caller can say.
	mux.HandleFunc("GET /v1/commands", t.handleList)

	// Swagger UI — serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handleProcess processes a POST /v1/commands request.
//
// @Summary     Interpret a voice command
// @Description Accepts a transcribed utterance with optional session, user and app context.
// @Description The utterance runs through the interpretation pipeline (normalize → classify →
// @Description extract → validate → plan → execute) and the outcome is returned to the caller.
// @Description Interpretation failures are reported inside the result, never as an HTTP error.
// @Tags        commands
// @Accept      json
// @Produce     json
// @Param       request  body      utterance.Request  true  "Utterance request"
// @Success     200  {object}  utterance.Result  "Interpretation result"
// @Failure     400  {string}  string  "Invalid request body"
// @Router      /v1/commands [post]
func (t *Transport) handleProcess(w http.ResponseWriter, r *http.Request, handler transport.Handler) {
	var req utterance.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Transcript == "" {
		http.Error(w, "transcript is required", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now().UTC()
	}

	result := handler(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

// commandView is the serializable projection of a command definition.
type commandView struct {
	Name        string   `json:"name"`
	Intent      string   `json:"intent"`
	Category    string   `json:"category"`
	Patterns    []string `json:"patterns"`
	Required    []string `json:"required,omitempty"`
	Optional    []string `json:"optional,omitempty"`
	NextActions []string `json:"next_actions,omitempty"`
}

// handleList processes a GET /v1/commands request.
//
// @Summary     List available commands
// @Description Returns the commands the caller can say: the global set plus the
// @Description requesting user's custom commands when a user query parameter is given.
// @Tags        commands
// @Produce     json
// @Param       user  query  string  false  "User whose custom commands to include"
// @Success     200  {array}  commandView  "Available commands"
// @Router      /v1/commands [get]
func (t *Transport) handleList(w http.ResponseWriter, r *http.Request) {
	defs := t.registry.Definitions(r.URL.Query().Get("user"))

	views := make([]commandView, 0, len(defs))
	for _, def := range defs {
		views = append(views, commandView{
			Name:        def.Name,
			Intent:      def.Intent,
			Category:    string(def.Category),
			Patterns:    def.Patterns,
			Required:    entityTypeNames(def.Required),
			Optional:    entityTypeNames(def.Optional),
			NextActions: def.NextActions,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(views)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func entityTypeNames(types []utterance.EntityType) []string {
	if len(types) == 0 {
		return nil
	}
	out := make([]string, len(types))
	for i, typ := range types {
		out[i] = string(typ)
	}
	return out
}
