package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/utterance"
)

var noop = command.HandlerFunc(func(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	return command.Outcome{Action: "noop"}, nil
})

func echoHandler(captured *utterance.Request) func(ctx context.Context, req utterance.Request) *utterance.Result {
	return func(ctx context.Context, req utterance.Request) *utterance.Result {
		if captured != nil {
			*captured = req
		}
		return &utterance.Result{
			RequestID: req.ID,
			Success:   true,
			Intent:    "add_item",
			Message:   "ok",
		}
	}
}

func TestHandleProcess(t *testing.T) {
	tr := New(0, command.NewRegistry())

	t.Run("interprets and fills defaults", func(t *testing.T) {
		var captured utterance.Request
		body := `{"transcript": "Ich möchte zwei Pizza", "session_id": "s1", "user_id": "demo", "language": "de"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(body))
		rec := httptest.NewRecorder()

		tr.handleProcess(rec, req, echoHandler(&captured))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var result utterance.Result
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
		assert.True(t, result.Success)
		assert.Equal(t, "add_item", result.Intent)

		assert.Equal(t, "Ich möchte zwei Pizza", captured.Transcript)
		assert.Equal(t, "s1", captured.SessionID)
		assert.NotEmpty(t, captured.ID, "an ID is assigned at ingress")
		assert.False(t, captured.Timestamp.IsZero())
	})

	t.Run("keeps caller-supplied id and timestamp", func(t *testing.T) {
		var captured utterance.Request
		body := `{"id": "req-7", "transcript": "hallo", "timestamp": "2026-08-21T10:00:00Z"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(body))

		tr.handleProcess(httptest.NewRecorder(), req, echoHandler(&captured))

		assert.Equal(t, "req-7", captured.ID)
		assert.Equal(t, time.Date(2026, 8, 21, 10, 0, 0, 0, time.UTC), captured.Timestamp)
	})

	t.Run("rejects a missing transcript", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(`{"session_id": "s1"}`))
		rec := httptest.NewRecorder()

		tr.handleProcess(rec, req, echoHandler(nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "transcript is required")
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/commands", strings.NewReader(`{"transcript": `))
		rec := httptest.NewRecorder()

		tr.handleProcess(rec, req, echoHandler(nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid json")
	})
}

func TestHandleList(t *testing.T) {
	reg := command.NewRegistry()
	require.NoError(t, reg.Register(command.Definition{
		Name:        "add_item",
		Intent:      "add_item",
		Category:    command.CategoryTransaction,
		Weight:      1.0,
		Patterns:    []string{"möchte", "want"},
		Required:    []utterance.EntityType{utterance.EntityProduct},
		Optional:    []utterance.EntityType{utterance.EntityQuantity},
		NextActions: []string{"show_cart"},
		Handler:     noop,
	}))
	require.NoError(t, reg.RegisterCustom("u1", command.Definition{
		Name:     "blinds",
		Intent:   "close_blinds",
		Category: command.CategoryControl,
		Weight:   1.0,
		Patterns: []string{"storen"},
		Handler:  noop,
	}))
	tr := New(0, reg)

	t.Run("lists global commands", func(t *testing.T) {
		rec := httptest.NewRecorder()
		tr.handleList(rec, httptest.NewRequest(http.MethodGet, "/v1/commands", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var views []commandView
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
		require.Len(t, views, 1)
		assert.Equal(t, "add_item", views[0].Name)
		assert.Equal(t, "transaction", views[0].Category)
		assert.Equal(t, []string{"möchte", "want"}, views[0].Patterns)
		assert.Equal(t, []string{"product"}, views[0].Required)
		assert.Equal(t, []string{"quantity"}, views[0].Optional)
		assert.Equal(t, []string{"show_cart"}, views[0].NextActions)
	})

	t.Run("includes the user's custom commands", func(t *testing.T) {
		rec := httptest.NewRecorder()
		tr.handleList(rec, httptest.NewRequest(http.MethodGet, "/v1/commands?user=u1", nil))

		var views []commandView
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&views))
		require.Len(t, views, 2)
		assert.Equal(t, "blinds", views[0].Name, "custom commands come first")
		assert.Equal(t, "add_item", views[1].Name)
	})
}

func TestTransport_Name(t *testing.T) {
	assert.Equal(t, "http", New(0, command.NewRegistry()).Name())
}

func TestTransport_CloseBeforeListen(t *testing.T) {
	assert.NoError(t, New(0, command.NewRegistry()).Close())
}
