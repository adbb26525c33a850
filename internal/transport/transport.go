// Package transport defines the interface for pluggable request transports.
//
// Each transport (gRPC, HTTP, MQTT) implements this interface and feeds
// requests into the interpretation engine. The engine doesn't care how an
// utterance arrives — it only works with the Transport contract, and the
// result always goes back to the sender over the transport it came in on.
package transport

import (
	"context"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// Handler processes one utterance request and always produces a result.
// Interpretation failures are reported inside the result, never as an error.
// The engine provides this handler to each transport.
type Handler func(ctx context.Context, req utterance.Request) *utterance.Result

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting incoming requests and dispatches them to the
	// handler. It blocks until the context is cancelled.
	Listen(ctx context.Context, handler Handler) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
