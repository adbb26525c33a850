package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/nlu"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// quietLogger keeps pipeline logs out of test output.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testContext builds a processing context for single-stage tests, with the
// normalized text already set as if preprocess had run.
func testContext(req utterance.Request, normalized string) *processingContext {
	p := newProcessingContext(req, sessionKey(req), nil, quietLogger())
	p.normalized = normalized
	return p
}

// okHandler returns a handler that reports the given action and counts its
// invocations.
type okHandler struct {
	action string
	calls  atomic.Int32
}

func (h *okHandler) Execute(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
	h.calls.Add(1)
	data := make(map[string]any, len(inv.Params))
	for k, v := range inv.Params {
		data[k] = v
	}
	return command.Outcome{Action: h.action, Data: data}, nil
}

// stubClassifier is a canned nlu.Classifier.
type stubClassifier struct {
	result *nlu.Classification
	err    error
}

func (s *stubClassifier) Name() string { return "stub" }

func (s *stubClassifier) Classify(ctx context.Context, text string) (*nlu.Classification, error) {
	return s.result, s.err
}

// stubExtractor is a canned nlu.Extractor.
type stubExtractor struct {
	entities []utterance.Entity
	err      error
}

func (s *stubExtractor) Name() string { return "stub" }

func (s *stubExtractor) Extract(ctx context.Context, text string) ([]utterance.Entity, error) {
	return s.entities, s.err
}

// stubLoader is a canned command.Loader that counts its calls.
type stubLoader struct {
	mu    sync.Mutex
	calls int
	defs  []command.Definition
	err   error
}

func (l *stubLoader) LoadCustom(ctx context.Context, userID string) ([]command.Definition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.defs, nil
}

func (l *stubLoader) callCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

// newTestRegistry registers the given definitions, panicking on invalid test
// setup.
func newTestRegistry(defs ...command.Definition) *command.Registry {
	reg := command.NewRegistry()
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			panic(err)
		}
	}
	return reg
}
