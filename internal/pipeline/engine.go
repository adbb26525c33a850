// Package pipeline implements the staged interpretation engine.
//
// An utterance flows through preprocess → classify → extract → context →
// validate → plan → execute. Stages communicate through a per-invocation
// processing context; hard errors combined with low confidence end the run
// early, and every run returns a result rather than an error — the caller
// always gets something to show the user.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/dialect"
	"github.com/nadzzz/signalbox/internal/nlu"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// Defaults applied by New when the corresponding option is zero.
const (
	DefaultMinConfidence   = 0.4
	DefaultDeadline        = 5 * time.Second
	DefaultHistoryCapacity = 50
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheCapacity   = 100
)

// Options configures an Engine. The zero value gives a rule-only engine
// with caching and context analysis enabled.
type Options struct {
	// Registry holds the commands the engine can resolve. New creates an
	// empty one when nil.
	Registry *command.Registry

	// Classifier is an optional intent delegate tried before the rule
	// engine.
	Classifier nlu.Classifier

	// Extractor is an optional entity delegate tried before the rule
	// engine.
	Extractor nlu.Extractor

	// Dialect rewrites regional vocabulary during preprocessing.
	Dialect dialect.Normalizer

	// Loader supplies per-user custom commands, fetched once per user on
	// their first invocation.
	Loader command.Loader

	// Lexicons extends the extraction vocabulary, keyed by entity type.
	// Hosts typically register their product catalog here.
	Lexicons map[utterance.EntityType]map[string]string

	// MinConfidence is the threshold below which an errored invocation
	// stops early.
	MinConfidence float64

	// Deadline bounds one invocation end to end.
	Deadline time.Duration

	// HistoryCapacity bounds the per-session turn history.
	HistoryCapacity int

	// DisableCache turns off result caching.
	DisableCache bool

	// CacheTTL is how long a cached result stays valid.
	CacheTTL time.Duration

	// CacheCapacity bounds the number of cached results.
	CacheCapacity int

	// DisableContextBoost turns off the context analysis stage.
	DisableContextBoost bool

	// Logger receives structured pipeline logs. Defaults to slog.Default().
	Logger *slog.Logger
}

// Engine is the interpretation pipeline. One Engine serves all sessions;
// invocations within a session are serialized, across sessions they run
// concurrently.
type Engine struct {
	registry      *command.Registry
	classifier    nlu.Classifier
	extractor     nlu.Extractor
	dialect       dialect.Normalizer
	loader        command.Loader
	rules         *extractorRules
	minConfidence float64
	deadline      time.Duration
	historyCap    int
	contextBoost  bool
	cache         *resultCache // nil when caching is disabled
	sessions      *sessionStore
	logger        *slog.Logger
}

// New creates an Engine, filling unset options with defaults.
func New(opts Options) *Engine {
	registry := opts.Registry
	if registry == nil {
		registry = command.NewRegistry()
	}
	minConfidence := opts.MinConfidence
	if minConfidence <= 0 {
		minConfidence = DefaultMinConfidence
	}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	historyCap := opts.HistoryCapacity
	if historyCap <= 0 {
		historyCap = DefaultHistoryCapacity
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var cache *resultCache
	if !opts.DisableCache {
		ttl := opts.CacheTTL
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		capacity := opts.CacheCapacity
		if capacity <= 0 {
			capacity = DefaultCacheCapacity
		}
		cache = newResultCache(ttl, capacity)
	}

	return &Engine{
		registry:      registry,
		classifier:    opts.Classifier,
		extractor:     opts.Extractor,
		dialect:       opts.Dialect,
		loader:        opts.Loader,
		rules:         newExtractorRules(opts.Lexicons),
		minConfidence: minConfidence,
		deadline:      deadline,
		historyCap:    historyCap,
		contextBoost:  !opts.DisableContextBoost,
		cache:         cache,
		sessions:      newSessionStore(),
		logger:        logger,
	}
}

// Registry returns the engine's command registry.
func (e *Engine) Registry() *command.Registry { return e.registry }

// stage pairs a pipeline stage's name with its implementation.
type stage struct {
	name utterance.Stage
	run  func(context.Context, *processingContext)
}

// Process interprets one utterance and always returns a result; failures
// are reported inside it, never as a Go error. Invocations sharing a
// session run strictly one at a time.
func (e *Engine) Process(ctx context.Context, req utterance.Request) *utterance.Result {
	start := time.Now()
	sessionID := sessionKey(req)
	logger := e.logger.With("request_id", req.ID, "session", sessionID)
	logger.Info("invocation started", "language", req.Language, "user", req.UserID)

	sess := e.sessions.get(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	e.loadCustomCommands(ctx, req.UserID, logger)

	key := cacheKey(normalizeText(req.Transcript), req.UserID, req.Language)
	if e.cache != nil {
		if cached, ok := e.cache.get(key, start); ok {
			cached.RequestID = req.ID
			cached.Cached = true
			cached.ProcessingTimeMs = time.Since(start).Milliseconds()
			logger.Info("cache hit", "intent", cached.Intent)
			return cached
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.deadline)
	defer cancel()

	p := newProcessingContext(req, sessionID, sess.recent(historyLookback), logger)

	stages := []stage{
		{utterance.StagePreprocess, e.preprocess},
		{utterance.StageClassify, e.classify},
		{utterance.StageExtract, e.extract},
		{utterance.StageContext, e.analyzeContext},
		{utterance.StageValidate, e.validate},
		{utterance.StagePlan, e.plan},
		{utterance.StageExecute, e.execute},
	}

	for _, st := range stages {
		if ctx.Err() != nil {
			p.addError(st.name, "processing deadline exceeded")
			logger.Warn("deadline exceeded", "stage", string(st.name))
			break
		}
		st.run(ctx, p)
		if p.failed() && p.confidence < e.minConfidence {
			logger.Debug("early exit",
				"stage", string(st.name),
				"confidence", p.confidence,
				"errors", len(p.errors))
			break
		}
	}

	result := e.finalize(p)
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	if result.Success {
		sess.appendTurn(utterance.Turn{
			ID:         req.ID,
			Timestamp:  start,
			Input:      req.Transcript,
			Intent:     p.intent,
			Entities:   p.entities,
			Confidence: result.Confidence,
			Summary:    result.Message,
		}, e.historyCap)

		if e.cache != nil {
			e.cache.put(key, result, time.Now())
		}
	}

	logger.Info("invocation complete",
		"success", result.Success,
		"intent", result.Intent,
		"confidence", result.Confidence,
		"duration", time.Since(start))
	return result
}

// loadCustomCommands fetches the user's stored commands on their first
// invocation. Load failures are logged and retried on the next invocation;
// they never fail the current one.
func (e *Engine) loadCustomCommands(ctx context.Context, userID string, logger *slog.Logger) {
	if e.loader == nil || userID == "" || e.registry.HasCustom(userID) {
		return
	}

	defs, err := e.loader.LoadCustom(ctx, userID)
	if err != nil {
		logger.Warn("loading custom commands failed", "user", userID, "error", err)
		return
	}
	for _, def := range defs {
		if err := e.registry.RegisterCustom(userID, def); err != nil {
			logger.Warn("skipping custom command", "command", def.Name, "error", err)
		}
	}
	e.registry.MarkCustomLoaded(userID)
	logger.Debug("custom commands loaded", "user", userID, "count", len(defs))
}
