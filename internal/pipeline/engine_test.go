package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/signalbox/internal/command"
	"github.com/nadzzz/signalbox/internal/dialect"
	"github.com/nadzzz/signalbox/internal/hospitality"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// newHospitalityEngine builds an engine carrying the built-in command set,
// the closest thing to the daemon's production wiring.
func newHospitalityEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	svc, err := hospitality.NewService()
	require.NoError(t, err)

	reg := command.NewRegistry()
	require.NoError(t, svc.Register(reg))

	opts.Registry = reg
	opts.Lexicons = svc.Lexicons()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	return New(opts)
}

func TestProcess_GermanOrderOnMenuPage(t *testing.T) {
	e := newHospitalityEngine(t, Options{})

	result := e.Process(context.Background(), utterance.Request{
		ID:         "r1",
		SessionID:  "s1",
		UserID:     "demo",
		Transcript: "Ich möchte zwei Pizza!",
		Language:   "de",
		App: utterance.AppContext{
			CurrentPage:         "/menu",
			AuthenticatedUserID: "demo",
		},
	})

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "r1", result.RequestID)
	assert.Equal(t, "add_item", result.Intent)
	assert.Equal(t, "add_to_cart", result.Action)
	assert.GreaterOrEqual(t, result.Confidence, 0.7)
	assert.Equal(t, "2 pizza in den Warenkorb gelegt", result.Message)
	assert.Equal(t, []string{"show_cart", "checkout"}, result.NextActions)
	assert.False(t, result.Cached)

	values := entityValues(result.Entities)
	assert.Equal(t, "2", values[utterance.EntityQuantity])
	assert.Equal(t, "pizza", values[utterance.EntityProduct])

	assert.Equal(t, "pizza", result.Data["product"])
	assert.Equal(t, 2, result.Data["quantity"])
	assert.Equal(t, 1, result.Data["cart_size"])
}

func TestProcess_SwissGermanOrderIsNormalizedFirst(t *testing.T) {
	e := newHospitalityEngine(t, Options{Dialect: dialect.SwissGerman()})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		UserID:     "demo",
		Transcript: "Ich wött zwöi Pizza",
		Language:   "de-CH",
		App:        utterance.AppContext{CurrentPage: "/menu"},
	})

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "add_item", result.Intent)
	values := entityValues(result.Entities)
	assert.Equal(t, "2", values[utterance.EntityQuantity])
	assert.Equal(t, "pizza", values[utterance.EntityProduct])
}

func TestProcess_GibberishFailsWithSuggestions(t *testing.T) {
	e := newHospitalityEngine(t, Options{})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		UserID:     "demo",
		Transcript: "xzy qqq brmpf",
		Language:   "de",
	})

	assert.False(t, result.Success)
	assert.Empty(t, result.Intent)
	assert.Less(t, result.Confidence, 0.3)
	assert.Equal(t, "Sorry, I did not understand that request", result.Message)
	assert.NotEmpty(t, result.Suggestions)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, utterance.StageValidate, result.Errors[0].Stage)
}

func TestProcess_TransactionWithoutUserIsBlocked(t *testing.T) {
	e := newHospitalityEngine(t, Options{})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		Transcript: "Ich möchte zwei Pizza",
		Language:   "de",
		App:        utterance.AppContext{CurrentPage: "/menu"},
	})

	assert.False(t, result.Success)
	assert.Equal(t, "add_item", result.Intent)
	assert.Contains(t, result.Message, "authentication required")
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, utterance.StagePlan, result.Errors[0].Stage)
}

func TestProcess_BlockedCommandNeverRunsHandler(t *testing.T) {
	handler := &okHandler{action: "counted"}
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "order",
			Intent:   "order",
			Category: command.CategoryTransaction,
			Weight:   1.0,
			Patterns: []string{"order", "order now"},
			Handler:  handler,
		}),
		Logger: quietLogger(),
	})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		Transcript: "order now",
	})

	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "authentication required")
	assert.Zero(t, handler.calls.Load(), "handler must not run for a blocked command")
}

func TestProcess_FollowUpResolvesProductFromHistory(t *testing.T) {
	e := newHospitalityEngine(t, Options{})
	ctx := context.Background()
	app := utterance.AppContext{CurrentPage: "/menu", AuthenticatedUserID: "demo"}

	first := e.Process(ctx, utterance.Request{
		ID: "r1", SessionID: "s1", UserID: "demo",
		Transcript: "Ich möchte zwei Pizza", Language: "de", App: app,
	})
	require.True(t, first.Success, "errors: %v", first.Errors)

	second := e.Process(ctx, utterance.Request{
		ID: "r2", SessionID: "s1", UserID: "demo",
		Transcript: "Gross!", Language: "de", App: app,
	})

	require.True(t, second.Success, "errors: %v", second.Errors)
	assert.Equal(t, "modify_item", second.Intent)
	assert.Equal(t, "update_cart_item", second.Action)
	assert.Equal(t, "pizza auf large geändert", second.Message)

	product, ok := firstEntity(second.Entities, utterance.EntityProduct)
	require.True(t, ok)
	assert.Equal(t, "pizza", product.Value)
	assert.True(t, product.ResolvedFromContext)
	assert.Contains(t, second.Warnings, "product resolved from conversation context")

	// A terse follow-up scores below the error threshold, but with no hard
	// errors the pipeline still runs it to completion.
	assert.Less(t, second.Confidence, e.minConfidence)
}

func TestProcess_TiePrefersMoreSpecificCommand(t *testing.T) {
	e := newHospitalityEngine(t, Options{})
	ctx := context.Background()

	first := e.Process(ctx, utterance.Request{
		ID: "r1", SessionID: "s1", UserID: "demo",
		Transcript: "Ich möchte zwei Pizza", Language: "de",
		App: utterance.AppContext{CurrentPage: "/menu"},
	})
	require.True(t, first.Success, "errors: %v", first.Errors)

	// "ich möchte bezahlen" matches both checkout and add_item patterns
	// equally; checkout must win.
	second := e.Process(ctx, utterance.Request{
		ID: "r2", SessionID: "s1", UserID: "demo",
		Transcript: "Ich möchte bezahlen", Language: "de",
		App: utterance.AppContext{CurrentPage: "/cart", CartItemCount: 1},
	})

	require.True(t, second.Success, "errors: %v", second.Errors)
	assert.Equal(t, "checkout", second.Intent)
	assert.Equal(t, "start_checkout", second.Action)
	assert.Equal(t, "CHF", second.Data["currency"])
	assert.Equal(t, 37.0, second.Data["total"])
	assert.GreaterOrEqual(t, second.Confidence, 0.7)
}

func TestProcess_NavigationWorksAnonymously(t *testing.T) {
	e := newHospitalityEngine(t, Options{})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		Transcript: "Gehe zum Menü",
		Language:   "de",
	})

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "navigate", result.Intent)
	assert.Equal(t, "navigate", result.Action)
	assert.Equal(t, "menu", result.Data["page"])
	assert.Equal(t, "Navigiere zu menu", result.Message)
}

func TestProcess_TableStatusCommand(t *testing.T) {
	e := newHospitalityEngine(t, Options{})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "service-1",
		Transcript: "Tisch 5 als besetzt markieren",
		Language:   "de",
	})

	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "set_table_status", result.Intent)
	assert.Equal(t, "set_table_status", result.Action)
	assert.Equal(t, 5, result.Data["table"])
	assert.Equal(t, "occupied", result.Data["state"])
	assert.Equal(t, "Tisch 5 ist jetzt occupied", result.Message)
}

func TestProcess_HelpSucceedsDespiteLowConfidence(t *testing.T) {
	e := newHospitalityEngine(t, Options{})
	low := 0.2

	result := e.Process(context.Background(), utterance.Request{
		SessionID:             "s1",
		Transcript:            "Hilfe!",
		Language:              "de",
		RecognitionConfidence: &low,
	})

	// One of four patterns at weight 0.8 scores well under the threshold,
	// but low confidence alone never aborts an error-free run.
	require.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, "help", result.Intent)
	assert.Equal(t, "show_help", result.Action)
	assert.Less(t, result.Confidence, e.minConfidence)
	assert.Len(t, result.Suggestions, 3)
	assert.Contains(t, result.Warnings, "low speech recognition confidence")
}

func TestProcess_OffMenuProductFailsExecution(t *testing.T) {
	e := newHospitalityEngine(t, Options{})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		UserID:     "demo",
		Transcript: "Ich möchte zwei Burger",
		Language:   "de",
		App:        utterance.AppContext{CurrentPage: "/menu"},
	})

	assert.False(t, result.Success)
	assert.Equal(t, "add_item", result.Intent)
	assert.Equal(t, "Something went wrong while running your command", result.Message)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, utterance.StageExecute, result.Errors[0].Stage)
}

func TestProcess_EmptyTranscript(t *testing.T) {
	e := New(Options{Logger: quietLogger()})

	result := e.Process(context.Background(), utterance.Request{
		SessionID:  "s1",
		Transcript: "   ",
	})

	assert.False(t, result.Success)
	assert.Equal(t, "I did not catch that, please try again", result.Message)
	require.NotEmpty(t, result.Errors)
	assert.Equal(t, utterance.StagePreprocess, result.Errors[0].Stage)
	assert.Empty(t, result.Intent)
}

func TestProcess_RepeatedRequestServedFromCache(t *testing.T) {
	handler := &okHandler{action: "counted"}
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "order",
			Intent:   "order",
			Category: command.CategoryInformation,
			Weight:   1.0,
			Patterns: []string{"order", "order now"},
			Handler:  handler,
		}),
		Logger: quietLogger(),
	})
	ctx := context.Background()

	req := utterance.Request{
		ID: "r1", SessionID: "s1", UserID: "u1",
		Transcript: "Order now!", Language: "de",
	}
	first := e.Process(ctx, req)
	require.True(t, first.Success, "errors: %v", first.Errors)
	assert.False(t, first.Cached)

	req.ID = "r2"
	second := e.Process(ctx, req)

	assert.True(t, second.Cached)
	assert.Equal(t, "r2", second.RequestID)
	assert.Equal(t, int32(1), handler.calls.Load(), "cache hit must not re-run the handler")

	diff := cmp.Diff(first, second,
		cmpopts.IgnoreFields(utterance.Result{}, "RequestID", "Cached", "ProcessingTimeMs"))
	assert.Empty(t, diff)

	// Same utterance after case and punctuation changes still hits.
	req.ID = "r3"
	req.Transcript = "  ORDER   NOW?! "
	third := e.Process(ctx, req)
	assert.True(t, third.Cached)
	assert.Equal(t, int32(1), handler.calls.Load())
}

func TestProcess_CacheDistinguishesUserAndLanguage(t *testing.T) {
	handler := &okHandler{action: "counted"}
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "order",
			Intent:   "order",
			Category: command.CategoryInformation,
			Weight:   1.0,
			Patterns: []string{"order"},
			Handler:  handler,
		}),
		Logger: quietLogger(),
	})
	ctx := context.Background()

	e.Process(ctx, utterance.Request{SessionID: "s1", UserID: "u1", Transcript: "order", Language: "de"})
	e.Process(ctx, utterance.Request{SessionID: "s1", UserID: "u2", Transcript: "order", Language: "de"})
	e.Process(ctx, utterance.Request{SessionID: "s1", UserID: "u1", Transcript: "order", Language: "en"})

	assert.Equal(t, int32(3), handler.calls.Load())
}

func TestProcess_FailuresAreNotCached(t *testing.T) {
	e := newHospitalityEngine(t, Options{})
	ctx := context.Background()
	req := utterance.Request{SessionID: "s1", Transcript: "xzy qqq", Language: "de"}

	first := e.Process(ctx, req)
	second := e.Process(ctx, req)

	assert.False(t, first.Success)
	assert.False(t, first.Cached)
	assert.False(t, second.Cached)
}

func TestProcess_CacheCanBeDisabled(t *testing.T) {
	handler := &okHandler{action: "counted"}
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "order",
			Intent:   "order",
			Category: command.CategoryInformation,
			Weight:   1.0,
			Patterns: []string{"order"},
			Handler:  handler,
		}),
		DisableCache: true,
		Logger:       quietLogger(),
	})
	ctx := context.Background()
	req := utterance.Request{SessionID: "s1", Transcript: "order"}

	first := e.Process(ctx, req)
	second := e.Process(ctx, req)

	assert.True(t, first.Success)
	assert.True(t, second.Success)
	assert.False(t, second.Cached)
	assert.Equal(t, int32(2), handler.calls.Load())
}

func TestProcess_DeadlineBoundsSlowHandlers(t *testing.T) {
	blocking := command.HandlerFunc(func(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
		<-ctx.Done()
		return command.Outcome{}, ctx.Err()
	})
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "wait",
			Intent:   "wait",
			Category: command.CategoryInformation,
			Weight:   1.0,
			Patterns: []string{"wait"},
			Handler:  blocking,
		}),
		Deadline: 30 * time.Millisecond,
		Logger:   quietLogger(),
	})

	start := time.Now()
	result := e.Process(context.Background(), utterance.Request{SessionID: "s1", Transcript: "wait"})

	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, result.Success)
	assert.Equal(t, "That took too long to process, please try again", result.Message)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0].Message, "deadline")
}

func TestProcess_SessionInvocationsAreSerialized(t *testing.T) {
	var active, overlaps atomic.Int32
	handler := command.HandlerFunc(func(ctx context.Context, inv command.Invocation) (command.Outcome, error) {
		if active.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return command.Outcome{Action: "ok"}, nil
	})
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "ping",
			Intent:   "ping",
			Category: command.CategoryInformation,
			Weight:   1.0,
			Patterns: []string{"ping"},
			Handler:  handler,
		}),
		DisableCache: true,
		Logger:       quietLogger(),
	})

	g := new(errgroup.Group)
	for i := 0; i < 4; i++ {
		g.Go(func() error {
			result := e.Process(context.Background(), utterance.Request{SessionID: "s1", Transcript: "ping"})
			if !result.Success {
				return fmt.Errorf("invocation failed: %v", result.Errors)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Zero(t, overlaps.Load(), "same-session invocations must not interleave")
}

func TestProcess_HistoryIsBounded(t *testing.T) {
	e := New(Options{
		Registry: newTestRegistry(command.Definition{
			Name:     "ping",
			Intent:   "ping",
			Category: command.CategoryInformation,
			Weight:   1.0,
			Patterns: []string{"ping"},
			Handler:  &okHandler{action: "ok"},
		}),
		HistoryCapacity: 2,
		DisableCache:    true,
		Logger:          quietLogger(),
	})
	ctx := context.Background()

	e.Process(ctx, utterance.Request{SessionID: "s1", Transcript: "ping eins"})
	e.Process(ctx, utterance.Request{SessionID: "s1", Transcript: "ping zwei"})
	e.Process(ctx, utterance.Request{SessionID: "s1", Transcript: "Ping drei!"})

	sess := e.sessions.get("s1")
	require.Len(t, sess.turns, 2)
	assert.Equal(t, "ping zwei", sess.turns[0].Input)
	// Turns record the raw transcript, not the normalized text.
	assert.Equal(t, "Ping drei!", sess.turns[1].Input)
}

func TestProcess_FailedInvocationsLeaveNoTurn(t *testing.T) {
	e := newHospitalityEngine(t, Options{})
	ctx := context.Background()

	e.Process(ctx, utterance.Request{SessionID: "s1", Transcript: "xzy qqq", Language: "de"})

	assert.Empty(t, e.sessions.get("s1").turns)
}

func TestProcess_CustomCommandsLoadOnce(t *testing.T) {
	loader := &stubLoader{defs: []command.Definition{{
		Name:     "blinds",
		Intent:   "close_blinds",
		Category: command.CategoryControl,
		Weight:   1.0,
		Patterns: []string{"storen", "storen runter"},
		Handler:  &okHandler{action: "close_blinds"},
	}}}
	e := New(Options{Loader: loader, Logger: quietLogger()})
	ctx := context.Background()

	first := e.Process(ctx, utterance.Request{ID: "r1", SessionID: "s1", UserID: "u1", Transcript: "storen runter"})
	require.True(t, first.Success, "errors: %v", first.Errors)
	assert.Equal(t, "close_blinds", first.Action)
	assert.Equal(t, 1, loader.callCount())

	second := e.Process(ctx, utterance.Request{ID: "r2", SessionID: "s1", UserID: "u1", Transcript: "storen runter"})
	assert.True(t, second.Success)
	assert.Equal(t, 1, loader.callCount(), "custom commands load once per user")
}

func TestProcess_CustomLoaderFailureRetriesNextInvocation(t *testing.T) {
	loader := &stubLoader{err: fmt.Errorf("store unavailable")}
	e := New(Options{Loader: loader, Logger: quietLogger()})
	ctx := context.Background()

	e.Process(ctx, utterance.Request{SessionID: "s1", UserID: "u1", Transcript: "hallo"})
	e.Process(ctx, utterance.Request{SessionID: "s1", UserID: "u1", Transcript: "hallo nochmal"})

	assert.Equal(t, 2, loader.callCount(), "failed loads retry on the next invocation")
}

func TestProcess_AnonymousRequestsSkipLoader(t *testing.T) {
	loader := &stubLoader{}
	e := New(Options{Loader: loader, Logger: quietLogger()})

	e.Process(context.Background(), utterance.Request{SessionID: "s1", Transcript: "hallo"})

	assert.Zero(t, loader.callCount())
}
