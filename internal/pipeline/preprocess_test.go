package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadzzz/signalbox/internal/dialect"
	"github.com/nadzzz/signalbox/internal/utterance"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Ich Möchte Pizza", want: "ich möchte pizza"},
		{name: "strips terminal punctuation", in: "zeig den warenkorb!", want: "zeig den warenkorb"},
		{name: "strips question mark", in: "was kostet das?", want: "was kostet das"},
		{name: "strips ellipsis", in: "hmm…", want: "hmm"},
		{name: "collapses whitespace", in: "  ich   möchte\tpizza  ", want: "ich möchte pizza"},
		{name: "empty input", in: "", want: ""},
		{name: "only punctuation", in: "!?", want: ""},
		{name: "keeps interior punctuation", in: "tisch nr. 5", want: "tisch nr. 5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func TestPreprocess_EmptyTranscriptIsError(t *testing.T) {
	e := New(Options{Logger: quietLogger()})
	p := testContext(utterance.Request{Transcript: "   "}, "")

	e.preprocess(context.Background(), p)

	require.Len(t, p.errors, 1)
	assert.Equal(t, utterance.StagePreprocess, p.errors[0].Stage)
	assert.True(t, p.failed())
}

func TestPreprocess_AppliesDialectForRegionalLanguage(t *testing.T) {
	e := New(Options{Dialect: dialect.SwissGerman(), Logger: quietLogger()})
	p := testContext(utterance.Request{Transcript: "Ich wött zwöi Pizza", Language: "de-CH"}, "")

	e.preprocess(context.Background(), p)

	assert.Equal(t, "ich möchte zwei pizza", p.normalized)
	assert.Empty(t, p.errors)
}

func TestPreprocess_SkipsDialectForBaseLanguage(t *testing.T) {
	e := New(Options{Dialect: dialect.SwissGerman(), Logger: quietLogger()})
	p := testContext(utterance.Request{Transcript: "ich wött pizza", Language: "de"}, "")

	e.preprocess(context.Background(), p)

	// "wött" stays untouched: plain German is not the normalizer's business.
	assert.Equal(t, "ich wött pizza", p.normalized)
}

func TestPreprocess_DialectFailureDegradesToWarning(t *testing.T) {
	failing := dialect.Func(func(ctx context.Context, text, language string) (string, error) {
		return "", fmt.Errorf("lexicon unavailable")
	})
	e := New(Options{Dialect: failing, Logger: quietLogger()})
	p := testContext(utterance.Request{Transcript: "Ich wött Pizza", Language: "gsw"}, "")

	e.preprocess(context.Background(), p)

	assert.Empty(t, p.errors)
	require.Len(t, p.warnings, 1)
	assert.Contains(t, p.warnings[0], "dialect normalization failed")
	// The plain normalization survives.
	assert.Equal(t, "ich wött pizza", p.normalized)
}

func TestPreprocess_LowRecognitionConfidenceWarns(t *testing.T) {
	low := 0.3
	e := New(Options{Logger: quietLogger()})
	p := testContext(utterance.Request{Transcript: "ich möchte pizza", RecognitionConfidence: &low}, "")

	e.preprocess(context.Background(), p)

	require.Len(t, p.warnings, 1)
	assert.Contains(t, p.warnings[0], "low speech recognition confidence")
}

func TestPreprocess_GoodRecognitionConfidenceIsSilent(t *testing.T) {
	high := 0.9
	e := New(Options{Logger: quietLogger()})
	p := testContext(utterance.Request{Transcript: "ich möchte pizza", RecognitionConfidence: &high}, "")

	e.preprocess(context.Background(), p)

	assert.Empty(t, p.warnings)
}
