package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/nadzzz/signalbox/internal/nlu"
)

// maxAlternatives is how many lower-ranked distinct intents the classifier
// reports alongside the winner.
const maxAlternatives = 3

// scoredIntent is one command definition's classification score.
type scoredIntent struct {
	intent string
	score  float64
	// order is the registration index, used to break score ties.
	order int
}

// classify determines the intent of the normalized text. When a delegate
// classifier is configured it is consulted first; on delegate failure the
// rule engine takes over and a warning is recorded.
func (e *Engine) classify(ctx context.Context, p *processingContext) {
	var result *nlu.Classification

	if e.classifier != nil {
		delegated, err := await(ctx, func() (*nlu.Classification, error) {
			return e.classifier.Classify(ctx, p.normalized)
		})
		switch {
		case err != nil:
			p.addWarning("intent delegate " + e.classifier.Name() + " failed: " + err.Error())
		case delegated != nil:
			result = clampClassification(delegated)
		}
	}

	if result == nil {
		result = e.classifyRules(p)
	}

	p.intent = result.Intent
	p.alternatives = result.Alternatives
	p.raiseConfidence(result.Confidence)

	if len(result.Alternatives) > 0 && result.Alternatives[0].Confidence < 0.15 {
		p.addWarning("alternative intents scored low")
	}

	p.logger.Debug("classification complete",
		"intent", p.intent,
		"confidence", p.confidence,
		"alternatives", len(p.alternatives))
}

// classifyRules scores every registered command definition against the
// normalized text and picks the best.
//
// A definition scores weight × (matched patterns / total patterns). A pattern
// matches when all of its words occur in the text. The highest score wins;
// ties go to the definition registered first.
func (e *Engine) classifyRules(p *processingContext) *nlu.Classification {
	words := wordSet(p.normalized)

	var scored []scoredIntent
	for i, def := range e.registry.Definitions(p.req.UserID) {
		if len(def.Patterns) == 0 {
			continue
		}
		matched := 0
		for _, pattern := range def.Patterns {
			if patternMatches(words, pattern) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := clamp01(def.Weight) * float64(matched) / float64(len(def.Patterns))
		scored = append(scored, scoredIntent{intent: def.Intent, score: score, order: i})
	}

	if len(scored) == 0 {
		return &nlu.Classification{}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].order < scored[j].order
	})

	winner := scored[0]
	result := &nlu.Classification{
		Intent:     winner.intent,
		Confidence: winner.score,
	}

	seen := map[string]bool{winner.intent: true}
	for _, s := range scored[1:] {
		if seen[s.intent] {
			continue
		}
		seen[s.intent] = true
		result.Alternatives = append(result.Alternatives, nlu.Alternative{
			Intent:     s.intent,
			Confidence: s.score,
		})
		if len(result.Alternatives) == maxAlternatives {
			break
		}
	}
	return result
}

// wordSet splits normalized text into a lookup set of its words.
func wordSet(text string) map[string]bool {
	fields := strings.Fields(text)
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
}

// patternMatches reports whether every word of the pattern occurs in the
// text's word set.
func patternMatches(words map[string]bool, pattern string) bool {
	fields := strings.Fields(pattern)
	if len(fields) == 0 {
		return false
	}
	for _, f := range fields {
		if !words[f] {
			return false
		}
	}
	return true
}

// clampClassification bounds delegate-reported confidences to [0, 1].
func clampClassification(c *nlu.Classification) *nlu.Classification {
	out := &nlu.Classification{
		Intent:     c.Intent,
		Confidence: clamp01(c.Confidence),
	}
	for _, alt := range c.Alternatives {
		out.Alternatives = append(out.Alternatives, nlu.Alternative{
			Intent:     alt.Intent,
			Confidence: clamp01(alt.Confidence),
		})
	}
	return out
}

// await runs fn and waits for either its result or context cancellation.
// On cancellation the call is abandoned; fn's goroutine drains into a
// buffered channel so it never blocks.
func await[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn()
		ch <- outcome{v: v, err: err}
	}()
	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case o := <-ch:
		return o.v, o.err
	}
}
