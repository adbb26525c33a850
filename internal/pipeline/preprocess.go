package pipeline

import (
	"context"
	"strings"

	"github.com/nadzzz/signalbox/internal/dialect"
	"github.com/nadzzz/signalbox/internal/utterance"
)

// lowRecognitionConfidence is the speech-recognition certainty below which
// the preprocessor records a warning.
const lowRecognitionConfidence = 0.5

// normalizeText lowercases the transcript, strips terminal punctuation and
// collapses runs of whitespace. It is deterministic and side-effect free;
// the result cache keys on its output.
func normalizeText(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimRight(s, ".!?…")
	return strings.Join(strings.Fields(s), " ")
}

// preprocess normalizes the raw transcript and, for regional language tags,
// rewrites dialect vocabulary into the base language.
func (e *Engine) preprocess(ctx context.Context, p *processingContext) {
	p.normalized = normalizeText(p.req.Transcript)

	if p.normalized == "" {
		p.addError(utterance.StagePreprocess, "transcript is empty")
		return
	}

	if e.dialect != nil && dialect.IsRegional(p.req.Language) {
		normalized, err := e.dialect.Normalize(ctx, p.normalized, p.req.Language)
		if err != nil {
			p.addWarning("dialect normalization failed: " + err.Error())
		} else if normalized != "" {
			p.normalized = normalizeText(normalized)
		}
	}

	if rc := p.req.RecognitionConfidence; rc != nil && *rc < lowRecognitionConfidence {
		p.addWarning("low speech recognition confidence")
	}

	p.logger.Debug("preprocess complete", "normalized", p.normalized)
}
