// Package dialect normalizes regional dialect forms into standard language
// before classification.
//
// The pipeline treats the normalizer as an external collaborator: any
// implementation can be injected, and a failing normalizer degrades to the
// plain case/punctuation-normalized text instead of aborting the
// interpretation. Signalbox ships a lexicon-based Swiss German normalizer as
// the default; its coverage is deliberately partial.
package dialect

import (
	"context"
	"strings"
)

// Normalizer rewrites dialect forms in text to their standard-language
// equivalents. Language is the BCP 47 tag of the utterance.
type Normalizer interface {
	// Name returns the normalizer identifier (e.g., "swiss-german").
	Name() string

	// Normalize rewrites the text. It returns the input unchanged when the
	// language is not one it handles.
	Normalize(ctx context.Context, text, language string) (string, error)
}

// Func adapts a plain function to the Normalizer interface.
type Func func(ctx context.Context, text, language string) (string, error)

// Name returns the generic identifier for function-backed normalizers.
func (Func) Name() string { return "func" }

// Normalize calls f.
func (f Func) Normalize(ctx context.Context, text, language string) (string, error) {
	return f(ctx, text, language)
}

// IsRegional reports whether the language tag names a regional dialect the
// default normalizer should run for. Swiss German arrives either as the
// regional German tag ("de-CH") or as its own language code ("gsw").
func IsRegional(language string) bool {
	lang := strings.ToLower(language)
	return lang == "de-ch" || lang == "gsw" || strings.HasPrefix(lang, "gsw-")
}

// swissGerman maps common Swiss German word forms to standard German. The
// table is word-level: multiword forms are keyed by their joined spelling
// after whitespace collapsing.
var swissGerman = map[string]string{
	// verbs / phrases
	"wött":   "möchte",
	"wöt":    "möchte",
	"möcht":  "möchte",
	"hätt":   "hätte",
	"gärn":   "gerne",
	"bitzli": "bisschen",
	"öppis":  "etwas",
	"nöd":    "nicht",
	"nid":    "nicht",
	"gaht":   "geht",
	"zeig":   "zeige",

	// numbers
	"eis":   "eins",
	"zwöi":  "zwei",
	"zwoi":  "zwei",
	"drü":   "drei",
	"föif":  "fünf",
	"füf":   "fünf",
	"sächs": "sechs",
	"sibe":  "sieben",
	"nün":   "neun",
	"zäh":   "zehn",

	// sizes
	"chli":  "klein",
	"chlii": "klein",
	"groß":  "gross",

	// courtesy
	"grüezi": "hallo",
	"merci":  "danke",

	// food
	"zmorge": "frühstück",
	"zmittag": "mittagessen",
	"znacht": "abendessen",
	"poulet": "hähnchen",
}

type swissNormalizer struct{}

// SwissGerman returns the default lexicon-based Swiss German normalizer.
func SwissGerman() Normalizer { return swissNormalizer{} }

func (swissNormalizer) Name() string { return "swiss-german" }

func (swissNormalizer) Normalize(_ context.Context, text, language string) (string, error) {
	if !IsRegional(language) {
		return text, nil
	}
	words := strings.Fields(text)
	for i, w := range words {
		if std, ok := swissGerman[w]; ok {
			words[i] = std
		}
	}
	return strings.Join(words, " "), nil
}
