package pipeline

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/nadzzz/signalbox/internal/utterance"
)

// Entity confidence assigned by the rule engine. Regex hits are surer than
// bare lexicon words.
const (
	regexEntityConfidence   = 0.95
	lexiconEntityConfidence = 0.85
)

// lexicon maps surface forms to canonical entity values.
type lexicon map[string]string

// regexRule extracts one entity type via a compiled pattern. The first
// capture group is the value; canon, when set, rewrites it into canonical
// form (or rejects the candidate by returning "").
type regexRule struct {
	typ   utterance.EntityType
	re    *regexp.Regexp
	canon func(string) string
}

// lexiconRule extracts one entity type by exact word lookup.
type lexiconRule struct {
	typ     utterance.EntityType
	entries lexicon
}

// extractorRules is the ordered rule set the extractor applies. Earlier
// rules claim their spans; later rules skip claimed text, so "tisch 5"
// yields a table entity but no stray quantity.
type extractorRules struct {
	patterns []regexRule
	lexicons []lexiconRule
}

var (
	priceRe     = regexp.MustCompile(`([0-9]+(?:[.,][0-9]{1,2})?)\s*(?:franken|stutz|chf|fr\.?|euro|eur|€)`)
	tableRe     = regexp.MustCompile(`(?:tisch|table)\s+(?:nummer\s+|number\s+)?([0-9]+)`)
	tableWordRe = regexp.MustCompile(`(?:tisch|table)\s+(?:nummer\s+|number\s+)?([\p{L}]+)`)
	quantityRe  = regexp.MustCompile(`[0-9]+`)
	tokenRe     = regexp.MustCompile(`[\p{L}0-9]+`)
)

// numberWords maps German and English number words to digits. Swiss German
// variants are rewritten to standard German upstream by the dialect
// normalizer, so they do not appear here.
var numberWords = lexicon{
	"ein": "1", "eine": "1", "einen": "1", "eins": "1",
	"zwei": "2", "drei": "3", "vier": "4", "fünf": "5",
	"sechs": "6", "sieben": "7", "acht": "8", "neun": "9",
	"zehn": "10", "elf": "11", "zwölf": "12",
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"eleven": "11", "twelve": "12",
}

var sizeWords = lexicon{
	"klein": "small", "kleine": "small", "kleiner": "small", "small": "small",
	"mittel": "medium", "mittlere": "medium", "medium": "medium",
	"gross": "large", "grosse": "large", "grossi": "large", "groß": "large",
	"große": "large", "large": "large", "big": "large",
}

var pageWords = lexicon{
	"menü": "menu", "menu": "menu", "speisekarte": "menu", "karte": "menu",
	"warenkorb": "cart", "korb": "cart", "cart": "cart",
	"kasse": "checkout", "checkout": "checkout",
	"startseite": "home", "home": "home",
	"bestellungen": "orders", "orders": "orders",
	"tische": "tables", "tables": "tables",
	"einstellungen": "settings", "settings": "settings",
}

var stateWords = lexicon{
	"frei": "free", "free": "free",
	"besetzt": "occupied", "belegt": "occupied", "occupied": "occupied",
	"reserviert": "reserved", "reserved": "reserved",
}

// newExtractorRules builds the default rule set, merging host-supplied
// lexicons (typically the product vocabulary) into the built-ins.
func newExtractorRules(extra map[utterance.EntityType]map[string]string) *extractorRules {
	rules := &extractorRules{
		patterns: []regexRule{
			{typ: utterance.EntityPrice, re: priceRe, canon: canonPrice},
			{typ: utterance.EntityTable, re: tableRe},
			{typ: utterance.EntityTable, re: tableWordRe, canon: lookupNumberWord},
			{typ: utterance.EntityQuantity, re: quantityRe},
		},
		lexicons: []lexiconRule{
			{typ: utterance.EntityQuantity, entries: numberWords},
			{typ: utterance.EntityProduct, entries: lexicon{}},
			{typ: utterance.EntitySize, entries: sizeWords},
			{typ: utterance.EntityPage, entries: pageWords},
			{typ: utterance.EntityState, entries: stateWords},
		},
	}
	for typ, entries := range extra {
		rules.merge(typ, entries)
	}
	return rules
}

// merge folds host entries into the lexicon rule for typ, appending a new
// rule when no built-in covers that type.
func (r *extractorRules) merge(typ utterance.EntityType, entries map[string]string) {
	for i := range r.lexicons {
		if r.lexicons[i].typ != typ {
			continue
		}
		merged := make(lexicon, len(r.lexicons[i].entries)+len(entries))
		for k, v := range r.lexicons[i].entries {
			merged[k] = v
		}
		for k, v := range entries {
			merged[strings.ToLower(k)] = v
		}
		r.lexicons[i].entries = merged
		return
	}
	converted := make(lexicon, len(entries))
	for k, v := range entries {
		converted[strings.ToLower(k)] = v
	}
	r.lexicons = append(r.lexicons, lexiconRule{typ: typ, entries: converted})
}

// apply runs the ordered rules over the normalized text.
func (r *extractorRules) apply(text string) []utterance.Entity {
	var entities []utterance.Entity
	var claimed []utterance.Span

	for _, rule := range r.patterns {
		for _, m := range rule.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			valStart, valEnd := start, end
			if len(m) >= 4 && m[2] >= 0 {
				valStart, valEnd = m[2], m[3]
			}
			span := utterance.Span{Start: start, End: end}
			if overlapsAny(span, claimed) {
				continue
			}
			value := text[valStart:valEnd]
			if rule.canon != nil {
				value = rule.canon(value)
				if value == "" {
					continue
				}
			}
			claimed = append(claimed, span)
			entities = append(entities, utterance.Entity{
				Type:       rule.typ,
				Value:      value,
				Span:       utterance.Span{Start: valStart, End: valEnd},
				Confidence: regexEntityConfidence,
			})
		}
	}

	for _, rule := range r.lexicons {
		for _, m := range tokenRe.FindAllStringIndex(text, -1) {
			span := utterance.Span{Start: m[0], End: m[1]}
			if overlapsAny(span, claimed) {
				continue
			}
			canonical, ok := rule.entries[text[m[0]:m[1]]]
			if !ok {
				continue
			}
			claimed = append(claimed, span)
			entities = append(entities, utterance.Entity{
				Type:       rule.typ,
				Value:      canonical,
				Span:       span,
				Confidence: lexiconEntityConfidence,
			})
		}
	}
	return entities
}

// extract finds typed entities in the normalized text. Delegate results,
// when available, replace the rule engine's entirely; either way every
// candidate must pass its per-type predicate or it is dropped.
func (e *Engine) extract(ctx context.Context, p *processingContext) {
	var candidates []utterance.Entity
	var fromDelegate bool

	if e.extractor != nil {
		delegated, err := await(ctx, func() ([]utterance.Entity, error) {
			return e.extractor.Extract(ctx, p.normalized)
		})
		if err != nil {
			p.addWarning("entity delegate " + e.extractor.Name() + " failed: " + err.Error())
		} else {
			candidates = delegated
			fromDelegate = true
		}
	}

	if !fromDelegate {
		candidates = e.rules.apply(p.normalized)
	}

	entities := make([]utterance.Entity, 0, len(candidates))
	for _, ent := range candidates {
		if !validEntity(ent) {
			p.addWarning("ignoring invalid " + string(ent.Type) + " entity: " + ent.Value)
			continue
		}
		ent.Confidence = clamp01(ent.Confidence)
		entities = append(entities, ent)
	}

	// Extraction replaces any prior entities; it never appends to them.
	p.entities = entities

	p.logger.Debug("extraction complete", "entities", len(p.entities), "delegate", fromDelegate)
}

// validEntity applies the per-type predicate: quantities are positive
// integers, prices non-negative, table numbers within 1..100, everything
// else just needs a value.
func validEntity(e utterance.Entity) bool {
	switch e.Type {
	case utterance.EntityQuantity:
		n, err := strconv.Atoi(e.Value)
		return err == nil && n > 0
	case utterance.EntityPrice:
		f, err := strconv.ParseFloat(e.Value, 64)
		return err == nil && f >= 0
	case utterance.EntityTable:
		n, err := strconv.Atoi(e.Value)
		return err == nil && n >= 1 && n <= 100
	default:
		return e.Value != ""
	}
}

// canonPrice normalizes a matched price to a dot decimal separator.
func canonPrice(v string) string {
	return strings.ReplaceAll(v, ",", ".")
}

// lookupNumberWord resolves a number word to digits, rejecting anything
// that is not one.
func lookupNumberWord(v string) string {
	return numberWords[v]
}

// firstEntity returns the first entity of the given type, honoring
// extraction order.
func firstEntity(entities []utterance.Entity, typ utterance.EntityType) (utterance.Entity, bool) {
	for _, e := range entities {
		if e.Type == typ {
			return e, true
		}
	}
	return utterance.Entity{}, false
}

func overlaps(a, b utterance.Span) bool {
	return a.Start < b.End && b.Start < a.End
}

func overlapsAny(s utterance.Span, claimed []utterance.Span) bool {
	for _, c := range claimed {
		if overlaps(s, c) {
			return true
		}
	}
	return false
}
