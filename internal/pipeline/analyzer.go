package pipeline

import (
	"context"
	"strings"
)

// affinityKey pairs the page the user is looking at with a candidate intent.
type affinityKey struct {
	page   string
	intent string
}

// pageAffinity is the static table of additive confidence boosts. Being on
// the menu page makes an add_item reading more plausible; being on the cart
// page favors checkout.
var pageAffinity = map[affinityKey]float64{
	{page: "menu", intent: "add_item"}:            0.20,
	{page: "menu", intent: "modify_item"}:         0.10,
	{page: "menu", intent: "show_cart"}:           0.05,
	{page: "cart", intent: "checkout"}:            0.20,
	{page: "cart", intent: "remove_item"}:         0.15,
	{page: "cart", intent: "modify_item"}:         0.15,
	{page: "checkout", intent: "checkout"}:        0.10,
	{page: "tables", intent: "set_table_status"}:  0.20,
	{page: "orders", intent: "show_cart"}:         0.05,
}

// cartAffinity is the extra boost for cart-dependent intents when the cart
// already holds items.
var cartAffinity = map[string]float64{
	"checkout":    0.05,
	"show_cart":   0.05,
	"remove_item": 0.05,
}

// normalizePage reduces a page reference like "/menu/" to its bare name.
func normalizePage(page string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(page)), "/")
}

// analyzeContext boosts the running confidence from application context.
// Boosts are additive and clamped; with no app context, an unknown intent
// or the stage disabled, the confidence passes through unchanged.
func (e *Engine) analyzeContext(ctx context.Context, p *processingContext) {
	if !e.contextBoost || p.intent == "" {
		return
	}

	var score float64
	var factors []string

	if page := normalizePage(p.req.App.CurrentPage); page != "" {
		if boost, ok := pageAffinity[affinityKey{page: page, intent: p.intent}]; ok {
			score += boost
			factors = append(factors, "page "+page+" favors intent "+p.intent)
		}
	}

	if p.req.App.CartItemCount > 0 {
		if boost, ok := cartAffinity[p.intent]; ok {
			score += boost
			factors = append(factors, "cart is not empty")
		}
	}

	if score == 0 {
		return
	}

	p.boostConfidence(score)
	p.logger.Debug("context analysis complete",
		"relevance", score,
		"factors", strings.Join(factors, "; "),
		"confidence", p.confidence)
}
