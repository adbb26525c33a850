// Package openai implements the nlu delegate interfaces using an
// OpenAI-compatible Chat Completions API.
//
// It works against api.openai.com as well as any server speaking the same
// protocol (llama.cpp, vLLM, LocalAI) via the BaseURL setting.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nadzzz/signalbox/internal/nlu"
	"github.com/nadzzz/signalbox/internal/utterance"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Config holds the connection settings for the delegate.
type Config struct {
	// BaseURL is the API root. Defaults to the OpenAI endpoint.
	BaseURL string

	// APIKey is sent as a bearer token. May be empty for local servers.
	APIKey string

	// Model is the completion model, e.g. "gpt-4o-mini".
	Model string

	// Timeout bounds a single API call. Defaults to 10s.
	Timeout time.Duration
}

// Delegate calls a Chat Completions API for classification and extraction.
// It implements both nlu.Classifier and nlu.Extractor.
type Delegate struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

// New creates a delegate from config.
func New(cfg Config) *Delegate {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Delegate{
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the backend identifier.
func (d *Delegate) Name() string { return "openai" }

// Classify asks the model for the intent of the normalized text.
func (d *Delegate) Classify(ctx context.Context, text string) (*nlu.Classification, error) {
	content, err := d.complete(ctx, classifySystemPrompt, text)
	if err != nil {
		return nil, err
	}

	var result struct {
		Intent       string  `json:"intent"`
		Confidence   float64 `json:"confidence"`
		Alternatives []struct {
			Intent     string  `json:"intent"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("could not parse LLM response as classification: %.200s", content)
	}

	classification := &nlu.Classification{
		Intent:     result.Intent,
		Confidence: result.Confidence,
	}
	for _, alt := range result.Alternatives {
		classification.Alternatives = append(classification.Alternatives, nlu.Alternative{
			Intent:     alt.Intent,
			Confidence: alt.Confidence,
		})
	}

	slog.Debug("delegate classification complete", "intent", classification.Intent, "confidence", classification.Confidence)
	return classification, nil
}

// Extract asks the model for the typed entities in the normalized text.
func (d *Delegate) Extract(ctx context.Context, text string) ([]utterance.Entity, error) {
	content, err := d.complete(ctx, extractSystemPrompt, text)
	if err != nil {
		return nil, err
	}

	var result struct {
		Entities []struct {
			Type       string  `json:"type"`
			Value      string  `json:"value"`
			Start      int     `json:"start"`
			End        int     `json:"end"`
			Confidence float64 `json:"confidence"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("could not parse LLM response as entities: %.200s", content)
	}

	entities := make([]utterance.Entity, 0, len(result.Entities))
	for _, e := range result.Entities {
		entities = append(entities, utterance.Entity{
			Type:       utterance.EntityType(e.Type),
			Value:      e.Value,
			Span:       utterance.Span{Start: e.Start, End: e.End},
			Confidence: e.Confidence,
		})
	}

	slog.Debug("delegate extraction complete", "entities", len(entities))
	return entities, nil
}

// complete sends one chat completion request and returns the first choice's
// message content.
func (d *Delegate) complete(ctx context.Context, systemPrompt, userText string) (string, error) {
	reqBody := chatRequest{
		Model: d.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userText},
		},
		ResponseFormat: &responseFormat{Type: "json_object"},
		Temperature:    0.1,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating chat request: %w", err)
	}
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return "", fmt.Errorf("chat failed (status %d): %s", resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from chat API")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// --- Internal types and prompts ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const classifySystemPrompt = `You are an intent classifier for a voice-controlled ordering and table-service app.
The user message is a normalized utterance in German, Swiss German or English.
Return a JSON object with:
- "intent": the most likely intent identifier (snake_case), or "" if none fits
- "confidence": your certainty in [0, 1]
- "alternatives": up to three other plausible intents, each {"intent", "confidence"}
Known intents include: add_item, remove_item, modify_item, show_cart, checkout, navigate, set_table_status, help.
Example: {"intent": "add_item", "confidence": 0.92, "alternatives": [{"intent": "show_cart", "confidence": 0.2}]}`

const extractSystemPrompt = `You are an entity extractor for a voice-controlled ordering and table-service app.
The user message is a normalized utterance in German, Swiss German or English.
Return a JSON object with an "entities" array. Each entity has:
- "type": one of product, quantity, price, table, size, page, state
- "value": the canonical value ("2" not "zwei", "large" not "gross")
- "start" and "end": the byte span in the input text
- "confidence": your certainty in [0, 1]
Example: {"entities": [{"type": "quantity", "value": "2", "start": 10, "end": 14, "confidence": 0.95}]}`
