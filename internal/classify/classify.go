// Package classify infers classification fields with an OpenAI-compatible
// chat completions endpoint. The model answers with a JSON object which is
// checked against a JSON Schema built from the target schema's enums before
// any value is used.
package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
)

var (
	ErrNoChoices     = errors.New("classifier returned no choices")
	ErrInvalidAnswer = errors.New("classifier answer is not valid")
)

// Client is a core.Classifier. It is safe for concurrent use.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client

	mu      sync.Mutex
	schemas map[string]*gojsonschema.Schema // keyed by schema key and version
}

// New builds a client from cfg.
func New(cfg config.ClassifierConfig) *Client {
	return &Client{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    cfg.Model,
		http:     &http.Client{Timeout: cfg.Timeout},
		schemas:  make(map[string]*gojsonschema.Schema),
	}
}

// Provider returns c for schemas that have classification fields and nil
// for the rest.
func (c *Client) Provider() core.ClassifierProvider {
	return func(s *core.Schema) core.Classifier {
		if len(s.Classification) == 0 {
			return nil
		}
		return c
	}
}

// Classify asks the model for the classification fields of s given a
// record's free text. Fields the model leaves null are absent from the
// suggestion.
func (c *Client) Classify(ctx context.Context, s *core.Schema, text string) (core.Suggestion, error) {
	validator, err := c.validator(s)
	if err != nil {
		return core.Suggestion{}, err
	}

	content, err := c.complete(ctx, systemPrompt(s), text)
	if err != nil {
		return core.Suggestion{}, err
	}

	answer := extractJSON(content)
	if !gjson.Valid(answer) {
		return core.Suggestion{}, fmt.Errorf("%w: not JSON", ErrInvalidAnswer)
	}

	result, err := validator.Validate(gojsonschema.NewStringLoader(answer))
	if err != nil {
		return core.Suggestion{}, fmt.Errorf("validate answer: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return core.Suggestion{}, fmt.Errorf("%w: %s", ErrInvalidAnswer, strings.Join(msgs, "; "))
	}

	fields := make(map[string]string, len(s.Classification))
	for _, name := range s.Classification {
		if v := gjson.Get(answer, gjson.Escape(name)); v.Type == gjson.String {
			fields[name] = v.String()
		}
	}
	return core.Suggestion{Fields: fields}, nil
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model":       c.model,
		"temperature": 0,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"response_format": map[string]string{"type": "json_object"},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read classifier response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("classifier returned status %d: %s", resp.StatusCode,
			gjson.GetBytes(data, "error.message").String())
	}

	content := gjson.GetBytes(data, "choices.0.message.content")
	if !content.Exists() {
		return "", ErrNoChoices
	}
	return content.String(), nil
}

// validator returns the compiled response schema for s.
func (c *Client) validator(s *core.Schema) (*gojsonschema.Schema, error) {
	key := s.Key + "@" + s.Version

	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.schemas[key]; ok {
		return v, nil
	}

	v, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(ResponseSchema(s)))
	if err != nil {
		return nil, fmt.Errorf("compile response schema for %s: %w", s.Key, err)
	}
	c.schemas[key] = v
	return v, nil
}

// ResponseSchema is the JSON Schema an answer must satisfy: an object with
// one nullable property per classification field, restricted to the field's
// enum values when it has any.
func ResponseSchema(s *core.Schema) map[string]any {
	props := make(map[string]any, len(s.Classification))
	for _, name := range s.Classification {
		prop := map[string]any{"type": []string{"string", "null"}}
		if spec, ok := s.Field(name); ok && len(spec.EnumValues) > 0 {
			values := make([]any, 0, len(spec.EnumValues)+1)
			for _, v := range spec.EnumValues {
				values = append(values, v)
			}
			prop["enum"] = append(values, nil)
		}
		props[name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

func systemPrompt(s *core.Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You classify %s records for a real estate CRM. ", strings.ToLower(s.Label))
	b.WriteString("Read the user's text and answer with a single JSON object with these keys:\n")
	for _, name := range s.Classification {
		spec, _ := s.Field(name)
		if len(spec.EnumValues) > 0 {
			fmt.Fprintf(&b, "- %q (%s): one of %s\n", name, spec.Label, strings.Join(spec.EnumValues, ", "))
		} else {
			fmt.Fprintf(&b, "- %q (%s)\n", name, spec.Label)
		}
	}
	b.WriteString("Use null for any key the text does not support. Do not add other keys.")
	return b.String()
}

// extractJSON strips a markdown code fence or surrounding prose from content.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if gjson.Valid(content) {
		return content
	}
	if start := strings.Index(content, "{"); start != -1 {
		if end := strings.LastIndex(content, "}"); end > start {
			return content[start : end+1]
		}
	}
	return content
}
