package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is the generation model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyResponse is returned when the model produces no text.
var ErrEmptyResponse = errors.New("empty generation response")

// GeminiOptions configures a GeminiGenerator.
type GeminiOptions struct {
	APIKey string
	Model  string
	// BaseURL overrides the API endpoint. Empty uses the public endpoint.
	BaseURL string
	// Timeout bounds each call. Zero leaves the caller's context in charge.
	Timeout time.Duration
}

// GeminiGenerator generates questions with the Gemini API.
type GeminiGenerator struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiGenerator creates a generator. The API key is required.
func NewGeminiGenerator(ctx context.Context, opts GeminiOptions) (*GeminiGenerator, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return &GeminiGenerator{
		client:  client,
		model:   model,
		timeout: opts.Timeout,
	}, nil
}

// questionSchema is the strictly typed response shape requested from the model.
func questionSchema(multipleChoice bool) *genai.Schema {
	item := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"questionText":  {Type: genai.TypeString},
			"correctAnswer": {Type: genai.TypeString},
			"options": {
				Type:  genai.TypeArray,
				Items: &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"questionText", "correctAnswer"},
	}
	if multipleChoice {
		item.Required = append(item.Required, "options")
	}
	return &genai.Schema{Type: genai.TypeArray, Items: item}
}

// Generate implements Generator with a single GenerateContent call.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerateRequest) ([]Draft, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   questionSchema(req.MultipleChoice),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s questions: %w", req.Category, err)
	}

	return parseDrafts(resp.Text())
}

// parseDrafts decodes the model's JSON array output.
func parseDrafts(text string) ([]Draft, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	var drafts []Draft
	if err := json.Unmarshal([]byte(text), &drafts); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}
	for i := range drafts {
		drafts[i].QuestionText = strings.TrimSpace(drafts[i].QuestionText)
		drafts[i].CorrectAnswer = strings.TrimSpace(drafts[i].CorrectAnswer)
	}
	return drafts, nil
}
