// Package gemini provides Generator implementations for the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/companion/pkg/modeladapter"
	"github.com/germanamz/companion/pkg/modeladapter/usage"
)

// DefaultBaseURL is the public Gemini API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

var (
	// ErrMissingKey is returned by the constructors when no API key is given.
	ErrMissingKey = errors.New("gemini: api key is required")
	// ErrMissingModel is returned by the constructors when no model is given.
	ErrMissingModel = errors.New("gemini: model is required")
)

var _ modeladapter.Generator = (*Adapter)(nil)

// Adapter implements modeladapter.Generator over the REST generateContent endpoint.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter configured for the Gemini API.
// The baseURL should be "https://generativelanguage.googleapis.com" (no trailing slash).
// A leading "models/" in model is accepted and stripped.
func New(baseURL, apiKey, model string) (*Adapter, error) {
	a := &Adapter{}
	if err := configure(&a.ModelAdapter, baseURL, apiKey, model); err != nil {
		return nil, err
	}

	return a, nil
}

// configure validates the arguments and fills ma in place.
func configure(ma *modeladapter.ModelAdapter, baseURL, apiKey, model string) error {
	if apiKey == "" {
		return ErrMissingKey
	}

	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		return ErrMissingModel
	}

	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	ma.Name = model
	ma.BaseURL = strings.TrimRight(baseURL, "/")
	ma.Auth = modeladapter.Auth{
		Key:    apiKey,
		Header: "x-goog-api-key",
	}

	return nil
}

// Generate sends prompt as a single user turn and returns the text of the
// first candidate.
func (a *Adapter) Generate(ctx context.Context, prompt string) (string, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", a.Name)

	var resp apiResponse
	if err := a.PostJSON(ctx, path, a.buildRequest(prompt), &resp); err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
	})

	return resp.text()
}

// --- request types ---

type apiRequest struct {
	Contents         []apiContent      `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type apiContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []apiPart `json:"parts"`
}

type apiPart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type generationConfig struct {
	Temperature        *float64 `json:"temperature,omitempty"`
	MaxOutputTokens    int      `json:"maxOutputTokens,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

// --- response types ---

type apiResponse struct {
	Candidates     []apiCandidate    `json:"candidates"`
	PromptFeedback apiPromptFeedback `json:"promptFeedback"`
	UsageMetadata  apiUsageMeta      `json:"usageMetadata"`
}

type apiCandidate struct {
	Content      apiContent `json:"content"`
	FinishReason string     `json:"finishReason"`
}

type apiPromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type apiUsageMeta struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

// --- conversion helpers ---

// buildGenerationConfig returns nil when every setting is left at the server default.
func buildGenerationConfig(temperature *float64, maxTokens int) *generationConfig {
	if temperature == nil && maxTokens == 0 {
		return nil
	}

	gc := &generationConfig{MaxOutputTokens: maxTokens}
	if temperature != nil {
		t := *temperature
		gc.Temperature = &t
	}

	return gc
}

func (a *Adapter) buildRequest(prompt string) apiRequest {
	return apiRequest{
		Contents:         []apiContent{userContent(prompt)},
		GenerationConfig: buildGenerationConfig(a.Temperature, a.MaxTokens),
	}
}

func userContent(prompt string) apiContent {
	return apiContent{
		Role:  "user",
		Parts: []apiPart{{Text: prompt}},
	}
}

// text extracts the first candidate's text. A response without text is an
// error: either the prompt was blocked or the candidate finished without
// producing any (e.g. SAFETY or MAX_TOKENS before the first token).
func (r apiResponse) text() (string, error) {
	if r.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("gemini: prompt blocked: %s", r.PromptFeedback.BlockReason)
	}

	if len(r.Candidates) == 0 {
		return "", errors.New("gemini: empty candidates in response")
	}

	cand := r.Candidates[0]
	text := joinText(cand.Content.Parts)
	if text == "" {
		return "", fmt.Errorf("gemini: candidate has no text (finish reason %q)", cand.FinishReason)
	}

	return text, nil
}

// joinText concatenates text parts, skipping thought summaries.
func joinText(parts []apiPart) string {
	var sb strings.Builder
	for _, p := range parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}
