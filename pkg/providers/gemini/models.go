package gemini

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// Model describes a model available to the API key.
type Model struct {
	Name              string   `json:"name"` // Full resource name, e.g. "models/gemini-1.5-flash".
	DisplayName       string   `json:"displayName"`
	Description       string   `json:"description"`
	InputTokenLimit   int      `json:"inputTokenLimit"`
	OutputTokenLimit  int      `json:"outputTokenLimit"`
	GenerationMethods []string `json:"supportedGenerationMethods"`
}

// ID returns the model name without the "models/" prefix.
func (m Model) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

// Supports reports whether the model lists method (e.g. "generateContent").
func (m Model) Supports(method string) bool {
	return slices.Contains(m.GenerationMethods, method)
}

type listModelsResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken"`
}

// maxModelPages bounds pagination in case the server keeps returning tokens.
const maxModelPages = 50

// ListModels returns every model visible to the configured key, following
// page tokens until the listing is exhausted.
func (a *Adapter) ListModels(ctx context.Context) ([]Model, error) {
	var (
		models []Model
		token  string
	)

	for range maxModelPages {
		q := url.Values{}
		q.Set("pageSize", "100")
		if token != "" {
			q.Set("pageToken", token)
		}

		var page listModelsResponse
		if err := a.GetJSON(ctx, "/v1beta/models?"+q.Encode(), &page); err != nil {
			return nil, fmt.Errorf("gemini: list models: %w", err)
		}

		models = append(models, page.Models...)

		if page.NextPageToken == "" {
			return models, nil
		}
		token = page.NextPageToken
	}

	return models, nil
}
