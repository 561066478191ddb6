// Package providers groups the concrete model adapters.
//
// Each sub-package embeds [github.com/germanamz/companion/pkg/modeladapter.ModelAdapter]
// and implements [github.com/germanamz/companion/pkg/modeladapter.Generator]:
//   - [github.com/germanamz/companion/pkg/providers/gemini]: Google Gemini, over REST generateContent or the Live WebSocket API
//
// This package contains no code of its own.
package providers
