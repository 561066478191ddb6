// Package modeladapter defines the interface and shared plumbing for model adapters.
//
// It contains:
//   - [Generator] interface and embeddable [ModelAdapter] base struct with HTTP and WebSocket helpers, header auth, and custom headers
//   - [APIError] and [RateLimitError] for inspecting failed calls with errors.As
//   - [github.com/germanamz/companion/pkg/modeladapter/usage]: thread-safe token usage tracker
//
// This package contains no provider-specific code. Concrete adapters live in
// separate packages that import modeladapter.
package modeladapter
