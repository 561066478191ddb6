// Package companion implements the mental-health companion chat loop.
//
// A [Session] reads one line at a time, wraps it with [RenderPrompt], sends
// it to a [github.com/germanamz/companion/pkg/modeladapter.Generator] and
// prints the reply through a [Console]. Nothing is remembered between turns.
// A failed call is printed as a [Fallback] message and the loop continues;
// the loop ends on "exit" or "quit" (any case, surrounding whitespace
// ignored) or at end of input.
package companion
