package companion_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/germanamz/companion/pkg/companion"
	"github.com/germanamz/companion/pkg/modeladapter"
	"github.com/germanamz/companion/pkg/modeladapter/usage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGenerator answers from a function and records every prompt it sees.
type stubGenerator struct {
	prompts []string
	fn      func(ctx context.Context, prompt string) (string, error)
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.fn(ctx, prompt)
}

func replyWith(text string) *stubGenerator {
	return &stubGenerator{fn: func(context.Context, string) (string, error) { return text, nil }}
}

func newSession(t *testing.T, gen modeladapter.Generator, input string, opts ...companion.Option) (*companion.Session, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer
	opts = append([]companion.Option{
		companion.WithInput(strings.NewReader(input)),
		companion.WithConsole(companion.NewConsole(&out)),
	}, opts...)

	s, err := companion.New(gen, opts...)
	require.NoError(t, err)

	return s, &out
}

// assertInOrder checks that each needle appears in out after the previous one.
func assertInOrder(t *testing.T, out string, needles ...string) {
	t.Helper()

	pos := 0
	for _, n := range needles {
		i := strings.Index(out[pos:], n)
		if !assert.GreaterOrEqual(t, i, 0, "%q not found after offset %d in:\n%s", n, pos, out) {
			return
		}
		pos += i + len(n)
	}
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := companion.New(nil)
	assert.EqualError(t, err, "companion: generator is required")
}

func TestRun_HelloThenExit(t *testing.T) {
	gen := replyWith("Hi there!")
	s, out := newSession(t, gen, "Hello\nexit\n")

	require.NoError(t, s.Run(context.Background()))

	assertInOrder(t, out.String(),
		"Welcome to your Gemini-powered Mental Health Companion!",
		"Type 'exit' to end the session.",
		"You:",
		"Companion:",
		"Hi there!",
		"You:",
		"Take care! Remember, you're not alone.",
	)
	require.Len(t, gen.prompts, 1)
	assert.Equal(t, companion.RenderPrompt("Hello"), gen.prompts[0])
}

func TestRun_FailedCallThenQuit(t *testing.T) {
	gen := &stubGenerator{fn: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "User: bad\n") {
			return "", errors.New("remote exploded")
		}
		return "fine", nil
	}}
	s, out := newSession(t, gen, "bad\nquit\n")

	require.NoError(t, s.Run(context.Background()))

	assertInOrder(t, out.String(),
		"I'm sorry, I couldn't generate a response at the moment. Error: remote exploded",
		"Take care!",
	)
	assert.Len(t, gen.prompts, 1)
}

func TestRun_FailureDoesNotStopLoop(t *testing.T) {
	calls := 0
	gen := &stubGenerator{fn: func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("timeout")
		}
		return "second answer", nil
	}}
	s, out := newSession(t, gen, "one\ntwo\nexit\n")

	require.NoError(t, s.Run(context.Background()))

	assertInOrder(t, out.String(), companion.FallbackPrefix+" timeout", "second answer", "Take care!")
	assert.Equal(t, 2, calls)
}

func TestRun_StopWordsMakeNoCall(t *testing.T) {
	for _, in := range []string{"exit", "Exit", "EXIT", "quit", "  quit  ", "\tEXIT"} {
		t.Run(in, func(t *testing.T) {
			gen := replyWith("unused")
			s, out := newSession(t, gen, in+"\nHello\n")

			require.NoError(t, s.Run(context.Background()))

			assert.Empty(t, gen.prompts)
			assert.Contains(t, out.String(), "Take care!")
			assert.NotContains(t, out.String(), "unused")
		})
	}
}

func TestRun_EndOfInputTerminates(t *testing.T) {
	gen := replyWith("ok")
	s, out := newSession(t, gen, "Hello\n")

	require.NoError(t, s.Run(context.Background()))

	assert.Len(t, gen.prompts, 1)
	assertInOrder(t, out.String(), "ok", "Take care!")
}

func TestRun_EmptyInputTerminates(t *testing.T) {
	gen := replyWith("never")
	s, out := newSession(t, gen, "")

	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, gen.prompts)
	assertInOrder(t, out.String(), "Welcome", "Take care!")
}

func TestRun_FinalLineWithoutNewline(t *testing.T) {
	gen := replyWith("heard you")
	s, out := newSession(t, gen, "first\r\nlast line")

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[0], "User: first\nCompanion:", "CRLF is stripped")
	assert.Contains(t, gen.prompts[1], "User: last line\n")
	assert.Contains(t, out.String(), "Take care!")
}

func TestRun_FinalStopWordWithoutNewline(t *testing.T) {
	gen := replyWith("never")
	s, _ := newSession(t, gen, "quit")

	require.NoError(t, s.Run(context.Background()))
	assert.Empty(t, gen.prompts)
}

func TestRun_BlankLineIsSent(t *testing.T) {
	gen := replyWith("I'm listening")
	s, _ := newSession(t, gen, "\nexit\n")

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, companion.RenderPrompt(""), gen.prompts[0])
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("tty gone") }

func TestRun_ReadError(t *testing.T) {
	var out bytes.Buffer
	s, err := companion.New(replyWith("x"),
		companion.WithInput(failingReader{}),
		companion.WithConsole(companion.NewConsole(&out)),
	)
	require.NoError(t, err)

	err = s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "companion: read input: tty gone")
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &stubGenerator{fn: func(context.Context, string) (string, error) {
		cancel()
		return "bye for now", nil
	}}
	s, out := newSession(t, gen, "Hello\nHello again\n")

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Len(t, gen.prompts, 1)
	assert.Contains(t, out.String(), "bye for now")
}

func TestSend_ReturnsText(t *testing.T) {
	s, _ := newSession(t, replyWith("hello"), "")

	assert.Equal(t, "hello", s.Send(context.Background(), "prompt"))
}

func TestSend_SwallowsError(t *testing.T) {
	gen := &stubGenerator{fn: func(context.Context, string) (string, error) {
		return "", &modeladapter.APIError{StatusCode: 500, Body: "boom"}
	}}
	s, _ := newSession(t, gen, "")

	got := s.Send(context.Background(), "prompt")
	assert.Equal(t, "I'm sorry, I couldn't generate a response at the moment. Error: unexpected status 500: boom", got)
}

func TestExchange(t *testing.T) {
	gen := &stubGenerator{fn: func(context.Context, string) (string, error) {
		return "", errors.New("nope")
	}}
	s, _ := newSession(t, gen, "")

	turn := s.Exchange(context.Background(), "hi")

	assert.Equal(t, "hi", turn.Input)
	assert.Equal(t, companion.RenderPrompt("hi"), turn.Prompt)
	assert.EqualError(t, turn.Err, "nope")
	assert.Equal(t, companion.Fallback(turn.Err), turn.Response)
}

func TestWithLanguage_AddsReplyLanguage(t *testing.T) {
	gen := replyWith("¡Hola!")
	s, out := newSession(t, gen, "hola\nexit\n", companion.WithLanguage("es"))

	require.NoError(t, s.Run(context.Background()))

	require.Len(t, gen.prompts, 1)
	assert.Equal(t, companion.RenderPromptIn("hola", "es"), gen.prompts[0])
	assert.Contains(t, gen.prompts[0], "Respond in Spanish.")
	assert.Contains(t, out.String(), "¡Hola!")
}

func TestWithTimeout_BoundsEachCall(t *testing.T) {
	gen := &stubGenerator{fn: func(ctx context.Context, _ string) (string, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			return "", errors.New("no deadline")
		}
		if time.Until(deadline) > time.Minute {
			return "", errors.New("deadline too far")
		}
		<-ctx.Done()
		return "", ctx.Err()
	}}
	s, _ := newSession(t, gen, "", companion.WithTimeout(10*time.Millisecond))

	got := s.Send(context.Background(), "prompt")
	assert.Equal(t, companion.Fallback(context.DeadlineExceeded), got)
}

// usageGenerator also reports token usage, like the real adapters.
type usageGenerator struct {
	stubGenerator
	tracker usage.Tracker
}

func (g *usageGenerator) UsageTracker() *usage.Tracker { return &g.tracker }

func TestRun_LogsTurnsAndUsage(t *testing.T) {
	gen := &usageGenerator{}
	gen.fn = func(context.Context, string) (string, error) {
		gen.tracker.Add(usage.TokenCount{InputTokens: 30, OutputTokens: 12})
		return "ok", nil
	}

	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, _ := newSession(t, gen, strings.Repeat("a", 100)+"\nexit\n", companion.WithLogger(log))
	require.NoError(t, s.Run(context.Background()))

	assert.Contains(t, logs.String(), "generate ok")
	assert.Contains(t, logs.String(), "…", "long inputs are truncated in logs")
	assert.NotContains(t, logs.String(), strings.Repeat("a", 100))
	assert.Contains(t, logs.String(), "session usage")
	assert.Contains(t, logs.String(), "input_tokens=30")
	assert.Contains(t, logs.String(), "output_tokens=12")
}

func TestRun_DefaultLoggerIsSilent(t *testing.T) {
	s, err := companion.New(replyWith("x"),
		companion.WithInput(strings.NewReader("exit\n")),
		companion.WithConsole(companion.NewConsole(io.Discard)),
	)
	require.NoError(t, err)
	assert.NoError(t, s.Run(context.Background()))
}
