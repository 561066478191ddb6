package companion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/germanamz/companion/pkg/modeladapter"
	"github.com/mattn/go-runewidth"
)

// logPreviewWidth bounds how much of the user's text reaches the logs.
const logPreviewWidth = 40

// Turn is one exchange between the operator and the model. It is not kept
// after being printed.
type Turn struct {
	Input    string
	Prompt   string
	Response string
	Err      error // Set when Response is a fallback.
}

// Session runs the read-render-send-print loop against a single generator.
type Session struct {
	gen     modeladapter.Generator
	in      *bufio.Reader
	console *Console
	log     *slog.Logger
	timeout time.Duration
	lang    string
}

// Option configures a Session.
type Option func(*Session)

// WithInput sets where lines are read from (default os.Stdin).
func WithInput(r io.Reader) Option {
	return func(s *Session) { s.in = bufio.NewReader(r) }
}

// WithConsole sets where output is written (default a plain Console on os.Stdout).
func WithConsole(c *Console) Option {
	return func(s *Session) { s.console = c }
}

// WithLogger sets the logger used for diagnostics (default discards).
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithTimeout bounds each remote call. Zero means no per-turn deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) { s.timeout = d }
}

// WithLanguage asks the model to reply in language (a code such as "es" or
// a name). Empty keeps the default prompt.
func WithLanguage(language string) Option {
	return func(s *Session) { s.lang = language }
}

// New creates a Session that owns gen for its whole lifetime.
func New(gen modeladapter.Generator, opts ...Option) (*Session, error) {
	if gen == nil {
		return nil, errors.New("companion: generator is required")
	}

	s := &Session{gen: gen}
	for _, opt := range opts {
		opt(s)
	}

	if s.in == nil {
		s.in = bufio.NewReader(os.Stdin)
	}
	if s.console == nil {
		s.console = NewConsole(os.Stdout)
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}

	return s, nil
}

// Send calls the generator once with prompt. Failures never escape: the
// returned text is then a [Fallback] message carrying the error.
func (s *Session) Send(ctx context.Context, prompt string) string {
	text, err := s.generate(ctx, prompt)
	if err != nil {
		return Fallback(err)
	}
	return text
}

// Exchange renders input into a prompt, sends it and returns the turn.
func (s *Session) Exchange(ctx context.Context, input string) Turn {
	t := Turn{Input: input, Prompt: RenderPromptIn(input, s.lang)}

	start := time.Now()
	text, err := s.generate(ctx, t.Prompt)
	if err != nil {
		t.Err = err
		t.Response = Fallback(err)
		s.log.DebugContext(ctx, "generate failed",
			"input", preview(input),
			"duration", time.Since(start),
			"error", err,
		)
		return t
	}

	t.Response = text
	s.log.DebugContext(ctx, "generate ok",
		"input", preview(input),
		"duration", time.Since(start),
		"response_len", len(text),
	)

	return t
}

func (s *Session) generate(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	return s.gen.Generate(ctx, prompt)
}

// Run prints the banner and loops until a stop word, end of input or a
// cancelled context. Only read failures and cancellation are returned;
// failed calls are printed as fallback responses and the loop goes on.
func (s *Session) Run(ctx context.Context) error {
	s.console.Banner()
	defer s.logUsage(ctx)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		s.console.Prompt()

		line, err := s.in.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return fmt.Errorf("companion: read input: %w", err)
			}
			// A final line without a newline is still a turn.
			if line == "" {
				s.console.EndOfInput()
				s.console.Farewell()
				return nil
			}
		}

		line = strings.TrimRight(line, "\r\n")

		if IsStopWord(line) {
			s.console.Farewell()
			return nil
		}

		s.console.Response(s.Exchange(ctx, line).Response)
	}
}

func (s *Session) logUsage(ctx context.Context) {
	ur, ok := s.gen.(modeladapter.UsageReporter)
	if !ok {
		return
	}

	tr := ur.UsageTracker()
	total := tr.Total()
	s.log.DebugContext(ctx, "session usage",
		"calls", tr.Count(),
		"input_tokens", total.InputTokens,
		"output_tokens", total.OutputTokens,
	)
}

func preview(s string) string {
	return runewidth.Truncate(strings.ReplaceAll(s, "\n", " "), logPreviewWidth, "…")
}
