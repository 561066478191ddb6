package companion

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Console text.
const (
	bannerTitle    = "🧠 Welcome to your Gemini-powered Mental Health Companion!"
	bannerSubtitle = "I'm here to listen and offer support. Type 'exit' to end the session."
	inputLabel     = "💬 You:"
	responseLabel  = "🤖 Companion:"
	farewellText   = "👋 Take care! Remember, you're not alone. 🌈"
)

// Console writes the session's human-readable output. Styles are bound to
// the output writer, so nothing but plain text is emitted when it is not a
// terminal.
type Console struct {
	w  io.Writer
	md *glamour.TermRenderer

	titleStyle    lipgloss.Style
	inputStyle    lipgloss.Style
	responseStyle lipgloss.Style
	farewellStyle lipgloss.Style
}

// ConsoleOption configures a Console.
type ConsoleOption func(*consoleOptions)

type consoleOptions struct {
	markdown bool
	mdStyle  string
	mdWidth  int
}

// WithMarkdown renders responses as markdown. style is a glamour standard
// style name, or "auto" to detect the terminal background. A width <= 0
// wraps at 100 columns.
func WithMarkdown(style string, width int) ConsoleOption {
	return func(o *consoleOptions) {
		o.markdown = true
		o.mdStyle = style
		o.mdWidth = width
	}
}

// NewConsole creates a Console writing to w. A markdown renderer that fails
// to initialise is dropped and responses are printed raw.
func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	var o consoleOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := lipgloss.NewRenderer(w)

	c := &Console{
		w:             w,
		titleStyle:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("5")), // magenta
		inputStyle:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("4")), // blue
		responseStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")), // cyan
		farewellStyle: r.NewStyle().Foreground(lipgloss.Color("2")),            // green
	}

	if o.markdown {
		c.md = newMarkdownRenderer(o.mdStyle, o.mdWidth)
	}

	return c
}

func newMarkdownRenderer(style string, width int) *glamour.TermRenderer {
	if width <= 0 {
		width = 100
	}

	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStandardStyle(style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}

	return r
}

// Banner prints the welcome text.
func (c *Console) Banner() {
	fmt.Fprintln(c.w)
	fmt.Fprintln(c.w, c.titleStyle.Render(bannerTitle))
	fmt.Fprintln(c.w, bannerSubtitle)
	fmt.Fprintln(c.w)
}

// Prompt asks for the next line of input. No newline is written.
func (c *Console) Prompt() {
	fmt.Fprint(c.w, c.inputStyle.Render(inputLabel)+" ")
}

// Response prints one model response.
func (c *Console) Response(text string) {
	label := c.responseStyle.Render(responseLabel)

	if c.md != nil {
		if out, err := c.md.Render(text); err == nil {
			fmt.Fprintln(c.w, label)
			fmt.Fprintln(c.w, strings.TrimRight(out, "\n"))
			return
		}
	}

	fmt.Fprintln(c.w, label+" "+text)
}

// Farewell prints the closing line.
func (c *Console) Farewell() {
	fmt.Fprintln(c.w, c.farewellStyle.Render(farewellText))
}

// EndOfInput terminates the pending input prompt line.
func (c *Console) EndOfInput() {
	fmt.Fprintln(c.w)
}
