package companion_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/germanamz/companion/pkg/companion"
	"github.com/stretchr/testify/assert"
)

func TestConsole_PlainOutputWhenNotATerminal(t *testing.T) {
	var out bytes.Buffer
	c := companion.NewConsole(&out)

	c.Banner()
	c.Prompt()
	c.Response("Hi there!")
	c.Farewell()

	got := out.String()
	assert.NotContains(t, got, "\x1b[", "no escape sequences for non-terminal writers")
	assert.True(t, strings.HasPrefix(got, "\n🧠 Welcome to your Gemini-powered Mental Health Companion!\n"))
	assert.Contains(t, got, "I'm here to listen and offer support. Type 'exit' to end the session.\n\n")
	assert.Contains(t, got, "💬 You: 🤖 Companion: Hi there!\n")
	assert.True(t, strings.HasSuffix(got, "👋 Take care! Remember, you're not alone. 🌈\n"))
}

func TestConsole_ResponseKeepsTextVerbatim(t *testing.T) {
	var out bytes.Buffer
	c := companion.NewConsole(&out)

	c.Response("**bold** and\nsecond line")

	assert.Contains(t, out.String(), "**bold** and\nsecond line")
}

func TestConsole_Markdown(t *testing.T) {
	var out bytes.Buffer
	c := companion.NewConsole(&out, companion.WithMarkdown("notty", 60))

	c.Response("# Breathe\n\nTry **box breathing** for a minute.")

	got := out.String()
	assert.True(t, strings.HasPrefix(got, "🤖 Companion:\n"), "markdown responses start on their own line")
	assert.Contains(t, got, "Breathe")
	assert.Contains(t, got, "box breathing")
}

func TestConsole_EndOfInput(t *testing.T) {
	var out bytes.Buffer
	c := companion.NewConsole(&out)

	c.Prompt()
	c.EndOfInput()

	assert.Equal(t, "💬 You: \n", out.String())
}
