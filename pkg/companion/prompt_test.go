package companion_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/germanamz/companion/pkg/companion"
	"github.com/stretchr/testify/assert"
)

func TestRenderPrompt(t *testing.T) {
	got := companion.RenderPrompt("I had a rough day")

	want := "You are a kind, empathetic, and compassionate mental health companion. " +
		"Respond to the following message as a supportive friend, offering encouragement and a listening ear. " +
		"Keep your responses concise and positive.\n\nUser: I had a rough day\nCompanion:"
	assert.Equal(t, want, got)
}

func TestRenderPrompt_Deterministic(t *testing.T) {
	inputs := []string{"", "hello", "  spaced  ", "multi\nline", "{braces} %s %d", strings.Repeat("long ", 1000), "ünïcødé 🌈"}

	for _, in := range inputs {
		first := companion.RenderPrompt(in)
		assert.Equal(t, first, companion.RenderPrompt(in))
		assert.Contains(t, first, "User: "+in)
		assert.True(t, strings.HasSuffix(first, "Companion:"))
		assert.True(t, strings.HasPrefix(first, companion.Persona))
	}
}

func TestFallback(t *testing.T) {
	got := companion.Fallback(errors.New("quota exceeded"))
	assert.Equal(t, "I'm sorry, I couldn't generate a response at the moment. Error: quota exceeded", got)
}

func TestIsStopWord(t *testing.T) {
	for _, in := range []string{"exit", "Exit", "EXIT", "quit", "QuIt", "  exit  ", "\tquit\r"} {
		assert.True(t, companion.IsStopWord(in), "%q", in)
	}

	for _, in := range []string{"", "exiting", "quit now", "bye", "e x i t"} {
		assert.False(t, companion.IsStopWord(in), "%q", in)
	}
}

func TestRenderPromptIn_EmptyLanguageKeepsDefault(t *testing.T) {
	for _, lang := range []string{"", "   "} {
		assert.Equal(t, companion.RenderPrompt("hello"), companion.RenderPromptIn("hello", lang), "%q", lang)
	}
}

func TestRenderPromptIn_AppendsLanguage(t *testing.T) {
	got := companion.RenderPromptIn("hola", "es")

	want := companion.Persona + " Respond in Spanish.\n\nUser: hola\nCompanion:"
	assert.Equal(t, want, got)
}

func TestLanguageName(t *testing.T) {
	tests := map[string]string{
		"en":        "English",
		"ES":        "Spanish",
		" ja ":      "Japanese",
		"pt":        "Portuguese",
		"Afrikaans": "Afrikaans",
		"":          "",
	}

	for in, want := range tests {
		assert.Equal(t, want, companion.LanguageName(in), "%q", in)
	}
}
