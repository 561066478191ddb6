package companion

import (
	"fmt"
	"strings"
)

// Persona is the instruction placed before every user message.
const Persona = "You are a kind, empathetic, and compassionate mental health companion. " +
	"Respond to the following message as a supportive friend, offering encouragement and a listening ear. " +
	"Keep your responses concise and positive."

// FallbackPrefix starts every response substituted for a failed call.
const FallbackPrefix = "I'm sorry, I couldn't generate a response at the moment. Error:"

// languageNames maps the short codes accepted for the reply language to the
// names used in the prompt. Other values are used as given.
var languageNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"zh": "Chinese",
	"hi": "Hindi",
	"ja": "Japanese",
	"pt": "Portuguese",
}

// RenderPrompt wraps userText in the companion template. The text is
// inserted verbatim.
func RenderPrompt(userText string) string {
	return RenderPromptIn(userText, "")
}

// RenderPromptIn is [RenderPrompt] with an instruction to reply in language,
// given as a short code ("es") or a name ("Spanish"). An empty language
// renders exactly what RenderPrompt does.
func RenderPromptIn(userText, language string) string {
	persona := Persona
	if name := LanguageName(language); name != "" {
		persona += " Respond in " + name + "."
	}

	return persona + "\n\nUser: " + userText + "\nCompanion:"
}

// LanguageName resolves a language code to its display name. Unknown values
// are returned trimmed, so full names pass through.
func LanguageName(language string) string {
	language = strings.TrimSpace(language)
	if name, ok := languageNames[strings.ToLower(language)]; ok {
		return name
	}
	return language
}

// Fallback returns the response printed in place of a failed call.
func Fallback(err error) string {
	return fmt.Sprintf("%s %v", FallbackPrefix, err)
}

// IsStopWord reports whether line asks to end the session.
func IsStopWord(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "exit", "quit":
		return true
	}
	return false
}
