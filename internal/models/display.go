package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const UnknownModelName = "Unknown Model"

// knownModels maps the base of well known model identifiers to their
// published names.
var knownModels = map[string]string{
	"gemma":            "Gemma",
	"gemma2":           "Gemma 2",
	"gemma3":           "Gemma 3",
	"llama2":           "Llama 2",
	"llama3":           "Llama 3",
	"llama3.1":         "Llama 3.1",
	"llama3.2":         "Llama 3.2",
	"codellama":        "Code Llama",
	"tinyllama":        "TinyLlama",
	"mistral":          "Mistral",
	"mixtral":          "Mixtral",
	"phi3":             "Phi 3",
	"phi4":             "Phi 4",
	"qwen2":            "Qwen 2",
	"qwen2.5":          "Qwen 2.5",
	"deepseek-r1":      "DeepSeek R1",
	"deepseek-coder":   "DeepSeek Coder",
	"llava":            "LLaVA",
	"nomic-embed-text": "Nomic Embed",
}

// aliases is keyed by aliasKey of both the identifier base and the
// published name, so feeding a display name back in returns it unchanged.
var aliases = buildAliases(knownModels)

func buildAliases(known map[string]string) map[string]string {
	out := make(map[string]string, len(known)*2)
	for id, name := range known {
		out[aliasKey(id)] = name
		out[aliasKey(name)] = name
	}
	return out
}

// aliasKey lowercases s and drops everything that is not a letter or digit.
func aliasKey(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// DisplayName derives a human readable label for a model identifier. It
// never fails: unknown identifiers are formatted from their base name
// ("custom-model:7b" becomes "Custom Model").
func DisplayName(id ModelID) string {
	raw := strings.TrimSpace(string(id))

	base := raw
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		base = raw[:i]
	}
	if aliasKey(base) == "" {
		base = raw
	}

	key := aliasKey(base)
	if key == "" {
		return UnknownModelName
	}
	if name, ok := aliases[key]; ok {
		return name
	}

	fragments := strings.FieldsFunc(base, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, f := range fragments {
		fragments[i] = titleFragment(f)
	}
	return strings.Join(fragments, " ")
}

func titleFragment(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
