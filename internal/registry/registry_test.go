package registry

import (
	"errors"
	"testing"
)

func TestResolveCaseInsensitive(t *testing.T) {
	upper, err := Resolve("GPT-4")
	if err != nil {
		t.Fatalf("Resolve(GPT-4): %v", err)
	}
	lower, err := Resolve("gpt-4")
	if err != nil {
		t.Fatalf("Resolve(gpt-4): %v", err)
	}
	if upper != lower {
		t.Errorf("case variants resolved to different descriptors: %+v vs %+v", upper, lower)
	}
	if upper.Provider != ProviderOpenAI {
		t.Errorf("gpt-4 provider = %s, want openai", upper.Provider)
	}
}

func TestResolveAliases(t *testing.T) {
	cases := map[string]string{
		"gpt4":          "gpt-4",
		"gpt-4o":        "gpt-4",
		"gpt3.5":        "gpt-3.5-turbo",
		"claude-haiku":  "claude-3-haiku",
		"gemini":        "gemini-pro",
		"llama-3.2-3b":  "llama3.2:3b",
		"LLAMA3.2-3B":   "llama3.2:3b",
		"claude-sonnet": "claude-3-sonnet",
	}
	for in, want := range cases {
		got, err := Resolve(in)
		if err != nil {
			t.Errorf("Resolve(%q): %v", in, err)
			continue
		}
		if got.Name != want {
			t.Errorf("Resolve(%q) = %s, want %s", in, got.Name, want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve("definitely-not-a-model")
	var unknown *ErrUnknownModel
	if !errors.As(err, &unknown) {
		t.Fatalf("Resolve(unknown) error = %v, want *ErrUnknownModel", err)
	}

	if _, err := Resolve(""); err == nil {
		t.Error("Resolve(\"\") should fail")
	}
}

func TestSuggest(t *testing.T) {
	if got := Suggest("gpt-3.5-trubo"); got != "gpt-3.5-turbo" {
		t.Errorf("Suggest(gpt-3.5-trubo) = %q, want gpt-3.5-turbo", got)
	}
	if got := Suggest("claude-3-opuss"); got != "claude-3-opus" {
		t.Errorf("Suggest(claude-3-opuss) = %q, want claude-3-opus", got)
	}
	// Garbage should not produce a suggestion.
	if got := Suggest("zzzzzzzzzzzzzzzz"); got != "" {
		t.Errorf("Suggest(garbage) = %q, want empty", got)
	}
}

func TestModelsByProvider(t *testing.T) {
	for _, p := range Providers() {
		ms := ModelsByProvider(p)
		if len(ms) == 0 {
			t.Errorf("provider %s has no models", p)
		}
		for _, m := range ms {
			if m.Provider != p {
				t.Errorf("ModelsByProvider(%s) returned %s model %s", p, m.Provider, m.Name)
			}
		}
	}
}

func TestCatalogInvariants(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range All() {
		if seen[m.Name] {
			t.Errorf("duplicate canonical name %s", m.Name)
		}
		seen[m.Name] = true
		if m.MaxTokens <= 0 {
			t.Errorf("%s has no token budget", m.Name)
		}
		if m.APIName == "" {
			t.Errorf("%s has no API name", m.Name)
		}
	}

	// Every alias must point at a canonical model.
	for alias, target := range aliases {
		if _, err := Resolve(target); err != nil {
			t.Errorf("alias %s points at unresolvable model %s", alias, target)
		}
	}
}

func TestPromptTemplates(t *testing.T) {
	for _, p := range Providers() {
		tpl := PromptTemplate(p)
		if tpl == "" {
			t.Errorf("empty template for provider %s", p)
		}
	}
	// The anthropic template reads conversationally, ollama is terse.
	if PromptTemplate(ProviderOllama) != "Command: %s" {
		t.Errorf("ollama template changed: %q", PromptTemplate(ProviderOllama))
	}
}
