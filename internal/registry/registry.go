package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Provider identifies a model's owning provider family.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderCohere    Provider = "cohere"
	ProviderOllama    Provider = "ollama"
)

// Descriptor describes a supported model and its default generation
// parameters. Name is the canonical key users select by; APIName is what
// goes on the wire (they differ for Anthropic's dated model ids).
type Descriptor struct {
	Name        string
	APIName     string
	DisplayName string
	Provider    Provider
	MaxTokens   int
	Temperature float64
	Description string
}

// DefaultModel is selected on first run before any set-model.
const DefaultModel = "gpt-3.5-turbo"

// ErrUnknownModel is returned by Resolve for names that match neither a
// canonical model nor an alias. Callers may follow up with Suggest.
type ErrUnknownModel struct {
	Name string
}

func (e *ErrUnknownModel) Error() string {
	return fmt.Sprintf("unknown model %q", e.Name)
}

var models = []Descriptor{
	{Name: "gpt-3.5-turbo", APIName: "gpt-3.5-turbo", DisplayName: "GPT-3.5 Turbo", Provider: ProviderOpenAI, MaxTokens: 100, Temperature: 0.7, Description: "Fast and efficient for CLI commands"},
	{Name: "gpt-4", APIName: "gpt-4", DisplayName: "GPT-4", Provider: ProviderOpenAI, MaxTokens: 100, Temperature: 0.7, Description: "Most capable model for complex commands"},
	{Name: "gpt-4-turbo", APIName: "gpt-4-turbo", DisplayName: "GPT-4 Turbo", Provider: ProviderOpenAI, MaxTokens: 100, Temperature: 0.7, Description: "Latest GPT-4 with improved performance"},

	{Name: "claude-3-haiku", APIName: "claude-3-haiku-20240307", DisplayName: "Claude 3 Haiku", Provider: ProviderAnthropic, MaxTokens: 100, Temperature: 0.7, Description: "Fast and efficient Claude model"},
	{Name: "claude-3-sonnet", APIName: "claude-3-sonnet-20240229", DisplayName: "Claude 3 Sonnet", Provider: ProviderAnthropic, MaxTokens: 100, Temperature: 0.7, Description: "Balanced Claude model for most tasks"},
	{Name: "claude-3-opus", APIName: "claude-3-opus-20240229", DisplayName: "Claude 3 Opus", Provider: ProviderAnthropic, MaxTokens: 100, Temperature: 0.7, Description: "Most capable Claude model"},

	{Name: "gemini-pro", APIName: "gemini-pro", DisplayName: "Gemini Pro", Provider: ProviderGoogle, MaxTokens: 100, Temperature: 0.7, Description: "Google's advanced language model"},

	{Name: "command", APIName: "command", DisplayName: "Cohere Command", Provider: ProviderCohere, MaxTokens: 100, Temperature: 0.7, Description: "Cohere's instruction-following model"},
	{Name: "command-light", APIName: "command-light", DisplayName: "Cohere Command Light", Provider: ProviderCohere, MaxTokens: 100, Temperature: 0.7, Description: "Faster Cohere model for simple tasks"},

	{Name: "llama2", APIName: "llama2", DisplayName: "Llama 2 (Local)", Provider: ProviderOllama, MaxTokens: 100, Temperature: 0.7, Description: "Local Llama 2 model via Ollama"},
	{Name: "codellama", APIName: "codellama", DisplayName: "Code Llama (Local)", Provider: ProviderOllama, MaxTokens: 100, Temperature: 0.7, Description: "Local Code Llama model for coding tasks"},
	{Name: "mistral", APIName: "mistral", DisplayName: "Mistral (Local)", Provider: ProviderOllama, MaxTokens: 100, Temperature: 0.7, Description: "Local Mistral model via Ollama"},
	{Name: "llama3.2:3b", APIName: "llama3.2:3b", DisplayName: "Llama 3.2 3B (Local)", Provider: ProviderOllama, MaxTokens: 100, Temperature: 0.7, Description: "Local Llama 3.2 3B model via Ollama"},
}

// aliases map common user spellings to canonical model names. Resolution is
// explicit: an alias match returns the canonical descriptor, anything else
// is an error so we never silently substitute a different model.
var aliases = map[string]string{
	// OpenAI
	"gpt4":    "gpt-4",
	"gpt-4o":  "gpt-4",
	"gpt3.5":  "gpt-3.5-turbo",
	"gpt-3.5": "gpt-3.5-turbo",
	// Anthropic
	"claude-haiku":  "claude-3-haiku",
	"claude-sonnet": "claude-3-sonnet",
	"claude-opus":   "claude-3-opus",
	// Google
	"gemini": "gemini-pro",
	// Cohere
	"command-lightnight": "command-light",
	// Ollama llama 3.2 spellings
	"llama-3.2-3b": "llama3.2:3b",
	"llama3_2_3b":  "llama3.2:3b",
	"llama32-3b":   "llama3.2:3b",
	"llama3.2-3b":  "llama3.2:3b",
}

// Resolve returns the descriptor for a model name or alias. Matching is
// case-insensitive; unknown names return *ErrUnknownModel.
func Resolve(name string) (Descriptor, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return Descriptor{}, &ErrUnknownModel{Name: name}
	}
	for _, m := range models {
		if strings.ToLower(m.Name) == key {
			return m, nil
		}
	}
	if canonical, ok := aliases[key]; ok {
		return Resolve(canonical)
	}
	return Descriptor{}, &ErrUnknownModel{Name: name}
}

// Suggest returns the closest known model name or alias for an unresolved
// input, for "did you mean X?" messaging. The empty string means nothing
// was close enough.
func Suggest(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return ""
	}

	best := ""
	bestDist := -1
	for _, candidate := range allNames() {
		d := levenshtein(key, strings.ToLower(candidate))
		if bestDist < 0 || d < bestDist {
			best, bestDist = candidate, d
		}
	}

	// Same cutoff idea as difflib's 0.6 ratio: the edit distance must be
	// small relative to the longer string.
	longer := len(key)
	if len(best) > longer {
		longer = len(best)
	}
	if longer == 0 || float64(bestDist)/float64(longer) > 0.4 {
		return ""
	}
	return best
}

// All returns every supported model, in catalog order.
func All() []Descriptor {
	out := make([]Descriptor, len(models))
	copy(out, models)
	return out
}

// ModelsByProvider returns the models owned by one provider.
func ModelsByProvider(p Provider) []Descriptor {
	var out []Descriptor
	for _, m := range models {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	return out
}

// Providers returns the distinct provider families, sorted.
func Providers() []Provider {
	seen := map[Provider]bool{}
	var out []Provider
	for _, m := range models {
		if !seen[m.Provider] {
			seen[m.Provider] = true
			out = append(out, m.Provider)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// PromptTemplate returns the provider-tuned template for command
// generation. Each template has a single %s slot for the user prompt;
// terse providers get more directive phrasing.
func PromptTemplate(p Provider) string {
	switch p {
	case ProviderOpenAI:
		return "Show me the CLI command for: %s. Return only the command."
	case ProviderAnthropic:
		return "What CLI command would I use to: %s? Provide only the command."
	case ProviderGoogle:
		return "CLI command for: %s. Command only."
	case ProviderCohere:
		return "Generate a command line command for: %s. Return just the command."
	case ProviderOllama:
		return "Command: %s"
	default:
		return "Generate a single CLI command for: %s. Return only the command, no explanations."
	}
}

// SQLPromptTemplate returns the template for SQL generation; shared across
// providers since none of them needed tuning for it.
func SQLPromptTemplate() string {
	return "You are a database engineer. Write a SQL query that %s. Return only the SQL query, no explanations, no markdown, no code blocks."
}

func allNames() []string {
	names := make([]string, 0, len(models)+len(aliases))
	for _, m := range models {
		names = append(names, m.Name)
	}
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	return names
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(cur[j-1]+1, prev[j]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
