// Package provider holds one adapter per LLM provider family behind a
// single generation contract. Adapters translate a generic request into
// the provider's wire format, unwrap the response envelope, and return the
// raw text; sanitization is shared and happens above this layer.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Kind identifies a provider family. The set is closed: the factory
// switches over it exhaustively, so adding a family means touching every
// dispatch site.
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
	KindCohere    Kind = "cohere"
	KindOllama    Kind = "ollama"
)

// Token budgets and temperature are fixed per the generation kind:
// commands are short, SQL gets headroom for multi-clause statements.
const (
	commandMaxTokens = 100
	sqlMaxTokens     = 200
	temperature      = 0.7

	generateTimeout = 15 * time.Second
	probeTimeout    = 5 * time.Second
)

const commandSystemPrompt = "You are a CLI command expert. Generate only the command needed to accomplish the task. Return only the command, no explanations, no markdown, no code blocks."

// Credential carries what a provider needs to authenticate. Secret may be
// empty for local providers; BaseURL overrides the default endpoint.
type Credential struct {
	Secret  string
	BaseURL string
}

// Fingerprint is a short non-reversible cache key component. Never logged
// in full; ten characters is enough to distinguish rotated keys.
func (c Credential) Fingerprint() string {
	if len(c.Secret) > 10 {
		return c.Secret[:10]
	}
	return c.Secret
}

// Adapter is the common generation contract. Implementations must not
// panic past their boundary: all failures come back as *Error.
type Adapter interface {
	// GenerateCommand asks the model for a single CLI command.
	GenerateCommand(ctx context.Context, prompt string) (string, error)

	// GenerateSQL asks the model for a single SQL query.
	GenerateSQL(ctx context.Context, prompt string) (string, error)

	// ValidateCredential is a fast, side-effect-free format check for
	// network providers, and a liveness probe for local ones. Real
	// validation happens lazily on the first generation failure.
	ValidateCredential(ctx context.Context) error

	// Model returns the canonical model name this adapter drives.
	Model() string

	// Kind returns the provider family.
	Kind() Kind
}

// Error is the normalized failure shape for every adapter: provider name,
// HTTP status when one exists, and a remediation hint for the user.
type Error struct {
	Provider Kind
	Status   int
	Message  string
	Hint     string
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d)", e.Provider, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: generateTimeout}
}

func netErr(kind Kind, err error) *Error {
	return &Error{Provider: kind, Message: "request failed", Hint: "check your network connection", Err: err}
}

func statusErr(kind Kind, status int, message string) *Error {
	if message == "" {
		message = "unexpected response"
	}
	hint := ""
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		hint = "use set-key to update your API key"
	case status == http.StatusTooManyRequests:
		hint = "rate limited; wait and retry"
	}
	return &Error{Provider: kind, Status: status, Message: message, Hint: hint}
}

func decodeErr(kind Kind, err error) *Error {
	return &Error{Provider: kind, Message: "malformed response", Err: err}
}

func emptyErr(kind Kind) *Error {
	return &Error{Provider: kind, Message: "empty response"}
}
