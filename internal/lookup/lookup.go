// Package lookup coordinates one natural-language lookup end to end:
// resolve the active model and credential, collect the prompt, call the
// provider adapter, sanitize, safety-check, then record and surface the
// result. One invocation makes exactly one provider call; there are no
// automatic retries here.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/chatcmd/chatcmd/internal/provider"
	"github.com/chatcmd/chatcmd/internal/registry"
	"github.com/chatcmd/chatcmd/internal/safety"
	"github.com/chatcmd/chatcmd/internal/sanitize"
	"github.com/chatcmd/chatcmd/internal/store"
	"github.com/chatcmd/chatcmd/internal/ui"
)

// Store is the persistence collaborator. *store.Store satisfies it; tests
// substitute an in-memory fake.
type Store interface {
	ActiveModel() (model, provider string, err error)
	SetActiveModel(model, provider string) error
	Credential(provider string) (store.Credential, bool, error)
	AppendHistory(prompt, command, modelName, provider string) error
	RecordUsage(provider, modelName string, responseTime float64, success bool) error
	UsageStats(days int) ([]store.UsageStat, error)
}

// Options injects the remaining collaborators. Zero fields get production
// defaults; tests override them with fakes.
type Options struct {
	// Clipboard copies accepted text; best-effort.
	Clipboard func(text string) error

	// Input reads one line of user input for the given label.
	Input func(label string) (string, error)

	// Create builds a provider adapter. Defaults to the factory.
	Create func(model registry.Descriptor, cred provider.Credential) (provider.Adapter, error)

	// OllamaBaseURL overrides the local model server endpoint when the
	// store has no base URL for ollama.
	OllamaBaseURL string

	Debug bool
}

// Stats summarizes generation attempts over a window.
type Stats struct {
	TotalRequests   int
	SuccessCount    int
	FailureCount    int
	AvgResponseTime float64
	ModelsUsed      []string
}

// Orchestrator is the top-level use-case coordinator. Single-threaded,
// one linear run per invocation.
type Orchestrator struct {
	store         Store
	create        func(registry.Descriptor, provider.Credential) (provider.Adapter, error)
	clipboard     func(string) error
	input         func(string) (string, error)
	ollamaBaseURL string
	debug         bool
}

// New wires an Orchestrator. factory may be nil if opts.Create is set.
func New(st Store, factory *provider.Factory, opts Options) *Orchestrator {
	create := opts.Create
	if create == nil {
		create = factory.Create
	}
	input := opts.Input
	if input == nil {
		input = ui.PromptInput
	}
	return &Orchestrator{
		store:         st,
		create:        create,
		clipboard:     opts.Clipboard,
		input:         input,
		ollamaBaseURL: opts.OllamaBaseURL,
		debug:         opts.Debug,
	}
}

type generationKind int

const (
	kindCommand generationKind = iota
	kindSQL
)

// promptCharset is the allow-list for user prompts: letters, digits,
// whitespace, and a small punctuation set. Anything else is rejected
// before a network call is made.
func promptCharsetOK(prompt string) bool {
	for _, r := range prompt {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == ' ', r == '\t':
		case r == '_', r == '-', r == '@', r == '$', r == '.':
		default:
			return false
		}
	}
	return true
}

// LookupCommand runs the interactive CLI-command lookup.
func (o *Orchestrator) LookupCommand(ctx context.Context, noCopy bool, modelOverride string) error {
	return o.run(ctx, kindCommand, noCopy, modelOverride)
}

// LookupSQL runs the interactive SQL-query lookup.
func (o *Orchestrator) LookupSQL(ctx context.Context, noCopy bool, modelOverride string) error {
	return o.run(ctx, kindSQL, noCopy, modelOverride)
}

func (o *Orchestrator) run(ctx context.Context, kind generationKind, noCopy bool, modelOverride string) error {
	desc, adapter, err := o.resolveAdapter(ctx, modelOverride)
	if err != nil {
		o.reportConfigError(err)
		return nil
	}

	label := "Prompt"
	if kind == kindSQL {
		label = "SQL Query Prompt"
	}
	prompt, quit, err := o.readPrompt(label)
	if err != nil {
		return err
	}
	if quit {
		fmt.Println("bye...")
		return nil
	}

	if kind == kindSQL {
		ui.ShowInfo("Writing SQL query...")
	} else {
		ui.ShowInfo("Looking up...")
	}

	start := time.Now()
	var raw string
	if kind == kindSQL {
		raw, err = adapter.GenerateSQL(ctx, prompt)
	} else {
		raw, err = adapter.GenerateCommand(ctx, prompt)
	}
	elapsed := time.Since(start).Seconds()

	if o.debug {
		fmt.Fprintf(os.Stderr, "[DEBUG] Lookup: provider=%s model=%s elapsed=%.2fs err=%v\n",
			adapter.Kind(), desc.Name, elapsed, err)
	}

	if err != nil {
		// Provider-level failure: failed usage record, diagnostic, done.
		o.recordUsage(desc, elapsed, false)
		var perr *provider.Error
		if errors.As(err, &perr) {
			ui.ShowError(perr.Error())
			if perr.Hint != "" {
				ui.ShowInfo(perr.Hint)
			}
		} else {
			ui.ShowError(err.Error())
		}
		if kind == kindSQL {
			ui.ShowError("Could not generate SQL query. Please try again.")
		} else {
			ui.ShowError("Could not generate command. Please try again.")
		}
		return nil
	}

	// The API call itself succeeded; whatever happens to the content
	// below, this attempt counts as a success for performance stats.
	o.recordUsage(desc, elapsed, true)

	var clean string
	var ok bool
	if kind == kindSQL {
		clean, ok = sanitize.CleanSQL(raw)
	} else {
		clean, ok = sanitize.CleanCommand(raw)
	}
	if !ok {
		if kind == kindSQL {
			ui.ShowWarning("No SQL query found for this request!")
		} else {
			ui.ShowWarning("No command found for this request!")
		}
		return nil
	}

	var verdict safety.Verdict
	if kind == kindSQL {
		verdict = safety.CheckSQL(clean)
	} else {
		verdict = safety.CheckCommand(clean)
	}
	if !verdict.OK {
		ui.ShowError("Blocked: " + verdict.Reason)
		return nil
	}

	// Accepted: clipboard and history are best-effort; the result is
	// shown regardless.
	if !noCopy && o.clipboard != nil {
		if err := o.clipboard(clean); err != nil {
			ui.ShowWarning("Failed to copy to clipboard; copy the result manually")
		}
	}
	if err := o.store.AppendHistory(prompt, clean, desc.Name, string(desc.Provider)); err != nil {
		ui.Warnf("failed to add to history: %v", err)
	}

	ui.ShowResult(clean)
	return nil
}

// readPrompt loops (iteratively, never recursively) until it has a valid
// prompt, the user types exit, or input fails.
func (o *Orchestrator) readPrompt(label string) (prompt string, quit bool, err error) {
	for {
		line, err := o.input(label)
		if err != nil {
			return "", false, err
		}
		line = strings.TrimSpace(line)

		if line == "exit" {
			return "", true, nil
		}
		if line == "" {
			fmt.Println("Please enter a valid prompt or 'exit' to quit.")
			continue
		}
		if !promptCharsetOK(line) {
			ui.ShowWarning("Please enter a valid prompt (letters, digits, and _-@$. only).")
			continue
		}
		if len(strings.Fields(line)) < 3 {
			ui.ShowWarning("Please type in more than two words.")
			continue
		}
		return line, false, nil
	}
}

// configError is a configuration failure with an optional remediation line.
type configError struct {
	msg  string
	hint string
}

func (e *configError) Error() string { return e.msg }

func (o *Orchestrator) reportConfigError(err error) {
	var cfg *configError
	if errors.As(err, &cfg) {
		ui.ShowError(cfg.msg)
		if cfg.hint != "" {
			ui.ShowInfo(cfg.hint)
		}
		return
	}
	ui.ShowError(err.Error())
}

// resolveAdapter turns the stored selection (or an explicit override) into
// a validated, ready adapter. All failures here are configuration errors:
// no adapter is constructed when a required credential is absent.
func (o *Orchestrator) resolveAdapter(ctx context.Context, modelOverride string) (registry.Descriptor, provider.Adapter, error) {
	name := modelOverride
	if name == "" {
		stored, _, err := o.store.ActiveModel()
		if err != nil {
			return registry.Descriptor{}, nil, &configError{msg: "No model configured", hint: "use set-model to choose a model"}
		}
		name = stored
	}

	desc, err := registry.Resolve(name)
	if err != nil {
		msg := fmt.Sprintf("Model %q is not supported", name)
		if suggestion := registry.Suggest(name); suggestion != "" {
			msg += fmt.Sprintf(". Did you mean %q?", suggestion)
		}
		return registry.Descriptor{}, nil, &configError{msg: msg, hint: "use models to list supported models"}
	}

	providerName := string(desc.Provider)
	cred, found, err := o.store.Credential(providerName)
	if err != nil {
		return registry.Descriptor{}, nil, fmt.Errorf("failed to read credential: %w", err)
	}

	if desc.Provider != registry.ProviderOllama && (!found || cred.Secret == "") {
		return registry.Descriptor{}, nil, &configError{
			msg:  fmt.Sprintf("No API key found for provider %q", providerName),
			hint: fmt.Sprintf("use set-key %s to configure your API key", providerName),
		}
	}

	pcred := provider.Credential{Secret: cred.Secret, BaseURL: cred.BaseURL}
	if desc.Provider == registry.ProviderOllama && pcred.BaseURL == "" {
		pcred.BaseURL = o.ollamaBaseURL
	}

	adapter, err := o.create(desc, pcred)
	if err != nil {
		return registry.Descriptor{}, nil, &configError{msg: fmt.Sprintf("Could not create provider for model %q: %v", desc.Name, err)}
	}

	if err := adapter.ValidateCredential(ctx); err != nil {
		var perr *provider.Error
		if errors.As(err, &perr) {
			return registry.Descriptor{}, nil, &configError{msg: perr.Error(), hint: perr.Hint}
		}
		return registry.Descriptor{}, nil, err
	}

	return desc, adapter, nil
}

func (o *Orchestrator) recordUsage(desc registry.Descriptor, seconds float64, success bool) {
	if err := o.store.RecordUsage(string(desc.Provider), desc.Name, seconds, success); err != nil {
		ui.Warnf("could not track usage: %v", err)
	}
}

// SetModel validates and persists a new active model. Returns false (with
// a printed reason) when the name is unknown or its provider lacks a key.
func (o *Orchestrator) SetModel(name string) bool {
	desc, err := registry.Resolve(name)
	if err != nil {
		msg := fmt.Sprintf("Model %q is not supported", name)
		if suggestion := registry.Suggest(name); suggestion != "" {
			msg += fmt.Sprintf(". Did you mean %q?", suggestion)
		}
		ui.ShowError(msg)
		return false
	}

	providerName := string(desc.Provider)
	if desc.Provider != registry.ProviderOllama {
		cred, found, err := o.store.Credential(providerName)
		if err != nil || !found || cred.Secret == "" {
			ui.ShowError(fmt.Sprintf("No API key configured for provider %q", providerName))
			ui.ShowInfo(fmt.Sprintf("use set-key %s to configure your API key", providerName))
			return false
		}
	}

	if err := o.store.SetActiveModel(desc.Name, providerName); err != nil {
		ui.ShowError("Failed to set current model")
		return false
	}
	ui.ShowSuccess("Current model set to: " + desc.DisplayName)
	return true
}

// ListModels prints the catalog grouped by provider with availability
// markers. Ollama models are always marked available (no key required).
func (o *Orchestrator) ListModels() {
	current, _, err := o.store.ActiveModel()
	if err != nil {
		current = ""
	}

	ui.ShowSection("Available AI Models")
	for _, p := range registry.Providers() {
		fmt.Printf("\n%s:\n", strings.ToUpper(string(p)))
		available := o.providerAvailable(p)
		for _, m := range registry.ModelsByProvider(p) {
			marker := "✗"
			if available {
				marker = "✓"
			}
			line := fmt.Sprintf("  %s %s (%s)", marker, m.DisplayName, m.Name)
			if m.Name == current {
				line += "  [current]"
			}
			fmt.Println(line)
		}
	}
	fmt.Println()
}

func (o *Orchestrator) providerAvailable(p registry.Provider) bool {
	if p == registry.ProviderOllama {
		return true
	}
	cred, found, err := o.store.Credential(string(p))
	return err == nil && found && cred.Secret != ""
}

// PerformanceStats aggregates usage telemetry for the last N days.
func (o *Orchestrator) PerformanceStats(days int) (Stats, error) {
	records, err := o.store.UsageStats(days)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read usage stats: %w", err)
	}

	var s Stats
	s.TotalRequests = len(records)
	modelSet := map[string]bool{}
	var totalTime float64
	var timed int
	for _, r := range records {
		if r.Success {
			s.SuccessCount++
		} else {
			s.FailureCount++
		}
		if r.ResponseTime > 0 {
			totalTime += r.ResponseTime
			timed++
		}
		modelSet[r.Provider+"/"+r.ModelName] = true
	}
	if timed > 0 {
		s.AvgResponseTime = totalTime / float64(timed)
	}
	for m := range modelSet {
		s.ModelsUsed = append(s.ModelsUsed, m)
	}
	sort.Strings(s.ModelsUsed)
	return s, nil
}

// PortLookup asks the active model for the service behind a port number.
// Free-text answer: nothing here is executed or copied as a command, so
// the SafetyGate does not apply.
func (o *Orchestrator) PortLookup(ctx context.Context) error {
	return o.askOneShot(ctx, "Port", "Please enter a valid port.", func(value string) string {
		return fmt.Sprintf("Provide the common service name and protocol for port %s. Return concise answer only.", value)
	})
}

// ColorCode asks the active model for a color's HEX code.
func (o *Orchestrator) ColorCode(ctx context.Context) error {
	return o.askOneShot(ctx, "Color", "Please enter a valid color description.", func(value string) string {
		return fmt.Sprintf("What is the HEX code for this color? Return the hex code only: %s", value)
	})
}

func (o *Orchestrator) askOneShot(ctx context.Context, label, emptyMsg string, buildQuery func(string) string) error {
	desc, adapter, err := o.resolveAdapter(ctx, "")
	if err != nil {
		o.reportConfigError(err)
		return nil
	}

	value, err := o.input(label)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		ui.ShowWarning(emptyMsg)
		return nil
	}

	ui.ShowInfo("Looking up...")
	start := time.Now()
	response, err := adapter.GenerateCommand(ctx, buildQuery(value))
	elapsed := time.Since(start).Seconds()
	o.recordUsage(desc, elapsed, err == nil)

	if err != nil {
		ui.ShowError("Could not retrieve an answer. Please try again.")
		return nil
	}
	fmt.Println(strings.TrimSpace(response))
	return nil
}
