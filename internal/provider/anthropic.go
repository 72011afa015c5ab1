package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/chatcmd/chatcmd/internal/registry"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// Anthropic drives the messages API.
type Anthropic struct {
	model   registry.Descriptor
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewAnthropic(model registry.Descriptor, cred Credential) *Anthropic {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = anthropicDefaultBaseURL
	}
	return &Anthropic{
		model:   model,
		apiKey:  cred.Secret,
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (a *Anthropic) Model() string { return a.model.Name }
func (a *Anthropic) Kind() Kind    { return KindAnthropic }

func (a *Anthropic) GenerateCommand(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.PromptTemplate(registry.ProviderAnthropic), prompt)
	return a.message(ctx, commandSystemPrompt, user, commandMaxTokens)
}

func (a *Anthropic) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.SQLPromptTemplate(), prompt)
	return a.message(ctx, "", user, sqlMaxTokens)
}

func (a *Anthropic) ValidateCredential(ctx context.Context) error {
	if strings.TrimSpace(a.apiKey) == "" || len(a.apiKey) <= 20 {
		return &Error{Provider: KindAnthropic, Message: "API key missing or too short", Hint: "use set-key anthropic to update your API key"}
	}
	return nil
}

func (a *Anthropic) message(ctx context.Context, system, user string, maxTokens int) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody := struct {
		Model       string    `json:"model"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature"`
		System      string    `json:"system,omitempty"`
		Messages    []message `json:"messages"`
	}{
		Model:       a.model.APIName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		System:      system,
		Messages:    []message{{Role: "user", Content: user}},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", decodeErr(KindAnthropic, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v1/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", netErr(KindAnthropic, err)
	}
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", netErr(KindAnthropic, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", statusErr(KindAnthropic, resp.StatusCode, errResp.Error.Message)
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", decodeErr(KindAnthropic, err)
	}

	if len(result.Content) == 0 || strings.TrimSpace(result.Content[0].Text) == "" {
		return "", emptyErr(KindAnthropic)
	}
	return strings.TrimSpace(result.Content[0].Text), nil
}
