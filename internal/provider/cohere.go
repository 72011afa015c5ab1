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

const cohereDefaultBaseURL = "https://api.cohere.ai"

// Cohere drives the generate API.
type Cohere struct {
	model   registry.Descriptor
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewCohere(model registry.Descriptor, cred Credential) *Cohere {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = cohereDefaultBaseURL
	}
	return &Cohere{
		model:   model,
		apiKey:  cred.Secret,
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (c *Cohere) Model() string { return c.model.Name }
func (c *Cohere) Kind() Kind    { return KindCohere }

func (c *Cohere) GenerateCommand(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.PromptTemplate(registry.ProviderCohere), prompt)
	return c.generate(ctx, commandSystemPrompt+"\n\n"+user, commandMaxTokens)
}

func (c *Cohere) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, fmt.Sprintf(registry.SQLPromptTemplate(), prompt), sqlMaxTokens)
}

func (c *Cohere) ValidateCredential(ctx context.Context) error {
	if strings.TrimSpace(c.apiKey) == "" || len(c.apiKey) <= 20 {
		return &Error{Provider: KindCohere, Message: "API key missing or too short", Hint: "use set-key cohere to update your API key"}
	}
	return nil
}

func (c *Cohere) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := struct {
		Model          string  `json:"model"`
		Prompt         string  `json:"prompt"`
		MaxTokens      int     `json:"max_tokens"`
		Temperature    float64 `json:"temperature"`
		NumGenerations int     `json:"num_generations"`
	}{
		Model:          c.model.APIName,
		Prompt:         prompt,
		MaxTokens:      maxTokens,
		Temperature:    temperature,
		NumGenerations: 1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", decodeErr(KindCohere, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", netErr(KindCohere, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", netErr(KindCohere, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Message string `json:"message"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", statusErr(KindCohere, resp.StatusCode, errResp.Message)
	}

	var result struct {
		Generations []struct {
			Text string `json:"text"`
		} `json:"generations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", decodeErr(KindCohere, err)
	}

	if len(result.Generations) == 0 || strings.TrimSpace(result.Generations[0].Text) == "" {
		return "", emptyErr(KindCohere)
	}
	return strings.TrimSpace(result.Generations[0].Text), nil
}
