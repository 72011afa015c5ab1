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

const openAIDefaultBaseURL = "https://api.openai.com"

// OpenAI drives the chat-completions API.
type OpenAI struct {
	model   registry.Descriptor
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewOpenAI(model registry.Descriptor, cred Credential) *OpenAI {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = openAIDefaultBaseURL
	}
	return &OpenAI{
		model:   model,
		apiKey:  cred.Secret,
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (o *OpenAI) Model() string { return o.model.Name }
func (o *OpenAI) Kind() Kind    { return KindOpenAI }

func (o *OpenAI) GenerateCommand(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.PromptTemplate(registry.ProviderOpenAI), prompt)
	return o.chat(ctx, commandSystemPrompt, user, commandMaxTokens)
}

func (o *OpenAI) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.SQLPromptTemplate(), prompt)
	return o.chat(ctx, "", user, sqlMaxTokens)
}

// ValidateCredential checks key shape only: sk- prefix, plausible length,
// key charset. Deliberately no network round trip.
func (o *OpenAI) ValidateCredential(ctx context.Context) error {
	key := o.apiKey
	if !strings.HasPrefix(key, "sk-") {
		return &Error{Provider: KindOpenAI, Message: "API key must start with sk-", Hint: "use set-key openai to update your API key"}
	}
	if len(key) < 20 {
		return &Error{Provider: KindOpenAI, Message: "API key is too short", Hint: "use set-key openai to update your API key"}
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return &Error{Provider: KindOpenAI, Message: "API key contains invalid characters", Hint: "use set-key openai to update your API key"}
		}
	}
	return nil
}

func (o *OpenAI) chat(ctx context.Context, system, user string, maxTokens int) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody := struct {
		Model       string    `json:"model"`
		Messages    []message `json:"messages"`
		MaxTokens   int       `json:"max_tokens"`
		Temperature float64   `json:"temperature"`
		N           int       `json:"n"`
	}{
		Model:       o.model.APIName,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		N:           1,
	}
	if system != "" {
		reqBody.Messages = append(reqBody.Messages, message{Role: "system", Content: system})
	}
	reqBody.Messages = append(reqBody.Messages, message{Role: "user", Content: user})

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", decodeErr(KindOpenAI, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/v1/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", netErr(KindOpenAI, err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", netErr(KindOpenAI, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", statusErr(KindOpenAI, resp.StatusCode, errResp.Error.Message)
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", decodeErr(KindOpenAI, err)
	}

	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", emptyErr(KindOpenAI)
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}
