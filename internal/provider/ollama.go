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

const ollamaDefaultBaseURL = "http://localhost:11434"

// Ollama drives a locally running model server. No credential: validation
// is a liveness probe against the local endpoint instead.
type Ollama struct {
	model   registry.Descriptor
	baseURL string
	client  *http.Client
}

func NewOllama(model registry.Descriptor, cred Credential) *Ollama {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = ollamaDefaultBaseURL
	}
	return &Ollama{
		model:   model,
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (o *Ollama) Model() string { return o.model.Name }
func (o *Ollama) Kind() Kind    { return KindOllama }

func (o *Ollama) GenerateCommand(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.PromptTemplate(registry.ProviderOllama), prompt)
	return o.generate(ctx, commandSystemPrompt+"\n\n"+user, commandMaxTokens)
}

func (o *Ollama) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	return o.generate(ctx, fmt.Sprintf(registry.SQLPromptTemplate(), prompt), sqlMaxTokens)
}

// ValidateCredential probes /api/tags to confirm the server is up.
func (o *Ollama) ValidateCredential(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/api/tags", nil)
	if err != nil {
		return netErr(KindOllama, err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return &Error{Provider: KindOllama, Message: "ollama not running at " + o.baseURL, Hint: "start ollama or configure its base URL", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusErr(KindOllama, resp.StatusCode, "ollama is not healthy")
	}
	return nil
}

// ModelAvailable reports whether this adapter's model is pulled locally.
func (o *Ollama) ModelAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}
	for _, m := range result.Models {
		if m.Name == o.model.APIName {
			return true
		}
	}
	return false
}

func (o *Ollama) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	reqBody := struct {
		Model   string `json:"model"`
		Prompt  string `json:"prompt"`
		Stream  bool   `json:"stream"`
		Options struct {
			Temperature float64 `json:"temperature"`
			NumPredict  int     `json:"num_predict"`
		} `json:"options"`
	}{
		Model:  o.model.APIName,
		Prompt: prompt,
		Stream: false,
	}
	reqBody.Options.Temperature = temperature
	reqBody.Options.NumPredict = maxTokens

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", decodeErr(KindOllama, err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", netErr(KindOllama, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", &Error{Provider: KindOllama, Message: "ollama not reachable at " + o.baseURL, Hint: "start ollama or configure its base URL", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusErr(KindOllama, resp.StatusCode, "generation failed")
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", decodeErr(KindOllama, err)
	}

	if strings.TrimSpace(result.Response) == "" {
		return "", emptyErr(KindOllama)
	}
	return strings.TrimSpace(result.Response), nil
}
