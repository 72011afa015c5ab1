package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/chatcmd/chatcmd/internal/registry"
)

const googleDefaultBaseURL = "https://generativelanguage.googleapis.com"

// Google drives the generateContent REST API. The key travels as a query
// parameter, so it must never appear in error messages.
type Google struct {
	model   registry.Descriptor
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewGoogle(model registry.Descriptor, cred Credential) *Google {
	baseURL := cred.BaseURL
	if baseURL == "" {
		baseURL = googleDefaultBaseURL
	}
	return &Google{
		model:   model,
		apiKey:  cred.Secret,
		baseURL: baseURL,
		client:  newHTTPClient(),
	}
}

func (g *Google) Model() string { return g.model.Name }
func (g *Google) Kind() Kind    { return KindGoogle }

func (g *Google) GenerateCommand(ctx context.Context, prompt string) (string, error) {
	user := fmt.Sprintf(registry.PromptTemplate(registry.ProviderGoogle), prompt)
	return g.generate(ctx, commandSystemPrompt+"\n\n"+user, commandMaxTokens)
}

func (g *Google) GenerateSQL(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, fmt.Sprintf(registry.SQLPromptTemplate(), prompt), sqlMaxTokens)
}

func (g *Google) ValidateCredential(ctx context.Context) error {
	if strings.TrimSpace(g.apiKey) == "" || len(g.apiKey) < 20 {
		return &Error{Provider: KindGoogle, Message: "API key missing or too short", Hint: "use set-key google to update your API key"}
	}
	return nil
}

func (g *Google) generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Parts []part `json:"parts"`
	}
	reqBody := struct {
		Contents         []content `json:"contents"`
		GenerationConfig struct {
			MaxOutputTokens int     `json:"maxOutputTokens"`
			Temperature     float64 `json:"temperature"`
		} `json:"generationConfig"`
	}{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	reqBody.GenerationConfig.MaxOutputTokens = maxTokens
	reqBody.GenerationConfig.Temperature = temperature

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", decodeErr(KindGoogle, err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		g.baseURL, g.model.APIName, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", netErr(KindGoogle, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", netErr(KindGoogle, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", statusErr(KindGoogle, resp.StatusCode, errResp.Error.Message)
	}

	var result struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", decodeErr(KindGoogle, err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", emptyErr(KindGoogle)
	}
	text := strings.TrimSpace(result.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", emptyErr(KindGoogle)
	}
	return text, nil
}
