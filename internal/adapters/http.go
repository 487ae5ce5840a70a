package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPGenerator calls a text-generation sidecar over HTTP. The sidecar
// contract is a single POST endpoint taking {prompt, max_tokens} and
// returning {text, model}. 413 maps to ErrLengthExceeded and 5xx to
// ErrAdapterUnavailable so the pipeline's degradation rules apply.
type HTTPGenerator struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGenerator(baseURL string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &HTTPGenerator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type generateRequestBody struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type generateResponseBody struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Error string `json:"error,omitempty"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	body, err := json.Marshal(generateRequestBody{Prompt: req.Prompt, MaxTokens: req.MaxTokens})
	if err != nil {
		return nil, fmt.Errorf("encoding generate request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapterUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusRequestEntityTooLarge:
		return nil, ErrLengthExceeded
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: backend returned %d", ErrAdapterUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("generate backend returned %d", resp.StatusCode)
	}

	var out generateResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding generate response: %w", err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("generate backend error: %s", out.Error)
	}
	return &GenerateResult{Text: out.Text, Model: out.Model}, nil
}
