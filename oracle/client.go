package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"socanalyzer/internal/logger"
)

// Endpoint kinds supported by the adapter.
const (
	KindOpenAI = "openai"
	KindTGI    = "tgi"
)

// Config holds the oracle connection settings.
type Config struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Kind        string  `yaml:"kind"` // "openai" or "tgi"
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSec  int     `yaml:"timeout_seconds"`
}

// Client invokes the risk-assessment oracle over HTTP. The call is
// single-shot with a fixed timeout; on any transport failure the client
// degrades to the local heuristic classifier instead of returning an
// error, so an oracle outage never blocks persistence of a
// degraded-but-labeled analysis.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// AssessOptions carries per-request overrides.
type AssessOptions struct {
	// CustomPrompt replaces the default prompt template entirely.
	CustomPrompt string
	// APIKey overrides the configured credential (personal user key).
	APIKey string
	// Contexts are similar past analyses injected by the retriever.
	Contexts []string
}

// Assessment is the oracle's narrative plus degradation metadata.
type Assessment struct {
	Narrative     string `json:"narrative"`
	Degraded      bool   `json:"degraded"`
	PromptVersion string `json:"prompt_version"`
	TransportErr  string `json:"transport_error,omitempty"`
}

// New creates an oracle client. Zero-value config fields get defaults.
func New(cfg Config) *Client {
	if cfg.Kind == "" {
		cfg.Kind = KindTGI
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.2
	}
	if cfg.TimeoutSec <= 0 {
		cfg.TimeoutSec = 60
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// Assess sends the payload to the oracle and returns the narrative. It
// never returns an error: transport failures, timeouts and non-200
// responses all degrade to the heuristic fallback narrative.
func (c *Client) Assess(ctx context.Context, payload string, opts AssessOptions) Assessment {
	prompt := opts.CustomPrompt
	if prompt == "" {
		prompt = BuildPrompt(payload, opts.Contexts)
	}

	narrative, err := c.invoke(ctx, prompt, opts.APIKey)
	if err != nil {
		logger.Warn("oracle unavailable, using heuristic fallback: %v", err)
		return Assessment{
			Narrative:     FallbackNarrative(payload),
			Degraded:      true,
			PromptVersion: PromptVersion,
			TransportErr:  err.Error(),
		}
	}
	return Assessment{
		Narrative:     narrative,
		PromptVersion: PromptVersion,
	}
}

// invoke performs the single HTTP round trip to the configured endpoint.
func (c *Client) invoke(ctx context.Context, prompt, apiKeyOverride string) (string, error) {
	apiKey := c.cfg.APIKey
	if apiKeyOverride != "" {
		apiKey = apiKeyOverride
	}

	var body []byte
	var err error
	switch c.cfg.Kind {
	case KindOpenAI:
		body, err = json.Marshal(map[string]interface{}{
			"model": c.cfg.Model,
			"messages": []map[string]string{
				{"role": "system", "content": "Tu es un expert en cybersécurité spécialisé dans l'analyse de logs QRadar. Réponds toujours en français."},
				{"role": "user", "content": prompt},
			},
			"max_tokens":  c.cfg.MaxTokens,
			"temperature": c.cfg.Temperature,
		})
	default:
		body, err = json.Marshal(map[string]interface{}{
			"prompt":         prompt,
			"max_new_tokens": c.cfg.MaxTokens,
			"temperature":    c.cfg.Temperature,
		})
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle returned status %d", resp.StatusCode)
	}

	return decodeNarrative(data)
}

// decodeNarrative extracts the generated text from either wire shape:
// {"generated_text": ...} / {"text": ...} (TGI) or the OpenAI-compatible
// {"choices":[{"message":{"content": ...}}]}.
func decodeNarrative(data []byte) (string, error) {
	var envelope struct {
		GeneratedText string `json:"generated_text"`
		Text          string `json:"text"`
		Choices       []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return "", fmt.Errorf("failed to decode oracle response: %w", err)
	}

	switch {
	case envelope.GeneratedText != "":
		return envelope.GeneratedText, nil
	case envelope.Text != "":
		return envelope.Text, nil
	case len(envelope.Choices) > 0 && envelope.Choices[0].Message.Content != "":
		return envelope.Choices[0].Message.Content, nil
	}
	return "", fmt.Errorf("oracle response carried no generated text")
}
