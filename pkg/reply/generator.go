// Package reply produces persona-consistent engagement replies via an
// external LLM. The provider is an untrusted, possibly-failing black box:
// every call carries a bounded timeout, and any failure surfaces as an
// error for the engine to replace with the persona fallback. Nothing in
// this package ever reaches the turn boundary directly.
package reply

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/TrapWireAI/baitline/pkg/httputil"
)

// Provider defines the backend LLM service type.
type Provider string

const (
	ProviderGemini     Provider = "gemini"
	ProviderOpenRouter Provider = "openrouter"
	ProviderGroq       Provider = "groq"
	ProviderOllama     Provider = "ollama"
)

// Message is one entry of the conversation history handed in by the
// transport layer.
type Message struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Analysis is the strict output contract the LLM must honor.
type Analysis struct {
	IsScam bool   `json:"isScam"`
	Reason string `json:"reason"`
	Reply  string `json:"reply"`
}

// Generator produces a persona reply for the current message.
type Generator interface {
	Generate(ctx context.Context, history []Message, current string) (*Analysis, error)
}

// GeneratorConfig holds the configuration for the LLM generator.
type GeneratorConfig struct {
	Provider     Provider
	APIKey       string // optional for Ollama
	Model        string
	BaseURL      string        // optional override
	SystemPrompt string        // persona system instruction
	Timeout      time.Duration // per-call bound (default 30s)
	MaxRPS       float64       // outbound call rate limit (default 5)

	// Generation settings. The persona should sound human, so the
	// temperature default is well above what a classifier would use.
	Temperature     float64 // default 0.7
	MaxOutputTokens int     // default 200
}

// LLMGenerator calls an external LLM with the persona system instruction.
type LLMGenerator struct {
	client      *http.Client
	limiter     *rate.Limiter
	provider    Provider
	baseURL     string
	apiKey      string
	model       string
	system      string
	temperature float64
	maxTokens   int
}

// NewLLMGenerator creates a generator instance.
func NewLLMGenerator(cfg GeneratorConfig) *LLMGenerator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	if cfg.Model == "" {
		switch cfg.Provider {
		case ProviderGemini:
			cfg.Model = "gemini-1.5-flash"
		case ProviderOllama:
			cfg.Model = "qwen2.5:7b"
		default:
			cfg.Model = "nvidia/nemotron-3-nano-30b-a3b:free"
		}
	}

	var baseURL string
	switch cfg.Provider {
	case ProviderGemini:
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	case ProviderGroq:
		baseURL = "https://api.groq.com/openai/v1"
	case ProviderOllama:
		baseURL = "http://localhost:11434/v1"
	case ProviderOpenRouter:
		fallthrough
	default:
		baseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	maxRPS := cfg.MaxRPS
	if maxRPS <= 0 {
		maxRPS = 5
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.7
	}

	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}

	return &LLMGenerator{
		client:      httputil.NewClient(timeout),
		limiter:     rate.NewLimiter(rate.Limit(maxRPS), int(maxRPS)+1),
		provider:    cfg.Provider,
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		system:      cfg.SystemPrompt,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Generate asks the LLM for the next persona reply. The returned Analysis
// always has a non-empty Reply; any other outcome is an error.
func (g *LLMGenerator) Generate(ctx context.Context, history []Message, current string) (*Analysis, error) {
	if g.provider != ProviderOllama && g.apiKey == "" {
		return nil, fmt.Errorf("API key not configured for provider %s", g.provider)
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var raw string
	var err error
	if g.provider == ProviderGemini {
		raw, err = g.callGemini(ctx, history, current)
	} else {
		raw, err = g.callChatCompletions(ctx, history, current)
	}
	if err != nil {
		return nil, err
	}

	analysis := &Analysis{}
	if err := json.Unmarshal([]byte(extractJSON(raw)), analysis); err != nil {
		return nil, fmt.Errorf("malformed LLM output: %w", err)
	}
	if analysis.Reply == "" {
		return nil, fmt.Errorf("LLM output missing reply field")
	}
	return analysis, nil
}

// extractJSON strips markdown code fences and any surrounding prose from
// the model output before structural parsing.
func extractJSON(content string) string {
	clean := strings.TrimSpace(content)
	if start := strings.Index(clean, "{"); start != -1 {
		clean = clean[start:]
	}
	if end := strings.LastIndex(clean, "}"); end != -1 {
		clean = clean[:end+1]
	}
	return clean
}

// ============================================================================
// Gemini native endpoint
// ============================================================================

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *LLMGenerator) callGemini(ctx context.Context, history []Message, current string) (string, error) {
	contents := make([]geminiContent, 0, len(history)+1)
	for _, m := range history {
		contents = append(contents, geminiContent{
			Role:  geminiRole(m.Sender),
			Parts: []geminiPart{{Text: m.Text}},
		})
	}
	contents = append(contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: current}},
	})

	reqBody := geminiRequest{
		Contents: contents,
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.temperature,
			MaxOutputTokens: g.maxTokens,
		},
	}
	if g.system != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: g.system}}}
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)
	body, err := g.post(ctx, endpoint, nil, reqBody)
	if err != nil {
		return "", err
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no candidates returned")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

// geminiRole maps transport-layer senders onto the two roles Gemini
// accepts. The scam sender is "user"; our persona's past replies are
// "model".
func geminiRole(sender string) string {
	switch strings.ToLower(sender) {
	case "agent", "bot", "model", "assistant", "honeypot":
		return "model"
	default:
		return "user"
	}
}

// ============================================================================
// OpenAI-compatible chat completions (OpenRouter, Groq, Ollama)
// ============================================================================

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *LLMGenerator) callChatCompletions(ctx context.Context, history []Message, current string) (string, error) {
	msgs := make([]chatMessage, 0, len(history)+2)
	if g.system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: g.system})
	}
	for _, m := range history {
		role := "user"
		if geminiRole(m.Sender) == "model" {
			role = "assistant"
		}
		msgs = append(msgs, chatMessage{Role: role, Content: m.Text})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: current})

	reqBody := chatRequest{
		Model:       g.model,
		Messages:    msgs,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}

	headers := map[string]string{}
	if g.apiKey != "" {
		headers["Authorization"] = "Bearer " + g.apiKey
	}

	body, err := g.post(ctx, g.baseURL+"/chat/completions", headers, reqBody)
	if err != nil {
		return "", err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshal error: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}
	return parsed.Choices[0].Message.Content, nil
}

func (g *LLMGenerator) post(ctx context.Context, endpoint string, headers map[string]string, reqBody any) ([]byte, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httputil.DrainAndClose(resp.Body)

	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Ensure LLMGenerator implements Generator
var _ Generator = (*LLMGenerator)(nil)
