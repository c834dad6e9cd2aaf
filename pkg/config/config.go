// Package config holds global settings for the baitline gateway.
// All settings can be configured via environment variables or
// programmatically.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// SessionBackend selects where per-session state lives.
type SessionBackend string

const (
	BackendMemory SessionBackend = "memory" // default, process lifetime
	BackendRedis  SessionBackend = "redis"  // survives gateway restarts
)

// LLMProvider defines the backend LLM service type.
type LLMProvider string

const (
	ProviderNone       LLMProvider = "none" // fallback replies only
	ProviderGemini     LLMProvider = "gemini"
	ProviderOpenRouter LLMProvider = "openrouter"
	ProviderGroq       LLMProvider = "groq"
	ProviderOllama     LLMProvider = "ollama"
)

// Config holds global settings for the gateway.
type Config struct {
	// === Transport ===
	Port   string // HTTP listen port (default: 8000)
	APIKey string // X-API-Key the transport expects; mismatches get the confusion reply

	// === Escalation ===
	CallbackURL        string // case-management endpoint for the one-time report
	MaxInFlightReports int    // bound on concurrent fire-and-forget dispatches

	// === LLM Provider Configuration ===
	LLMProvider  LLMProvider
	LLMAPIKey    string
	LLMModel     string
	LLMBaseURL   string // custom base URL for self-hosted providers
	LLMTimeoutMs int    // per-call bound in milliseconds (default: 30000)
	LLMMaxRPS    float64

	// === Persona ===
	PersonaPath   string   // YAML persona file; empty means built-in persona
	ExtraKeywords []string // additional suspicious-keyword vocabulary

	// === Session Store ===
	SessionBackend SessionBackend
	SessionTTL     time.Duration // idle TTL before a session is dropped
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	return &Config{
		Port:   GetEnv("BAITLINE_PORT", "8000"),
		APIKey: GetEnv("BAITLINE_API_KEY", "test-key-123"),

		CallbackURL:        GetEnv("BAITLINE_CALLBACK_URL", ""),
		MaxInFlightReports: GetEnvInt("BAITLINE_MAX_INFLIGHT_REPORTS", 50),

		LLMProvider:  detectLLMProvider(),
		LLMAPIKey:    GetEnv("BAITLINE_LLM_API_KEY", GetEnv("GOOGLE_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY")))),
		LLMModel:     GetEnv("BAITLINE_LLM_MODEL", ""),
		LLMBaseURL:   GetEnv("BAITLINE_LLM_BASE_URL", ""),
		LLMTimeoutMs: GetEnvInt("BAITLINE_LLM_TIMEOUT_MS", 30000),
		LLMMaxRPS:    GetEnvFloat("BAITLINE_LLM_MAX_RPS", 5),

		PersonaPath:   GetEnv("BAITLINE_PERSONA", ""),
		ExtraKeywords: GetEnvSlice("BAITLINE_EXTRA_KEYWORDS", nil),

		SessionBackend: SessionBackend(GetEnv("BAITLINE_SESSION_BACKEND", string(BackendMemory))),
		SessionTTL:     time.Duration(GetEnvInt("BAITLINE_SESSION_TTL_SECONDS", 86400)) * time.Second,
		RedisAddr:      GetEnv("BAITLINE_REDIS_ADDR", "localhost:6379"),
		RedisPassword:  GetEnv("BAITLINE_REDIS_PASSWORD", ""),
		RedisDB:        GetEnvInt("BAITLINE_REDIS_DB", 0),
	}
}

func detectLLMProvider() LLMProvider {
	// Explicit provider setting wins.
	if p := os.Getenv("BAITLINE_LLM_PROVIDER"); p != "" {
		return LLMProvider(p)
	}
	// Auto-detect based on available keys.
	if os.Getenv("GOOGLE_API_KEY") != "" {
		return ProviderGemini
	}
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("BAITLINE_LLM_API_KEY") != "" {
		return ProviderOpenRouter
	}
	// No keys found: run fallback-only. The engagement contract holds
	// without any LLM at all.
	return ProviderNone
}

// LLMTimeout returns the per-call LLM bound as a duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMs) * time.Millisecond
}

// RequiredSecret defines a required environment variable for startup validation.
type RequiredSecret struct {
	Name        string
	Description string
	Production  bool // required in production only
}

// CriticalSecrets returns the secrets required for the gateway to operate.
func CriticalSecrets() []RequiredSecret {
	return []RequiredSecret{
		{Name: "BAITLINE_API_KEY", Description: "API key for gateway authentication", Production: true},
		{Name: "BAITLINE_CALLBACK_URL", Description: "case-management endpoint for escalation reports", Production: true},
	}
}

// Validate checks that all required configuration is present.
// In production mode, this returns an error if critical secrets are
// missing. In development mode, it logs warnings but allows startup.
func (c *Config) Validate() error {
	env := strings.ToLower(os.Getenv("BAITLINE_ENV"))
	isProduction := env == "production" || env == "prod"

	var missing []string
	for _, secret := range CriticalSecrets() {
		if os.Getenv(secret.Name) != "" {
			continue
		}
		if secret.Production && !isProduction {
			log.Printf("[STARTUP] Warning: missing optional secret: %s (%s)", secret.Name, secret.Description)
			continue
		}
		missing = append(missing, secret.Name+" ("+secret.Description+")")
	}

	switch c.SessionBackend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", "))
	}
	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}

// Helper functions for environment variable parsing.

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvSlice returns a comma-separated environment variable as a slice,
// or a default value.
func GetEnvSlice(key string, defaultValue []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
