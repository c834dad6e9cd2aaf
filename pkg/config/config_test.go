package config

import (
	"testing"
	"time"
)

// clearProviderEnv blanks every variable that influences provider
// detection so tests are deterministic regardless of the host env.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BAITLINE_LLM_PROVIDER",
		"BAITLINE_LLM_API_KEY",
		"GOOGLE_API_KEY",
		"GROQ_API_KEY",
		"OPENROUTER_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestNewDefaultConfig(t *testing.T) {
	clearProviderEnv(t)
	for _, k := range []string{"BAITLINE_PORT", "BAITLINE_API_KEY", "BAITLINE_SESSION_BACKEND", "BAITLINE_SESSION_TTL_SECONDS"} {
		t.Setenv(k, "")
	}

	cfg := NewDefaultConfig()
	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.APIKey != "test-key-123" {
		t.Errorf("APIKey = %q", cfg.APIKey)
	}
	if cfg.LLMProvider != ProviderNone {
		t.Errorf("LLMProvider = %q, want none with no keys", cfg.LLMProvider)
	}
	if cfg.SessionBackend != BackendMemory {
		t.Errorf("SessionBackend = %q, want memory", cfg.SessionBackend)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.LLMTimeout() != 30*time.Second {
		t.Errorf("LLMTimeout = %v, want 30s", cfg.LLMTimeout())
	}
}

func TestNewDefaultConfig_EnvOverrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("BAITLINE_PORT", "9090")
	t.Setenv("BAITLINE_API_KEY", "prod-key")
	t.Setenv("BAITLINE_CALLBACK_URL", "https://collector.example/report")
	t.Setenv("BAITLINE_SESSION_BACKEND", "redis")
	t.Setenv("BAITLINE_SESSION_TTL_SECONDS", "600")
	t.Setenv("BAITLINE_LLM_TIMEOUT_MS", "5000")
	t.Setenv("BAITLINE_LLM_MAX_RPS", "2.5")

	cfg := NewDefaultConfig()
	if cfg.Port != "9090" || cfg.APIKey != "prod-key" {
		t.Errorf("transport overrides not applied: %+v", cfg)
	}
	if cfg.CallbackURL != "https://collector.example/report" {
		t.Errorf("CallbackURL = %q", cfg.CallbackURL)
	}
	if cfg.SessionBackend != BackendRedis || cfg.SessionTTL != 10*time.Minute {
		t.Errorf("session overrides not applied: backend=%q ttl=%v", cfg.SessionBackend, cfg.SessionTTL)
	}
	if cfg.LLMTimeout() != 5*time.Second || cfg.LLMMaxRPS != 2.5 {
		t.Errorf("llm overrides not applied: %v / %v", cfg.LLMTimeout(), cfg.LLMMaxRPS)
	}
}

func TestDetectLLMProvider(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want LLMProvider
	}{
		{"no keys", nil, ProviderNone},
		{"explicit wins", map[string]string{"BAITLINE_LLM_PROVIDER": "ollama", "GOOGLE_API_KEY": "x"}, ProviderOllama},
		{"google key", map[string]string{"GOOGLE_API_KEY": "x"}, ProviderGemini},
		{"groq key", map[string]string{"GROQ_API_KEY": "x"}, ProviderGroq},
		{"openrouter key", map[string]string{"OPENROUTER_API_KEY": "x"}, ProviderOpenRouter},
		{"generic key defaults to openrouter", map[string]string{"BAITLINE_LLM_API_KEY": "x"}, ProviderOpenRouter},
		{"google beats groq", map[string]string{"GOOGLE_API_KEY": "x", "GROQ_API_KEY": "y"}, ProviderGemini},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearProviderEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if got := detectLLMProvider(); got != tc.want {
				t.Errorf("detectLLMProvider() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Run("dev mode warns only", func(t *testing.T) {
		t.Setenv("BAITLINE_ENV", "")
		t.Setenv("BAITLINE_API_KEY", "")
		t.Setenv("BAITLINE_CALLBACK_URL", "")
		cfg := NewDefaultConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("dev validation failed: %v", err)
		}
	})

	t.Run("production requires secrets", func(t *testing.T) {
		t.Setenv("BAITLINE_ENV", "production")
		t.Setenv("BAITLINE_API_KEY", "")
		t.Setenv("BAITLINE_CALLBACK_URL", "")
		cfg := NewDefaultConfig()
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing production secrets")
		}
	})

	t.Run("production with secrets passes", func(t *testing.T) {
		t.Setenv("BAITLINE_ENV", "prod")
		t.Setenv("BAITLINE_API_KEY", "k")
		t.Setenv("BAITLINE_CALLBACK_URL", "https://collector.example")
		cfg := NewDefaultConfig()
		if err := cfg.Validate(); err != nil {
			t.Errorf("validation failed: %v", err)
		}
	})

	t.Run("unknown backend rejected", func(t *testing.T) {
		t.Setenv("BAITLINE_ENV", "")
		cfg := NewDefaultConfig()
		cfg.SessionBackend = "cassandra"
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for unknown session backend")
		}
	})
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("BAITLINE_TEST_STR", "value")
	t.Setenv("BAITLINE_TEST_INT", "42")
	t.Setenv("BAITLINE_TEST_FLOAT", "1.5")
	t.Setenv("BAITLINE_TEST_BOOL", "true")
	t.Setenv("BAITLINE_TEST_BAD", "not-a-number")

	if got := GetEnv("BAITLINE_TEST_STR", "d"); got != "value" {
		t.Errorf("GetEnv = %q", got)
	}
	if got := GetEnv("BAITLINE_TEST_UNSET", "d"); got != "d" {
		t.Errorf("GetEnv default = %q", got)
	}
	if got := GetEnvInt("BAITLINE_TEST_INT", 0); got != 42 {
		t.Errorf("GetEnvInt = %d", got)
	}
	if got := GetEnvInt("BAITLINE_TEST_BAD", 7); got != 7 {
		t.Errorf("GetEnvInt bad value = %d, want default", got)
	}
	if got := GetEnvFloat("BAITLINE_TEST_FLOAT", 0); got != 1.5 {
		t.Errorf("GetEnvFloat = %v", got)
	}
	if got := GetEnvBool("BAITLINE_TEST_BOOL", false); !got {
		t.Error("GetEnvBool = false, want true")
	}
	if got := GetEnvBool("BAITLINE_TEST_BAD", true); !got {
		t.Error("GetEnvBool bad value must return default")
	}

	t.Setenv("BAITLINE_TEST_SLICE", "otp, refund ,lottery,,")
	got := GetEnvSlice("BAITLINE_TEST_SLICE", nil)
	if len(got) != 3 || got[0] != "otp" || got[1] != "refund" || got[2] != "lottery" {
		t.Errorf("GetEnvSlice = %v", got)
	}
	if got := GetEnvSlice("BAITLINE_TEST_UNSET", []string{"d"}); len(got) != 1 || got[0] != "d" {
		t.Errorf("GetEnvSlice default = %v", got)
	}
}
