package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/TrapWireAI/baitline/pkg/config"
	"github.com/TrapWireAI/baitline/pkg/engine"
	"github.com/TrapWireAI/baitline/pkg/gate"
	"github.com/TrapWireAI/baitline/pkg/intel"
	"github.com/TrapWireAI/baitline/pkg/persona"
	"github.com/TrapWireAI/baitline/pkg/reply"
	"github.com/TrapWireAI/baitline/pkg/report"
	"github.com/TrapWireAI/baitline/pkg/session"
)

const Version = "0.1.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cfg := config.NewDefaultConfig()
		if len(os.Args) > 2 {
			cfg.Port = os.Args[2]
		}
		cfg.MustValidate()
		runHTTPServer(cfg)
	case "classify":
		if len(os.Args) < 3 {
			fmt.Println("Usage: baitline classify <text>")
			os.Exit(1)
		}
		runCLIClassify(strings.Join(os.Args[2:], " "))
	case "extract":
		if len(os.Args) < 3 {
			fmt.Println("Usage: baitline extract <text>")
			os.Exit(1)
		}
		runCLIExtract(strings.Join(os.Args[2:], " "))
	case "version":
		fmt.Printf("baitline v%s\n", Version)
		fmt.Println("Scam-engagement honeypot gateway")
	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("baitline v%s - scam-engagement honeypot gateway\n\n", Version)
	fmt.Println("Usage:")
	fmt.Println("  baitline serve [port]      Start HTTP gateway (default: 8000)")
	fmt.Println("  baitline classify <text>   Run the scam gate on text")
	fmt.Println("  baitline extract <text>    Extract intelligence indicators from text")
	fmt.Println("  baitline version           Show version")
	fmt.Println("")
	fmt.Println("Environment Variables:")
	fmt.Println("  BAITLINE_API_KEY           API key the /honeypot endpoint expects")
	fmt.Println("  BAITLINE_CALLBACK_URL      Case-management endpoint for escalation reports")
	fmt.Println("  BAITLINE_LLM_PROVIDER      Provider: gemini, openrouter, groq, ollama, none")
	fmt.Println("  BAITLINE_LLM_API_KEY       API key for the LLM provider")
	fmt.Println("  BAITLINE_PERSONA           Path to a persona YAML file")
	fmt.Println("  BAITLINE_SESSION_BACKEND   Session store: memory (default) or redis")
}

// buildEngine wires the engine from configuration.
// All components degrade gracefully: without an LLM key the persona runs
// fallback-only, without a callback URL escalations latch but don't POST.
func buildEngine(cfg *config.Config) (*engine.Engine, *persona.Persona, func()) {
	p := persona.Default()
	if cfg.PersonaPath != "" {
		loaded, err := persona.Load(cfg.PersonaPath)
		if err != nil {
			log.Printf("○ Persona file ignored (%v), using built-in %q", err, p.Name)
		} else {
			p = loaded
			log.Printf("✓ Persona %q loaded from %s", p.Name, cfg.PersonaPath)
		}
	} else {
		log.Printf("✓ Built-in persona %q", p.Name)
	}
	if len(cfg.ExtraKeywords) > 0 {
		p.ExtraKeywords = append(p.ExtraKeywords, cfg.ExtraKeywords...)
		log.Printf("✓ %d extra extraction keywords from environment", len(cfg.ExtraKeywords))
	}

	var store session.Store
	if cfg.SessionBackend == config.BackendRedis {
		rs, err := session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB,
			session.WithTTL(cfg.SessionTTL))
		if err != nil {
			log.Printf("○ Redis session store unavailable (%v), falling back to memory", err)
			store = session.NewMemoryStore(session.WithMaxAge(cfg.SessionTTL))
		} else {
			store = rs
			log.Printf("✓ Redis session store (%s)", cfg.RedisAddr)
		}
	} else {
		store = session.NewMemoryStore(session.WithMaxAge(cfg.SessionTTL))
		log.Println("✓ In-memory session store")
	}

	var gen reply.Generator
	if cfg.LLMProvider != config.ProviderNone && cfg.LLMProvider != "" {
		gen = reply.NewLLMGenerator(reply.GeneratorConfig{
			Provider:     reply.Provider(cfg.LLMProvider),
			APIKey:       cfg.LLMAPIKey,
			Model:        cfg.LLMModel,
			BaseURL:      cfg.LLMBaseURL,
			SystemPrompt: p.SystemPrompt,
			Timeout:      cfg.LLMTimeout(),
			MaxRPS:       cfg.LLMMaxRPS,
		})
		log.Printf("✓ LLM generator enabled (provider: %s)", cfg.LLMProvider)
	} else {
		log.Println("○ LLM generator disabled (no API key), fallback replies only")
	}

	if cfg.CallbackURL != "" {
		log.Printf("✓ Escalation callback configured")
	} else {
		log.Println("○ Escalation callback not configured, reports will be dropped")
	}
	esc := report.NewEscalator(cfg.CallbackURL, report.WithMaxInFlight(cfg.MaxInFlightReports))

	eng := engine.New(engine.Params{
		Store:      store,
		Generator:  gen,
		Escalator:  esc,
		Persona:    p,
		GenTimeout: cfg.LLMTimeout(),
	})

	return eng, p, store.Close
}

func runHTTPServer(cfg *config.Config) {
	eng, p, closeStore := buildEngine(cfg)
	defer closeStore()

	app := newRouter(cfg, eng, p)

	log.Printf("baitline gateway starting on :%s", cfg.Port)
	log.Printf("Endpoints:")
	log.Printf("  ANY  /              - Safe root (persona reply, all methods)")
	log.Printf("  POST /honeypot      - Engagement turn")
	log.Printf("  GET  /sessions/:id  - Session snapshot (operator)")
	log.Printf("  GET  /health        - Health check")

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal(err)
	}
}

// newRouter builds the fiber app with all gateway routes.
func newRouter(cfg *config.Config, eng *engine.Engine, p *persona.Persona) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "baitline",
	})

	app.Use(cors.New())

	// Root is always safe: any method, any caller, same harmless reply.
	// Probes and scanners learn nothing here.
	app.All("/", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "success",
			"reply":  p.RootReply,
		})
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "version": Version})
	})

	// The honeypot endpoint never fails visibly. Wrong API key, malformed
	// body, missing fields - the sender always gets a persona reply with
	// status success. A scammer must not be able to probe the boundary.
	app.Post("/honeypot", func(c fiber.Ctx) error {
		if c.Get("X-API-Key") != cfg.APIKey {
			return c.JSON(fiber.Map{
				"status": "success",
				"reply":  p.ConfusionReply,
			})
		}

		// Tolerate malformed or non-object bodies: treat as empty payload,
		// which the engine answers with the holding reply.
		req := &engine.TurnRequest{}
		_ = json.Unmarshal(c.Body(), req)

		requestID := uuid.NewString()[:8]
		log.Printf("[HTTP %s] turn session=%s len=%d", requestID, req.SessionID, len(req.Message.Text))

		return c.JSON(eng.ProcessTurn(c.Context(), req))
	})

	// Read-only session snapshot for operators. Same never-fail posture on
	// bad keys as the honeypot endpoint.
	app.Get("/sessions/:id", func(c fiber.Ctx) error {
		if c.Get("X-API-Key") != cfg.APIKey {
			return c.JSON(fiber.Map{
				"status": "success",
				"reply":  p.ConfusionReply,
			})
		}
		sess := eng.SessionSnapshot(c.Params("id"))
		if sess == nil {
			return c.Status(404).JSON(fiber.Map{"error": "session not found"})
		}
		return c.JSON(sess)
	})

	return app
}

func runCLIClassify(text string) {
	out := struct {
		Verdict gate.Verdict `json:"verdict"`
		Signals gate.Signals `json:"signals"`
	}{
		Verdict: gate.Classify(text),
		Signals: gate.Detect(text),
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

func runCLIExtract(text string) {
	data, _ := json.MarshalIndent(intel.Extract(text), "", "  ")
	fmt.Println(string(data))
}
