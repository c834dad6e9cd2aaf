// Package persona defines the configured character used to keep scam senders
// engaged. The engine itself is persona-agnostic: all reply text, the LLM
// system instruction, and any extra keyword vocabulary come from here.
package persona

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Persona holds the character configuration selected at startup.
// Every reply the gateway can produce without the LLM lives here, so the
// engine always has a deterministic, persona-consistent string to fall
// back on.
type Persona struct {
	// Name is the character's display name.
	Name string `yaml:"name"`

	// Tone is a short descriptor of the speaking style, used for logs.
	Tone string `yaml:"tone"`

	// SystemPrompt is the system instruction sent to the LLM. It must demand
	// the strict JSON output contract {isScam, reason, reply}.
	SystemPrompt string `yaml:"system_prompt"`

	// FallbackReply is returned when the LLM is unavailable, times out, or
	// produces malformed output. Also used for turns the gate does not flag.
	FallbackReply string `yaml:"fallback_reply"`

	// HoldingReply is returned for turns with a missing session ID or empty
	// message text. No session state is touched on that path.
	HoldingReply string `yaml:"holding_reply"`

	// RootReply is served at the root path for any method.
	RootReply string `yaml:"root_reply"`

	// ConfusionReply is returned when the API key header does not match.
	// Auth never fails visibly - the sender must not learn they hit a wall.
	ConfusionReply string `yaml:"confusion_reply"`

	// ExtraKeywords extends the suspicious-keyword vocabulary of the intel
	// extractor for this persona.
	ExtraKeywords []string `yaml:"extra_keywords"`
}

const defaultSystemPrompt = `You are 'Rohan', a 40-year-old Indian corporate employee.
STYLE: Natural Hinglish. Sound worried and slightly confused.
BEHAVIOR: Believe scam messages initially but ask questions.
GOAL: Try to extract bank details, UPI ID, OTP, or phishing links.
Do NOT reveal you are an AI.

RESPONSE FORMAT (STRICT JSON ONLY):
{
  "isScam": boolean,
  "reason": string,
  "reply": string
}`

// Default returns the built-in persona. Used when no persona file is
// configured, and as the source of defaults for partially specified files.
func Default() *Persona {
	return &Persona{
		Name:          "Rohan",
		Tone:          "worried, slightly confused Hinglish",
		SystemPrompt:  defaultSystemPrompt,
		FallbackReply: "Oh okay… mujhe thoda tension ho raha hai. Account block ho jayega kya? Process kya hai?",
		HoldingReply:  "Thoda clearly batao na, kaunsa message aaya hai?",
		RootReply:     "Arre kya bol rahe ho? Account block ho jayega kya? Please thoda clearly batao.",
		ConfusionReply: "Arre mujhe thoda confusion ho raha hai. " +
			"Aap clearly bata sakte ho kya issue kya hai?",
	}
}

// Load reads a persona from a YAML file. Fields left empty in the file fall
// back to the built-in persona, so a file can override just the voice lines.
func Load(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	return Parse(data)
}

// Parse decodes persona YAML and fills unset fields from Default.
func Parse(data []byte) (*Persona, error) {
	p := &Persona{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse persona yaml: %w", err)
	}
	p.fillDefaults()
	return p, nil
}

func (p *Persona) fillDefaults() {
	def := Default()
	if p.Name == "" {
		p.Name = def.Name
	}
	if p.Tone == "" {
		p.Tone = def.Tone
	}
	if p.SystemPrompt == "" {
		p.SystemPrompt = def.SystemPrompt
	}
	if p.FallbackReply == "" {
		p.FallbackReply = def.FallbackReply
	}
	if p.HoldingReply == "" {
		p.HoldingReply = def.HoldingReply
	}
	if p.RootReply == "" {
		p.RootReply = def.RootReply
	}
	if p.ConfusionReply == "" {
		p.ConfusionReply = def.ConfusionReply
	}
}
