// Package gate implements the deterministic scam classifier that decides
// whether a turn engages the LLM persona. It is intentionally a fixed
// keyword heuristic, not a statistical model: the verdict must be cheap,
// reproducible, and available even when every external dependency is down.
package gate

import (
	"strings"

	"golang.org/x/text/cases"
)

// Verdict is the per-turn classification result.
type Verdict struct {
	ScamDetected bool    `json:"scamDetected"`
	Confidence   float64 `json:"confidence"`
	Reason       string  `json:"reason"`
}

// Signals reports which keyword categories matched, for CLI and log output.
type Signals struct {
	Impersonation bool `json:"impersonation"`
	Urgency       bool `json:"urgency"`
	Threat        bool `json:"threat"`
	Action        bool `json:"action"`
}

// The four fixed keyword sets. Matching is substring membership over the
// case-folded input.
var (
	impersonationWords = []string{
		"bank", "customer care", "support",
		"sbi", "hdfc", "icici", "axis",
		"paytm", "phonepe", "gpay",
		"aadhaar", "pan", "government", "govt",
		"income tax", "cyber crime", "police",
	}

	urgencyWords = []string{
		"urgent", "immediately", "today",
		"now", "within", "right now",
	}

	threatWords = []string{
		"blocked", "suspended", "frozen",
		"disabled", "deactivated",
	}

	actionWords = []string{
		"verify", "click", "share", "send",
		"pay", "update", "confirm", "kyc", "otp",
	}
)

// fold lower-cases text with full Unicode case folding. Scam messages mix
// scripts and stylized capitals that strings.ToLower alone misses.
func fold(text string) string {
	return cases.Fold().String(text)
}

func containsAny(t string, words []string) bool {
	for _, w := range words {
		if strings.Contains(t, w) {
			return true
		}
	}
	return false
}

// Detect returns which keyword categories the text triggers.
func Detect(text string) Signals {
	t := fold(text)
	return Signals{
		Impersonation: containsAny(t, impersonationWords),
		Urgency:       containsAny(t, urgencyWords),
		Threat:        containsAny(t, threatWords),
		Action:        containsAny(t, actionWords),
	}
}

// Classify evaluates the decision table top-down, first match wins.
// Pure function: no I/O, no state, always returns a verdict.
func Classify(text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{
			ScamDetected: false,
			Confidence:   0.0,
			Reason:       "Empty message",
		}
	}

	t := fold(text)
	sig := Signals{
		Impersonation: containsAny(t, impersonationWords),
		Urgency:       containsAny(t, urgencyWords),
		Threat:        containsAny(t, threatWords),
		Action:        containsAny(t, actionWords),
	}

	if sig.Impersonation && (sig.Urgency || sig.Threat || sig.Action) {
		return Verdict{
			ScamDetected: true,
			Confidence:   0.9,
			Reason:       "Impersonation with urgency/threat/action",
		}
	}

	if sig.Threat && sig.Urgency {
		return Verdict{
			ScamDetected: true,
			Confidence:   0.8,
			Reason:       "Threat-based urgent message",
		}
	}

	if strings.Contains(t, "otp") && sig.Action {
		return Verdict{
			ScamDetected: true,
			Confidence:   0.95,
			Reason:       "OTP-based account takeover",
		}
	}

	return Verdict{
		ScamDetected: false,
		Confidence:   0.2,
		Reason:       "No strong scam indicators",
	}
}
