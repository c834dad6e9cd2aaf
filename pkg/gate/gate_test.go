package gate

import "testing"

func TestClassify_EmptyMessage(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t"} {
		v := Classify(text)
		if v.ScamDetected {
			t.Errorf("Classify(%q): expected not scam", text)
		}
		if v.Confidence != 0.0 {
			t.Errorf("Classify(%q): expected confidence 0.0, got %v", text, v.Confidence)
		}
		if v.Reason != "Empty message" {
			t.Errorf("Classify(%q): unexpected reason %q", text, v.Reason)
		}
	}
}

func TestClassify_DecisionTable(t *testing.T) {
	testCases := []struct {
		name       string
		text       string
		scam       bool
		confidence float64
		reason     string
	}{
		{
			name:       "impersonation with threat and action",
			text:       "Your bank account will be blocked today. Verify immediately.",
			scam:       true,
			confidence: 0.9,
			reason:     "Impersonation with urgency/threat/action",
		},
		{
			name:       "impersonation with urgency only",
			text:       "SBI alert: respond immediately",
			scam:       true,
			confidence: 0.9,
			reason:     "Impersonation with urgency/threat/action",
		},
		{
			name:       "threat plus urgency without impersonation",
			text:       "Your card is suspended, act right now",
			scam:       true,
			confidence: 0.8,
			reason:     "Threat-based urgent message",
		},
		{
			name:       "otp request",
			text:       "Please tell me the OTP you received",
			scam:       true,
			confidence: 0.95,
			reason:     "OTP-based account takeover",
		},
		{
			name:       "impersonation alone is not enough",
			text:       "I work at a bank",
			scam:       false,
			confidence: 0.2,
			reason:     "No strong scam indicators",
		},
		{
			name:       "benign message",
			text:       "Hello, how are you doing?",
			scam:       false,
			confidence: 0.2,
			reason:     "No strong scam indicators",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := Classify(tc.text)
			if v.ScamDetected != tc.scam {
				t.Errorf("ScamDetected = %v, want %v", v.ScamDetected, tc.scam)
			}
			if v.Confidence != tc.confidence {
				t.Errorf("Confidence = %v, want %v", v.Confidence, tc.confidence)
			}
			if v.Reason != tc.reason {
				t.Errorf("Reason = %q, want %q", v.Reason, tc.reason)
			}
		})
	}
}

func TestClassify_RuleOrderFirstMatchWins(t *testing.T) {
	// Contains impersonation + action AND an OTP request. Rule 1 is
	// evaluated first, so its 0.9 wins over the 0.95 OTP rule.
	v := Classify("This is your bank, share the OTP now")
	if !v.ScamDetected {
		t.Fatal("expected scam")
	}
	if v.Confidence != 0.9 {
		t.Errorf("Confidence = %v, want 0.9 (rule 1 wins)", v.Confidence)
	}
}

func TestClassify_CaseInsensitive(t *testing.T) {
	lower := Classify("your bank account is blocked, verify now")
	upper := Classify("YOUR BANK ACCOUNT IS BLOCKED, VERIFY NOW")
	if lower != upper {
		t.Errorf("case should not change the verdict: %+v vs %+v", lower, upper)
	}
	if !upper.ScamDetected {
		t.Error("expected scam for upper-case variant")
	}
}

func TestClassify_Deterministic(t *testing.T) {
	text := "URGENT: your account is frozen, click http://evil.test to verify"
	first := Classify(text)
	for i := 0; i < 10; i++ {
		if got := Classify(text); got != first {
			t.Fatalf("run %d: verdict changed: %+v vs %+v", i, got, first)
		}
	}
}

func TestDetect_Signals(t *testing.T) {
	sig := Detect("Your bank account will be blocked today. Verify immediately.")
	if !sig.Impersonation || !sig.Urgency || !sig.Threat || !sig.Action {
		t.Errorf("expected all signals set, got %+v", sig)
	}

	sig = Detect("hello there")
	if sig.Impersonation || sig.Urgency || sig.Threat || sig.Action {
		t.Errorf("expected no signals, got %+v", sig)
	}
}
