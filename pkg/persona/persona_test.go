package persona

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	p := Default()
	if p.Name != "Rohan" {
		t.Errorf("Name = %q", p.Name)
	}
	for name, s := range map[string]string{
		"FallbackReply":  p.FallbackReply,
		"HoldingReply":   p.HoldingReply,
		"RootReply":      p.RootReply,
		"ConfusionReply": p.ConfusionReply,
		"SystemPrompt":   p.SystemPrompt,
	} {
		if s == "" {
			t.Errorf("%s is empty", name)
		}
	}
	if !strings.Contains(p.SystemPrompt, `"isScam"`) {
		t.Error("system prompt must demand the strict JSON contract")
	}
}

func TestParse_FullOverride(t *testing.T) {
	p, err := Parse([]byte(`
name: Meena
tone: cheerful retiree
system_prompt: custom prompt
fallback_reply: custom fallback
holding_reply: custom holding
root_reply: custom root
confusion_reply: custom confusion
extra_keywords:
  - pension
  - gratuity
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Name != "Meena" || p.Tone != "cheerful retiree" {
		t.Errorf("identity not applied: %+v", p)
	}
	if p.FallbackReply != "custom fallback" || p.ConfusionReply != "custom confusion" {
		t.Errorf("voice lines not applied: %+v", p)
	}
	if len(p.ExtraKeywords) != 2 || p.ExtraKeywords[0] != "pension" {
		t.Errorf("ExtraKeywords = %v", p.ExtraKeywords)
	}
}

func TestParse_PartialFileFillsDefaults(t *testing.T) {
	p, err := Parse([]byte("name: Meena\nfallback_reply: haan haan, batao\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def := Default()
	if p.Name != "Meena" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.FallbackReply != "haan haan, batao" {
		t.Errorf("FallbackReply = %q", p.FallbackReply)
	}
	if p.HoldingReply != def.HoldingReply || p.SystemPrompt != def.SystemPrompt {
		t.Error("unset fields must fall back to the built-in persona")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("name: [unclosed")); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.yaml")
	if err := os.WriteFile(path, []byte("name: Meena\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Name != "Meena" {
		t.Errorf("Name = %q", p.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
