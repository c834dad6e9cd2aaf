package session

import (
	"reflect"
	"testing"

	"github.com/TrapWireAI/baitline/pkg/intel"
)

func TestSession_MergeIntelIdempotent(t *testing.T) {
	sess := newSession("s1")
	in := intel.Intel{
		BankAccounts:       []string{"123456789"},
		UPIIDs:             []string{"a@upi"},
		PhishingLinks:      []string{},
		PhoneNumbers:       []string{"9876543210"},
		SuspiciousKeywords: []string{"otp", "bank"},
	}

	sess.MergeIntel(in)
	once := sess.Clone().Intelligence
	sess.MergeIntel(in)
	twice := sess.Clone().Intelligence

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("merging twice changed the sets:\n%+v\n%+v", once, twice)
	}
}

func TestSession_MergeIntelCommutative(t *testing.T) {
	a := intel.Intel{BankAccounts: []string{"111111111"}, SuspiciousKeywords: []string{"otp"}}
	b := intel.Intel{BankAccounts: []string{"222222222"}, UPIIDs: []string{"x@y"}}

	s1 := newSession("s1")
	s1.MergeIntel(a)
	s1.MergeIntel(b)

	s2 := newSession("s2")
	s2.MergeIntel(b)
	s2.MergeIntel(a)

	if !reflect.DeepEqual(s1.Intelligence, s2.Intelligence) {
		t.Errorf("merge order changed the sets:\n%+v\n%+v", s1.Intelligence, s2.Intelligence)
	}
}

func TestSession_MergeIntelFoundCritical(t *testing.T) {
	sess := newSession("s1")

	if sess.MergeIntel(intel.Intel{SuspiciousKeywords: []string{"urgent"}}) {
		t.Error("keywords alone should not be critical")
	}
	if sess.MergeIntel(intel.Intel{PhoneNumbers: []string{"9876543210"}}) {
		t.Error("phone numbers are not critical")
	}
	if !sess.MergeIntel(intel.Intel{UPIIDs: []string{"secure@paytm"}}) {
		t.Error("UPI ID should be critical")
	}
	if !sess.MergeIntel(intel.Intel{PhishingLinks: []string{"http://evil.test"}}) {
		t.Error("phishing link should be critical")
	}
}

func TestSession_DetectedLatch(t *testing.T) {
	sess := newSession("s1")

	sess.RecordTurn(false)
	if sess.Detected {
		t.Fatal("detected should start false")
	}
	sess.RecordTurn(true)
	if !sess.Detected {
		t.Fatal("detected should latch on scam turn")
	}
	sess.RecordTurn(false)
	if !sess.Detected {
		t.Fatal("detected must never reset")
	}
	if sess.MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", sess.MessageCount)
	}
}

func TestSession_CallbackLatch(t *testing.T) {
	sess := newSession("s1")

	if !sess.MarkCallbackSent() {
		t.Fatal("first mark should report the transition")
	}
	if sess.MarkCallbackSent() {
		t.Fatal("second mark must not report a transition")
	}
	if !sess.CallbackSent {
		t.Fatal("latch must stay set")
	}
}

func TestSession_CloneIsDeep(t *testing.T) {
	sess := newSession("s1")
	sess.MergeIntel(intel.Intel{BankAccounts: []string{"123456789"}})

	clone := sess.Clone()
	sess.MergeIntel(intel.Intel{BankAccounts: []string{"987654321"}})

	if len(clone.Intelligence.BankAccounts) != 1 {
		t.Errorf("clone mutated by later merge: %v", clone.Intelligence.BankAccounts)
	}
}
