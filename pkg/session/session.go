// Package session owns per-conversation mutable state: accumulated
// intelligence, turn counters, and the one-way detection and callback
// latches. Stores serialize all mutation per session key.
package session

import (
	"sort"
	"time"

	"github.com/TrapWireAI/baitline/pkg/intel"
)

// Session is one conversation thread with a scam sender, identified by a
// caller-supplied key. Created lazily on first turn, default-initialized.
//
// Monotonic invariants the mutation helpers maintain:
//   - MessageCount only increments, exactly once per processed turn
//   - Detected never resets to false
//   - CallbackSent transitions false->true at most once
type Session struct {
	SessionID    string      `json:"session_id"`
	Intelligence intel.Intel `json:"intelligence"`
	MessageCount int         `json:"message_count"`
	Detected     bool        `json:"detected"`
	CallbackSent bool        `json:"callback_sent"`
	CreatedAt    time.Time   `json:"created_at"`
	LastTurnAt   time.Time   `json:"last_turn_at"`
}

// newSession returns a default-initialized session for the given key.
func newSession(sessionID string) *Session {
	now := time.Now()
	return &Session{
		SessionID:    sessionID,
		Intelligence: intel.Empty(),
		CreatedAt:    now,
		LastTurnAt:   now,
	}
}

// MergeIntel unions one turn's extraction into the session's sets.
// Returns foundCritical: true iff this turn's extraction has any member in
// the bank-account, payment-identifier, or phishing-link categories.
// Merging the same extraction twice is a no-op on the sets.
func (s *Session) MergeIntel(in intel.Intel) (foundCritical bool) {
	s.Intelligence.BankAccounts = mergeUnique(s.Intelligence.BankAccounts, in.BankAccounts)
	s.Intelligence.UPIIDs = mergeUnique(s.Intelligence.UPIIDs, in.UPIIDs)
	s.Intelligence.PhishingLinks = mergeUnique(s.Intelligence.PhishingLinks, in.PhishingLinks)
	s.Intelligence.PhoneNumbers = mergeUnique(s.Intelligence.PhoneNumbers, in.PhoneNumbers)
	s.Intelligence.SuspiciousKeywords = mergeUnique(s.Intelligence.SuspiciousKeywords, in.SuspiciousKeywords)
	return in.HasCritical()
}

// RecordTurn increments the turn counter and folds the verdict into the
// one-way Detected latch.
func (s *Session) RecordTurn(scamDetected bool) {
	s.MessageCount++
	s.Detected = s.Detected || scamDetected
	s.LastTurnAt = time.Now()
}

// MarkCallbackSent sets the callback latch. Returns true only on the
// false->true transition, so the caller can tell whether it won the race
// to dispatch.
func (s *Session) MarkCallbackSent() bool {
	if s.CallbackSent {
		return false
	}
	s.CallbackSent = true
	return true
}

// Clone returns a deep copy, safe to read after the session lock is
// released.
func (s *Session) Clone() *Session {
	c := *s
	c.Intelligence = intel.Intel{
		BankAccounts:       append([]string{}, s.Intelligence.BankAccounts...),
		UPIIDs:             append([]string{}, s.Intelligence.UPIIDs...),
		PhishingLinks:      append([]string{}, s.Intelligence.PhishingLinks...),
		PhoneNumbers:       append([]string{}, s.Intelligence.PhoneNumbers...),
		SuspiciousKeywords: append([]string{}, s.Intelligence.SuspiciousKeywords...),
	}
	return &c
}

// mergeUnique unions src into dst with set semantics, keeping the slice
// sorted for deterministic payloads.
func mergeUnique(dst, src []string) []string {
	if len(src) == 0 {
		if dst == nil {
			return []string{}
		}
		return dst
	}
	seen := make(map[string]bool, len(dst)+len(src))
	out := make([]string, 0, len(dst)+len(src))
	for _, v := range dst {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range src {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
