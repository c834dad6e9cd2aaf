// Package report owns the one-time escalation of accumulated session
// intelligence to the external case-management endpoint.
//
// Latch policy: CallbackSent is set on dispatch ATTEMPT, under the session
// lock, before the POST leaves the building. Delivery failure does not
// reset it. This guarantees at-most-once dispatch per session at the cost
// of a lost report if the endpoint is down during the single attempt.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/TrapWireAI/baitline/pkg/httputil"
	"github.com/TrapWireAI/baitline/pkg/intel"
	"github.com/TrapWireAI/baitline/pkg/session"
)

// MinTurnsBeforeEscalation is the message-count threshold that triggers a
// report even when no critical intel ever surfaced.
const MinTurnsBeforeEscalation = 5

// Report is the payload POSTed to the callback endpoint. Shape is fixed by
// the external collaborator; do not add fields.
type Report struct {
	SessionID              string      `json:"sessionId"`
	ScamDetected           bool        `json:"scamDetected"`
	TotalMessagesExchanged int         `json:"totalMessagesExchanged"`
	ExtractedIntelligence  intel.Intel `json:"extractedIntelligence"`
	AgentNotes             string      `json:"agentNotes"`
}

// Outcome tells the engine whether this turn fired the report.
type Outcome struct {
	Sent bool
}

// Escalator decides and triggers the one-time external report.
type Escalator struct {
	callbackURL string
	client      *http.Client
	sem         *httputil.Semaphore
}

// EscalatorOption is a functional option for configuring Escalator.
type EscalatorOption func(*Escalator)

// WithClient overrides the HTTP client (tests).
func WithClient(c *http.Client) EscalatorOption {
	return func(e *Escalator) {
		e.client = c
	}
}

// WithMaxInFlight bounds concurrent dispatch goroutines.
func WithMaxInFlight(n int) EscalatorOption {
	return func(e *Escalator) {
		e.sem = httputil.NewSemaphore(n)
	}
}

// NewEscalator creates an escalation controller. An empty callbackURL
// disables dispatch but not the latch, so tests and dry runs still observe
// at-most-once behavior.
func NewEscalator(callbackURL string, opts ...EscalatorOption) *Escalator {
	e := &Escalator{
		callbackURL: callbackURL,
		client:      httputil.CallbackClient(),
		sem:         httputil.NewSemaphore(50),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ShouldEscalate evaluates the firing condition against the session.
func ShouldEscalate(sess *session.Session, foundCritical bool) bool {
	return sess.Detected &&
		!sess.CallbackSent &&
		(foundCritical || sess.MessageCount >= MinTurnsBeforeEscalation)
}

// MaybeEscalate fires the report if the condition holds. Must be called
// under the session's lock: the latch transition and the payload snapshot
// happen here, synchronously; only the POST itself runs in the background.
// Dispatch failure is logged and swallowed - it never affects the turn.
func (e *Escalator) MaybeEscalate(sess *session.Session, foundCritical bool, agentNotes string) Outcome {
	if !ShouldEscalate(sess, foundCritical) {
		return Outcome{}
	}
	if !sess.MarkCallbackSent() {
		return Outcome{}
	}

	snapshot := sess.Clone()
	rep := &Report{
		SessionID:              snapshot.SessionID,
		ScamDetected:           true,
		TotalMessagesExchanged: snapshot.MessageCount,
		ExtractedIntelligence:  snapshot.Intelligence,
		AgentNotes:             agentNotes,
	}

	e.dispatch(rep)
	return Outcome{Sent: true}
}

// dispatch POSTs the report fire-and-forget: bounded timeout, no retry.
func (e *Escalator) dispatch(rep *Report) {
	reportID := uuid.NewString()

	if e.callbackURL == "" {
		log.Printf("[ESCALATION %s] session=%s callback URL not configured, report dropped", reportID, rep.SessionID)
		return
	}

	if !e.sem.TryAcquire() {
		log.Printf("[ESCALATION %s] session=%s dispatch dropped, too many in flight (%d dropped so far)",
			reportID, rep.SessionID, e.sem.DroppedCount())
		return
	}

	body, err := json.Marshal(rep)
	if err != nil {
		e.sem.Release()
		log.Printf("[ESCALATION %s] session=%s encode failed: %v", reportID, rep.SessionID, err)
		return
	}

	go func() {
		defer e.sem.Release()

		ctx, cancel := context.WithTimeout(context.Background(), httputil.CallbackTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, "POST", e.callbackURL, bytes.NewReader(body))
		if err != nil {
			log.Printf("[ESCALATION %s] session=%s request build failed: %v", reportID, rep.SessionID, err)
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			log.Printf("[ESCALATION %s] session=%s dispatch failed: %v", reportID, rep.SessionID, err)
			return
		}
		defer httputil.DrainAndClose(resp.Body)

		if resp.StatusCode >= 300 {
			log.Printf("[ESCALATION %s] session=%s callback returned %d", reportID, rep.SessionID, resp.StatusCode)
			return
		}
		log.Printf("[ESCALATION %s] session=%s report delivered (%d messages, %d indicators)",
			reportID, rep.SessionID, rep.TotalMessagesExchanged, rep.ExtractedIntelligence.Total())
	}()
}
