// Package engine orchestrates one inbound-message turn end to end:
// classify, generate a persona reply, extract and merge intelligence,
// update session counters, and possibly fire the one-time escalation.
//
// Failure discipline: nothing in here ever escapes to the transport layer
// as an error. Every path, including LLM timeouts and callback failures,
// resolves to a deterministic persona-consistent reply string.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/TrapWireAI/baitline/pkg/gate"
	"github.com/TrapWireAI/baitline/pkg/intel"
	"github.com/TrapWireAI/baitline/pkg/persona"
	"github.com/TrapWireAI/baitline/pkg/reply"
	"github.com/TrapWireAI/baitline/pkg/report"
	"github.com/TrapWireAI/baitline/pkg/session"
)

// InboundMessage carries the current message. Unknown sibling fields in
// the transport payload are ignored.
type InboundMessage struct {
	Text string `json:"text"`
}

// TurnRequest is the shape the transport layer hands to the engine.
type TurnRequest struct {
	SessionID           string          `json:"sessionId"`
	Message             InboundMessage  `json:"message"`
	ConversationHistory []reply.Message `json:"conversationHistory"`
}

// TurnResponse is always this shape; the engine never signals an error to
// the caller.
type TurnResponse struct {
	Status string `json:"status"`
	Reply  string `json:"reply"`
}

// Engine is the per-turn orchestrator the transport layer calls.
type Engine struct {
	store      session.Store
	generator  reply.Generator // nil means fallback-only operation
	extractor  *intel.Extractor
	escalator  *report.Escalator
	persona    *persona.Persona
	genTimeout time.Duration
}

// Params wires an Engine. Store, Escalator, and Persona are required;
// Generator may be nil, in which case every reply is the persona fallback.
type Params struct {
	Store      session.Store
	Generator  reply.Generator
	Escalator  *report.Escalator
	Persona    *persona.Persona
	GenTimeout time.Duration
}

// New creates an Engine.
func New(p Params) *Engine {
	if p.Persona == nil {
		p.Persona = persona.Default()
	}
	if p.GenTimeout <= 0 {
		p.GenTimeout = 30 * time.Second
	}
	return &Engine{
		store:      p.Store,
		generator:  p.Generator,
		extractor:  intel.New(p.Persona.ExtraKeywords...),
		escalator:  p.Escalator,
		persona:    p.Persona,
		genTimeout: p.GenTimeout,
	}
}

// success wraps a reply string in the fixed response shape.
func success(replyText string) *TurnResponse {
	return &TurnResponse{Status: "success", Reply: replyText}
}

// ProcessTurn handles one inbound message against its session.
//
// Ordering is fixed: classify -> generate -> extract -> merge -> record ->
// escalate. Extraction and merge run even when the gate says "not scam",
// so innocuous-looking turns still contribute intel to a later escalation
// once scam is confirmed.
func (e *Engine) ProcessTurn(ctx context.Context, req *TurnRequest) *TurnResponse {
	// Malformed input: neutral holding reply, zero state mutation.
	if req == nil || req.SessionID == "" || req.Message.Text == "" {
		return success(e.persona.HoldingReply)
	}

	text := req.Message.Text
	verdict := gate.Classify(text)

	// The reply starts as the persona fallback and is only upgraded by a
	// fully successful generation. A scam-flagged turn engages the LLM;
	// other turns keep the non-committal default.
	replyText := e.persona.FallbackReply
	if verdict.ScamDetected && e.generator != nil {
		gctx, cancel := context.WithTimeout(ctx, e.genTimeout)
		analysis, err := e.generator.Generate(gctx, req.ConversationHistory, text)
		cancel()
		if err != nil {
			// Generation failure is recovered here; the rest of the turn
			// continues untouched.
			log.Printf("[TURN] session=%s generation failed, using fallback: %v", req.SessionID, err)
		} else if analysis.Reply != "" {
			replyText = analysis.Reply
		}
	}

	extracted := e.extractor.Extract(text)

	// Everything stateful for this session happens inside Update, under
	// the per-session lock: merge, counters, latches, and the escalation
	// decision form one atomic unit relative to concurrent turns.
	err := e.store.Update(req.SessionID, func(sess *session.Session) {
		foundCritical := sess.MergeIntel(extracted)
		sess.RecordTurn(verdict.ScamDetected)
		outcome := e.escalator.MaybeEscalate(sess, foundCritical, verdict.Reason)
		if outcome.Sent {
			log.Printf("[TURN] session=%s escalation fired (messages=%d, critical=%v)",
				req.SessionID, sess.MessageCount, foundCritical)
		}
	})
	if err != nil {
		// Store failure (e.g. Redis down) degrades the turn to stateless
		// engagement; the sender still gets a reply.
		log.Printf("[TURN] session=%s state update failed: %v", req.SessionID, err)
	}

	return success(replyText)
}

// SessionSnapshot exposes a read-only copy of a session for debugging
// endpoints. Returns nil if the session does not exist.
func (e *Engine) SessionSnapshot(sessionID string) *session.Session {
	sess, err := e.store.Get(sessionID)
	if err != nil {
		log.Printf("[TURN] session=%s snapshot failed: %v", sessionID, err)
		return nil
	}
	return sess
}
