// Package agent drafts reply bodies for inbound email using a
// generative-text backend.
package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lubembemichael/mail-agent/address"
	"github.com/lubembemichael/mail-agent/mailbox"
)

// FailureSentinel is returned whenever generation fails. The pipeline treats
// it as a per-message failure; it must never reach a draft.
const FailureSentinel = "Error: Could not generate reply."

const signature = "Lubembe Michael"

// The raw-string literal keeps `\n` as a two-character escape inside the
// prompt, instructing the model where to break the signature line.
const promptTemplate = `You are a helpful professional email assistant.
Draft a comprehensive, professional, and respectful reply to the following email.

CRITICAL INSTRUCTIONS:
- Output ONLY the body of the email.
- Do NOT include "Subject:" or "Body:" labels.
- Do NOT include conversational filler like "Here is the draft".
- Start with "Dear %s,"
- Write a comprehensive, professional, and respectful reply body.
- End with "Kind regards,\n%s"
- The reply should be well-structured and address all points in the original email.

Sender: %s
Subject: %s
Body: %s
`

// TextGenerator is the generative-text backend: synchronous, single-shot,
// no conversation state.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Agent builds a deterministic prompt per message and delegates the actual
// text generation.
type Agent struct {
	llm TextGenerator
}

// New creates an Agent around the given backend.
func New(llm TextGenerator) *Agent {
	return &Agent{llm: llm}
}

// GenerateReply drafts a reply body for the message. It never fails: any
// backend error yields FailureSentinel so one bad generation cannot abort a
// batch. Failures are logged with the message id.
func (a *Agent) GenerateReply(ctx context.Context, msg mailbox.InboundMessage) string {
	reply, err := a.llm.Generate(ctx, BuildPrompt(msg))
	if err != nil {
		log.Error().Err(err).Str("message_id", msg.ID).Msg("reply generation failed")
		return FailureSentinel
	}
	return reply
}

// BuildPrompt renders the fixed prompt template for one message. The
// greeting uses the sender's display name so the model addresses the right
// person.
func BuildPrompt(msg mailbox.InboundMessage) string {
	sender := msg.Sender
	if sender == "" {
		sender = "Unknown"
	}
	greetingName := address.Parse(sender).DisplayName

	return fmt.Sprintf(promptTemplate, greetingName, signature, sender, msg.Subject, msg.Body)
}
