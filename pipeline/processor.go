// Package pipeline orchestrates the fetch → generate → draft flow for one
// authenticated session.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/lubembemichael/mail-agent/address"
	"github.com/lubembemichael/mail-agent/agent"
	"github.com/lubembemichael/mail-agent/internal/apperrors"
	"github.com/lubembemichael/mail-agent/internal/metrics"
	"github.com/lubembemichael/mail-agent/mailbox"
	"github.com/lubembemichael/mail-agent/sessions"
)

// MailGateway is the slice of the mailbox gateway the pipeline needs.
type MailGateway interface {
	ListUnread(ctx context.Context, cred *oauth2.Token, max int64) ([]mailbox.InboundMessage, error)
	CreateDraft(ctx context.Context, cred *oauth2.Token, req mailbox.DraftRequest) (string, error)
}

// ReplyGenerator drafts a reply body; it reports failure through the
// agent.FailureSentinel value rather than an error.
type ReplyGenerator interface {
	GenerateReply(ctx context.Context, msg mailbox.InboundMessage) string
}

// Result is the aggregate outcome of one pipeline run.
type Result struct {
	DraftsCreated int
	TotalFound    int
}

// Processor resolves a session to a credential and runs the per-message
// reply loop. Per-item failures are recovered and tallied; only setup
// failures (unknown session, fetch) propagate as errors.
type Processor struct {
	sessions   sessions.Repo
	gateway    MailGateway
	generator  ReplyGenerator
	collector  *metrics.Collector
	maxResults int64
}

// New creates a Processor.
func New(sessionRepo sessions.Repo, gateway MailGateway, generator ReplyGenerator, collector *metrics.Collector, maxResults int64) *Processor {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Processor{
		sessions:   sessionRepo,
		gateway:    gateway,
		generator:  generator,
		collector:  collector,
		maxResults: maxResults,
	}
}

// ProcessUnread fetches unread messages for the session and creates one
// reply draft per message. A failure on one message never aborts the rest.
func (p *Processor) ProcessUnread(ctx context.Context, sessionToken string) (Result, error) {
	session, err := p.sessions.Get(sessionToken)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}

	p.collector.RecordPipelineRun()

	// The gateway refreshes the credential in place; persist whatever it
	// left behind so later requests reuse the fresh access token.
	cred := session.Credential
	originalAccess := cred.AccessToken
	defer func() {
		if cred.AccessToken == originalAccess {
			return
		}
		if err := p.sessions.UpdateCredential(sessionToken, cred); err != nil {
			log.Warn().Err(err).Msg("failed to persist refreshed credential")
		}
	}()

	found, err := p.gateway.ListUnread(ctx, cred, p.maxResults)
	if err != nil {
		return Result{}, err
	}
	p.collector.RecordMessagesFound(len(found))

	if len(found) == 0 {
		return Result{}, nil
	}

	result := Result{TotalFound: len(found)}
	for _, msg := range found {
		if p.processMessage(ctx, cred, msg) {
			result.DraftsCreated++
		}
	}

	log.Info().
		Str("email", session.ProfileEmail).
		Int("found", result.TotalFound).
		Int("drafts_created", result.DraftsCreated).
		Msg("processed unread messages")

	return result, nil
}

// processMessage runs the generate → parse → draft sequence for one message
// and reports whether a draft was created. Failures are logged with the
// message id and swallowed.
func (p *Processor) processMessage(ctx context.Context, cred *oauth2.Token, msg mailbox.InboundMessage) bool {
	reply := p.generator.GenerateReply(ctx, msg)
	if reply == agent.FailureSentinel {
		p.collector.RecordGenerationFailure()
		log.Warn().Str("message_id", msg.ID).Msg("skipping message: reply generation failed")
		return false
	}

	recipient := address.Parse(msg.Sender).Email

	draftID, err := p.gateway.CreateDraft(ctx, cred, mailbox.DraftRequest{
		ToAddress: recipient,
		Subject:   "Re: " + msg.Subject,
		Body:      reply,
	})
	if err != nil {
		p.collector.RecordDraftFailure()
		log.Warn().Err(err).Str("message_id", msg.ID).Msg("skipping message: draft creation failed")
		return false
	}

	p.collector.RecordDraftCreated()
	log.Debug().Str("message_id", msg.ID).Str("draft_id", draftID).Msg("draft created")
	return true
}
