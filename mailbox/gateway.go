// Package mailbox wraps the Gmail API for listing unread messages and
// creating reply drafts on behalf of an authenticated user.
package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/lubembemichael/mail-agent/authflow"
	"github.com/lubembemichael/mail-agent/internal/apperrors"
)

const (
	gmailUser      = "me"
	defaultSubject = "No Subject"
	defaultSender  = "Unknown"
)

// Gateway talks to Gmail with a caller-supplied credential. Every call may
// transparently refresh an expired access token, mutating the credential in
// place so the caller can persist the new token.
type Gateway struct {
	flow *authflow.Flow
	opts []option.ClientOption
}

// NewGateway creates a Gateway. Extra client options are appended when
// building the Gmail service; tests use option.WithEndpoint to point the
// gateway at a fake API.
func NewGateway(flow *authflow.Flow, opts ...option.ClientOption) *Gateway {
	return &Gateway{flow: flow, opts: opts}
}

// service refreshes the credential if needed and builds a Gmail service
// around it. A refreshed token is written back into cred.
func (g *Gateway) service(ctx context.Context, cred *oauth2.Token) (*gmail.Service, error) {
	source := g.flow.TokenSource(ctx, cred)

	current, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrTokenRefresh, err)
	}
	if current.AccessToken != cred.AccessToken {
		*cred = *current
	}

	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(current, source))
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, g.opts...)

	srv, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("mailbox: building gmail service: %w", err)
	}
	return srv, nil
}

// ListUnread lists up to max unread inbox messages and fetches each one
// individually. Zero unread messages yields an empty slice, not an error.
// Any per-message fetch failure fails the whole call: the read side is
// deliberately eager, per-item isolation belongs to the draft-writing side.
func (g *Gateway) ListUnread(ctx context.Context, cred *oauth2.Token, max int64) ([]InboundMessage, error) {
	srv, err := g.service(ctx, cred)
	if err != nil {
		return nil, err
	}

	list, err := srv.Users.Messages.List(gmailUser).
		LabelIds("INBOX", "UNREAD").
		MaxResults(max).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("%w: listing unread messages: %v", apperrors.ErrFetch, err)
	}

	messages := make([]InboundMessage, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := srv.Users.Messages.Get(gmailUser, ref.Id).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("%w: fetching message %s: %v", apperrors.ErrFetch, ref.Id, err)
		}

		subject, sender := defaultSubject, defaultSender
		if full.Payload != nil {
			for _, h := range full.Payload.Headers {
				switch {
				case strings.EqualFold(h.Name, "Subject"):
					subject = h.Value
				case strings.EqualFold(h.Name, "From"):
					sender = h.Value
				}
			}
		}

		messages = append(messages, InboundMessage{
			ID:      ref.Id,
			Subject: subject,
			Sender:  sender,
			Body:    full.Snippet,
			Snippet: full.Snippet,
		})
	}

	return messages, nil
}

// CreateDraft stores a plain-text reply draft and returns the provider's
// draft identifier. No From header is set: Gmail fills in the sender
// identity itself. Failures are not retried.
func (g *Gateway) CreateDraft(ctx context.Context, cred *oauth2.Token, req DraftRequest) (string, error) {
	srv, err := g.service(ctx, cred)
	if err != nil {
		return "", err
	}

	draft, err := srv.Users.Drafts.Create(gmailUser, &gmail.Draft{
		Message: &gmail.Message{Raw: encodeRawMessage(req)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrDraftCreation, err)
	}

	return draft.Id, nil
}

// Profile returns the authenticated account's email address.
func (g *Gateway) Profile(ctx context.Context, cred *oauth2.Token) (string, error) {
	srv, err := g.service(ctx, cred)
	if err != nil {
		return "", err
	}

	profile, err := srv.Users.GetProfile(gmailUser).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: fetching profile: %v", apperrors.ErrFetch, err)
	}
	return profile.EmailAddress, nil
}

// encodeRawMessage builds the base64url-encoded RFC 822 payload Gmail's
// draft-creation endpoint expects.
func encodeRawMessage(req DraftRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "To: %s\r\n", req.ToAddress)
	fmt.Fprintf(&b, "Subject: %s\r\n", req.Subject)
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(req.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}
