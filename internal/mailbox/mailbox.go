// Package mailbox abstracts the inbound mail source behind one capability:
// list unread messages, mark a message read. Two transports implement it, IMAP
// over TLS and the Gmail REST API, selected once at startup.
package mailbox

import (
	"context"
	"fmt"
	"io"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
)

// Message is one unread inbox message, reduced to what ticket creation needs.
// Body holds the decoded plain-text part; empty when the message has none.
type Message struct {
	ID      string
	Subject string
	From    string
	Body    string
}

// Session is an open, authenticated mailbox connection. It is owned by exactly
// one ingestion run and must be closed on every exit path.
type Session interface {
	ListUnread(ctx context.Context) ([]Message, error)
	MarkRead(ctx context.Context, id string) error
	Close() error
}

// Dialer establishes sessions. Credential problems surface here, per run,
// rather than at process start.
type Dialer interface {
	Dial(ctx context.Context) (Session, error)
}

// NewDialer selects the transport from configuration.
func NewDialer(cfg config.MailboxConfig, logger *zap.Logger) (Dialer, error) {
	switch cfg.Provider {
	case config.MailboxProviderIMAP:
		return NewIMAPDialer(cfg, logger), nil
	case config.MailboxProviderGmail:
		return NewGmailDialer(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown mailbox provider %q", cfg.Provider)
	}
}

// extractPlainText pulls the first text/plain part out of a raw RFC 822
// message. Non-multipart messages yield their single inline payload. A message
// without a plain-text part yields the empty string, not an error.
func extractPlainText(r io.Reader) string {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return ""
		}
		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, err := header.ContentType()
		if err != nil || contentType != "text/plain" {
			continue
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return ""
		}
		return string(body)
	}
	return ""
}
