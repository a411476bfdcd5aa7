package mailbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// GmailDialer opens sessions against the Gmail REST API using an OAuth token
// stored in a local file.
type GmailDialer struct {
	cfg    config.MailboxConfig
	logger *zap.Logger
}

// NewGmailDialer constructs the dialer.
func NewGmailDialer(cfg config.MailboxConfig, logger *zap.Logger) *GmailDialer {
	return &GmailDialer{cfg: cfg, logger: logger}
}

// Dial loads the token file and builds an authenticated Gmail service. The
// token source refreshes expired access tokens using the configured client
// credentials.
func (d *GmailDialer) Dial(ctx context.Context) (Session, error) {
	raw, err := os.ReadFile(d.cfg.GmailTokenFile)
	if err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("gmail token file %s: %v", d.cfg.GmailTokenFile, err))
	}
	var token oauth2.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("gmail token file %s: %v", d.cfg.GmailTokenFile, err))
	}

	oauthCfg := &oauth2.Config{
		ClientID:     d.cfg.GmailClientID,
		ClientSecret: d.cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailModifyScope},
	}
	service, err := gmail.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, &token)))
	if err != nil {
		return nil, apperrors.NewConnectivityError("gmail service", err)
	}

	d.logger.Debug("gmail session established")
	return &gmailSession{service: service}, nil
}

type gmailSession struct {
	service *gmail.Service
}

func (s *gmailSession) ListUnread(ctx context.Context) ([]Message, error) {
	list, err := s.service.Users.Messages.List("me").Q("is:unread").Context(ctx).Do()
	if err != nil {
		return nil, apperrors.NewConnectivityError("gmail list unread", err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := s.service.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return nil, apperrors.NewConnectivityError(fmt.Sprintf("gmail get message %s", ref.Id), err)
		}
		msg := Message{ID: ref.Id, Subject: domain.NoSubject}
		if full.Payload != nil {
			for _, header := range full.Payload.Headers {
				switch header.Name {
				case "Subject":
					if header.Value != "" {
						msg.Subject = header.Value
					}
				case "From":
					msg.From = senderAddress(header.Value)
				}
			}
			msg.Body = gmailPlainText(full.Payload)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (s *gmailSession) MarkRead(ctx context.Context, id string) error {
	_, err := s.service.Users.Messages.Modify("me", id, &gmail.ModifyMessageRequest{
		RemoveLabelIds: []string{"UNREAD"},
	}).Context(ctx).Do()
	return err
}

func (s *gmailSession) Close() error {
	return nil
}

// senderAddress reduces a From header ("Alice <alice@co.com>") to the bare
// address. Undecodable headers pass through as-is; the store sentinels cover
// the empty case.
func senderAddress(header string) string {
	parsed, err := mail.ParseAddress(header)
	if err != nil {
		return header
	}
	return parsed.Address
}

// gmailPlainText finds the first text/plain part of a full-format message and
// decodes its base64url payload. Single-part messages decode their own body.
func gmailPlainText(payload *gmail.MessagePart) string {
	if len(payload.Parts) == 0 {
		return decodeBody(payload.Body)
	}
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" {
			return decodeBody(part.Body)
		}
	}
	return ""
}

func decodeBody(body *gmail.MessagePartBody) string {
	if body == nil || body.Data == "" {
		return ""
	}
	decoded, err := base64.RawURLEncoding.DecodeString(body.Data)
	if err != nil {
		// Some payloads arrive padded.
		decoded, err = base64.URLEncoding.DecodeString(body.Data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
