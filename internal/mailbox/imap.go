package mailbox

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

// imapDialTimeout bounds the TCP connect when the run context carries no
// deadline of its own.
const imapDialTimeout = 30 * time.Second

// IMAPDialer opens IMAP-over-TLS sessions with an address/app-password pair.
type IMAPDialer struct {
	cfg    config.MailboxConfig
	logger *zap.Logger
}

// NewIMAPDialer constructs the dialer.
func NewIMAPDialer(cfg config.MailboxConfig, logger *zap.Logger) *IMAPDialer {
	return &IMAPDialer{cfg: cfg, logger: logger}
}

// Dial connects, authenticates and selects INBOX. The session is owned by one
// ingestion run, so every read and write on the connection is pinned to the run
// deadline: a server that accepts TCP but never answers fails the run instead
// of blocking the tick loop.
func (d *IMAPDialer) Dial(ctx context.Context) (Session, error) {
	if d.cfg.Address == "" || d.cfg.Password == "" {
		return nil, apperrors.NewConfigurationError("EMAIL_ADDRESS or EMAIL_PASSWORD is not set")
	}

	addr := net.JoinHostPort(d.cfg.IMAPHost, d.cfg.IMAPPort)
	dialer := &net.Dialer{Timeout: imapDialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, apperrors.NewConnectivityError(fmt.Sprintf("dial imap %s", addr), err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConn := tls.Client(conn, &tls.Config{ServerName: d.cfg.IMAPHost})
	c, err := client.New(tlsConn)
	if err != nil {
		_ = conn.Close()
		return nil, apperrors.NewConnectivityError(fmt.Sprintf("imap greeting %s", addr), err)
	}
	if err := c.Login(d.cfg.Address, d.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, apperrors.NewConnectivityError("imap login", err)
	}
	if _, err := c.Select("INBOX", false); err != nil {
		_ = c.Logout()
		return nil, apperrors.NewConnectivityError("select INBOX", err)
	}

	d.logger.Debug("imap session established", zap.String("host", addr))
	return &imapSession{client: c, logger: d.logger}, nil
}

type imapSession struct {
	client *client.Client
	logger *zap.Logger
}

func (s *imapSession) ListUnread(ctx context.Context) ([]Message, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, apperrors.NewConnectivityError("search unseen", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	// BODY.PEEK keeps the fetch from setting \Seen; marking read stays an
	// explicit per-message step.
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, imap.FetchEnvelope, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() { done <- s.client.UidFetch(seqset, items, ch) }()

	var messages []Message
	for raw := range ch {
		msg := Message{
			ID:      strconv.FormatUint(uint64(raw.Uid), 10),
			Subject: domain.NoSubject,
		}
		if raw.Envelope != nil {
			if raw.Envelope.Subject != "" {
				msg.Subject = raw.Envelope.Subject
			}
			if len(raw.Envelope.From) > 0 {
				msg.From = raw.Envelope.From[0].Address()
			}
		}
		if body := raw.GetBody(section); body != nil {
			msg.Body = extractPlainText(body)
		}
		messages = append(messages, msg)
	}
	if err := <-done; err != nil {
		return nil, apperrors.NewConnectivityError("fetch unseen", err)
	}
	return messages, nil
}

func (s *imapSession) MarkRead(ctx context.Context, id string) error {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid imap uid %q: %w", id, err)
	}
	seqset := new(imap.SeqSet)
	seqset.AddNum(uint32(uid))
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	return s.client.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil)
}

func (s *imapSession) Close() error {
	return s.client.Logout()
}
