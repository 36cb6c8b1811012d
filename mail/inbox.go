package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/hsarchitect/folio/config"
)

const DefaultMailbox = "INBOX"

// Inbox reports how many messages in the studio mailbox are unread.
type Inbox interface {
	Unread(ctx context.Context) (int, error)
}

type session interface {
	unseen(mailbox string) (uint32, error)
	close() error
}

type IMAPInbox struct {
	cfg  *config.Imap
	dial func(ctx context.Context, cfg *config.Imap) (session, error)
}

func NewIMAPInbox(cfg *config.Imap) *IMAPInbox {
	return &IMAPInbox{cfg: cfg, dial: dialIMAP}
}

// Unread logs in, asks the server for the UNSEEN count of the mailbox and logs out.
func (i *IMAPInbox) Unread(ctx context.Context) (int, error) {
	if i.cfg == nil {
		return 0, ErrNotConfigured
	}

	s, err := i.dial(ctx, i.cfg)
	if err != nil {
		return 0, fmt.Errorf("imap connect: %w", err)
	}
	defer s.close()

	mailbox := i.cfg.Mailbox
	if mailbox == "" {
		mailbox = DefaultMailbox
	}

	n, err := s.unseen(mailbox)
	if err != nil {
		return 0, fmt.Errorf("imap status %s: %w", mailbox, err)
	}
	return int(n), nil
}

type imapSession struct {
	client *imapclient.Client
}

func dialIMAP(ctx context.Context, cfg *config.Imap) (session, error) {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 5 * time.Second},
		Config:    &tls.Config{ServerName: cfg.Host},
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client := imapclient.New(conn, nil)
	if err := client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		client.Close()
		return nil, err
	}

	return &imapSession{client: client}, nil
}

func (s *imapSession) unseen(mailbox string) (uint32, error) {
	data, err := s.client.Status(mailbox, &imap.StatusOptions{NumUnseen: true}).Wait()
	if err != nil {
		return 0, err
	}
	if data.NumUnseen == nil {
		return 0, fmt.Errorf("server omitted UNSEEN")
	}
	return *data.NumUnseen, nil
}

func (s *imapSession) close() error {
	_ = s.client.Logout().Wait()
	return s.client.Close()
}
