package proof

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/config"
	"github.com/foxzi/inkwell/internal/metrics"
)

var (
	ErrDisabled          = errors.New("proof sending is disabled")
	ErrNoRecipients      = errors.New("at least one recipient is required")
	ErrTooManyRecipients = errors.New("too many recipients")
	ErrInvalidRecipient  = errors.New("invalid recipient address")
	ErrForbidden         = errors.New("asset does not belong to user")
)

// SendError is a failed SMTP conversation step
type SendError struct {
	Stage     string
	Temporary bool
	Err       error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsTemporaryError reports whether retrying the proof may succeed
func IsTemporaryError(err error) bool {
	var se *SendError
	if errors.As(err, &se) {
		return se.Temporary
	}
	return false
}

// Receipt describes a submitted proof
type Receipt struct {
	MessageID  string   `json:"message_id"`
	Recipients []string `json:"recipients"`
	Signed     bool     `json:"dkim_signed"`
}

// Sender submits asset proofs to a relay
type Sender struct {
	store  asset.Store
	cfg    config.ProofConfig
	signer *Signer
	logger *slog.Logger
	now    func() time.Time

	// rootCAs verifies the relay certificate; nil uses the system pool
	rootCAs *x509.CertPool
}

// NewSender creates a proof sender. The DKIM key is loaded when signing is enabled.
func NewSender(store asset.Store, cfg config.ProofConfig, logger *slog.Logger) (*Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	s := &Sender{
		store:  store,
		cfg:    cfg,
		logger: logger.With("component", "proof"),
		now:    time.Now,
	}

	if cfg.Enabled && cfg.DKIM.Enabled {
		signer, err := LoadSigner(cfg.DKIM)
		if err != nil {
			return nil, err
		}
		s.signer = signer
	}

	return s, nil
}

// Send mails a proof of an owned asset to the recipients
func (s *Sender) Send(ctx context.Context, userID, assetID string, recipients []string) (*Receipt, error) {
	if !s.cfg.Enabled {
		return nil, ErrDisabled
	}
	to, err := s.checkRecipients(recipients)
	if err != nil {
		return nil, err
	}

	a, err := s.store.Get(ctx, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	if a == nil {
		return nil, asset.ErrNotFound
	}
	if a.UserID != userID {
		return nil, ErrForbidden
	}

	msg, err := BuildMessage(a, s.cfg.From, to, s.now())
	if err != nil {
		return nil, err
	}

	data := msg.Data
	signed := false
	if s.signer != nil {
		if out, err := s.signer.Sign(data); err != nil {
			s.logger.Warn("DKIM signing failed, sending unsigned",
				"dkim", s.signer.DNSName(),
				"error", err,
			)
		} else {
			data = out
			signed = true
		}
	}

	envelope := msg.From
	if addr, err := mail.ParseAddress(msg.From); err == nil {
		envelope = addr.Address
	}

	if err := s.submit(ctx, envelope, to, data); err != nil {
		var se *SendError
		stage := "unknown"
		if errors.As(err, &se) {
			stage = se.Stage
		}
		metrics.IncProofsFailed(stage)
		s.logger.Warn("proof delivery failed", "asset_id", assetID, "stage", stage, "error", err)
		return nil, err
	}

	metrics.IncProofsSent()
	s.logger.Info("proof sent",
		"asset_id", assetID,
		"message_id", msg.ID,
		"recipients", len(to),
		"dkim", signed,
	)

	return &Receipt{
		MessageID:  msg.ID,
		Recipients: to,
		Signed:     signed,
	}, nil
}

func (s *Sender) checkRecipients(recipients []string) ([]string, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if s.cfg.MaxRecipients > 0 && len(recipients) > s.cfg.MaxRecipients {
		return nil, fmt.Errorf("%w: %d, limit is %d", ErrTooManyRecipients, len(recipients), s.cfg.MaxRecipients)
	}

	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		addr, err := mail.ParseAddress(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRecipient, r)
		}
		out = append(out, addr.Address)
	}
	return out, nil
}

// submit runs one SMTP transaction against the relay
func (s *Sender) submit(ctx context.Context, from string, to []string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	helo := domainOf(from)
	if helo == "" {
		helo = "localhost"
	}

	client, err := s.connect(ctx, helo)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.Username != "" {
		if err := client.Auth(sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)); err != nil {
			return categorize("auth", err)
		}
	}

	if err := client.Mail(from, nil); err != nil {
		return categorize("mail", err)
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt, nil); err != nil {
			return categorize("rcpt", fmt.Errorf("%s: %w", rcpt, err))
		}
	}

	wc, err := client.Data()
	if err != nil {
		return categorize("data", err)
	}
	if _, err := bytes.NewReader(data).WriteTo(wc); err != nil {
		wc.Close()
		return &SendError{Stage: "data", Temporary: true, Err: err}
	}
	if err := wc.Close(); err != nil {
		return categorize("data", err)
	}

	client.Quit()
	return nil
}

// connect greets the relay and switches to TLS when STARTTLS is offered.
// go-smtp only upgrades a fresh client, so an offering relay is dialed twice.
// A failed upgrade aborts the send.
func (s *Sender) connect(ctx context.Context, helo string) (*smtp.Client, error) {
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	client := s.newClient(conn)
	if err := client.Hello(helo); err != nil {
		client.Close()
		return nil, categorize("hello", err)
	}
	if ok, _ := client.Extension("STARTTLS"); !ok {
		return client, nil
	}
	if err := client.Quit(); err != nil {
		client.Close()
	}

	conn, err = s.dial(ctx)
	if err != nil {
		return nil, err
	}
	client, err = smtp.NewClientStartTLS(conn, s.tlsConfig())
	if err != nil {
		return nil, categorize("starttls", err)
	}
	s.setTimeouts(client)

	// The handshake runs on the first command after STARTTLS
	if err := client.Hello(helo); err != nil {
		client.Close()
		return nil, categorize("starttls", err)
	}
	s.logger.Debug("STARTTLS successful", "relay", s.cfg.SMTPAddr)
	return client, nil
}

// dial opens a connection that is closed when ctx ends
func (s *Sender) dial(ctx context.Context) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: s.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.SMTPAddr)
	if err != nil {
		return nil, &SendError{Stage: "dial", Temporary: true, Err: err}
	}
	context.AfterFunc(ctx, func() { conn.Close() })
	return conn, nil
}

func (s *Sender) newClient(conn net.Conn) *smtp.Client {
	client := smtp.NewClient(conn)
	s.setTimeouts(client)
	return client
}

func (s *Sender) setTimeouts(client *smtp.Client) {
	client.CommandTimeout = s.cfg.Timeout
	client.SubmissionTimeout = s.cfg.Timeout
}

func (s *Sender) tlsConfig() *tls.Config {
	host, _, err := net.SplitHostPort(s.cfg.SMTPAddr)
	if err != nil {
		host = s.cfg.SMTPAddr
	}
	return &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
		RootCAs:    s.rootCAs,
	}
}

// categorize marks 4xx replies and transport errors temporary, 5xx permanent
func categorize(stage string, err error) *SendError {
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return &SendError{Stage: stage, Temporary: smtpErr.Code/100 == 4, Err: err}
	}
	return &SendError{Stage: stage, Temporary: true, Err: err}
}
