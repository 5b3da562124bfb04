// Package smtprelay accepts mail over SMTP and delivers it through Microsoft Graph.
package smtprelay

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driving"
	"github.com/custodia-labs/graphmail/internal/logger"
)

const (
	defaultDomain   = "localhost"
	deliveryTimeout = 2 * time.Minute
)

// errAuthRequired is the RFC 4954 reply for MAIL or RCPT before AUTH.
var errAuthRequired = &smtp.SMTPError{
	Code:         530,
	EnhancedCode: smtp.EnhancedCode{5, 7, 0},
	Message:      "Authentication required",
}

// Config configures the relay.
type Config struct {
	Addr   string
	Domain string
	// Username and Password are the PLAIN credentials. An empty Username
	// accepts any username with the shared Password.
	Username string
	Password string
	// PerSession scopes delivery to the authenticated username's credential.
	PerSession bool
}

// authRequired reports whether clients must AUTH before MAIL.
func (c Config) authRequired() bool {
	return c.PerSession || c.Password != ""
}

// ServiceFactory returns the mail service a single SMTP session delivers through.
type ServiceFactory func() driving.MailService

// Server is the SMTP front end.
type Server struct {
	smtp *smtp.Server
}

// New creates a relay server.
func New(cfg Config, services ServiceFactory) *Server {
	b := &backend{cfg: cfg, services: services}

	server := smtp.NewServer(b)
	server.Addr = cfg.Addr
	server.Domain = cfg.Domain
	if server.Domain == "" {
		server.Domain = defaultDomain
	}
	server.AllowInsecureAuth = true
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxRecipients = 500
	server.MaxMessageBytes = 35 << 20

	return &Server{smtp: server}
}

// ListenAndServe listens on the configured address.
func (s *Server) ListenAndServe() error {
	logger.Info("relay: listening on %s", s.smtp.Addr)
	return s.smtp.ListenAndServe()
}

// Serve accepts connections on l.
func (s *Server) Serve(l net.Listener) error {
	logger.Info("relay: listening on %s", l.Addr())
	return s.smtp.Serve(l)
}

// Shutdown stops accepting connections and waits for open sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.smtp.Shutdown(ctx)
}

// Close stops the server immediately.
func (s *Server) Close() error {
	return s.smtp.Close()
}

type backend struct {
	cfg      Config
	services ServiceFactory
}

func (b *backend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	logger.Debug("relay: session from %s", c.Conn().RemoteAddr())
	return &session{backend: b}, nil
}

type session struct {
	backend  *backend
	username string
	authed   bool
	from     string
	to       []string
}

func (s *session) AuthMechanisms() []string {
	return []string{sasl.Plain}
}

func (s *session) Auth(mech string) (sasl.Server, error) {
	if mech != sasl.Plain {
		return nil, smtp.ErrAuthUnknownMechanism
	}
	return sasl.NewPlainServer(func(_, username, password string) error {
		if !s.backend.checkCredentials(username, password) {
			logger.Warn("relay: AUTH failed for %q", username)
			return errors.New("invalid credentials")
		}
		s.username = username
		s.authed = true
		return nil
	}), nil
}

func (b *backend) checkCredentials(username, password string) bool {
	if username == "" {
		return false
	}
	if b.cfg.Username != "" && subtle.ConstantTimeCompare([]byte(username), []byte(b.cfg.Username)) != 1 {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(b.cfg.Password)) == 1
}

func (s *session) Mail(from string, _ *smtp.MailOptions) error {
	if s.backend.cfg.authRequired() && !s.authed {
		return errAuthRequired
	}
	s.from = strings.TrimSpace(from)
	return nil
}

func (s *session) Rcpt(to string, _ *smtp.RcptOptions) error {
	if s.backend.cfg.authRequired() && !s.authed {
		return errAuthRequired
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return &smtp.SMTPError{Code: 501, EnhancedCode: smtp.EnhancedCode{5, 1, 3}, Message: "Empty recipient"}
	}
	s.to = append(s.to, to)
	return nil
}

func (s *session) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if s.backend.cfg.PerSession {
		ctx = domain.WithSessionKey(ctx, s.username)
	}

	env := s.envelope()
	if err := s.backend.services().SendMIME(ctx, bytes.NewReader(data), &env); err != nil {
		logger.Error("relay: delivery from %s failed: %v", s.from, err)
		return smtpError(err)
	}

	logger.Info("relay: delivered message from %s to %d recipient(s)", s.from, len(env.Recipients))
	return nil
}

// envelope builds the delivery envelope from MAIL FROM and RCPT TO.
func (s *session) envelope() domain.Envelope {
	env := domain.Envelope{}
	if s.from != "" {
		env.Sender = &domain.Address{Address: s.from}
	}
	for _, to := range s.to {
		env.Recipients = append(env.Recipients, domain.Address{Address: to})
	}
	return env
}

func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

func (s *session) Logout() error {
	return nil
}

// smtpError maps a delivery failure to an SMTP reply.
func smtpError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return &smtp.SMTPError{Code: 554, EnhancedCode: smtp.EnhancedCode{5, 6, 0}, Message: "Message rejected: " + err.Error()}
	case errors.Is(err, domain.ErrNotConnected):
		return &smtp.SMTPError{Code: 550, EnhancedCode: smtp.EnhancedCode{5, 7, 1}, Message: "Mailbox not connected"}
	default:
		return &smtp.SMTPError{Code: 451, EnhancedCode: smtp.EnhancedCode{4, 4, 0}, Message: "Delivery failed, try again later"}
	}
}
