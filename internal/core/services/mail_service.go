package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
	"github.com/custodia-labs/graphmail/internal/core/ports/driving"
	"github.com/custodia-labs/graphmail/internal/logger"
)

// Ensure MailService implements the interface.
var _ driving.MailService = (*MailService)(nil)

// MailService validates outbound mail and hands it to the transport.
type MailService struct {
	transport driven.MailTransport
	parser    driven.MessageParser
}

// NewMailService creates a mail service. parser may be nil when raw
// MIME input is not needed.
func NewMailService(transport driven.MailTransport, parser driven.MessageParser) *MailService {
	return &MailService{transport: transport, parser: parser}
}

// Send delivers msg to the recipients named in its headers.
func (s *MailService) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", domain.ErrInvalidInput)
	}
	return s.SendWithEnvelope(ctx, msg, domain.DefaultEnvelope(msg))
}

// SendWithEnvelope delivers msg to env.
func (s *MailService) SendWithEnvelope(ctx context.Context, msg *domain.OutboundMessage, env domain.Envelope) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", domain.ErrInvalidInput)
	}
	if err := validateEnvelope(env); err != nil {
		return err
	}

	if err := s.transport.SendMail(ctx, msg, env); err != nil {
		return err
	}

	logger.Info("mail: sent %q to %d recipient(s)", msg.Subject, len(env.Recipients))
	return nil
}

// SendMIME parses raw and delivers it. A nil env uses the parsed headers.
func (s *MailService) SendMIME(ctx context.Context, raw io.Reader, env *domain.Envelope) error {
	if s.parser == nil {
		return fmt.Errorf("%w: raw messages are not supported", domain.ErrInvalidInput)
	}

	msg, err := s.parser.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if env == nil {
		return s.Send(ctx, msg)
	}
	return s.SendWithEnvelope(ctx, msg, *env)
}

func validateEnvelope(env domain.Envelope) error {
	if len(env.Recipients) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", domain.ErrInvalidInput)
	}
	for _, r := range env.Recipients {
		if strings.TrimSpace(r.Address) == "" {
			return fmt.Errorf("%w: recipient address is empty", domain.ErrInvalidInput)
		}
	}
	return nil
}
