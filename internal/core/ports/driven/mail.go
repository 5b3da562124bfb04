package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// MailTransport delivers a compiled message to the provider.
type MailTransport interface {
	SendMail(ctx context.Context, msg *domain.OutboundMessage, env domain.Envelope) error
}

// MessageParser converts a raw RFC 5322 message to an OutboundMessage.
type MessageParser interface {
	Parse(r io.Reader) (*domain.OutboundMessage, error)
}
