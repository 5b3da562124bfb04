package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// MailService sends mail through Microsoft Graph.
type MailService interface {
	// Send delivers msg using an envelope derived from its headers.
	Send(ctx context.Context, msg *domain.OutboundMessage) error

	// SendWithEnvelope delivers msg to the given envelope.
	SendWithEnvelope(ctx context.Context, msg *domain.OutboundMessage, env domain.Envelope) error

	// SendMIME parses an RFC 5322 message and delivers it.
	// A nil env derives the envelope from the parsed headers.
	SendMIME(ctx context.Context, raw io.Reader, env *domain.Envelope) error
}

// MailboxService reads and updates the signed-in user's mailbox.
type MailboxService interface {
	Me(ctx context.Context) (*domain.UserInfo, error)
	ListFolders(ctx context.Context) ([]domain.Folder, error)
	ListChildFolders(ctx context.Context, folderID string) ([]domain.Folder, error)
	ListMessages(ctx context.Context, opts domain.ListOptions) (*domain.MessagePage, error)
	GetMessage(ctx context.Context, id string) (*domain.MessageDetail, error)
	MoveMessage(ctx context.Context, id, destinationID string) (*domain.MessageDetail, error)
	UpdateMessage(ctx context.Context, id string, fields map[string]any) error
	MarkRead(ctx context.Context, id string, read bool) error
	ListAttachments(ctx context.Context, id string) ([]domain.AttachmentInfo, error)
}
