package driven

import (
	"context"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// MailboxReader is the provider's mailbox API.
type MailboxReader interface {
	// Me returns the signed-in user.
	Me(ctx context.Context) (*domain.UserInfo, error)
	ListFolders(ctx context.Context) ([]domain.Folder, error)
	ListChildFolders(ctx context.Context, folderID string) ([]domain.Folder, error)
	// ListMessages returns one page. A non-empty opts.Cursor takes
	// precedence over the other options.
	ListMessages(ctx context.Context, opts domain.ListOptions) (*domain.MessagePage, error)
	GetMessage(ctx context.Context, id string) (*domain.MessageDetail, error)
	MoveMessage(ctx context.Context, id, destinationID string) (*domain.MessageDetail, error)
	UpdateMessage(ctx context.Context, id string, fields map[string]any) error
	ListAttachments(ctx context.Context, id string) ([]domain.AttachmentInfo, error)
}
