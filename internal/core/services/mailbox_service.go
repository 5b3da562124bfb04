package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
	"github.com/custodia-labs/graphmail/internal/core/ports/driving"
)

// Ensure MailboxService implements the interface.
var _ driving.MailboxService = (*MailboxService)(nil)

// MailboxService validates mailbox requests before passing them to the provider.
type MailboxService struct {
	reader driven.MailboxReader
}

// NewMailboxService creates a mailbox service.
func NewMailboxService(reader driven.MailboxReader) *MailboxService {
	return &MailboxService{reader: reader}
}

func requireID(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, name)
	}
	return nil
}

// Me returns the signed-in user.
func (s *MailboxService) Me(ctx context.Context) (*domain.UserInfo, error) {
	return s.reader.Me(ctx)
}

// ListFolders returns the top-level folders.
func (s *MailboxService) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	return s.reader.ListFolders(ctx)
}

// ListChildFolders returns the child folders of folderID.
func (s *MailboxService) ListChildFolders(ctx context.Context, folderID string) ([]domain.Folder, error) {
	if err := requireID("folder id", folderID); err != nil {
		return nil, err
	}
	return s.reader.ListChildFolders(ctx, folderID)
}

// ListMessages returns one page of messages.
func (s *MailboxService) ListMessages(ctx context.Context, opts domain.ListOptions) (*domain.MessagePage, error) {
	if opts.Skip < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("%w: skip and limit must not be negative", domain.ErrInvalidInput)
	}
	return s.reader.ListMessages(ctx, opts)
}

// GetMessage fetches one message.
func (s *MailboxService) GetMessage(ctx context.Context, id string) (*domain.MessageDetail, error) {
	if err := requireID("message id", id); err != nil {
		return nil, err
	}
	return s.reader.GetMessage(ctx, id)
}

// MoveMessage moves a message to destinationID.
func (s *MailboxService) MoveMessage(ctx context.Context, id, destinationID string) (*domain.MessageDetail, error) {
	if err := requireID("message id", id); err != nil {
		return nil, err
	}
	if err := requireID("destination folder", destinationID); err != nil {
		return nil, err
	}
	return s.reader.MoveMessage(ctx, id, destinationID)
}

// UpdateMessage patches fields on a message.
func (s *MailboxService) UpdateMessage(ctx context.Context, id string, fields map[string]any) error {
	if err := requireID("message id", id); err != nil {
		return err
	}
	if len(fields) == 0 {
		return fmt.Errorf("%w: no fields to update", domain.ErrInvalidInput)
	}
	return s.reader.UpdateMessage(ctx, id, fields)
}

// MarkRead sets the isRead flag on a message.
func (s *MailboxService) MarkRead(ctx context.Context, id string, read bool) error {
	return s.UpdateMessage(ctx, id, map[string]any{"isRead": read})
}

// ListAttachments lists a message's attachments.
func (s *MailboxService) ListAttachments(ctx context.Context, id string) ([]domain.AttachmentInfo, error) {
	if err := requireID("message id", id); err != nil {
		return nil, err
	}
	return s.reader.ListAttachments(ctx, id)
}
