package outlook

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/custodia-labs/graphmail/internal/connectors/microsoft"
	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
)

// Ensure Mailbox implements the interface.
var _ driven.MailboxReader = (*Mailbox)(nil)

// unreadFilter restricts a listing to unread messages.
const unreadFilter = "isRead ne true"

// Mailbox reads and updates the signed-in user's mailbox.
// Every method maps to exactly one Graph call.
type Mailbox struct {
	graph microsoft.GraphCaller
}

// NewMailbox creates a mailbox reader.
func NewMailbox(graph microsoft.GraphCaller) *Mailbox {
	return &Mailbox{graph: graph}
}

func (m *Mailbox) get(ctx context.Context, path string, v any) error {
	resp, err := m.graph.Request(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return err
	}
	return resp.Decode(v)
}

// Me returns the signed-in user's profile.
func (m *Mailbox) Me(ctx context.Context) (*domain.UserInfo, error) {
	var user domain.UserInfo
	if err := m.get(ctx, "/me?$select=id,displayName,mail,userPrincipalName", &user); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &user, nil
}

// ListFolders returns the top-level mail folders.
func (m *Mailbox) ListFolders(ctx context.Context) ([]domain.Folder, error) {
	var folders []domain.Folder
	if err := m.get(ctx, "/me/mailfolders", &folders); err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	return folders, nil
}

// ListChildFolders returns the child folders of folderID.
func (m *Mailbox) ListChildFolders(ctx context.Context, folderID string) ([]domain.Folder, error) {
	var folders []domain.Folder
	path := "/me/mailfolders/" + url.PathEscape(folderID) + "/childFolders"
	if err := m.get(ctx, path, &folders); err != nil {
		return nil, fmt.Errorf("list child folders: %w", err)
	}
	return folders, nil
}

// ListMessages returns one page of a folder. Next is set when the page
// is full, since Graph does not report a total for $skip paging.
func (m *Mailbox) ListMessages(ctx context.Context, opts domain.ListOptions) (*domain.MessagePage, error) {
	if opts.Cursor != "" {
		cursor, err := DecodeCursor(opts.Cursor)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		opts = cursor.Options()
	}
	opts = normaliseListOptions(opts)

	var messages []Message
	if err := m.get(ctx, messagesPath(opts), &messages); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	page := &domain.MessagePage{Messages: make([]domain.MessageSummary, 0, len(messages))}
	for i := range messages {
		page.Messages = append(page.Messages, messages[i].toSummary())
	}
	if len(messages) >= opts.Limit {
		page.Next = NewCursor(opts).Next().Encode()
	}
	return page, nil
}

func messagesPath(opts domain.ListOptions) string {
	path := fmt.Sprintf("/me/mailfolders/%s/messages?$select=%s&$skip=%d&$top=%d",
		url.PathEscape(opts.Folder), messageSelect, opts.Skip, opts.Limit)
	if opts.UnreadOnly {
		path += "&$filter=" + url.PathEscape(unreadFilter)
	}
	return path
}

// GetMessage fetches one message with a fixed field projection.
func (m *Mailbox) GetMessage(ctx context.Context, id string) (*domain.MessageDetail, error) {
	var msg Message
	path := "/me/messages/" + url.PathEscape(id) + "?$select=" + detailSelect
	if err := m.get(ctx, path, &msg); err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg.toDetail(), nil
}

// MoveMessage moves a message and returns the moved copy.
func (m *Mailbox) MoveMessage(ctx context.Context, id, destinationID string) (*domain.MessageDetail, error) {
	body := map[string]string{"destinationId": destinationID}
	resp, err := m.graph.Request(ctx, http.MethodPost, "/me/messages/"+url.PathEscape(id)+"/move", body, nil)
	if err != nil {
		return nil, fmt.Errorf("move message: %w", err)
	}

	var msg Message
	if err := resp.Decode(&msg); err != nil {
		return nil, fmt.Errorf("move message: %w", err)
	}
	return msg.toDetail(), nil
}

// UpdateMessage patches arbitrary fields on a message.
func (m *Mailbox) UpdateMessage(ctx context.Context, id string, fields map[string]any) error {
	if _, err := m.graph.Request(ctx, http.MethodPatch, "/me/messages/"+url.PathEscape(id), fields, nil); err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// ListAttachments returns attachment metadata for a message.
func (m *Mailbox) ListAttachments(ctx context.Context, id string) ([]domain.AttachmentInfo, error) {
	var attachments []Attachment
	path := "/me/messages/" + url.PathEscape(id) + "/attachments?$select=id,name,contentType,size,isInline"
	if err := m.get(ctx, path, &attachments); err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}

	out := make([]domain.AttachmentInfo, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, domain.AttachmentInfo{
			ID:          a.ID,
			Name:        a.Name,
			ContentType: a.ContentType,
			Size:        a.Size,
			IsInline:    a.IsInline,
		})
	}
	return out, nil
}
