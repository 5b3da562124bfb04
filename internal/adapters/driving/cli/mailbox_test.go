package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

func TestMe(t *testing.T) {
	withServices(t, &Services{Mailbox: &mockMailboxService{}})

	out, err := runCommand(t, "", "me")

	require.NoError(t, err)
	assert.Contains(t, out, "Name:  Alice")
	assert.Contains(t, out, "Email: alice@contoso.com")
}

func TestFolders(t *testing.T) {
	mailbox := &mockMailboxService{
		folders:  []domain.Folder{{ID: "f-inbox", DisplayName: "Inbox", UnreadItemCount: 3, TotalItemCount: 10, ChildFolderCount: 1}},
		children: []domain.Folder{{ID: "f-child", DisplayName: "Receipts"}},
	}
	withServices(t, &Services{Mailbox: mailbox})

	out, err := runCommand(t, "", "folders")
	require.NoError(t, err)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Inbox")
	assert.Contains(t, out, "f-inbox")

	out, err = runCommand(t, "", "folders", "--parent", "f-inbox")
	require.NoError(t, err)
	assert.Equal(t, "f-inbox", mailbox.parentID)
	assert.Contains(t, out, "Receipts")
	assert.NotContains(t, out, "f-inbox")
}

func TestFolders_Empty(t *testing.T) {
	withServices(t, &Services{Mailbox: &mockMailboxService{}})

	out, err := runCommand(t, "", "folders")

	require.NoError(t, err)
	assert.Contains(t, out, "No folders found.")
}

func TestMessages(t *testing.T) {
	mailbox := &mockMailboxService{page: &domain.MessagePage{
		Messages: []domain.MessageSummary{{
			ID:             "m-1",
			Date:           "01-03-2026 12:00",
			Subject:        "Invoice",
			From:           domain.Address{Address: "billing@example.com", Name: "Billing"},
			To:             "alice@contoso.com",
			HasAttachments: true,
		}},
		Next: "cursor-2",
	}}
	withServices(t, &Services{Mailbox: mailbox})

	out, err := runCommand(t, "", "messages", "--folder", "archive", "--unread", "--skip", "5", "--limit", "1")

	require.NoError(t, err)
	assert.Equal(t, domain.ListOptions{Folder: "archive", UnreadOnly: true, Skip: 5, Limit: 1}, mailbox.listOpts)
	assert.Contains(t, out, "01-03-2026 12:00")
	assert.Contains(t, out, "Billing <billing@example.com>")
	assert.Contains(t, out, "Invoice")
	assert.Contains(t, out, "graphmail messages --cursor cursor-2")
}

func TestMessages_DefaultsAndCursor(t *testing.T) {
	mailbox := &mockMailboxService{}
	withServices(t, &Services{Mailbox: mailbox})

	out, err := runCommand(t, "", "messages", "--cursor", "abc")

	require.NoError(t, err)
	assert.Equal(t, domain.ListOptions{Folder: "inbox", Cursor: "abc"}, mailbox.listOpts)
	assert.Contains(t, out, "No messages found.")
}

func TestMessageGet(t *testing.T) {
	mailbox := &mockMailboxService{detail: &domain.MessageDetail{
		ID:      "m-1",
		Subject: "Hello",
		From:    domain.Address{Address: "alice@example.com", Name: "Alice"},
		Sender:  domain.Address{Address: "assistant@example.com"},
		To:      []domain.Address{{Address: "bob@example.com"}, {Address: "carol@example.com", Name: "Carol"}},
		Headers: []domain.Header{{Name: "X-Rcpt-To", Value: "bob@example.com"}},
	}}
	withServices(t, &Services{Mailbox: mailbox})

	out, err := runCommand(t, "", "message", "get", "m-1")

	require.NoError(t, err)
	assert.Contains(t, out, "Subject:  Hello")
	assert.Contains(t, out, "From:     Alice <alice@example.com>")
	assert.Contains(t, out, "Sender:   assistant@example.com")
	assert.Contains(t, out, "To:       bob@example.com, Carol <carol@example.com>")
	assert.Contains(t, out, "X-Rcpt-To: bob@example.com")
}

func TestMessageGet_RequiresID(t *testing.T) {
	withServices(t, &Services{Mailbox: &mockMailboxService{}})

	_, err := runCommand(t, "", "message", "get")

	assert.Error(t, err)
}

func TestMessageMove(t *testing.T) {
	mailbox := &mockMailboxService{}
	withServices(t, &Services{Mailbox: mailbox})

	out, err := runCommand(t, "", "message", "move", "m-1", "archive")

	require.NoError(t, err)
	assert.Equal(t, "archive", mailbox.movedTo)
	assert.Contains(t, out, "New ID: m-1-moved")
}

func TestMessageMarkRead(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantRead bool
		wantOut  string
	}{
		{name: "read", args: []string{"message", "mark-read", "m-1"}, wantRead: true, wantOut: "as read"},
		{name: "unread", args: []string{"message", "mark-read", "m-1", "--unread"}, wantRead: false, wantOut: "as unread"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailbox := &mockMailboxService{}
			withServices(t, &Services{Mailbox: mailbox})

			out, err := runCommand(t, "", tt.args...)

			require.NoError(t, err)
			assert.Equal(t, "m-1", mailbox.markedID)
			assert.Equal(t, tt.wantRead, mailbox.markRead)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestMessageUpdate(t *testing.T) {
	mailbox := &mockMailboxService{}
	withServices(t, &Services{Mailbox: mailbox})

	_, err := runCommand(t, "", "message", "update", "m-1",
		"--set", "isRead=true",
		"--set", "importance=high",
		"--set", `categories=["Red"]`)

	require.NoError(t, err)
	assert.Equal(t, "m-1", mailbox.updatedID)
	assert.Equal(t, map[string]any{
		"isRead":     true,
		"importance": "high",
		"categories": []any{"Red"},
	}, mailbox.fields)
}

func TestMessageUpdate_BadField(t *testing.T) {
	mailbox := &mockMailboxService{}
	withServices(t, &Services{Mailbox: mailbox})

	_, err := runCommand(t, "", "message", "update", "m-1", "--set", "isRead")

	assert.Error(t, err)
	assert.Empty(t, mailbox.updatedID)
}

func TestMessageAttachments(t *testing.T) {
	mailbox := &mockMailboxService{attachments: []domain.AttachmentInfo{
		{ID: "a-1", Name: "report.pdf", ContentType: "application/pdf", Size: 2048},
	}}
	withServices(t, &Services{Mailbox: mailbox})

	out, err := runCommand(t, "", "message", "attachments", "m-1")

	require.NoError(t, err)
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, "2048")
}

func TestMailbox_ErrorPropagates(t *testing.T) {
	withServices(t, &Services{Mailbox: &mockMailboxService{err: domain.ErrNotConnected}})

	_, err := runCommand(t, "", "messages")

	assert.ErrorIs(t, err, domain.ErrNotConnected)
}
