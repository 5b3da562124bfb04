package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

func TestMailboxService_Delegates(t *testing.T) {
	reader := &mockMailbox{}
	svc := NewMailboxService(reader)
	ctx := context.Background()

	_, err := svc.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Me", reader.lastMethod)

	folders, err := svc.ListFolders(ctx)
	require.NoError(t, err)
	assert.Len(t, folders, 1)

	_, err = svc.ListChildFolders(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", reader.lastID)

	opts := domain.ListOptions{Folder: "inbox", Skip: 20, Limit: 10, UnreadOnly: true}
	_, err = svc.ListMessages(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, opts, reader.lastOpts)

	msg, err := svc.GetMessage(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)

	_, err = svc.MoveMessage(ctx, "m1", "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", reader.lastDest)

	_, err = svc.ListAttachments(ctx, "m2")
	require.NoError(t, err)
	assert.Equal(t, "ListAttachments", reader.lastMethod)
	assert.Equal(t, "m2", reader.lastID)
}

func TestMailboxService_MarkRead(t *testing.T) {
	for _, read := range []bool{true, false} {
		reader := &mockMailbox{}

		require.NoError(t, NewMailboxService(reader).MarkRead(context.Background(), "m1", read))

		assert.Equal(t, "UpdateMessage", reader.lastMethod)
		assert.Equal(t, map[string]any{"isRead": read}, reader.lastFields)
	}
}

func TestMailboxService_Validation(t *testing.T) {
	svc := NewMailboxService(&mockMailbox{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "child folders without id", call: func() error { _, err := svc.ListChildFolders(ctx, " "); return err }},
		{name: "negative skip", call: func() error { _, err := svc.ListMessages(ctx, domain.ListOptions{Skip: -1}); return err }},
		{name: "get without id", call: func() error { _, err := svc.GetMessage(ctx, ""); return err }},
		{name: "move without destination", call: func() error { _, err := svc.MoveMessage(ctx, "m1", ""); return err }},
		{name: "move without id", call: func() error { _, err := svc.MoveMessage(ctx, "", "inbox"); return err }},
		{name: "update without fields", call: func() error { return svc.UpdateMessage(ctx, "m1", nil) }},
		{name: "mark read without id", call: func() error { return svc.MarkRead(ctx, "", true) }},
		{name: "attachments without id", call: func() error { _, err := svc.ListAttachments(ctx, ""); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), domain.ErrInvalidInput)
		})
	}
}

func TestMailboxService_PropagatesErrors(t *testing.T) {
	svc := NewMailboxService(&mockMailbox{err: domain.ErrNotConnected})

	_, err := svc.ListFolders(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotConnected)
}
