package outlook

import (
	"strings"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// Well-known folder names accepted by Microsoft Graph in place of an ID.
const (
	FolderInbox        = "inbox"
	FolderSentItems    = "sentitems"
	FolderDrafts       = "drafts"
	FolderArchive      = "archive"
	FolderDeletedItems = "deleteditems"
	FolderJunkEmail    = "junkemail"
)

// Page size limits for message listings.
const (
	DefaultPageSize = 20
	// MaxPageSize is the Microsoft Graph $top maximum.
	MaxPageSize = 1000
)

// messageSelect is the field projection used when listing messages.
const messageSelect = "id,receivedDateTime,subject,sender,toRecipients,from,body,hasAttachments,internetMessageHeaders"

// detailSelect is the field projection used when fetching one message.
const detailSelect = "id,receivedDateTime,createdDateTime,subject,sender,toRecipients,from,hasAttachments,isRead,parentFolderId,internetMessageHeaders"

// normaliseListOptions applies defaults and clamps the page size.
func normaliseListOptions(opts domain.ListOptions) domain.ListOptions {
	opts.Folder = strings.TrimSpace(opts.Folder)
	if opts.Folder == "" {
		opts.Folder = FolderInbox
	}
	if opts.Skip < 0 {
		opts.Skip = 0
	}
	switch {
	case opts.Limit <= 0:
		opts.Limit = DefaultPageSize
	case opts.Limit > MaxPageSize:
		opts.Limit = MaxPageSize
	}
	return opts
}
