package domain

// Folder is a mail folder.
type Folder struct {
	ID               string `json:"id"`
	DisplayName      string `json:"displayName"`
	ParentFolderID   string `json:"parentFolderId"`
	ChildFolderCount int    `json:"childFolderCount"`
	UnreadItemCount  int    `json:"unreadItemCount"`
	TotalItemCount   int    `json:"totalItemCount"`
}

// ListOptions selects a page of messages from a folder.
type ListOptions struct {
	Folder     string
	UnreadOnly bool
	Skip       int
	Limit      int
	// Cursor continues a previous listing.
	Cursor string
}

// MessageSummary is the display projection of a listed message.
type MessageSummary struct {
	ID             string
	Date           string
	Subject        string
	From           Address
	To             string
	HasAttachments bool
	Body           string
}

// MessagePage is one page of a folder listing.
// Next is empty when the page was short.
type MessagePage struct {
	Messages []MessageSummary
	Next     string
}

// MessageDetail is a single fetched message.
type MessageDetail struct {
	ID               string
	Subject          string
	From             Address
	Sender           Address
	To               []Address
	ReceivedDateTime string
	CreatedDateTime  string
	HasAttachments   bool
	IsRead           bool
	ParentFolderID   string
	Headers          []Header
}

// AttachmentInfo describes an attachment on a received message.
type AttachmentInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	IsInline    bool   `json:"isInline"`
}
