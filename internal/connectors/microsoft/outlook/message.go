package outlook

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// displayDateFormat is used for the date column of message listings.
const displayDateFormat = "02-01-2006 15:04"

// rcptToHeader carries the original envelope recipient on relayed mail.
const rcptToHeader = "X-Rcpt-To"

// Message represents an Outlook message from Microsoft Graph API.
type Message struct {
	ID                     string                  `json:"id"`
	Subject                string                  `json:"subject"`
	Body                   *MessageBody            `json:"body,omitempty"`
	From                   *Recipient              `json:"from,omitempty"`
	Sender                 *Recipient              `json:"sender,omitempty"`
	ToRecipients           []Recipient             `json:"toRecipients"`
	ReceivedDateTime       string                  `json:"receivedDateTime"`
	CreatedDateTime        string                  `json:"createdDateTime"`
	HasAttachments         bool                    `json:"hasAttachments"`
	IsRead                 bool                    `json:"isRead"`
	ParentFolderID         string                  `json:"parentFolderId"`
	InternetMessageHeaders []InternetMessageHeader `json:"internetMessageHeaders,omitempty"`
}

// MessageBody represents the body of an email.
type MessageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// EmailAddress is a Graph emailAddress object. Name is omitted when empty.
type EmailAddress struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// Recipient represents an email recipient.
type Recipient struct {
	EmailAddress EmailAddress `json:"emailAddress"`
}

// InternetMessageHeader is a single name/value header.
type InternetMessageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Attachment is an attachment listed on a received message.
type Attachment struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
	IsInline    bool   `json:"isInline"`
}

func newRecipient(addr domain.Address) Recipient {
	return Recipient{EmailAddress: EmailAddress{
		Address: strings.TrimSpace(addr.Address),
		Name:    addr.Name,
	}}
}

func (r *Recipient) address() domain.Address {
	if r == nil {
		return domain.Address{}
	}
	return domain.Address{Address: r.EmailAddress.Address, Name: r.EmailAddress.Name}
}

// header returns the first header named name, case-insensitively.
func (m *Message) header(name string) string {
	for _, h := range m.InternetMessageHeaders {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// toSummary projects a listed message for display.
func (m *Message) toSummary() domain.MessageSummary {
	summary := domain.MessageSummary{
		ID:             m.ID,
		Date:           formatDisplayDate(m.ReceivedDateTime),
		Subject:        m.Subject,
		From:           m.From.address(),
		HasAttachments: m.HasAttachments,
	}

	// Relayed mail keeps the envelope recipient in a header.
	if to := m.header(rcptToHeader); to != "" {
		summary.To = to
	} else if len(m.ToRecipients) > 0 {
		summary.To = m.ToRecipients[0].EmailAddress.Address
	}

	if m.Body != nil {
		summary.Body = m.Body.Content
	}
	return summary
}

// toDetail converts a fetched message to the domain type.
func (m *Message) toDetail() *domain.MessageDetail {
	detail := &domain.MessageDetail{
		ID:               m.ID,
		Subject:          m.Subject,
		From:             m.From.address(),
		Sender:           m.Sender.address(),
		ReceivedDateTime: m.ReceivedDateTime,
		CreatedDateTime:  m.CreatedDateTime,
		HasAttachments:   m.HasAttachments,
		IsRead:           m.IsRead,
		ParentFolderID:   m.ParentFolderID,
	}
	for i := range m.ToRecipients {
		detail.To = append(detail.To, m.ToRecipients[i].address())
	}
	for _, h := range m.InternetMessageHeaders {
		detail.Headers = append(detail.Headers, domain.Header{Name: h.Name, Value: h.Value})
	}
	return detail
}

// formatDisplayDate renders an RFC 3339 timestamp as dd-mm-yyyy HH:MM in UTC.
// Unparseable values are returned unchanged.
func formatDisplayDate(value string) string {
	if value == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return t.UTC().Format(displayDateFormat)
}

// FormatAddress formats one address for display.
func FormatAddress(addr domain.Address) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Address)
	}
	return addr.Address
}

// FormatAddresses formats a list of addresses for display.
func FormatAddresses(addrs []domain.Address) string {
	names := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Address == "" {
			continue
		}
		names = append(names, FormatAddress(a))
	}
	return strings.Join(names, ", ")
}
