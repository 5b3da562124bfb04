package outlook

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/logger"
	"github.com/custodia-labs/graphmail/internal/metrics"
)

// fileAttachmentType is the OData type of a file attachment.
const fileAttachmentType = "#microsoft.graph.fileAttachment"

// Body content types.
const (
	ContentTypeHTML = "HTML"
	ContentTypeText = "Text"
)

// customHeaderPrefix is required on every forwarded internet header.
const customHeaderPrefix = "X-"

// contentIDDomain is appended to generated Content-IDs.
const contentIDDomain = "@graphmail"

// SendMailRequest is the POST /me/sendMail payload.
type SendMailRequest struct {
	Message         OutgoingMessage `json:"message"`
	SaveToSentItems bool            `json:"saveToSentItems"`
}

// OutgoingMessage is the message object of a sendMail payload.
// Recipient and attachment lists are always present; headers are
// omitted when there are none.
type OutgoingMessage struct {
	Subject                string                  `json:"subject"`
	Body                   MessageBody             `json:"body"`
	From                   *Recipient              `json:"from,omitempty"`
	Sender                 *Recipient              `json:"sender,omitempty"`
	ToRecipients           []Recipient             `json:"toRecipients"`
	CcRecipients           []Recipient             `json:"ccRecipients"`
	BccRecipients          []Recipient             `json:"bccRecipients"`
	ReplyTo                []Recipient             `json:"replyTo"`
	InternetMessageHeaders []InternetMessageHeader `json:"internetMessageHeaders,omitempty"`
	Attachments            []FileAttachment        `json:"attachments"`
}

// FileAttachment is a base64-encoded file attachment.
type FileAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
	ContentID    string `json:"contentId"`
	IsInline     bool   `json:"isInline"`
}

// AttachmentError reports an attachment that could not be read.
// Compile logs and skips these; they never fail a send.
type AttachmentError struct {
	Name string
	Err  error
}

func (e *AttachmentError) Error() string {
	return fmt.Sprintf("attachment %s unreadable: %v", e.Name, e.Err)
}

func (e *AttachmentError) Unwrap() error {
	return e.Err
}

// Compiler converts OutboundMessages to sendMail payloads.
type Compiler struct {
	saveToSentItems bool
	readFile        func(string) ([]byte, error)
	newContentID    func() string
}

// NewCompiler creates a compiler. saveToSentItems is copied into every payload.
func NewCompiler(saveToSentItems bool) *Compiler {
	return &Compiler{
		saveToSentItems: saveToSentItems,
		readFile:        os.ReadFile,
		newContentID:    func() string { return uuid.NewString() + contentIDDomain },
	}
}

// Compile builds the sendMail payload for msg delivered to env.
// An envelope without recipients falls back to the message headers.
func (c *Compiler) Compile(msg *domain.OutboundMessage, env domain.Envelope) *SendMailRequest {
	if len(env.Recipients) == 0 {
		fallback := domain.DefaultEnvelope(msg)
		env.Recipients = fallback.Recipients
		if env.Sender == nil {
			env.Sender = fallback.Sender
		}
	}

	out := OutgoingMessage{
		Subject:       msg.Subject,
		Body:          compileBody(msg),
		ToRecipients:  compileTo(env.Recipients, msg.Cc, msg.Bcc),
		CcRecipients:  compileRecipients(msg.Cc),
		BccRecipients: compileRecipients(msg.Bcc),
		ReplyTo:       compileRecipients(msg.ReplyTo),
		Attachments:   c.compileAttachments(msg.Attachments),
	}

	from, sender := msg.From, env.Sender
	if from == nil {
		from = sender
	}
	if sender == nil {
		sender = from
	}
	if from != nil {
		r := newRecipient(*from)
		out.From = &r
	}
	if sender != nil {
		r := newRecipient(*sender)
		out.Sender = &r
	}

	for _, h := range msg.Headers {
		if !strings.HasPrefix(h.Name, customHeaderPrefix) {
			continue
		}
		out.InternetMessageHeaders = append(out.InternetMessageHeaders, InternetMessageHeader{
			Name:  h.Name,
			Value: h.Value,
		})
	}

	return &SendMailRequest{Message: out, SaveToSentItems: c.saveToSentItems}
}

// compileBody picks HTML when present, otherwise plain text.
func compileBody(msg *domain.OutboundMessage) MessageBody {
	if msg.HTMLBody != "" {
		return MessageBody{ContentType: ContentTypeHTML, Content: msg.HTMLBody}
	}
	return MessageBody{ContentType: ContentTypeText, Content: msg.TextBody}
}

func compileRecipients(addrs []domain.Address) []Recipient {
	out := make([]Recipient, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, newRecipient(a))
	}
	return out
}

// compileTo returns the envelope recipients that are not Cc or Bcc.
func compileTo(recipients, cc, bcc []domain.Address) []Recipient {
	excluded := make(map[string]struct{}, len(cc)+len(bcc))
	for _, a := range cc {
		excluded[a.Key()] = struct{}{}
	}
	for _, a := range bcc {
		excluded[a.Key()] = struct{}{}
	}

	out := make([]Recipient, 0, len(recipients))
	for _, a := range recipients {
		if _, skip := excluded[a.Key()]; skip {
			continue
		}
		excluded[a.Key()] = struct{}{}
		out = append(out, newRecipient(a))
	}
	return out
}

func (c *Compiler) compileAttachments(attachments []domain.Attachment) []FileAttachment {
	out := make([]FileAttachment, 0, len(attachments))
	for i := range attachments {
		fa, err := c.compileAttachment(&attachments[i])
		if err != nil {
			logger.Warn("outlook: skipping attachment: %v", err)
			metrics.RecordAttachmentSkipped()
			continue
		}
		out = append(out, fa)
	}
	return out
}

func (c *Compiler) compileAttachment(a *domain.Attachment) (FileAttachment, error) {
	name := a.Filename
	data := a.Data

	if a.IsReference() {
		if name == "" {
			name = filepath.Base(a.Path)
		}
		raw, err := c.readFile(a.Path)
		if err != nil {
			return FileAttachment{}, &AttachmentError{Name: a.Path, Err: err}
		}
		data = raw
	}

	contentID := a.ContentID
	if contentID == "" {
		contentID = c.newContentID()
	}

	return FileAttachment{
		ODataType:    fileAttachmentType,
		Name:         name,
		ContentType:  attachmentContentType(a.ContentType, name, data),
		ContentBytes: base64.StdEncoding.EncodeToString(data),
		ContentID:    contentID,
		IsInline:     a.Inline,
	}, nil
}

// attachmentContentType uses the declared type, then the file extension,
// then content sniffing.
func attachmentContentType(declared, name string, data []byte) string {
	if declared != "" {
		return declared
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}
