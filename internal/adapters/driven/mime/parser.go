// Package mime converts raw RFC 5322 messages to outbound messages.
package mime

import (
	"fmt"
	"io"
	stdmime "mime"
	"path"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.MessageParser = (*Parser)(nil)

// Parser reads MIME messages with go-message.
type Parser struct{}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads r into an OutboundMessage.
// Parts with an attachment disposition, and inline parts that are not the
// first text or HTML body, become attachments.
func (p *Parser) Parse(r io.Reader) (*domain.OutboundMessage, error) {
	reader, err := mail.CreateReader(r)
	if err != nil {
		return nil, fmt.Errorf("reading message: %w", err)
	}

	msg := &domain.OutboundMessage{}

	if subject, err := reader.Header.Subject(); err == nil {
		msg.Subject = subject
	}

	if from := addressList(&reader.Header, "From"); len(from) > 0 {
		msg.From = &from[0]
	}
	msg.To = addressList(&reader.Header, "To")
	msg.Cc = addressList(&reader.Header, "Cc")
	msg.Bcc = addressList(&reader.Header, "Bcc")
	msg.ReplyTo = addressList(&reader.Header, "Reply-To")

	fields := reader.Header.Fields()
	for fields.Next() {
		if !strings.HasPrefix(fields.Key(), "X-") {
			continue
		}
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		msg.Headers = append(msg.Headers, domain.Header{Name: fields.Key(), Value: value})
	}

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading message part: %w", err)
		}

		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, fmt.Errorf("reading message part body: %w", err)
		}

		switch header := part.Header.(type) {
		case *mail.InlineHeader:
			mediaType, typeParams, _ := header.ContentType()
			disposition, params, _ := header.ContentDisposition()
			filename := params["filename"]
			if filename == "" {
				filename = typeParams["name"]
			}
			isBody := filename == ""

			switch {
			case isBody && (mediaType == "" || mediaType == "text/plain") && msg.TextBody == "":
				msg.TextBody = string(body)
			case isBody && mediaType == "text/html" && msg.HTMLBody == "":
				msg.HTMLBody = string(body)
			case strings.HasPrefix(mediaType, "text/") && disposition == "":
				// Additional alternative bodies are ignored.
			default:
				cid := contentID(header.Get("Content-Id"))
				if strings.TrimSpace(filename) == "" {
					filename = fallbackName(cid, mediaType)
				}
				msg.Attachments = append(msg.Attachments, domain.Attachment{
					Filename:    filename,
					ContentType: mediaType,
					Data:        body,
					Inline:      disposition == "inline",
					ContentID:   cid,
				})
			}
		case *mail.AttachmentHeader:
			filename, _ := header.Filename()
			mediaType, _, _ := header.ContentType()
			cid := contentID(header.Get("Content-Id"))
			if strings.TrimSpace(filename) == "" {
				filename = fallbackName(cid, mediaType)
			}
			msg.Attachments = append(msg.Attachments, domain.Attachment{
				Filename:    filename,
				ContentType: mediaType,
				Data:        body,
				ContentID:   cid,
			})
		}
	}

	return msg, nil
}

func addressList(h *mail.Header, key string) []domain.Address {
	list, err := h.AddressList(key)
	if err != nil || len(list) == 0 {
		return nil
	}
	out := make([]domain.Address, 0, len(list))
	for _, a := range list {
		out = append(out, domain.Address{Address: a.Address, Name: a.Name})
	}
	return out
}

// contentID strips the angle brackets from a Content-ID value.
func contentID(v string) string {
	return strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(v), "<"), ">")
}

// fallbackName names an attachment that carries no filename from the
// local part of its Content-ID, adding an extension for the media type.
func fallbackName(cid, mediaType string) string {
	name, _, _ := strings.Cut(cid, "@")
	if name = strings.TrimSpace(name); name == "" {
		name = "attachment"
	}
	if path.Ext(name) != "" {
		return name
	}
	if exts, err := stdmime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
		return name + exts[0]
	}
	return name
}
