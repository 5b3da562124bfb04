package domain

import (
	"strings"
)

// Address is a mailbox with an optional display name.
type Address struct {
	Address string
	Name    string
}

// Key returns the comparison key for the address.
func (a Address) Key() string {
	return strings.ToLower(strings.TrimSpace(a.Address))
}

// Attachment is either an explicit binary attachment (Data set) or a
// by-reference attachment (Path set) that is read when the message is compiled.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
	Path        string
	// Inline is true only for parts with an inline content-disposition.
	Inline bool
	// ContentID is kept as-is when set so cid: references in the HTML still resolve.
	ContentID string
}

// IsReference reports whether the attachment must be read from disk.
func (a *Attachment) IsReference() bool {
	return a.Path != "" && a.Data == nil
}

// Header is a single internet message header.
type Header struct {
	Name  string
	Value string
}

// OutboundMessage is the in-memory email handed to the compiler.
type OutboundMessage struct {
	Subject     string
	HTMLBody    string
	TextBody    string
	From        *Address
	To          []Address
	Cc          []Address
	Bcc         []Address
	ReplyTo     []Address
	Headers     []Header
	Attachments []Attachment
}

// Envelope is the actual delivery sender and recipient set.
type Envelope struct {
	Sender     *Address
	Recipients []Address
}

// DefaultEnvelope derives an envelope from the message headers:
// the sender is From and the recipients are To, Cc and Bcc deduplicated.
func DefaultEnvelope(msg *OutboundMessage) Envelope {
	env := Envelope{Sender: msg.From}
	seen := make(map[string]struct{})
	for _, list := range [][]Address{msg.To, msg.Cc, msg.Bcc} {
		for _, addr := range list {
			if _, ok := seen[addr.Key()]; ok {
				continue
			}
			seen[addr.Key()] = struct{}{}
			env.Recipients = append(env.Recipients, addr)
		}
	}
	return env
}
