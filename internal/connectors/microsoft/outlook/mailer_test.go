package outlook

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/graphmail/internal/connectors/microsoft"
	"github.com/custodia-labs/graphmail/internal/core/domain"
)

func TestMailer_SendMail(t *testing.T) {
	graph := (&mockGraph{}).reply(http.StatusAccepted, "")
	mailer := NewMailer(graph, NewCompiler(true))

	from := domain.Address{Address: "me@x.com"}
	msg := &domain.OutboundMessage{
		Subject:  "Hi",
		TextBody: "hello",
		From:     &from,
		To:       []domain.Address{{Address: "you@x.com", Name: "You"}},
	}

	err := mailer.SendMail(context.Background(), msg, domain.DefaultEnvelope(msg))
	require.NoError(t, err)

	require.Len(t, graph.calls, 1)
	call := graph.lastCall()
	assert.Equal(t, http.MethodPost, call.Method)
	assert.Equal(t, "/me/sendMail", call.Path)

	assert.JSONEq(t, `{
		"message": {
			"subject": "Hi",
			"body": {"contentType": "Text", "content": "hello"},
			"from": {"emailAddress": {"address": "me@x.com"}},
			"sender": {"emailAddress": {"address": "me@x.com"}},
			"toRecipients": [{"emailAddress": {"address": "you@x.com", "name": "You"}}],
			"ccRecipients": [],
			"bccRecipients": [],
			"replyTo": [],
			"attachments": []
		},
		"saveToSentItems": true
	}`, bodyJSON(call.Body))
}

func TestMailer_SendMail_APIError(t *testing.T) {
	graph := &mockGraph{err: &microsoft.APIError{
		Method:     http.MethodPost,
		Path:       "/me/sendMail",
		StatusCode: http.StatusBadRequest,
		Body:       `{"error":{"code":"ErrorInvalidRecipients"}}`,
	}}
	mailer := NewMailer(graph, NewCompiler(false))

	err := mailer.SendMail(context.Background(), &domain.OutboundMessage{}, domain.Envelope{})

	require.Error(t, err)
	assert.ErrorIs(t, err, microsoft.ErrBadRequest)
	assert.Contains(t, err.Error(), "ErrorInvalidRecipients")
	assert.Len(t, graph.calls, 1)
}
