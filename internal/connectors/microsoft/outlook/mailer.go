package outlook

import (
	"context"
	"fmt"
	"net/http"

	"github.com/custodia-labs/graphmail/internal/connectors/microsoft"
	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
	"github.com/custodia-labs/graphmail/internal/logger"
)

// sendMailPath is the Graph endpoint for sending as the signed-in user.
const sendMailPath = "/me/sendMail"

// Ensure Mailer implements the interface.
var _ driven.MailTransport = (*Mailer)(nil)

// Mailer sends compiled messages through Microsoft Graph.
type Mailer struct {
	graph    microsoft.GraphCaller
	compiler *Compiler
}

// NewMailer creates a mailer.
func NewMailer(graph microsoft.GraphCaller, compiler *Compiler) *Mailer {
	return &Mailer{graph: graph, compiler: compiler}
}

// SendMail compiles msg for env and posts it to /me/sendMail.
func (m *Mailer) SendMail(ctx context.Context, msg *domain.OutboundMessage, env domain.Envelope) error {
	payload := m.compiler.Compile(msg, env)

	resp, err := m.graph.Request(ctx, http.MethodPost, sendMailPath, payload, nil)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	logger.Debug("outlook: sendMail accepted with status %d (%d to, %d cc, %d bcc, %d attachments)",
		resp.StatusCode,
		len(payload.Message.ToRecipients),
		len(payload.Message.CcRecipients),
		len(payload.Message.BccRecipients),
		len(payload.Message.Attachments))
	return nil
}
