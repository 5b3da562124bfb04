package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emersion/go-message/mail"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a message",
	Long: `Send a message built from flags, or a raw RFC 5322 message with --eml.

Examples:
  graphmail send --to alice@example.com --subject "Hi" --body "Hello"
  graphmail send --to "Bob <bob@example.com>" --html "<p>Report</p>" --attach report.pdf
  graphmail send --eml message.eml --rcpt alice@example.com
  cat message.eml | graphmail send --eml -`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

// Flags for send.
var (
	sendFrom    string
	sendTo      []string
	sendCc      []string
	sendBcc     []string
	sendSubject string
	sendBody    string
	sendHTML    string
	sendAttach  []string
	sendInline  []string
	sendHeaders []string
	sendEML     string
	sendRcpt    []string
)

func init() {
	sendCmd.Flags().StringVar(&sendFrom, "from", "", "From address")
	sendCmd.Flags().StringArrayVar(&sendTo, "to", nil, "To recipient (can be repeated)")
	sendCmd.Flags().StringArrayVar(&sendCc, "cc", nil, "Cc recipient (can be repeated)")
	sendCmd.Flags().StringArrayVar(&sendBcc, "bcc", nil, "Bcc recipient (can be repeated)")
	sendCmd.Flags().StringVarP(&sendSubject, "subject", "s", "", "Subject")
	sendCmd.Flags().StringVar(&sendBody, "body", "", "Plain text body")
	sendCmd.Flags().StringVar(&sendHTML, "html", "", "HTML body (takes precedence over --body)")
	sendCmd.Flags().StringArrayVarP(&sendAttach, "attach", "a", nil, "File to attach (can be repeated)")
	sendCmd.Flags().StringArrayVar(&sendInline, "inline", nil, "Inline file as cid=path (can be repeated)")
	sendCmd.Flags().StringArrayVarP(&sendHeaders, "header", "H", nil, "Custom X- header as Name=value (can be repeated)")
	sendCmd.Flags().StringVar(&sendEML, "eml", "", "Send a raw message file ('-' for stdin)")
	sendCmd.Flags().StringArrayVar(&sendRcpt, "rcpt", nil, "Envelope recipient for --eml (default: To, Cc and Bcc)")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, _ []string) error {
	if mailService == nil {
		return fmt.Errorf("mail %w", errNotConfigured)
	}
	ctx := commandContext(cmd)

	if sendEML != "" {
		return sendRaw(cmd)
	}

	msg, err := buildMessage()
	if err != nil {
		return err
	}

	if err := mailService.Send(ctx, msg); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	cmd.Println("Message sent.")
	return nil
}

func sendRaw(cmd *cobra.Command) error {
	var r io.Reader
	if sendEML == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(sendEML)
		if err != nil {
			return fmt.Errorf("opening %s: %w", sendEML, err)
		}
		defer f.Close()
		r = f
	}

	var env *domain.Envelope
	if len(sendRcpt) > 0 {
		recipients, err := parseAddresses(sendRcpt)
		if err != nil {
			return err
		}
		env = &domain.Envelope{Recipients: recipients}
		if sendFrom != "" {
			from, err := parseAddress(sendFrom)
			if err != nil {
				return err
			}
			env.Sender = &from
		}
	}

	if err := mailService.SendMIME(commandContext(cmd), r, env); err != nil {
		return fmt.Errorf("sending message: %w", err)
	}
	cmd.Println("Message sent.")
	return nil
}

// buildMessage assembles an OutboundMessage from the send flags.
func buildMessage() (*domain.OutboundMessage, error) {
	msg := &domain.OutboundMessage{
		Subject:  sendSubject,
		TextBody: sendBody,
		HTMLBody: sendHTML,
	}

	if sendFrom != "" {
		from, err := parseAddress(sendFrom)
		if err != nil {
			return nil, err
		}
		msg.From = &from
	}

	var err error
	if msg.To, err = parseAddresses(sendTo); err != nil {
		return nil, err
	}
	if msg.Cc, err = parseAddresses(sendCc); err != nil {
		return nil, err
	}
	if msg.Bcc, err = parseAddresses(sendBcc); err != nil {
		return nil, err
	}

	for _, kv := range sendHeaders {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid header format: %s (expected Name=value)", kv)
		}
		msg.Headers = append(msg.Headers, domain.Header{Name: strings.TrimSpace(name), Value: value})
	}

	for _, path := range sendAttach {
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			Filename: filepath.Base(path),
			Path:     path,
		})
	}
	for _, kv := range sendInline {
		cid, path, ok := strings.Cut(kv, "=")
		if !ok || cid == "" || path == "" {
			return nil, fmt.Errorf("invalid inline format: %s (expected cid=path)", kv)
		}
		msg.Attachments = append(msg.Attachments, domain.Attachment{
			Filename:  filepath.Base(path),
			Path:      path,
			Inline:    true,
			ContentID: cid,
		})
	}

	return msg, nil
}

func parseAddress(s string) (domain.Address, error) {
	a, err := mail.ParseAddress(s)
	if err != nil {
		return domain.Address{}, fmt.Errorf("invalid address %q: %w", s, domain.ErrInvalidInput)
	}
	return domain.Address{Address: a.Address, Name: a.Name}, nil
}

// parseAddresses accepts repeated flags, each of which may hold a comma-separated list.
func parseAddresses(values []string) ([]domain.Address, error) {
	var out []domain.Address
	for _, v := range values {
		list, err := mail.ParseAddressList(v)
		if err != nil {
			return nil, fmt.Errorf("invalid address list %q: %w", v, domain.ErrInvalidInput)
		}
		for _, a := range list {
			out = append(out, domain.Address{Address: a.Address, Name: a.Name})
		}
	}
	return out, nil
}
