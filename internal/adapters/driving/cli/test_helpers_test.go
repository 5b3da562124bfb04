package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// mockCredentialService implements driving.CredentialService for testing.
type mockCredentialService struct {
	status     *domain.TokenStatus
	err        error
	code       string
	sessionKey string
	state      string
}

func (m *mockCredentialService) GetToken(_ context.Context) (string, error) {
	return "token", m.err
}

func (m *mockCredentialService) Connect(ctx context.Context, code string) (*domain.UserInfo, error) {
	m.code = code
	m.sessionKey, _ = domain.SessionKeyFrom(ctx)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UserInfo{DisplayName: "Alice", UserPrincipalName: "alice@contoso.com"}, nil
}

func (m *mockCredentialService) AuthURL(state string) string {
	m.state = state
	return "https://login.example.com/authorize?state=" + state
}

func (m *mockCredentialService) Status(ctx context.Context) (*domain.TokenStatus, error) {
	m.sessionKey, _ = domain.SessionKeyFrom(ctx)
	return m.status, m.err
}

// mockMailService implements driving.MailService for testing.
type mockMailService struct {
	sent    *domain.OutboundMessage
	raw     string
	env     *domain.Envelope
	err     error
	session string
}

func (m *mockMailService) Send(ctx context.Context, msg *domain.OutboundMessage) error {
	m.sent = msg
	m.session, _ = domain.SessionKeyFrom(ctx)
	return m.err
}

func (m *mockMailService) SendWithEnvelope(ctx context.Context, msg *domain.OutboundMessage, env domain.Envelope) error {
	m.env = &env
	return m.Send(ctx, msg)
}

func (m *mockMailService) SendMIME(ctx context.Context, raw io.Reader, env *domain.Envelope) error {
	b, err := io.ReadAll(raw)
	if err != nil {
		return err
	}
	m.raw = string(b)
	m.env = env
	m.session, _ = domain.SessionKeyFrom(ctx)
	return m.err
}

// mockMailboxService implements driving.MailboxService for testing.
type mockMailboxService struct {
	folders     []domain.Folder
	children    []domain.Folder
	page        *domain.MessagePage
	detail      *domain.MessageDetail
	attachments []domain.AttachmentInfo
	err         error

	listOpts  domain.ListOptions
	parentID  string
	movedTo   string
	markedID  string
	markRead  bool
	updatedID string
	fields    map[string]any
}

func (m *mockMailboxService) Me(_ context.Context) (*domain.UserInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.UserInfo{ID: "u-1", DisplayName: "Alice", Mail: "alice@contoso.com"}, nil
}

func (m *mockMailboxService) ListFolders(_ context.Context) ([]domain.Folder, error) {
	return m.folders, m.err
}

func (m *mockMailboxService) ListChildFolders(_ context.Context, folderID string) ([]domain.Folder, error) {
	m.parentID = folderID
	return m.children, m.err
}

func (m *mockMailboxService) ListMessages(_ context.Context, opts domain.ListOptions) (*domain.MessagePage, error) {
	m.listOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.page == nil {
		return &domain.MessagePage{}, nil
	}
	return m.page, nil
}

func (m *mockMailboxService) GetMessage(_ context.Context, _ string) (*domain.MessageDetail, error) {
	return m.detail, m.err
}

func (m *mockMailboxService) MoveMessage(_ context.Context, id, destinationID string) (*domain.MessageDetail, error) {
	m.movedTo = destinationID
	if m.err != nil {
		return nil, m.err
	}
	return &domain.MessageDetail{ID: id + "-moved"}, nil
}

func (m *mockMailboxService) UpdateMessage(_ context.Context, id string, fields map[string]any) error {
	m.updatedID = id
	m.fields = fields
	return m.err
}

func (m *mockMailboxService) MarkRead(_ context.Context, id string, read bool) error {
	m.markedID = id
	m.markRead = read
	return m.err
}

func (m *mockMailboxService) ListAttachments(_ context.Context, _ string) ([]domain.AttachmentInfo, error) {
	return m.attachments, m.err
}

// mockSecretStore implements SecretStore for testing.
type mockSecretStore struct {
	secret string
}

func (m *mockSecretStore) SetClientSecret(secret string) error {
	m.secret = secret
	return nil
}

// resetFlags restores every flag to its default so commands can run repeatedly.
func resetFlags() {
	verbose, configPath, sessionKey = false, "", ""
	authCode = ""
	sendFrom, sendSubject, sendBody, sendHTML, sendEML = "", "", "", "", ""
	sendTo, sendCc, sendBcc, sendAttach, sendInline, sendHeaders, sendRcpt = nil, nil, nil, nil, nil, nil, nil
	foldersParent = ""
	messagesFolder, messagesUnread, messagesSkip, messagesLimit, messagesCursor = "inbox", false, 0, 0, ""
	markUnread = false
	messageSetFields = nil
	relayOpts = RelayOptions{}

	var walk func(*cobra.Command)
	walk = func(c *cobra.Command) {
		unset := func(f *pflag.Flag) { f.Changed = false }
		c.Flags().VisitAll(unset)
		c.PersistentFlags().VisitAll(unset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// withServices injects s for the duration of the test.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	SetServices(s)
	bootstrap = nil
	t.Cleanup(func() {
		credentialService, mailService, mailboxService, secretStore, relayRunner = nil, nil, nil, nil, nil
		closeServices = nil
		bootstrap = nil
	})
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := ExecuteContext(ctx)
	return buf.String(), err
}
