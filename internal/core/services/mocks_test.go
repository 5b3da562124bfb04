package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// mockTokenStore keeps a single record in memory.
type mockTokenStore struct {
	mu      sync.Mutex
	record  *domain.TokenRecord
	saves   int
	saveErr error
}

func (m *mockTokenStore) Latest(_ context.Context) (*domain.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil {
		return nil, domain.ErrNotFound
	}
	cp := *m.record
	return &cp, nil
}

func (m *mockTokenStore) Save(_ context.Context, record *domain.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if record.ID == 0 {
		record.ID = 1
	}
	cp := *record
	m.record = &cp
	m.saves++
	return nil
}

func (m *mockTokenStore) current() domain.TokenRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.record
}

// mockSessionStore keeps blobs in a map.
type mockSessionStore struct {
	mu    sync.Mutex
	blobs map[string]string
	ttls  map[string]time.Duration
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{blobs: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mockSessionStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return blob, nil
}

func (m *mockSessionStore) Put(_ context.Context, key, blob string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = blob
	m.ttls[key] = ttl
	return nil
}

// mockCipher is reversible and marks ciphertext with a prefix.
type mockCipher struct{}

const cipherPrefix = "enc:"

func (mockCipher) Encrypt(plaintext []byte) (string, error) {
	return cipherPrefix + string(plaintext), nil
}

func (mockCipher) Decrypt(ciphertext string) ([]byte, error) {
	if !strings.HasPrefix(ciphertext, cipherPrefix) {
		return nil, errors.New("message authentication failed")
	}
	return []byte(strings.TrimPrefix(ciphertext, cipherPrefix)), nil
}

// mockRefresher counts token endpoint calls.
type mockRefresher struct {
	calls     atomic.Int32
	delay     time.Duration
	token     *domain.OAuthToken
	err       error
	exchanged *domain.OAuthToken
	seen      sync.Map        // refresh tokens received
	gate      *sync.WaitGroup // when set, each refresh waits for the others
}

func (m *mockRefresher) RefreshToken(_ context.Context, refreshToken string) (*domain.OAuthToken, error) {
	m.calls.Add(1)
	m.seen.Store(refreshToken, true)
	if m.gate != nil {
		m.gate.Done()
		m.gate.Wait()
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.token
	return &cp, nil
}

func (m *mockRefresher) ExchangeCode(_ context.Context, code string) (*domain.OAuthToken, error) {
	if m.err != nil {
		return nil, m.err
	}
	if code == "" {
		return nil, domain.ErrInvalidInput
	}
	cp := *m.exchanged
	return &cp, nil
}

// mockProfiles returns a fixed user.
type mockProfiles struct {
	user  *domain.UserInfo
	err   error
	token string
}

func (m *mockProfiles) GetUserInfo(_ context.Context, accessToken string) (*domain.UserInfo, error) {
	m.token = accessToken
	return m.user, m.err
}

// mockAuthURLs echoes the state.
type mockAuthURLs struct{}

func (mockAuthURLs) BuildAuthURL(state string) string {
	return "https://login.example/authorize?state=" + state
}

// mockTransport records sends.
type mockTransport struct {
	msg  *domain.OutboundMessage
	env  domain.Envelope
	sent int
	err  error
}

func (m *mockTransport) SendMail(_ context.Context, msg *domain.OutboundMessage, env domain.Envelope) error {
	if m.err != nil {
		return m.err
	}
	m.msg = msg
	m.env = env
	m.sent++
	return nil
}

// mockParser returns a canned message.
type mockParser struct {
	msg *domain.OutboundMessage
	err error
	raw string
}

func (m *mockParser) Parse(r io.Reader) (*domain.OutboundMessage, error) {
	data, _ := io.ReadAll(r)
	m.raw = string(data)
	return m.msg, m.err
}

// mockMailbox records the last call.
type mockMailbox struct {
	lastMethod string
	lastID     string
	lastDest   string
	lastFields map[string]any
	lastOpts   domain.ListOptions
	err        error
}

func (m *mockMailbox) Me(_ context.Context) (*domain.UserInfo, error) {
	m.lastMethod = "Me"
	return &domain.UserInfo{ID: "u1"}, m.err
}

func (m *mockMailbox) ListFolders(_ context.Context) ([]domain.Folder, error) {
	m.lastMethod = "ListFolders"
	return []domain.Folder{{ID: "f1"}}, m.err
}

func (m *mockMailbox) ListChildFolders(_ context.Context, folderID string) ([]domain.Folder, error) {
	m.lastMethod, m.lastID = "ListChildFolders", folderID
	return nil, m.err
}

func (m *mockMailbox) ListMessages(_ context.Context, opts domain.ListOptions) (*domain.MessagePage, error) {
	m.lastMethod, m.lastOpts = "ListMessages", opts
	return &domain.MessagePage{}, m.err
}

func (m *mockMailbox) GetMessage(_ context.Context, id string) (*domain.MessageDetail, error) {
	m.lastMethod, m.lastID = "GetMessage", id
	return &domain.MessageDetail{ID: id}, m.err
}

func (m *mockMailbox) MoveMessage(_ context.Context, id, destinationID string) (*domain.MessageDetail, error) {
	m.lastMethod, m.lastID, m.lastDest = "MoveMessage", id, destinationID
	return &domain.MessageDetail{ID: id}, m.err
}

func (m *mockMailbox) UpdateMessage(_ context.Context, id string, fields map[string]any) error {
	m.lastMethod, m.lastID, m.lastFields = "UpdateMessage", id, fields
	return m.err
}

func (m *mockMailbox) ListAttachments(_ context.Context, id string) ([]domain.AttachmentInfo, error) {
	m.lastMethod, m.lastID = "ListAttachments", id
	return nil, m.err
}
