package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
	"github.com/custodia-labs/graphmail/internal/core/ports/driving"
	"github.com/custodia-labs/graphmail/internal/logger"
	"github.com/custodia-labs/graphmail/internal/metrics"
)

// Credential scope kinds.
const (
	ScopeSingle  = "single"
	ScopeSession = "session"
)

// Ensure CredentialManager implements the interfaces.
var (
	_ driving.CredentialService = (*CredentialManager)(nil)
	_ driven.CredentialProvider = (*CredentialManager)(nil)
)

// CredentialDeps are the collaborators of a CredentialManager.
// Tokens is required in single-user mode, Sessions in session mode.
type CredentialDeps struct {
	Tokens     driven.TokenStore
	Sessions   driven.SessionStore
	Cipher     driven.Cipher
	Refresher  driven.TokenRefresher
	Profiles   driven.ProfileFetcher
	AuthURLs   driven.AuthURLBuilder
	SessionTTL time.Duration
}

// CredentialManager hands out valid access tokens, refreshing them when
// they are expired or inside the safety margin. At most one refresh runs
// per credential scope; concurrent callers wait and reuse its result.
type CredentialManager struct {
	singleUser bool
	deps       CredentialDeps
	now        func() time.Time

	// locks holds a mutex per scope key while any caller holds or waits
	// on it, so the map is bounded by in-flight scopes.
	locksMu sync.Mutex
	locks   map[string]*scopeLock
}

type scopeLock struct {
	mu   sync.Mutex
	refs int
}

// NewCredentialManager creates a credential manager.
func NewCredentialManager(singleUser bool, deps CredentialDeps) *CredentialManager {
	return &CredentialManager{
		singleUser: singleUser,
		deps:       deps,
		now:        time.Now,
		locks:      make(map[string]*scopeLock),
	}
}

// scope identifies the credential for ctx.
type scope struct {
	kind string
	key  string
}

func (s scope) lockKey() string {
	if s.kind == ScopeSingle {
		return ScopeSingle
	}
	return ScopeSession + ":" + s.key
}

func (m *CredentialManager) scopeFor(ctx context.Context) (scope, error) {
	if m.singleUser {
		return scope{kind: ScopeSingle}, nil
	}
	key, ok := domain.SessionKeyFrom(ctx)
	if !ok {
		return scope{}, fmt.Errorf("%w: no session key in context", domain.ErrNotConnected)
	}
	return scope{kind: ScopeSession, key: key}, nil
}

// lock acquires the scope mutex and returns its release func.
func (m *CredentialManager) lock(s scope) func() {
	key := s.lockKey()

	m.locksMu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &scopeLock{}
		m.locks[key] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.locksMu.Unlock()
	}
}

// GetToken returns a valid access token for the scope carried by ctx.
// The expiry check, refresh and persist run under the scope lock.
func (m *CredentialManager) GetToken(ctx context.Context) (string, error) {
	s, err := m.scopeFor(ctx)
	if err != nil {
		return "", err
	}

	unlock := m.lock(s)
	defer unlock()

	if s.kind == ScopeSingle {
		return m.singleUserToken(ctx)
	}
	return m.sessionToken(ctx, s.key)
}

func (m *CredentialManager) singleUserToken(ctx context.Context) (string, error) {
	record, err := m.deps.Tokens.Latest(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", domain.ErrNotConnected
		}
		return "", fmt.Errorf("load token record: %w", err)
	}

	now := m.now()
	if record.NeedsRefresh(now) {
		refreshToken, err := m.decrypt(record.RefreshToken)
		if err != nil {
			return "", err
		}

		tok, err := m.refresh(ctx, ScopeSingle, refreshToken)
		if err != nil {
			return "", err
		}

		if record.AccessToken, err = m.encrypt(tok.AccessToken); err != nil {
			return "", err
		}
		if record.RefreshToken, err = m.encrypt(tok.RefreshToken); err != nil {
			return "", err
		}
		record.ExpiresAt = tok.ExpiryFrom(now)
		record.UpdatedAt = now

		if err := m.deps.Tokens.Save(ctx, record); err != nil {
			return "", fmt.Errorf("persist refreshed token: %w", err)
		}
	}

	return m.decrypt(record.AccessToken)
}

func (m *CredentialManager) sessionToken(ctx context.Context, key string) (string, error) {
	cred, err := m.loadSession(ctx, key)
	if err != nil {
		return "", err
	}

	now := m.now()
	if !now.Before(cred.ExpiresAt().Add(-domain.SafetyMargin)) {
		tok, err := m.refresh(ctx, ScopeSession, cred.RefreshToken)
		if err != nil {
			return "", err
		}

		cred.AccessToken = tok.AccessToken
		cred.RefreshToken = tok.RefreshToken
		cred.ExpiresOn = tok.ExpiryFrom(now).Unix()

		if err := m.saveSession(ctx, key, cred); err != nil {
			return "", err
		}
	}

	if cred.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrCorruptCredential)
	}
	return cred.AccessToken, nil
}

// refresh calls the token endpoint once. A missing refresh token in the
// response keeps the previous one.
func (m *CredentialManager) refresh(ctx context.Context, kind, refreshToken string) (*domain.OAuthToken, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: no refresh token stored", domain.ErrCorruptCredential)
	}

	tok, err := m.deps.Refresher.RefreshToken(ctx, refreshToken)
	metrics.RecordTokenRefresh(kind, err)
	if err != nil {
		logger.Warn("credentials: %s token refresh failed: %v", kind, err)
		return nil, err
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = refreshToken
	}

	logger.Debug("credentials: refreshed %s token", kind)
	return tok, nil
}

func (m *CredentialManager) loadSession(ctx context.Context, key string) (*domain.SessionCredential, error) {
	blob, err := m.deps.Sessions.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotConnected
		}
		return nil, fmt.Errorf("load session credential: %w", err)
	}

	plaintext, err := m.deps.Cipher.Decrypt(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptCredential, err)
	}

	var cred domain.SessionCredential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, fmt.Errorf("%w: decode session credential: %w", domain.ErrCorruptCredential, err)
	}
	return &cred, nil
}

func (m *CredentialManager) saveSession(ctx context.Context, key string, cred *domain.SessionCredential) error {
	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("encode session credential: %w", err)
	}
	blob, err := m.deps.Cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt session credential: %w", err)
	}
	if err := m.deps.Sessions.Put(ctx, key, blob, m.deps.SessionTTL); err != nil {
		return fmt.Errorf("persist session credential: %w", err)
	}
	return nil
}

func (m *CredentialManager) encrypt(value string) (string, error) {
	ciphertext, err := m.deps.Cipher.Encrypt([]byte(value))
	if err != nil {
		return "", fmt.Errorf("encrypt token: %w", err)
	}
	return ciphertext, nil
}

func (m *CredentialManager) decrypt(ciphertext string) (string, error) {
	plaintext, err := m.deps.Cipher.Decrypt(ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrCorruptCredential, err)
	}
	if len(plaintext) == 0 {
		return "", fmt.Errorf("%w: empty token", domain.ErrCorruptCredential)
	}
	return string(plaintext), nil
}

// Connect exchanges an authorization code and stores the resulting
// credential for the scope in ctx, replacing any existing one.
func (m *CredentialManager) Connect(ctx context.Context, code string) (*domain.UserInfo, error) {
	s, err := m.scopeFor(ctx)
	if err != nil {
		return nil, err
	}

	now := m.now()
	tok, err := m.deps.Refresher.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.RefreshToken == "" {
		logger.Warn("credentials: no refresh token returned; is offline_access granted?")
	}

	user, err := m.deps.Profiles.GetUserInfo(ctx, tok.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("fetch user profile: %w", err)
	}

	unlock := m.lock(s)
	defer unlock()

	if s.kind == ScopeSession {
		cred := &domain.SessionCredential{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			ExpiresOn:    tok.ExpiryFrom(now).Unix(),
			User:         user,
		}
		if err := m.saveSession(ctx, s.key, cred); err != nil {
			return nil, err
		}
		logger.Info("credentials: connected session for %s", user.Email())
		return user, nil
	}

	record, err := m.deps.Tokens.Latest(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		record = &domain.TokenRecord{CreatedAt: now}
	case err != nil:
		return nil, fmt.Errorf("load token record: %w", err)
	}

	if record.AccessToken, err = m.encrypt(tok.AccessToken); err != nil {
		return nil, err
	}
	if record.RefreshToken, err = m.encrypt(tok.RefreshToken); err != nil {
		return nil, err
	}
	record.ExpiresAt = tok.ExpiryFrom(now)
	record.UpdatedAt = now

	if err := m.deps.Tokens.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("persist token record: %w", err)
	}

	logger.Info("credentials: connected %s", user.Email())
	return user, nil
}

// AuthURL returns the authorization URL for state.
func (m *CredentialManager) AuthURL(state string) string {
	return m.deps.AuthURLs.BuildAuthURL(state)
}

// Status reports the stored credential without refreshing it.
func (m *CredentialManager) Status(ctx context.Context) (*domain.TokenStatus, error) {
	s, err := m.scopeFor(ctx)
	if err != nil {
		return nil, err
	}
	status := &domain.TokenStatus{Scope: s.lockKey()}

	var expiresAt time.Time
	if s.kind == ScopeSingle {
		record, err := m.deps.Tokens.Latest(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return status, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load token record: %w", err)
		}
		expiresAt = record.ExpiresAt
	} else {
		cred, err := m.loadSession(ctx, s.key)
		if errors.Is(err, domain.ErrNotConnected) {
			return status, nil
		}
		if err != nil {
			return nil, err
		}
		expiresAt = cred.ExpiresAt()
	}

	status.Connected = true
	status.ExpiresAt = expiresAt
	status.Expired = !m.now().Before(expiresAt.Add(-domain.SafetyMargin))
	return status, nil
}
