package domain

import "time"

// SafetyMargin is subtracted from token expiry so a token is never used
// when it could expire between validation and the request reaching Graph.
const SafetyMargin = 30 * time.Second

// TokenRecord is the persisted credential for single-user mode.
// AccessToken and RefreshToken hold ciphertext, never plaintext.
type TokenRecord struct {
	ID           int64     `db:"id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// NeedsRefresh reports whether the record is expired or inside the safety margin.
func (r *TokenRecord) NeedsRefresh(now time.Time) bool {
	return !now.Before(r.ExpiresAt.Add(-SafetyMargin))
}

// SessionCredential is the plaintext shape of a per-session encrypted blob.
type SessionCredential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresOn    int64     `json:"expires_on"`
	User         *UserInfo `json:"user,omitempty"`
}

// ExpiresAt returns the expiry instant of the session credential.
func (c *SessionCredential) ExpiresAt() time.Time {
	return time.Unix(c.ExpiresOn, 0)
}

// OAuthToken is a token payload returned by the identity provider.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresIn is the lifetime in seconds as reported by the provider.
	ExpiresIn int64
	// ExpiresOn is an absolute unix expiry, sent by the v1 endpoint only.
	ExpiresOn int64
}

// ExpiryFrom computes the persisted expiry for a token obtained at now.
// The safety margin is taken off the provider lifetime.
func (t *OAuthToken) ExpiryFrom(now time.Time) time.Time {
	if t.ExpiresIn > 0 {
		return now.Add(time.Duration(t.ExpiresIn)*time.Second - SafetyMargin)
	}
	if t.ExpiresOn > 0 {
		return time.Unix(t.ExpiresOn, 0).Add(-SafetyMargin)
	}
	return now
}

// UserInfo contains the signed-in user's profile.
type UserInfo struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Email returns the user's email address, falling back to the UPN.
func (u *UserInfo) Email() string {
	if u.Mail != "" {
		return u.Mail
	}
	return u.UserPrincipalName
}

// TokenStatus describes the current credential for display.
type TokenStatus struct {
	Scope     string
	Connected bool
	ExpiresAt time.Time
	Expired   bool
}
