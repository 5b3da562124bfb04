package microsoft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/graphmail/internal/core/domain"
	"github.com/custodia-labs/graphmail/internal/core/ports/driven"
)

// Ensure OAuthHandler implements the driven ports.
var (
	_ driven.TokenRefresher = (*OAuthHandler)(nil)
	_ driven.ProfileFetcher = (*OAuthHandler)(nil)
)

// Microsoft OAuth constants.
const (
	defaultAuthority = "https://login.microsoftonline.com"
	defaultTenant    = "common"

	// refreshScope is requested on every refresh-token grant.
	refreshScope = "https://graph.microsoft.com/.default offline_access"
)

// defaultScopes are requested during authorization.
var defaultScopes = []string{
	"openid",
	"profile",
	"offline_access", // Required for refresh tokens
	"User.Read",
	"Mail.ReadWrite",
	"Mail.Send",
}

// OAuthConfig identifies the application registered with Entra ID.
type OAuthConfig struct {
	Tenant       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	// AuthorityURL overrides https://login.microsoftonline.com (tests).
	AuthorityURL string
	// GraphURL overrides the Graph base URL used for profile lookups.
	GraphURL string
}

// OAuthHandler implements OAuth operations for Microsoft.
type OAuthHandler struct {
	cfg        OAuthConfig
	httpClient *http.Client
	oauth      *oauth2.Config
}

// NewOAuthHandler creates a new Microsoft OAuth handler.
// A nil httpClient uses a client with a 30 second timeout.
func NewOAuthHandler(cfg OAuthConfig, httpClient *http.Client) *OAuthHandler {
	if cfg.Tenant == "" {
		cfg.Tenant = defaultTenant
	}
	if cfg.AuthorityURL == "" {
		cfg.AuthorityURL = defaultAuthority
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = graphBaseURL
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = defaultScopes
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	base := strings.TrimRight(cfg.AuthorityURL, "/") + "/" + url.PathEscape(cfg.Tenant) + "/oauth2/v2.0"
	return &OAuthHandler{
		cfg:        cfg,
		httpClient: httpClient,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   base + "/authorize",
				TokenURL:  base + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
}

// TokenURL returns the tenant token endpoint.
func (h *OAuthHandler) TokenURL() string {
	return h.oauth.Endpoint.TokenURL
}

// BuildAuthURL constructs the Microsoft OAuth authorization URL.
func (h *OAuthHandler) BuildAuthURL(state string) string {
	// response_mode=query for easier code extraction
	return h.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("response_mode", "query"))
}

// ExchangeCode exchanges an authorization code for tokens.
func (h *OAuthHandler) ExchangeCode(ctx context.Context, code string) (*domain.OAuthToken, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is empty", domain.ErrInvalidInput)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, h.httpClient)
	tok, err := h.oauth.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &domain.RefreshError{
				StatusCode: retrieveErr.Response.StatusCode,
				Body:       string(retrieveErr.Body),
			}
		}
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	result := &domain.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
	}
	if !tok.Expiry.IsZero() {
		result.ExpiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	return result, nil
}

// tokenResponse is the token endpoint payload. The v1 endpoint sends
// numeric fields as strings, so both forms are accepted.
type tokenResponse struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	TokenType    string  `json:"token_type"`
	ExpiresIn    flexInt `json:"expires_in"`
	ExpiresOn    flexInt `json:"expires_on"`
}

type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %q as integer: %w", s, err)
	}
	*f = flexInt(n)
	return nil
}

// RefreshToken exchanges a refresh token for a new token pair.
// The returned RefreshToken is empty when Microsoft did not rotate it.
// Failures are never retried: a rejected refresh token stays rejected.
func (h *OAuthHandler) RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error) {
	data := url.Values{}
	data.Set("client_id", h.cfg.ClientID)
	if h.cfg.ClientSecret != "" {
		data.Set("client_secret", h.cfg.ClientSecret)
	}
	if h.cfg.RedirectURI != "" {
		data.Set("redirect_uri", h.cfg.RedirectURI)
	}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	data.Set("scope", refreshScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.TokenURL(), strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token refresh request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &domain.RefreshError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("%w: decode token response: %w", domain.ErrRefreshFailed, err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access_token", domain.ErrRefreshFailed)
	}

	return &domain.OAuthToken{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    int64(tokenResp.ExpiresIn),
		ExpiresOn:    int64(tokenResp.ExpiresOn),
	}, nil
}

// GetUserInfo fetches the signed-in user's profile.
func (h *OAuthHandler) GetUserInfo(ctx context.Context, accessToken string) (*domain.UserInfo, error) {
	return GetUserInfo(ctx, h.httpClient, h.cfg.GraphURL, accessToken)
}

// DefaultScopes returns the scopes requested during authorization.
func DefaultScopes() []string {
	scopes := make([]string, len(defaultScopes))
	copy(scopes, defaultScopes)
	return scopes
}

// SetupHint returns guidance for setting up a Microsoft OAuth app.
func (h *OAuthHandler) SetupHint() string {
	return "Create OAuth app at portal.azure.com > App registrations"
}
