package driven

import (
	"context"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// TokenRefresher talks to the identity provider's token endpoint.
type TokenRefresher interface {
	// RefreshToken exchanges a refresh token for a new token pair.
	// A non-2xx response is returned as *domain.RefreshError.
	RefreshToken(ctx context.Context, refreshToken string) (*domain.OAuthToken, error)

	// ExchangeCode completes the authorization-code grant.
	ExchangeCode(ctx context.Context, code string) (*domain.OAuthToken, error)
}

// AuthURLBuilder builds the authorization-code URL the user must visit.
type AuthURLBuilder interface {
	BuildAuthURL(state string) string
}

// ProfileFetcher resolves the user behind an access token.
type ProfileFetcher interface {
	GetUserInfo(ctx context.Context, accessToken string) (*domain.UserInfo, error)
}

// CredentialProvider returns a currently valid access token for the scope in ctx.
type CredentialProvider interface {
	GetToken(ctx context.Context) (string, error)
}
