package driving

import (
	"context"

	"github.com/custodia-labs/graphmail/internal/core/domain"
)

// CredentialService manages the OAuth credential for the current scope.
type CredentialService interface {
	// GetToken returns a valid access token, refreshing when needed.
	GetToken(ctx context.Context) (string, error)

	// Connect completes the authorization-code flow and persists the credential.
	Connect(ctx context.Context, code string) (*domain.UserInfo, error)

	// AuthURL returns the authorization URL the user must visit.
	AuthURL(state string) string

	// Status describes the stored credential without refreshing it.
	Status(ctx context.Context) (*domain.TokenStatus, error)
}
