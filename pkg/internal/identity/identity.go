package identity

import (
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"

	"github.com/deweblabs/depost/pkg/internal/models"
)

// Provider is the consumed face of the external identity service. The
// core only needs a stable verified email back from it; everything else
// about authentication stays outside.
type Provider interface {
	CurrentPrincipal() *models.Principal
	SignOut()
}

// StaticProvider holds a fixed principal, used by the CLI (configured
// identity) and by tests.
type StaticProvider struct {
	mu        sync.RWMutex
	principal *models.Principal
}

func NewStaticProvider(email, displayName string) *StaticProvider {
	provider := &StaticProvider{}
	if len(email) > 0 {
		provider.principal = &models.Principal{Email: email, DisplayName: displayName}
	}
	return provider
}

func (v *StaticProvider) CurrentPrincipal() *models.Principal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.principal
}

func (v *StaticProvider) SignOut() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.principal = nil
}

// TokenProvider derives the principal from an OIDC id token issued by the
// external provider. The token arrives already verified upstream; only
// claim extraction happens here.
type TokenProvider struct {
	mu        sync.RWMutex
	principal *models.Principal
}

func NewTokenProvider() *TokenProvider {
	return &TokenProvider{}
}

func (v *TokenProvider) SignIn(rawToken string) (*models.Principal, error) {
	principal, err := ParseIDToken(rawToken)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.principal = principal
	v.mu.Unlock()

	return principal, nil
}

func (v *TokenProvider) CurrentPrincipal() *models.Principal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.principal
}

func (v *TokenProvider) SignOut() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.principal = nil
}

// ParseIDToken pulls the email and display name claims out of an id token.
func ParseIDToken(rawToken string) (*models.Principal, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(rawToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id token: %v", err)
	}

	email, _ := claims["email"].(string)
	if len(email) == 0 {
		return nil, fmt.Errorf("id token carries no email claim")
	}
	name, _ := claims["name"].(string)

	return &models.Principal{Email: email, DisplayName: name}, nil
}
