package client

import (
	"context"
	"errors"

	"datahalo/internal/models"
)

// ErrNotAuthenticated is returned by operations that need a signed-in user.
var ErrNotAuthenticated = errors.New("not authenticated")

// Authenticator is the auth capability controllers depend on. It is passed
// in explicitly rather than read from shared global state.
type Authenticator interface {
	CurrentUser() *models.User
}

// Auth holds the signed-in user and their tokens, and keeps the API client's
// bearer token in sync across login/logout.
type Auth struct {
	api    *Client
	user   *models.User
	tokens *models.AuthTokens
}

func NewAuth(api *Client) *Auth {
	return &Auth{api: api}
}

func (a *Auth) CurrentUser() *models.User {
	return a.user
}

func (a *Auth) Login(ctx context.Context, email, password string) (*models.User, error) {
	tokens, err := a.api.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	a.tokens = tokens
	a.user = tokens.User
	a.api.SetToken(tokens.AccessToken)
	return a.user, nil
}

func (a *Auth) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	tokens, err := a.api.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	a.tokens = tokens
	a.user = tokens.User
	a.api.SetToken(tokens.AccessToken)
	return a.user, nil
}

// Logout clears local auth state even if the server call fails; the refresh
// token is already gone from the client's point of view.
func (a *Auth) Logout(ctx context.Context) error {
	var err error
	if a.tokens != nil {
		err = a.api.Logout(ctx, a.tokens.RefreshToken)
	}
	a.tokens = nil
	a.user = nil
	a.api.SetToken("")
	return err
}
