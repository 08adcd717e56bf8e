package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fyrsmithlabs/docctl/internal/session"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	AccessToken string        `json:"access_token"`
	TokenType   string        `json:"token_type"`
	User        *session.User `json:"user"`
}

// Login exchanges email and password for a bearer token using the OAuth2
// resource-owner password grant, and stores the token and user in the
// session. The user is an admin when email equals the configured admin
// email.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, errors.New("login: email and password are required")
	}

	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.resolve("/auth/login", nil),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	c.logger.Info(ctx, "logging in", zap.String("url", c.BaseURL()))
	tok, err := conf.PasswordCredentialsToken(ctx, email, password)
	if err != nil {
		err = loginError(err)
		if errors.Is(err, ErrUnauthorized) {
			c.session.Clear()
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	role := session.RoleUser
	if c.adminEmail != "" && strings.EqualFold(email, c.adminEmail) {
		role = session.RoleAdmin
	}
	user := &session.User{Email: email, Role: role}
	c.session.Set(tok.AccessToken, user)

	return &LoginResult{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		User:        user,
	}, nil
}

// loginError converts an oauth2 token error into an *APIError.
func loginError(err error) error {
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) && rerr.Response != nil {
		return &APIError{
			Method:     http.MethodPost,
			Path:       "/auth/login",
			StatusCode: rerr.Response.StatusCode,
			Detail:     parseDetail(rerr.Body),
			Body:       rerr.Body,
		}
	}
	return err
}

// SignupRequest registers a new account.
type SignupRequest struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Name         *string `json:"name"`
	ContactEmail *string `json:"contact_email"`
}

// Signup registers an account. New accounts wait for administrator
// approval; the session is not changed.
func (c *Client) Signup(ctx context.Context, in SignupRequest) (*User, error) {
	if in.Email == "" || in.Password == "" {
		return nil, errors.New("signup: email and password are required")
	}
	req, err := jsonRequest(http.MethodPost, "/auth/signup", in)
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	var u User
	if err := c.doJSON(ctx, req, &u); err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return &u, nil
}

// Logout forgets the session's credentials. The server keeps no session
// state, so nothing is sent.
func (c *Client) Logout() {
	c.session.Clear()
}
