// Package authclient is the typed surface of the authorization service. Every
// call returns the upstream status and raw body; interpreting them is left to
// the calling service so gateway responses can be passed through unchanged.
package authclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Appeals-service/Appeals-service/internal/infra/httpclient"
)

const (
	accessTokenCookie = "access_token"
	basePath          = "/api/v1/users"
)

type Client struct {
	http *httpclient.Client
}

func New(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// RegisterInput mirrors the registration contract of the authorization
// service; the password travels under the pwd key and is redacted from logs.
type RegisterInput struct {
	Email     string `json:"email"`
	Pwd       string `json:"pwd"`
	Role      string `json:"role"`
	UserAgent string `json:"user_agent"`
}

type LoginInput struct {
	Email     string `json:"email"`
	Pwd       string `json:"pwd"`
	UserAgent string `json:"user_agent"`
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (int, []byte, error) {
	resp, err := c.http.Post(ctx, basePath+"/registration", httpclient.Options{
		JSON: map[string]any{"email": in.Email, "pwd": in.Pwd, "role": in.Role, "user_agent": in.UserAgent},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("register user: %w", err)
	}
	return resp.Status, resp.Body, nil
}

func (c *Client) Login(ctx context.Context, in LoginInput) (int, []byte, error) {
	resp, err := c.http.Post(ctx, basePath+"/login", httpclient.Options{
		JSON: map[string]any{"email": in.Email, "pwd": in.Pwd, "user_agent": in.UserAgent},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("login user: %w", err)
	}
	return resp.Status, resp.Body, nil
}

func (c *Client) Logout(ctx context.Context, accessToken, userAgent string) (int, []byte, error) {
	resp, err := c.http.Post(ctx, basePath+"/logout", httpclient.Options{
		Cookies: map[string]string{accessTokenCookie: accessToken},
		Headers: map[string]string{"User-Agent": userAgent},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("logout user: %w", err)
	}
	return resp.Status, resp.Body, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken, userAgent string) (int, []byte, error) {
	resp, err := c.http.Post(ctx, basePath+"/refresh", httpclient.Options{
		JSON: map[string]any{"refresh_token": refreshToken, "user_agent": userAgent},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("refresh tokens: %w", err)
	}
	return resp.Status, resp.Body, nil
}

// Me resolves the identity behind an access token.
func (c *Client) Me(ctx context.Context, accessToken string) (int, []byte, error) {
	resp, err := c.http.Get(ctx, basePath+"/me", httpclient.Options{
		Cookies: map[string]string{accessTokenCookie: accessToken},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("resolve identity: %w", err)
	}
	return resp.Status, resp.Body, nil
}

// List fetches registered users, optionally narrowed by role. Authorization
// is the upstream's decision and surfaces through the returned status.
func (c *Client) List(ctx context.Context, accessToken, role string) (int, []byte, error) {
	opts := httpclient.Options{
		Cookies: map[string]string{accessTokenCookie: accessToken},
	}
	if role != "" {
		opts.Query = url.Values{"role": []string{role}}
	}

	resp, err := c.http.Get(ctx, basePath+"/list", opts)
	if err != nil {
		return 0, nil, fmt.Errorf("list users: %w", err)
	}
	return resp.Status, resp.Body, nil
}

// UserEmail returns the plain-text email of a user; the call is
// service-to-service and carries no actor token.
func (c *Client) UserEmail(ctx context.Context, userID string) (int, []byte, error) {
	resp, err := c.http.Get(ctx, fmt.Sprintf("%s/%s/email", basePath, userID), httpclient.Options{})
	if err != nil {
		return 0, nil, fmt.Errorf("fetch user email: %w", err)
	}
	return resp.Status, resp.Body, nil
}

func (c *Client) Delete(ctx context.Context, accessToken, userID string) (int, []byte, error) {
	resp, err := c.http.Delete(ctx, fmt.Sprintf("%s/%s", basePath, userID), httpclient.Options{
		Cookies: map[string]string{accessTokenCookie: accessToken},
	})
	if err != nil {
		return 0, nil, fmt.Errorf("delete user: %w", err)
	}
	return resp.Status, resp.Body, nil
}
