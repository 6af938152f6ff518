// Package users proxies account operations to the authorization service. The
// service holds no user state of its own; it validates outcomes, extracts
// token pairs and relays upstream rejections.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Appeals-service/Appeals-service/internal/clients/authclient"
)

// ErrTokensMissing is returned when the gateway reports success but the
// response carries an incomplete token pair.
var ErrTokensMissing = errors.New("tokens have not been created")

type Service struct {
	gateway Gateway
	logger  *zap.Logger
}

func NewService(gateway Gateway, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gateway: gateway, logger: log}
}

func (s *Service) Register(ctx context.Context, in authclient.RegisterInput) (Tokens, error) {
	status, body, err := s.gateway.Register(ctx, in)
	if err != nil {
		return Tokens{}, err
	}
	if status != http.StatusCreated {
		return Tokens{}, &UpstreamError{Status: status, Body: body}
	}
	return extractTokens(body)
}

func (s *Service) Login(ctx context.Context, in authclient.LoginInput) (Tokens, error) {
	status, body, err := s.gateway.Login(ctx, in)
	if err != nil {
		return Tokens{}, err
	}
	if status != http.StatusOK {
		return Tokens{}, &UpstreamError{Status: status, Body: body}
	}
	return extractTokens(body)
}

func (s *Service) Logout(ctx context.Context, accessToken, userAgent string) error {
	status, body, err := s.gateway.Logout(ctx, accessToken, userAgent)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &UpstreamError{Status: status, Body: body}
	}
	return nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken, userAgent string) (Tokens, error) {
	status, body, err := s.gateway.Refresh(ctx, refreshToken, userAgent)
	if err != nil {
		return Tokens{}, err
	}
	if status != http.StatusOK {
		return Tokens{}, &UpstreamError{Status: status, Body: body}
	}
	return extractTokens(body)
}

// Me returns the gateway's identity payload unchanged.
func (s *Service) Me(ctx context.Context, accessToken string) ([]byte, error) {
	status, body, err := s.gateway.Me(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &UpstreamError{Status: status, Body: body}
	}
	return body, nil
}

// List relays the gateway's user listing; who may list is the gateway's
// decision, so its forbidden answer travels through untouched.
func (s *Service) List(ctx context.Context, accessToken, role string) ([]byte, error) {
	status, body, err := s.gateway.List(ctx, accessToken, role)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &UpstreamError{Status: status, Body: body}
	}
	return body, nil
}

func (s *Service) Delete(ctx context.Context, accessToken, userID string) error {
	status, body, err := s.gateway.Delete(ctx, accessToken, userID)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent {
		return &UpstreamError{Status: status, Body: body}
	}

	s.logger.Info("user deleted", zap.String("user_id", userID))
	return nil
}

func extractTokens(body []byte) (Tokens, error) {
	var tokens Tokens
	if len(body) > 0 {
		if err := json.Unmarshal(body, &tokens); err != nil {
			return Tokens{}, fmt.Errorf("decode token response: %w", err)
		}
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return Tokens{}, ErrTokensMissing
	}
	return tokens, nil
}
