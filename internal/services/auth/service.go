// Package auth resolves the caller's identity through the external
// authorization service. This backend never validates tokens itself.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/Appeals-service/Appeals-service/internal/domain/enums"
)

var ErrUnauthorized = errors.New("unauthorized")

// IdentityProvider is the gateway operation returning the current user for a
// session token.
type IdentityProvider interface {
	Me(ctx context.Context, accessToken string) (int, []byte, error)
}

type Service struct {
	gateway IdentityProvider
	logger  *zap.Logger
}

func NewService(gateway IdentityProvider, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{gateway: gateway, logger: log}
}

// Resolve exchanges the opaque access token for the caller's role+identity.
// Gateway connection failures are propagated unchanged.
func (s *Service) Resolve(ctx context.Context, accessToken string) (Identity, error) {
	if accessToken == "" {
		return Identity{}, ErrUnauthorized
	}
	if s.gateway == nil {
		return Identity{}, fmt.Errorf("authorization gateway is not configured")
	}

	status, body, err := s.gateway.Me(ctx, accessToken)
	if err != nil {
		return Identity{}, err
	}
	if status != http.StatusOK {
		s.logger.Debug("identity resolution rejected", zap.Int("status", status))
		return Identity{}, ErrUnauthorized
	}

	var payload struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return Identity{}, fmt.Errorf("decode identity payload: %w", err)
	}
	if payload.ID == "" {
		return Identity{}, ErrUnauthorized
	}

	role, err := enums.ParseRole(payload.Role)
	if err != nil {
		return Identity{}, ErrUnauthorized
	}

	return Identity{UserID: payload.ID, Role: role}, nil
}
