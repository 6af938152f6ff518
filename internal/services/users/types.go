package users

import (
	"context"
	"fmt"

	"github.com/Appeals-service/Appeals-service/internal/clients/authclient"
)

// Gateway is the authorization-service surface this façade consumes.
type Gateway interface {
	Register(ctx context.Context, in authclient.RegisterInput) (int, []byte, error)
	Login(ctx context.Context, in authclient.LoginInput) (int, []byte, error)
	Logout(ctx context.Context, accessToken, userAgent string) (int, []byte, error)
	Refresh(ctx context.Context, refreshToken, userAgent string) (int, []byte, error)
	Me(ctx context.Context, accessToken string) (int, []byte, error)
	List(ctx context.Context, accessToken, role string) (int, []byte, error)
	Delete(ctx context.Context, accessToken, userID string) (int, []byte, error)
}

// Tokens is a successful authentication result; the access token travels on
// as an httponly cookie, the refresh token in the response body.
type Tokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// UpstreamError carries a gateway rejection verbatim so the transport layer
// can relay the upstream's own body. Forbidden is preserved for the
// operations the gateway authorizes itself; everything else degrades to a
// bad-request at the edge.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("authorization service returned status %d", e.Status)
}
