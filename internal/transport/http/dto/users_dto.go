package dto

type UserRegisterRequest struct {
	Email string `json:"email"`
	Pwd   string `json:"pwd"`
	Role  string `json:"role"`
}

type UserLoginRequest struct {
	Email string `json:"email"`
	Pwd   string `json:"pwd"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshTokenResponse carries the refresh token; the access token is set as
// an httponly cookie instead of travelling in the body.
type RefreshTokenResponse struct {
	RefreshToken string `json:"refresh_token"`
}
