package dto

// LoginRequest payload for POST /login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest payload for POST /signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the credential pair issued on login.
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// RefreshResponse carries the re-minted access token. The refresh endpoint
// takes the refresh token as a query parameter and has no request body.
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// MeResponse is the bearer-authenticated profile from GET /me. Role may be
// absent; callers must not downgrade a previously known role on omission.
type MeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
}

// ErrorResponse is the uniform error body; Detail is human-readable and
// surfaced verbatim.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
