package session

import (
	"fmt"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/locker-client/internal/domain"
	apperrors "github.com/spec-kit/locker-client/pkg/util"
)

// tokenClaims is the expected access token payload: {"sub": <id>, "role": <role>}.
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// DecodeIdentity parses the access token payload into an Identity. The client
// does not hold the signing secret, so the signature is not verified here —
// the server remains the authority and rejects forged tokens with 401. The
// payload schema is validated strictly: a missing subject or unknown role is
// an invalid token, never a best-effort partial identity.
func DecodeIdentity(accessToken string) (domain.Identity, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return domain.Identity{}, apperrors.NewAuthError(apperrors.AuthInvalidToken, err)
	}

	if claims.Subject == "" {
		return domain.Identity{}, apperrors.NewAuthError(apperrors.AuthInvalidToken, fmt.Errorf("missing subject"))
	}

	role := domain.Role(claims.Role)
	if !role.Valid() {
		return domain.Identity{}, apperrors.NewAuthError(apperrors.AuthInvalidToken, fmt.Errorf("unknown role %q", claims.Role))
	}

	return domain.Identity{SubjectID: claims.Subject, Role: role}, nil
}
