package auth

import (
	"errors"
	"fmt"

	jwtlib "github.com/golang-jwt/jwt/v4"

	"bazaar/infrastructure"
	"bazaar/pkg/jwt"
)

// Verifier resolves a bearer credential to a principal id. Token issuance
// lives in a separate service; this side only validates.
type Verifier interface {
	Verify(token string) (string, error)
}

type JWTVerifier struct {
	tokens *jwt.JWT
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{tokens: jwt.NewJWT(secret, 3600)}
}

func (v *JWTVerifier) Verify(token string) (string, error) {
	if token == "" {
		return "", infrastructure.ErrMissingToken
	}

	claims, err := v.tokens.ValidateToken(token)
	if err != nil {
		var ve *jwtlib.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwtlib.ValidationErrorExpired != 0 {
			return "", infrastructure.ErrTokenExpired
		}
		return "", infrastructure.ErrInvalidToken
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: missing user_id claim", infrastructure.ErrInvalidToken)
	}

	return claims.UserID, nil
}
