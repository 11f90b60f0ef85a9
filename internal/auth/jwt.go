package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ParseToken verifies an HS256 session token and returns the session it
// carries. The user identifier is read from the "sub" claim.
func ParseToken(secret []byte, tokenString string) (Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return Anonymous, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return Anonymous, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Anonymous, fmt.Errorf("unexpected claims type")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return Anonymous, fmt.Errorf("token has no subject")
	}

	return Session{UserID: sub, Authenticated: true}, nil
}
