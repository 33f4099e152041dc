package auth

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims defines the JWT payload attached to every collector request.
type Claims struct {
	InstanceID  string `json:"instance_id,omitempty"`
	Environment string `json:"environment,omitempty"`
	jwtlib.RegisteredClaims
}

// Mint issues a short-lived HS256 token signed with the account API key.
func Mint(apiKey, instanceID, environment string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		InstanceID:  instanceID,
		Environment: environment,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "yelix-sdk-go",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString([]byte(apiKey))
}

// Parse validates and extracts claims from a token. The collector side of the
// handshake uses this; the SDK itself only mints.
func Parse(token, apiKey string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return []byte(apiKey), nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwtlib.ErrTokenInvalidClaims
	}
	return claims, nil
}
