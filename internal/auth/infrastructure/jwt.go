package infrastructure

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mateusmacedo/togobus-bff/internal/auth/application"
	"github.com/mateusmacedo/togobus-bff/internal/auth/domain"
)

const issuer = "togobus-bff"

type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTCodec signs session tokens with HS256.
type JWTCodec struct {
	secret []byte
	now    func() time.Time
}

func NewJWTCodec(secret string) (*JWTCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("jwt secret must be at least 16 bytes")
	}
	return &JWTCodec{secret: []byte(secret), now: time.Now}, nil
}

func (c *JWTCodec) Issue(claims application.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Role: string(claims.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.SessionID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(c.now()),
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

func (c *JWTCodec) Parse(raw string) (application.Claims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return application.Claims{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return application.Claims{}, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	return application.Claims{
		SessionID: claims.Subject,
		Role:      domain.Role(claims.Role),
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
