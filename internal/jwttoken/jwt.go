package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	dErrors "amicale/pkg/domain-errors"
	mwauth "amicale/pkg/platform/middleware/auth"
)

// Claims represents the identity-provider token claims this service consumes.
type Claims struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// Validator verifies HS256 tokens minted by the external identity provider.
// Token issuance lives entirely with the provider; we only verify.
type Validator struct {
	signingKey []byte
	issuer     string
}

func NewValidator(signingKey string, issuer string) *Validator {
	return &Validator{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

func (v *Validator) ValidateToken(tokenString string) (*mwauth.Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithIssuer(v.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.UID == "" {
		claims.UID = claims.Subject
	}
	if claims.UID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no subject")
	}

	return &mwauth.Claims{
		UID:           claims.UID,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		JTI:           claims.ID,
	}, nil
}
