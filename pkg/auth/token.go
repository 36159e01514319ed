package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
)

// clockSkew is tolerated on exp, nbf and iat.
const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Verifier checks HS256 access tokens issued by the configured issuer.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(cfg config.JWTConfig) (*Verifier, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	return &Verifier{
		secret: []byte(cfg.Secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(clockSkew),
		),
	}, nil
}

// Verify validates the signature and registered claims and returns the
// identity. Tokens without a UUID subject or a known role are rejected.
func (v *Verifier) Verify(token string) (Identity, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return Identity{}, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return Identity{}, fmt.Errorf("token subject %q is not a user id", claims.Subject)
	}
	if !claims.Role.IsValid() {
		return Identity{}, fmt.Errorf("token carries unknown role %q", claims.Role)
	}
	return Identity{UserID: userID, Role: claims.Role, Email: claims.Email}, nil
}

// Mint signs a token for id. Production tokens come from the identity
// provider; this serves local tooling and tests.
func Mint(cfg config.JWTConfig, now time.Time, id Identity) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if id.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !id.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", id.Role)
	}

	claims := Claims{
		Role:  id.Role,
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.Expiration())),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

func checkConfig(cfg config.JWTConfig) error {
	switch {
	case strings.TrimSpace(cfg.Secret) == "":
		return errors.New("jwt secret is required")
	case strings.TrimSpace(cfg.Issuer) == "":
		return errors.New("jwt issuer is required")
	}
	return nil
}
