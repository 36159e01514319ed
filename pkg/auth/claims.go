package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/pkg/enums"
)

// Identity is who a verified token speaks for.
type Identity struct {
	UserID uuid.UUID
	Role   enums.Role
	Email  string
}

// Claims is the access token body. The user id travels in the standard sub claim.
type Claims struct {
	Role  enums.Role `json:"role"`
	Email string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}
