package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/angelmondragon/motorshop-backend/pkg/enums"
)

// AccessTokenPayload is what the identity provider vouches for when minting.
type AccessTokenPayload struct {
	ActorID     string
	DisplayName string
	Role        enums.ActorRole
	JTI         string
}

// AccessTokenClaims is the typed JWT accepted by the API. ActorID is opaque
// to the core and is recorded as-is on movements, history and payments.
type AccessTokenClaims struct {
	ActorID     string          `json:"actor_id"`
	DisplayName string          `json:"name,omitempty"`
	Role        enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
