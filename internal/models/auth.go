package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the claims carried by signer access tokens. Tokens are
// optional: anonymous signers have no token and are identified by phone only.
type TokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
