package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims carries the identity attributes minted by the campus identity
// service. This API only validates tokens; it never issues them.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}
