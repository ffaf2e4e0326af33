package handlers

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vaultblockmagic/vault/internal/config"
)

// JWTClaims carries the authenticated wallet identity.
type JWTClaims struct {
	UserAddress string `json:"user_address"`
	ChainID     uint64 `json:"chain_id"`
	jwt.RegisteredClaims
}

// ValidateJWTToken parses and verifies a bearer token.
func ValidateJWTToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.Auth.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}

// GenerateJWTToken issues a token for the wallet address, valid for 24 hours.
func GenerateJWTToken(secret, userAddress string, chainID uint64) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		UserAddress: userAddress,
		ChainID:     chainID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "vault-backend",
			Subject:   userAddress,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
