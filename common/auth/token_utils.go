package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v4"
)

// ErrNotConfigured is returned when no signing secret was provided.
var ErrNotConfigured = errors.New("JWT secret not configured")

// Claims is the identity carried by an access token.
type Claims struct {
	Subject string
	Role    string
	Email   string
}

// TokenParser validates HMAC-signed access tokens.
type TokenParser struct {
	secret []byte
}

func NewTokenParser(secret string) *TokenParser {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &TokenParser{}
	}
	return &TokenParser{secret: []byte(secret)}
}

// Enabled reports whether bearer tokens can be verified.
func (p *TokenParser) Enabled() bool {
	return p != nil && len(p.secret) > 0
}

// Parse validates tokenStr and extracts its identity claims. Tokens with a
// "typ" claim must be access tokens.
func (p *TokenParser) Parse(tokenStr string) (Claims, error) {
	if !p.Enabled() {
		return Claims{}, ErrNotConfigured
	}

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return Claims{}, fmt.Errorf("invalid or expired token")
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, fmt.Errorf("invalid token claims")
	}
	if typ, ok := mc["typ"].(string); ok && typ != "access" {
		return Claims{}, fmt.Errorf("invalid token type")
	}

	claims := Claims{}
	claims.Subject, _ = mc["sub"].(string)
	claims.Role, _ = mc["role"].(string)
	claims.Email, _ = mc["email"].(string)
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("token missing subject")
	}
	return claims, nil
}
