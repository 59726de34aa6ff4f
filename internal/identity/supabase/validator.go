// Package supabase validates Supabase access tokens.
package supabase

import (
	"context"
	"errors"
	"fmt"

	"github.com/bissquit/sellerdesk/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultAudience is the audience Supabase sets on user access tokens.
const DefaultAudience = "authenticated"

// Token validation errors.
var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")
)

// Config holds validator configuration.
type Config struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// Claims is the subset of Supabase token claims used for authorization.
type Claims struct {
	jwt.RegisteredClaims
	Email       string      `json:"email,omitempty"`
	AppMetadata AppMetadata `json:"app_metadata"`
}

// AppMetadata holds server-controlled user metadata.
type AppMetadata struct {
	Role string `json:"role,omitempty"`
}

// Validator implements httputil.TokenValidator for Supabase tokens.
type Validator struct {
	secret []byte
	parser *jwt.Parser
}

// NewValidator creates a new token validator.
func NewValidator(config Config) (*Validator, error) {
	if config.JWTSecret == "" {
		return nil, errors.New("supabase validator: jwt secret is required")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &Validator{
		secret: []byte(config.JWTSecret),
		parser: jwt.NewParser(opts...),
	}, nil
}

// ValidateToken checks the token and returns the user ID and role.
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (string, domain.Role, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return "", "", ErrMissingSubject
	}

	role := domain.RoleSeller
	if claims.AppMetadata.Role == string(domain.RoleAdmin) {
		role = domain.RoleAdmin
	}
	return claims.Subject, role, nil
}
