package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/queueme/pkg/response"
)

const (
	PrincipalKey = "principal"

	// RoleAdmin is the only role accepted on the dashboard API
	RoleAdmin = "admin"

	// ClaimsVersion is the current claims layout: role at the top level.
	// Version 1 tokens carry {"user": {"id", "role"}} and no "ver".
	ClaimsVersion = 2
)

// Principal is the authenticated caller, derived once per request
type Principal struct {
	ID      string
	Role    string
	Version int
}

// legacyUser is the nested identity of version 1 tokens
type legacyUser struct {
	ID   string `json:"id"`
	Role string `json:"role"`
}

// AdminClaims is the JWT payload of dashboard tokens
type AdminClaims struct {
	Version int         `json:"ver,omitempty"`
	Role    string      `json:"role,omitempty"`
	User    *legacyUser `json:"user,omitempty"`
	jwt.RegisteredClaims
}

// Principal normalizes both claim layouts
func (c *AdminClaims) Principal() Principal {
	if c.Version < ClaimsVersion && c.User != nil {
		return Principal{ID: c.User.ID, Role: c.User.Role, Version: 1}
	}
	return Principal{ID: c.Subject, Role: c.Role, Version: c.Version}
}

// JWTConfig configures token verification
type JWTConfig struct {
	Secret string
	// Issuer is checked when set
	Issuer string
}

// JWTAuth verifies an HS256 bearer token and stores its Principal
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	key := []byte(cfg.Secret)

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "No token, authorization denied")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))

		claims := &AdminClaims{}
		_, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil {
			msg := "Token is not valid"
			if errors.Is(err, jwt.ErrTokenExpired) {
				msg = "Token has expired"
			}
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", msg)
			return
		}

		c.Set(PrincipalKey, claims.Principal())
		c.Next()
	}
}

// RequireRole rejects principals whose role is not listed
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		p, ok := GetPrincipal(c)
		if !ok || !allowed[p.Role] {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied. Admin role required.")
			return
		}
		c.Next()
	}
}

// GetPrincipal returns the principal stored by JWTAuth
func GetPrincipal(c *gin.Context) (Principal, bool) {
	v, exists := c.Get(PrincipalKey)
	if !exists {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
