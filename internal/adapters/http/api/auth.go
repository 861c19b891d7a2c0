package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/okian/gympulse/internal/domain/access"
)

// Claim names carried by bearer tokens.
const (
	ClaimTenantID = "tenant_id"
	ClaimRole     = "role"
	ClaimRepID    = "rep_id"
)

// Header names trusted when no JWT secret is configured.
const (
	HeaderTenantID = "X-Tenant-ID"
	HeaderRole     = "X-Role"
	HeaderRepID    = "X-Rep-ID"
)

var errNoToken = errors.New("missing bearer token")

// Authenticator turns a request into an access.Caller.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator verifies HS256 tokens signed with secret. An empty
// secret trusts the X-Tenant-ID, X-Role and X-Rep-ID headers.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Enabled reports whether tokens are verified.
func (a *Authenticator) Enabled() bool {
	return len(a.secret) > 0
}

// Caller reads the caller of r. With verification enabled a missing or
// invalid token is an error.
func (a *Authenticator) Caller(r *http.Request) (access.Caller, error) {
	if !a.Enabled() {
		return access.Caller{
			TenantID: strings.TrimSpace(r.Header.Get(HeaderTenantID)),
			Role:     strings.TrimSpace(r.Header.Get(HeaderRole)),
			RepID:    strings.TrimSpace(r.Header.Get(HeaderRepID)),
		}, nil
	}
	raw, ok := extractBearerToken(r.Header.Get("Authorization"))
	if !ok {
		return access.Caller{}, errNoToken
	}
	return a.parse(raw)
}

func (a *Authenticator) parse(raw string) (access.Caller, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return access.Caller{}, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return access.Caller{}, errors.New("invalid token claims")
	}
	tenant, _ := claims[ClaimTenantID].(string)
	if strings.TrimSpace(tenant) == "" {
		return access.Caller{}, errors.New("token has no tenant")
	}
	role, _ := claims[ClaimRole].(string)
	repID, _ := claims[ClaimRepID].(string)
	return access.Caller{TenantID: tenant, Role: role, RepID: repID}, nil
}

// SignToken issues an HS256 token for c that expires after ttl.
func SignToken(secret string, c access.Caller, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		ClaimTenantID: c.TenantID,
		ClaimRole:     c.Role,
		"iat":         now.Unix(),
		"exp":         now.Add(ttl).Unix(),
	}
	if c.RepID != "" {
		claims[ClaimRepID] = c.RepID
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}
	return rawToken, true
}
