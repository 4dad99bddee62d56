package auth

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
)

const issuer = "grievance-service"

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenManager builds a new manager.
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Claims carries the officer's assigned scope at login.
type Claims struct {
	Role         domain.Role `json:"role"`
	WardID       int         `json:"ward_id,omitempty"`
	ZoneID       int         `json:"zone_id,omitempty"`
	DepartmentID string      `json:"dept_id,omitempty"`
	jwt.RegisteredClaims
}

// Actor rebuilds the actor the token was issued for.
func (c *Claims) Actor() domain.Actor {
	return domain.Actor{
		ID:           c.Subject,
		Role:         c.Role,
		WardID:       c.WardID,
		ZoneID:       c.ZoneID,
		DepartmentID: c.DepartmentID,
	}
}

// GenerateToken builds and signs a JWT for the officer.
func (tm *TokenManager) GenerateToken(officer domain.Officer) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)
	claims := &Claims{
		Role:         officer.Role,
		WardID:       officer.WardID,
		ZoneID:       officer.ZoneID,
		DepartmentID: officer.DepartmentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   officer.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken validates and returns claims.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(tm.now))
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
