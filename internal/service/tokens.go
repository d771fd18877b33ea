package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/palmcove/resortd/internal/model"
)

const DefaultTokenTTL = time.Hour

// TokenService issues bearer tokens for API clients that cannot hold a
// session cookie. Tokens carry the same identity a session would.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService returns a TokenService signing with secret.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration { return s.ttl }

// Issue creates a signed HS256 token for id.
func (s *TokenService) Issue(id *Identity) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.ttl)
	claims := tokenClaims{
		UserID: id.UserID,
		Role:   string(id.Role),
		Email:  id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			Issuer:    "resortd",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Validate verifies a token and returns the identity it carries.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithIssuer("resortd"))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	role, ok := model.ParseRole(claims.Role)
	if !ok || claims.Role == "" || claims.UserID == 0 {
		return nil, ErrInvalidCredentials
	}
	return &Identity{UserID: claims.UserID, Role: role, Email: claims.Email}, nil
}

type tokenClaims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
