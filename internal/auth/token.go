package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenInvalid covers every reason a bearer token is rejected: malformed,
// wrong signature, expired or missing the admin id.
var ErrTokenInvalid = errors.New("token invalid")

// Claims is the payload carried by a session token.
type Claims struct {
	AdminID string `json:"adminId"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies session tokens.
type TokenService interface {
	Sign(adminID string, expiresAt time.Time) (string, error)
	Verify(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTService returns an HS256 token service keyed by secret.
func NewJWTService(secret, issuer string) (TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &jwtService{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
	}, nil
}

func (s *jwtService) Sign(adminID string, expiresAt time.Time) (string, error) {
	if adminID == "" {
		return "", errors.New("admin id is required")
	}
	now := s.now()
	claims := Claims{
		AdminID: adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.AdminID == "" {
		return nil, ErrTokenInvalid
	}
	return &claims, nil
}
