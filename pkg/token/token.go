package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	defaultIssuer   = "postboard"
	defaultAudience = "postboard-api"
	defaultTTL      = 30 * time.Minute
	defaultLeeway   = 30 * time.Second
)

// ErrInvalidToken covers a bad signature, malformed input, an expired
// token, and a missing or non-integer subject.
var ErrInvalidToken = errors.New("invalid token")

// Options configures claim issuance and validation.
type Options struct {
	Issuer   string
	Audience string
	TTL      time.Duration
	Leeway   time.Duration
}

// Service issues and verifies stateless HS256 bearer tokens. There is no
// server-side revocation list: a token stays valid until its embedded
// expiry, so logout has no server effect.
type Service struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	leeway   time.Duration
}

// New creates a token service from the shared signing secret.
func New(secret string, opts Options) (*Service, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token service requires a signing secret")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	audience := strings.TrimSpace(opts.Audience)
	if audience == "" {
		audience = defaultAudience
	}
	ttl := opts.TTL
	if ttl == 0 {
		ttl = defaultTTL
	}
	leeway := opts.Leeway
	if leeway == 0 {
		leeway = defaultLeeway
	}
	if leeway < 0 {
		leeway = 0
	}
	return &Service{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		leeway:   leeway,
	}, nil
}

// Issue signs a token carrying the user id as subject, expiring after the
// configured TTL.
func (s *Service) Issue(userID int64) (string, error) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and claims and returns the embedded user id.
func (s *Service) Verify(raw string) (int64, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(claims.Subject), 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
