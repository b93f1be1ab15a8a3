// Package identity turns bearer credentials into custody identities.
//
// Tokens are HS256 JWTs. The registered iss and sub claims name the caller and
// the private role claim carries the custody role attribute. A token without a
// role is still a valid identity; authorization decides what it may do.
package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"chainguard/pkg/domain"
	dErrors "chainguard/pkg/domain-errors"
	pstrings "chainguard/pkg/platform/strings"
)

// Claims are the JWT claims carried by custody access tokens.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and validates custody access tokens.
type TokenService struct {
	signingKey []byte
	audience   string
	issuers    map[string]struct{}
	now        func() time.Time
}

// Option configures a TokenService.
type Option func(*TokenService)

// WithAllowedIssuers restricts accepted tokens to the named issuers. With no
// restriction any issuer signing with the shared key is accepted.
func WithAllowedIssuers(issuers ...string) Option {
	return func(s *TokenService) {
		for _, iss := range pstrings.DedupeAndTrim(issuers) {
			s.issuers[iss] = struct{}{}
		}
	}
}

// WithClock overrides the time source used for issuing and validating.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(signingKey string, audience string, opts ...Option) *TokenService {
	s := &TokenService{
		signingKey: []byte(signingKey),
		audience:   audience,
		issuers:    make(map[string]struct{}),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IssueToken mints a token for id. Used by tests and local tooling; production
// tokens come from the member organisations' identity providers.
func (s *TokenService) IssueToken(id domain.Identity, expiresIn time.Duration) (string, error) {
	now := s.now()
	claims := Claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    id.Issuer,
			Subject:   id.Subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken verifies the signature and registered claims and returns the
// identity the token names.
func (s *TokenService) ValidateToken(tokenString string) (domain.Identity, error) {
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return s.identityFrom(claims)
}

func (s *TokenService) identityFrom(claims *Claims) (domain.Identity, error) {
	if strings.Contains(claims.Issuer, ":") {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token issuer is malformed")
	}
	ref, err := domain.ParseCustodianRef(claims.Issuer + ":" + claims.Subject)
	if err != nil {
		return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token must name an issuer and subject")
	}
	if len(s.issuers) > 0 {
		if _, ok := s.issuers[ref.Issuer]; !ok {
			return domain.Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token issuer is not trusted")
		}
	}
	return domain.Identity{
		Issuer:  ref.Issuer,
		Subject: ref.Subject,
		Role:    domain.Role(strings.TrimSpace(claims.Role)),
	}, nil
}
