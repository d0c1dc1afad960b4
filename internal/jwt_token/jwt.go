package jwttoken

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "badgepass/pkg/domain-errors"
	pkgstrings "badgepass/pkg/platform/strings"
)

// ScopeScan grants access to the verify and check-in endpoints.
const ScopeScan = "attendance:scan"

// ScannerClaims are carried by tokens handed to check-in operators.
type ScannerClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Scopes splits the space-delimited scope claim.
func (c *ScannerClaims) Scopes() []string {
	return strings.Fields(c.Scope)
}

func (c *ScannerClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// JWTService signs and validates HS256 scanner tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

// GenerateScannerToken issues a token for operator with the given scopes.
func (s *JWTService) GenerateScannerToken(operator string, scopes []string, expiresIn time.Duration) (string, error) {
	if strings.TrimSpace(operator) == "" {
		return "", dErrors.New(dErrors.CodeValidation, "operator is required")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ScannerClaims{
		Scope: strings.Join(pkgstrings.DedupeAndTrim(scopes), " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   operator,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken checks signature, expiry, issuer and audience.
//
// Errors: CodeUnauthorized for any invalid token.
func (s *JWTService) ValidateToken(tokenString string) (*ScannerClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &ScannerClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*ScannerClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
