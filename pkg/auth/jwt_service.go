package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
	"github.com/veridian-labs/veridian/pkg/kernel"
)

// JWTService implements TokenService with HS256. Access and refresh tokens
// are signed with distinct secrets so a token of one class can never verify
// as the other.
type JWTService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
}

// NewJWTService creates a new JWT token service.
func NewJWTService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, issuer string) *JWTService {
	if accessTTL == 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL == 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	if issuer == "" {
		issuer = "veridian"
	}

	return &JWTService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        issuer,
	}
}

// NewJWTServiceFromConfig builds the service from the JWT config section.
func NewJWTServiceFromConfig(cfg *config.JWTConfig) *JWTService {
	return NewJWTService(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL, cfg.Issuer)
}

// sessionClaims is the wire payload: the subject id under "id" plus the
// registered claims.
type sessionClaims struct {
	UserID string `json:"id"`
	jwt.RegisteredClaims
}

// IssueAccess mints a short-lived access token.
func (j *JWTService) IssueAccess(userID kernel.UserID) (string, error) {
	return j.issue(userID, j.accessSecret, j.accessTTL)
}

// IssueRefresh mints a long-lived refresh token.
func (j *JWTService) IssueRefresh(userID kernel.UserID) (string, error) {
	return j.issue(userID, j.refreshSecret, j.refreshTTL)
}

// VerifyAccess verifies a token against the access secret.
func (j *JWTService) VerifyAccess(token string) (*TokenClaims, error) {
	return j.verify(token, j.accessSecret)
}

// VerifyRefresh verifies a token against the refresh secret.
func (j *JWTService) VerifyRefresh(token string) (*TokenClaims, error) {
	return j.verify(token, j.refreshSecret)
}

func (j *JWTService) issue(userID kernel.UserID, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := sessionClaims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", ErrRegistry.NewWithCause(CodeTokenGenerationFailed, err)
	}
	return signed, nil
}

// verify parses and validates a token, classifying every failure as one of
// Expired, Malformed, BadSignature, or InvalidPayload. InvalidPayload means
// the token is syntactically valid and correctly signed but carries no
// subject id, a token minted for a different purpose.
func (j *JWTService) verify(tokenString string, secret []byte) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})

	if err != nil {
		return nil, classifyJWTError(err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed()
	}

	if claims.UserID == "" {
		return nil, ErrTokenInvalidPayload()
	}

	out := &TokenClaims{UserID: kernel.NewUserID(claims.UserID)}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// classifyJWTError maps golang-jwt sentinel errors onto the four failure
// kinds. Expiry is checked by the library only after the signature verifies,
// so a wrong-secret token always classifies as BadSignature, never Expired.
func classifyJWTError(err error) *errx.Error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrRegistry.NewWithCause(CodeTokenBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrRegistry.NewWithCause(CodeTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrRegistry.NewWithCause(CodeTokenMalformed, err)
	default:
		return ErrRegistry.NewWithCause(CodeTokenMalformed, err)
	}
}
