package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"adaptive-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	purposeAccess = "access"
	purposeReset  = "reset"
)

// Claims carried by every token this service issues.
type Claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	secret []byte
	now    func() time.Time
}

func NewTokens(secret string) *Tokens {
	return NewTokensWithClock(secret, time.Now)
}

// NewTokensWithClock allows deterministic expiry in tests.
func NewTokensWithClock(secret string, now func() time.Time) *Tokens {
	return &Tokens{secret: []byte(secret), now: now}
}

// IssueAccess returns a token authenticating userID for ttl.
func (t *Tokens) IssueAccess(userID int64, ttl time.Duration) (string, error) {
	token, _, err := t.issue(userID, purposeAccess, ttl)
	return token, err
}

// IssueReset returns a single-use password reset token and its id.
func (t *Tokens) IssueReset(userID int64, ttl time.Duration) (string, string, error) {
	return t.issue(userID, purposeReset, ttl)
}

// ParseAccess returns the user id of a valid access token.
func (t *Tokens) ParseAccess(raw string) (int64, error) {
	claims, err := t.parse(raw, purposeAccess)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// ParseReset returns the user id and token id of a valid reset token.
func (t *Tokens) ParseReset(raw string) (int64, string, error) {
	claims, err := t.parse(raw, purposeReset)
	if err != nil {
		return 0, "", err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return 0, "", err
	}
	return userID, claims.ID, nil
}

func (t *Tokens) issue(userID int64, purpose string, ttl time.Duration) (string, string, error) {
	now := t.now()
	id := uuid.NewString()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}
	return signed, id, nil
}

func (t *Tokens) parse(raw, purpose string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("%w: wrong token type", domain.ErrUnauthorized)
	}
	return claims, nil
}

func subjectID(claims *Claims) (int64, error) {
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid subject", domain.ErrUnauthorized)
	}
	return id, nil
}
