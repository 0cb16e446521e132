package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer       = "profilehub"
	refreshKeyPrefix  = "refresh:"
	accessTokenScheme = "HS256"
)

// errTokenInvalid covers any access token that fails verification.
var errTokenInvalid = errors.New("access token invalid")

// accessClaims are the claims of an access token.
type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// tokens mints HS256 access tokens and keeps opaque refresh tokens in Redis.
// A refresh token is single use: redeeming it deletes it.
type tokens struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rdb        redis.Cmdable
	now        func() time.Time
}

// issue creates a fresh access/refresh pair for the user.
func (t *tokens) issue(ctx context.Context, userID, email string) (access, refresh string, err error) {
	now := t.now()
	claims := accessClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.accessTTL)),
			ID:        uuid.NewString(),
		},
	}

	access, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing access token: %w", err)
	}

	refresh = uuid.NewString()
	if err := t.rdb.Set(ctx, refreshKeyPrefix+refresh, userID, t.refreshTTL).Err(); err != nil {
		return "", "", fmt.Errorf("storing refresh token: %w", err)
	}
	return access, refresh, nil
}

// verify checks the signature, issuer and expiry of an access token and
// returns its subject.
func (t *tokens) verify(access string) (string, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(access, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{accessTokenScheme}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errTokenInvalid, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: no subject", errTokenInvalid)
	}
	return claims.Subject, nil
}

// redeem consumes a refresh token and returns its user id.
// errRefreshTokenNotFound is returned for unknown or used tokens.
func (t *tokens) redeem(ctx context.Context, refresh string) (string, error) {
	userID, err := t.rdb.GetDel(ctx, refreshKeyPrefix+refresh).Result()
	if errors.Is(err, redis.Nil) {
		return "", errRefreshTokenNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redeeming refresh token: %w", err)
	}
	return userID, nil
}

// revoke deletes a refresh token.
func (t *tokens) revoke(ctx context.Context, refresh string) error {
	if err := t.rdb.Del(ctx, refreshKeyPrefix+refresh).Err(); err != nil {
		return fmt.Errorf("revoking refresh token: %w", err)
	}
	return nil
}
