package local

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/mail"
)

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetUser implements backend.Client. An expired or invalid access token is
// replaced using the refresh token; an unusable session is cleared.
func (c *client) GetUser(ctx context.Context) (*backend.User, error) {
	if c.resolved {
		return c.user, nil
	}
	defer observe("get_user", time.Now())

	access, refresh := c.cookies.Tokens(c.jar)
	if access == "" && refresh == "" {
		c.remember(nil)
		return nil, nil
	}

	if access != "" {
		if userID, err := c.tokens.verify(access); err == nil {
			u, err := c.store.userByID(ctx, userID)
			if errors.Is(err, errNotFound) {
				c.endSession()
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			c.remember(u.toUser())
			return c.user, nil
		}
	}

	if refresh == "" {
		c.endSession()
		return nil, nil
	}
	return c.refresh(ctx, refresh)
}

// refresh redeems the refresh token and starts a new session.
func (c *client) refresh(ctx context.Context, refresh string) (*backend.User, error) {
	userID, err := c.tokens.redeem(ctx, refresh)
	if errors.Is(err, errRefreshTokenNotFound) {
		slog.Debug("refresh token rejected")
		c.endSession()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	u, err := c.store.userByID(ctx, userID)
	if errors.Is(err, errNotFound) {
		c.endSession()
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := c.startSession(ctx, u); err != nil {
		return nil, err
	}
	return c.user, nil
}

// SignUp implements backend.Client. The account can sign in once the
// emailed link has been followed.
func (c *client) SignUp(ctx context.Context, email, password, redirectTo string) error {
	defer observe("signup", time.Now())

	if utf8.RuneCountInString(password) < minPasswordLength {
		return errWeakPassword
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	u := &userRow{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		CreatedAt:    c.now(),
	}
	if err := c.store.createUser(ctx, u); err != nil {
		if isDuplicate(err) {
			return errEmailExists
		}
		return err
	}

	code, err := c.codes.issue(ctx, codeGrant{UserID: u.ID, Purpose: purposeSignup})
	if err != nil {
		c.abandonSignUp(ctx, u.ID, "")
		return err
	}
	if err := c.mailer.Send(ctx, mail.Confirmation(u.Email, withCode(redirectTo, code))); err != nil {
		c.abandonSignUp(ctx, u.ID, code)
		return err
	}

	slog.Info("user signed up", slog.String("user_id", u.ID))
	return nil
}

// abandonSignUp removes a user whose confirmation link never went out, so
// the address can register again. The profile row goes with it.
func (c *client) abandonSignUp(ctx context.Context, userID, code string) {
	ctx = context.WithoutCancel(ctx)
	if code != "" {
		if _, err := c.codes.consume(ctx, code); err != nil {
			slog.Warn("withdrawing sign-up code failed", slog.Any("error", err))
		}
	}
	if err := c.store.deleteUnconfirmedUser(ctx, userID); err != nil {
		slog.Error("removing unconfirmed user failed",
			slog.String("user_id", userID),
			slog.Any("error", err),
		)
	}
}

// SignInWithPassword implements backend.Client.
func (c *client) SignInWithPassword(ctx context.Context, email, password string) error {
	defer observe("token_password", time.Now())

	u, err := c.store.userByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, errNotFound) {
		return errInvalidCredentials
	}
	if err != nil {
		return err
	}
	if !verifyPassword(password, u.PasswordHash) {
		return errInvalidCredentials
	}
	if !u.EmailConfirmedAt.Valid {
		return errEmailNotConfirmed
	}

	return c.startSession(ctx, u)
}

// SignOut implements backend.Client. Cookies are cleared even when the
// refresh token cannot be revoked.
func (c *client) SignOut(ctx context.Context) error {
	defer observe("logout", time.Now())
	defer c.endSession()

	_, refresh := c.cookies.Tokens(c.jar)
	if refresh == "" {
		return nil
	}
	return c.tokens.revoke(ctx, refresh)
}

// ResetPasswordForEmail implements backend.Client. Unknown addresses
// succeed silently so the form cannot be used to probe for accounts.
func (c *client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	defer observe("recover", time.Now())

	u, err := c.store.userByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, errNotFound) {
		slog.Debug("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	code, err := c.codes.issue(ctx, codeGrant{UserID: u.ID, Purpose: purposeRecovery})
	if err != nil {
		return err
	}
	return c.mailer.Send(ctx, mail.Recovery(u.Email, withCode(redirectTo, code)))
}

// UpdatePassword implements backend.Client.
func (c *client) UpdatePassword(ctx context.Context, password string) error {
	user, err := c.GetUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return backend.ErrSessionMissing
	}
	defer observe("update_user", time.Now())

	if utf8.RuneCountInString(password) < minPasswordLength {
		return errWeakPassword
	}

	u, err := c.store.userByID(ctx, user.ID)
	if err != nil {
		return wrapStore("loading user", err)
	}
	if verifyPassword(password, u.PasswordHash) {
		return errSamePassword
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := c.store.updatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	slog.Info("password updated", slog.String("user_id", u.ID))
	return nil
}

// ExchangeCodeForSession implements backend.Client. A sign-up code also
// confirms the email address.
func (c *client) ExchangeCodeForSession(ctx context.Context, code string) error {
	defer observe("token_pkce", time.Now())

	grant, err := c.codes.consume(ctx, code)
	if err != nil {
		return err
	}

	u, err := c.store.userByID(ctx, grant.UserID)
	if errors.Is(err, errNotFound) {
		return errFlowStateNotFound
	}
	if err != nil {
		return err
	}

	if grant.Purpose == purposeSignup && !u.EmailConfirmedAt.Valid {
		if err := c.store.confirmEmail(ctx, u.ID, c.now()); err != nil {
			return err
		}
		slog.Info("email confirmed", slog.String("user_id", u.ID))
	}

	return c.startSession(ctx, u)
}

// SetSession implements backend.Client.
func (c *client) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	defer observe("set_session", time.Now())

	if userID, err := c.tokens.verify(accessToken); err == nil {
		u, err := c.store.userByID(ctx, userID)
		if errors.Is(err, errNotFound) {
			return errBadJWT
		}
		if err != nil {
			return err
		}
		c.cookies.Store(c.jar, accessToken, refreshToken)
		c.remember(u.toUser())
		return nil
	}

	if refreshToken == "" {
		return errBadJWT
	}
	userID, err := c.tokens.redeem(ctx, refreshToken)
	if err != nil {
		return err
	}
	u, err := c.store.userByID(ctx, userID)
	if errors.Is(err, errNotFound) {
		return errRefreshTokenNotFound
	}
	if err != nil {
		return err
	}
	return c.startSession(ctx, u)
}
