package local

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyxmakerx/profilehub/internal/backend"
	"github.com/keyxmakerx/profilehub/internal/backend/backendtest"
	"github.com/keyxmakerx/profilehub/internal/mail"
)

// outbox records sent messages.
type outbox struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (o *outbox) Send(_ context.Context, msg mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, msg)
	return nil
}

type fixture struct {
	factory *Factory
	mock    sqlmock.Sqlmock
	redis   *miniredis.Miniredis
	outbox  *outbox
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	mr, rdb := newTestRedis(t)
	box := &outbox{}

	f, err := NewFactory(Config{SecretKey: "0123456789abcdef0123456789abcdef"}, db, rdb, box)
	require.NoError(t, err)
	return &fixture{factory: f, mock: mock, redis: mr, outbox: box}
}

var cookies = backend.SessionCookies{}

func userRows(id, email, hash string, confirmed bool) *sqlmock.Rows {
	var confirmedAt any
	if confirmed {
		confirmedAt = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return sqlmock.NewRows(userColumns).
		AddRow(id, email, hash, confirmedAt, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

// signedInJar returns a jar whose request cookies carry a fresh session
// for the user. Nothing has been written to it yet.
func (fx *fixture) signedInJar(t *testing.T, userID string) *backendtest.Jar {
	t.Helper()
	access, refresh, err := fx.factory.tokens.issue(context.Background(), userID, "taro@example.com")
	require.NoError(t, err)
	return backendtest.NewJar(
		&http.Cookie{Name: cookies.AccessName(), Value: access},
		&http.Cookie{Name: cookies.RefreshName(), Value: refresh},
	)
}

func TestNewFactory_RequiresDependencies(t *testing.T) {
	_, err := NewFactory(Config{}, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewFactory(Config{SecretKey: "x"}, nil, nil, &outbox{})
	assert.Error(t, err)
}

func TestSignUp_CreatesUserAndMailsCode(t *testing.T) {
	fx := newFixture(t)

	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "taro@example.com", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectExec(`INSERT INTO profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectCommit()

	client := fx.factory.New(backendtest.NewJar())
	err := client.SignUp(context.Background(), " Taro@Example.com ", "secret123", "https://app.example.com/auth/callback")
	require.NoError(t, err)
	require.NoError(t, fx.mock.ExpectationsWereMet())

	require.Len(t, fx.outbox.sent, 1)
	msg := fx.outbox.sent[0]
	assert.Equal(t, "taro@example.com", msg.To)

	link := regexp.MustCompile(`https://\S+`).FindString(msg.Body)
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/auth/callback", u.Path)
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	assert.True(t, fx.redis.Exists(codeKeyPrefix+code))
}

func TestSignUp_WeakPasswordSkipsDatabase(t *testing.T) {
	fx := newFixture(t)

	err := fx.factory.New(backendtest.NewJar()).SignUp(context.Background(), "taro@example.com", "12345", "https://x/cb")
	assert.Equal(t, errWeakPassword, err)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	fx := newFixture(t)

	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`INSERT INTO users`).WillReturnError(duplicateEntry)
	fx.mock.ExpectRollback()

	err := fx.factory.New(backendtest.NewJar()).SignUp(context.Background(), "taro@example.com", "secret123", "https://x/cb")
	be, ok := backend.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "email_exists", be.Code)
	assert.Empty(t, fx.outbox.sent)
}

func TestSignUp_MailFailureRemovesUnconfirmedUser(t *testing.T) {
	fx := newFixture(t)
	fx.outbox.err = errors.New("smtp down")

	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectExec(`INSERT INTO profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectCommit()
	fx.mock.ExpectExec(`DELETE FROM users WHERE email_confirmed_at IS NULL AND id = \?`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	client := fx.factory.New(backendtest.NewJar())
	err := client.SignUp(context.Background(), "taro@example.com", "secret123", "https://x/cb")
	require.Error(t, err)
	require.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Empty(t, fx.redis.Keys(), "the issued code is withdrawn too")

	// The address is free again, so a retry registers normally.
	fx.outbox.err = nil
	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectExec(`INSERT INTO profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectCommit()

	require.NoError(t, client.SignUp(context.Background(), "taro@example.com", "secret123", "https://x/cb"))
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Len(t, fx.outbox.sent, 1)
}

func TestSignUp_CodeFailureRemovesUnconfirmedUser(t *testing.T) {
	fx := newFixture(t)
	fx.redis.SetError("READONLY")

	fx.mock.ExpectBegin()
	fx.mock.ExpectExec(`INSERT INTO users`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectExec(`INSERT INTO profiles`).WillReturnResult(sqlmock.NewResult(0, 1))
	fx.mock.ExpectCommit()
	fx.mock.ExpectExec(`DELETE FROM users`).WillReturnResult(sqlmock.NewResult(0, 1))

	err := fx.factory.New(backendtest.NewJar()).SignUp(context.Background(), "taro@example.com", "secret123", "https://x/cb")
	require.Error(t, err)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Empty(t, fx.outbox.sent)
}

func TestExchangeCode_ConfirmsEmailAndSignsIn(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	code, err := fx.factory.codes.issue(ctx, codeGrant{UserID: "u1", Purpose: purposeSignup})
	require.NoError(t, err)

	fx.mock.ExpectQuery(`FROM users WHERE id = \?`).WithArgs("u1").
		WillReturnRows(userRows("u1", "taro@example.com", "hash", false))
	fx.mock.ExpectExec(`UPDATE users SET email_confirmed_at`).WillReturnResult(sqlmock.NewResult(0, 1))

	jar := backendtest.NewJar()
	client := fx.factory.New(jar)
	require.NoError(t, client.ExchangeCodeForSession(ctx, code))
	require.NoError(t, fx.mock.ExpectationsWereMet())

	access, refresh := cookies.Tokens(jar)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)

	// The user is memoised; no further query is made.
	user, err := client.GetUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	// The code cannot be replayed.
	err = fx.factory.New(backendtest.NewJar()).ExchangeCodeForSession(ctx, code)
	assert.Equal(t, errFlowStateNotFound, err)
}

func TestExchangeCode_Unknown(t *testing.T) {
	fx := newFixture(t)

	err := fx.factory.New(backendtest.NewJar()).ExchangeCodeForSession(context.Background(), "nope")
	be, ok := backend.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "flow_state_not_found", be.Code)
}

func TestSignIn(t *testing.T) {
	hash, err := hashPassword("secret123")
	require.NoError(t, err)

	tests := []struct {
		name      string
		password  string
		confirmed bool
		wantErr   error
	}{
		{"valid", "secret123", true, nil},
		{"wrong password", "secret999", true, errInvalidCredentials},
		{"unconfirmed", "secret123", false, errEmailNotConfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t)
			fx.mock.ExpectQuery(`FROM users WHERE email = \?`).WithArgs("taro@example.com").
				WillReturnRows(userRows("u1", "taro@example.com", hash, tt.confirmed))

			jar := backendtest.NewJar()
			err := fx.factory.New(jar).SignInWithPassword(context.Background(), "taro@example.com", tt.password)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				assert.Empty(t, jar.Written)
				return
			}
			require.NoError(t, err)
			access, _ := cookies.Tokens(jar)
			assert.NotEmpty(t, access)
		})
	}
}

func TestSignIn_UnknownEmail(t *testing.T) {
	fx := newFixture(t)
	fx.mock.ExpectQuery(`FROM users WHERE email`).WillReturnRows(sqlmock.NewRows(userColumns))

	err := fx.factory.New(backendtest.NewJar()).SignInWithPassword(context.Background(), "nobody@example.com", "secret123")
	assert.Equal(t, errInvalidCredentials, err)
}

func TestGetUser_NoCookies(t *testing.T) {
	fx := newFixture(t)

	user, err := fx.factory.New(backendtest.NewJar()).GetUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)
	assert.NoError(t, fx.mock.ExpectationsWereMet())
}

func TestGetUser_ValidAccessToken(t *testing.T) {
	fx := newFixture(t)
	jar := fx.signedInJar(t, "u1")

	fx.mock.ExpectQuery(`FROM users WHERE id = \?`).WithArgs("u1").
		WillReturnRows(userRows("u1", "taro@example.com", "hash", true))

	client := fx.factory.New(jar)
	for range 2 {
		user, err := client.GetUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	}
	assert.NoError(t, fx.mock.ExpectationsWereMet())
	assert.Empty(t, jar.Written)
}

func TestGetUser_RefreshesInvalidAccessToken(t *testing.T) {
	fx := newFixture(t)
	_, refresh, err := fx.factory.tokens.issue(context.Background(), "u1", "taro@example.com")
	require.NoError(t, err)

	jar := backendtest.NewJar()
	cookies.Store(jar, "expired-or-garbage", refresh)
	jar.Written = nil

	fx.mock.ExpectQuery(`FROM users WHERE id = \?`).WithArgs("u1").
		WillReturnRows(userRows("u1", "taro@example.com", "hash", true))

	user, err := fx.factory.New(jar).GetUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)

	newAccess, newRefresh := cookies.Tokens(jar)
	assert.NotEqual(t, "expired-or-garbage", newAccess)
	assert.NotEqual(t, refresh, newRefresh)
	assert.Len(t, jar.Written, 2)
	assert.False(t, fx.redis.Exists(refreshKeyPrefix+refresh), "old refresh token must be consumed")
}

func TestGetUser_RejectedRefreshClearsSession(t *testing.T) {
	fx := newFixture(t)
	jar := backendtest.NewJar()
	cookies.Store(jar, "garbage", "unknown-refresh")
	jar.Written = nil

	user, err := fx.factory.New(jar).GetUser(context.Background())
	require.NoError(t, err)
	assert.Nil(t, user)

	access, refresh := cookies.Tokens(jar)
	assert.Empty(t, access)
	assert.Empty(t, refresh)
	for _, c := range jar.Written {
		assert.Equal(t, -1, c.MaxAge)
	}
}

func TestSignOut_RevokesAndClears(t *testing.T) {
	fx := newFixture(t)
	jar := fx.signedInJar(t, "u1")
	_, refresh := cookies.Tokens(jar)

	require.NoError(t, fx.factory.New(jar).SignOut(context.Background()))

	assert.False(t, fx.redis.Exists(refreshKeyPrefix+refresh))
	access, _ := cookies.Tokens(jar)
	assert.Empty(t, access)
}

func TestResetPasswordForEmail(t *testing.T) {
	t.Run("unknown address is silent", func(t *testing.T) {
		fx := newFixture(t)
		fx.mock.ExpectQuery(`FROM users WHERE email`).WillReturnRows(sqlmock.NewRows(userColumns))

		err := fx.factory.New(backendtest.NewJar()).ResetPasswordForEmail(context.Background(), "nobody@example.com", "https://x/cb")
		require.NoError(t, err)
		assert.Empty(t, fx.outbox.sent)
	})

	t.Run("known address gets a recovery link", func(t *testing.T) {
		fx := newFixture(t)
		fx.mock.ExpectQuery(`FROM users WHERE email`).
			WillReturnRows(userRows("u1", "taro@example.com", "hash", true))

		err := fx.factory.New(backendtest.NewJar()).ResetPasswordForEmail(context.Background(), "taro@example.com", "https://x/auth/callback?next=%2Freset-password")
		require.NoError(t, err)
		require.Len(t, fx.outbox.sent, 1)
		assert.Contains(t, fx.outbox.sent[0].Body, "next=%2Freset-password")
		assert.Contains(t, fx.outbox.sent[0].Body, "code=")
	})

	t.Run("mail failure is not a backend error", func(t *testing.T) {
		fx := newFixture(t)
		fx.outbox.err = errors.New("smtp down")
		fx.mock.ExpectQuery(`FROM users WHERE email`).
			WillReturnRows(userRows("u1", "taro@example.com", "hash", true))

		err := fx.factory.New(backendtest.NewJar()).ResetPasswordForEmail(context.Background(), "taro@example.com", "https://x/cb")
		require.Error(t, err)
		_, ok := backend.AsError(err)
		assert.False(t, ok)
	})
}

func TestUpdatePassword(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		fx := newFixture(t)
		err := fx.factory.New(backendtest.NewJar()).UpdatePassword(context.Background(), "secret123")
		assert.Equal(t, backend.ErrSessionMissing, err)
	})

	t.Run("same password", func(t *testing.T) {
		fx := newFixture(t)
		hash, err := hashPassword("secret123")
		require.NoError(t, err)
		jar := fx.signedInJar(t, "u1")

		fx.mock.ExpectQuery(`FROM users WHERE id`).WillReturnRows(userRows("u1", "taro@example.com", hash, true))
		fx.mock.ExpectQuery(`FROM users WHERE id`).WillReturnRows(userRows("u1", "taro@example.com", hash, true))

		err = fx.factory.New(jar).UpdatePassword(context.Background(), "secret123")
		assert.Equal(t, errSamePassword, err)
	})

	t.Run("new password stored", func(t *testing.T) {
		fx := newFixture(t)
		hash, err := hashPassword("secret123")
		require.NoError(t, err)
		jar := fx.signedInJar(t, "u1")

		fx.mock.ExpectQuery(`FROM users WHERE id`).WillReturnRows(userRows("u1", "taro@example.com", hash, true))
		fx.mock.ExpectQuery(`FROM users WHERE id`).WillReturnRows(userRows("u1", "taro@example.com", hash, true))
		fx.mock.ExpectExec(`UPDATE users SET password_hash = \? WHERE id = \?`).
			WithArgs(sqlmock.AnyArg(), "u1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, fx.factory.New(jar).UpdatePassword(context.Background(), "newsecret"))
		assert.NoError(t, fx.mock.ExpectationsWereMet())
	})
}

func TestSetSession_FallsBackToRefresh(t *testing.T) {
	fx := newFixture(t)
	_, refresh, err := fx.factory.tokens.issue(context.Background(), "u1", "taro@example.com")
	require.NoError(t, err)

	fx.mock.ExpectQuery(`FROM users WHERE id`).WillReturnRows(userRows("u1", "taro@example.com", "hash", true))

	jar := backendtest.NewJar()
	require.NoError(t, fx.factory.New(jar).SetSession(context.Background(), "stale", refresh))

	access, _ := cookies.Tokens(jar)
	assert.NotEqual(t, "stale", access)
	assert.NotEmpty(t, access)
}

func TestGetProfile_MissingRow(t *testing.T) {
	fx := newFixture(t)
	fx.mock.ExpectQuery(`FROM profiles`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "username", "display_name", "bio", "avatar_url", "is_public"}))

	p, err := fx.factory.New(backendtest.NewJar()).GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestUpdateProfile_OnlyOwner(t *testing.T) {
	fx := newFixture(t)
	jar := fx.signedInJar(t, "u1")
	fx.mock.ExpectQuery(`FROM users WHERE id`).WillReturnRows(userRows("u1", "taro@example.com", "hash", true))

	err := fx.factory.New(jar).UpdateProfile(context.Background(), "u2", backend.ProfileUpdate{Username: "x", DisplayName: "X"})
	be, ok := backend.AsError(err)
	require.True(t, ok)
	assert.Equal(t, "42501", be.Code)
}

func TestWithCode(t *testing.T) {
	assert.Equal(t, "https://x.example/auth/callback?code=abc", withCode("https://x.example/auth/callback", "abc"))
	assert.Equal(t, "https://x.example/cb?code=abc&next=%2Freset", withCode("https://x.example/cb?next=%2Freset", "abc"))
}
