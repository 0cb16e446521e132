package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/keyxmakerx/profilehub/internal/backend"
)

// userRow is a users table row.
type userRow struct {
	ID               string
	Email            string
	PasswordHash     string
	EmailConfirmedAt sql.NullTime
	CreatedAt        time.Time
}

func (u *userRow) toUser() *backend.User {
	return &backend.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

var userColumns = []string{"id", "email", "password_hash", "email_confirmed_at", "created_at"}

// store holds the SQL for users and profiles. Statements are built with
// squirrel and run on database/sql so they can be checked with sqlmock.
type store struct {
	db *sql.DB
}

// createUser inserts the user and its empty profile row in one transaction.
func (s *store) createUser(ctx context.Context, u *userRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query, args, err := sq.Insert("users").
		Columns("id", "email", "password_hash", "created_at").
		Values(u.ID, u.Email, u.PasswordHash, u.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("building user insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	query, args, err = sq.Insert("profiles").
		Columns("id", "is_public").
		Values(u.ID, false).
		ToSql()
	if err != nil {
		return fmt.Errorf("building profile insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user: %w", err)
	}
	return nil
}

func (s *store) userByEmail(ctx context.Context, email string) (*userRow, error) {
	return s.findUser(ctx, sq.Eq{"email": email})
}

func (s *store) userByID(ctx context.Context, id string) (*userRow, error) {
	return s.findUser(ctx, sq.Eq{"id": id})
}

func (s *store) findUser(ctx context.Context, where sq.Eq) (*userRow, error) {
	query, args, err := sq.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building user query: %w", err)
	}

	u := &userRow{}
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.EmailConfirmedAt, &u.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// confirmEmail stamps email_confirmed_at unless it is already set.
func (s *store) confirmEmail(ctx context.Context, id string, at time.Time) error {
	query, args, err := sq.Update("users").
		Set("email_confirmed_at", at).
		Where(sq.Eq{"id": id, "email_confirmed_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building confirm update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("confirming email: %w", err)
	}
	return nil
}

// deleteUnconfirmedUser removes a user that never confirmed its email. The
// profile row follows through the foreign key.
func (s *store) deleteUnconfirmedUser(ctx context.Context, id string) error {
	query, args, err := sq.Delete("users").
		Where(sq.Eq{"id": id, "email_confirmed_at": nil}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building user delete: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	return nil
}

func (s *store) updatePassword(ctx context.Context, id, hash string) error {
	query, args, err := sq.Update("users").
		Set("password_hash", hash).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building password update: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	return nil
}

// profileByID returns errNotFound when the user has no profile row.
func (s *store) profileByID(ctx context.Context, id string) (*backend.Profile, error) {
	query, args, err := sq.Select("id", "username", "display_name", "bio", "avatar_url", "is_public").
		From("profiles").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building profile query: %w", err)
	}

	var p backend.Profile
	var username, displayName, bio, avatar sql.NullString
	err = s.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID, &username, &displayName, &bio, &avatar, &p.IsPublic,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying profile: %w", err)
	}

	p.Username = username.String
	p.DisplayName = displayName.String
	p.Bio = bio.String
	p.AvatarURL = avatar.String
	return &p, nil
}

// updateProfile writes the onboarding columns. A duplicate username is
// reported as errUsernameTaken.
func (s *store) updateProfile(ctx context.Context, id string, update backend.ProfileUpdate) error {
	query, args, err := sq.Update("profiles").
		Set("username", update.Username).
		Set("display_name", update.DisplayName).
		Set("bio", nullString(update.Bio)).
		Set("avatar_url", nullString(update.AvatarURL)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("building profile update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return errUsernameTaken
		}
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
