package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/roamly/tour-booking-api/internal/model"
)

// UserStore is the narrow credential-store interface the auth core depends
// on.  *UserRepo is the MySQL implementation; tests substitute an in-memory
// one.  All reset-field mutations keep reset_token_hash and
// reset_token_expires_at in lockstep: they are set and cleared as a pair,
// never one without the other.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, passwordHash string, changedAt time.Time) error
	SetPasswordReset(ctx context.Context, id uint64, tokenHash string, expiresAt time.Time) error
	ClearPasswordReset(ctx context.Context, id uint64) error
	GetByPasswordResetHash(ctx context.Context, tokenHash string) (model.User, error)
	ConsumePasswordReset(ctx context.Context, id uint64, tokenHash, passwordHash string, changedAt time.Time) error
	DeleteAll(ctx context.Context) error
}

// UserRepo persists users in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var _ UserStore = (*UserRepo)(nil)

const userColumns = "id,name,email,password_hash,role,is_active,password_changed_at,reset_token_hash,reset_token_expires_at,created_at,updated_at"

// Create inserts a user and returns its id.  The caller supplies an already
// hashed password; plaintext never reaches this layer.
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string, role model.Role) (uint64, error) {
	email = NormalizeEmail(email)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, passwordHash, string(role))
	if err != nil {
		// MySQL duplicate-key on the unique email index.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.getWhere(ctx, "id=?", id)
}

// GetByEmail fetches a user by normalized email.  The returned record
// includes the password hash; response shaping strips secret fields at the
// handler layer.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getWhere(ctx, "email=?", NormalizeEmail(email))
}

// GetByPasswordResetHash fetches the user holding a still-valid reset token
// digest.  The expiry comparison happens in SQL so "no such token" and
// "expired token" are indistinguishable to the caller, by the same query.
func (r *UserRepo) GetByPasswordResetHash(ctx context.Context, tokenHash string) (model.User, error) {
	return r.getWhere(ctx, "reset_token_hash=? AND reset_token_expires_at > UTC_TIMESTAMP()", tokenHash)
}

func (r *UserRepo) getWhere(ctx context.Context, where string, args ...any) (model.User, error) {
	var (
		u         model.User
		role      string
		changedAt sql.NullTime
		resetHash sql.NullString
		resetExp  sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1",
		args...).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.IsActive,
		&changedAt, &resetHash, &resetExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, err
	}
	u.Role = model.Role(role)
	if changedAt.Valid {
		t := changedAt.Time
		u.PasswordChangedAt = &t
	}
	if resetHash.Valid {
		s := resetHash.String
		u.ResetTokenHash = &s
	}
	if resetExp.Valid {
		t := resetExp.Time
		u.ResetTokenExpiresAt = &t
	}
	return u, nil
}

// UpdatePassword replaces the password hash and stamps password_changed_at,
// which invalidates every session token issued before changedAt.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string, changedAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, password_changed_at=? WHERE id=?",
		passwordHash, changedAt.UTC(), id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

// SetPasswordReset stores a reset-token digest and its expiry as a pair.
// Any previously issued reset token for the user is overwritten.
func (r *UserRepo) SetPasswordReset(ctx context.Context, id uint64, tokenHash string, expiresAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=?, reset_token_expires_at=? WHERE id=?",
		tokenHash, expiresAt.UTC(), id)
	if err != nil {
		return err
	}
	return oneRow(res)
}

// ClearPasswordReset nulls both reset fields in one statement.  Used when
// delivery of the reset secret fails: a token that never reached the user
// must not stay redeemable.
func (r *UserRepo) ClearPasswordReset(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET reset_token_hash=NULL, reset_token_expires_at=NULL WHERE id=?", id)
	return err
}

// ConsumePasswordReset redeems a reset token: it sets the new password hash,
// stamps password_changed_at and clears both reset fields in a single
// guarded update.  The WHERE clause re-checks the stored digest so two
// concurrent redeem attempts cannot both succeed; the loser gets
// ErrResetConsumed.
func (r *UserRepo) ConsumePasswordReset(ctx context.Context, id uint64, tokenHash, passwordHash string, changedAt time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users
		    SET password_hash=?, password_changed_at=?,
		        reset_token_hash=NULL, reset_token_expires_at=NULL
		  WHERE id=? AND reset_token_hash=? AND reset_token_expires_at > UTC_TIMESTAMP()`,
		passwordHash, changedAt.UTC(), id, tokenHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrResetConsumed
	}
	return nil
}

// DeleteAll wipes the users table.  Admin/test tooling only; never routed
// without an admin role gate.
func (r *UserRepo) DeleteAll(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users")
	return err
}

// NormalizeEmail lowercases and trims an email so lookups and the unique
// index agree on case.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func oneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
