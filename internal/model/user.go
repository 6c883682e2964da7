package model

import "time"

// Role enumerates the access levels a user account can hold.  The set is
// fixed at compile time; route guards take Role values rather than free
// strings so a typo in a role name fails to build instead of silently
// locking everyone out.
type Role string

const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the `users` table.  Secret material (password hash, reset
// token hash) never leaves the server: handlers build separate response
// structs and these fields carry no JSON tags on purpose.
//
// PasswordChangedAt is nil until the user changes their password for the
// first time.  ResetTokenHash and ResetTokenExpiresAt are set and cleared
// together as a pair; only the SHA-256 digest of a reset secret is stored,
// never the secret itself.
type User struct {
	ID                  uint64     // users.id
	Name                string     // users.name
	Email               string     // users.email (lowercased, unique)
	PasswordHash        string     // users.password_hash
	Role                Role       // users.role
	IsActive            bool       // users.is_active (soft-delete flag)
	PasswordChangedAt   *time.Time // users.password_changed_at (nullable)
	ResetTokenHash      *string    // users.reset_token_hash (nullable)
	ResetTokenExpiresAt *time.Time // users.reset_token_expires_at (nullable)
	CreatedAt           time.Time  // users.created_at
	UpdatedAt           time.Time  // users.updated_at
}
