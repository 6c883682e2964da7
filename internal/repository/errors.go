// Package repository implements the credential store on MySQL and defines
// the sentinel errors higher layers branch on.  Handlers never see
// database/sql errors directly; everything crossing the package boundary is
// one of the sentinels below or a genuine server fault.
package repository

import "errors"

// ErrNotFound is returned when no user matches the given id, email or
// reset-token digest.  Handlers translate it into the appropriate 401/404
// depending on the flow.
var ErrNotFound = errors.New("user not found")

// ErrEmailExists is returned by Create when the normalized email collides
// with an existing account.
var ErrEmailExists = errors.New("email already exists")

// ErrResetConsumed is returned when a guarded reset-consumption update
// matches zero rows: the token was already used, cleared or swapped in a
// concurrent request.  Callers treat it exactly like an expired token.
var ErrResetConsumed = errors.New("reset token already consumed")
