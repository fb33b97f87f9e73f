// Package setup creates and repairs the administrator account outside the
// request path: at server startup and from the create-admin and
// reset-admin commands.
package setup

import (
	"context"
	"errors"
	"fmt"

	"infocomp/internal/auth"
	"infocomp/internal/db"
	"infocomp/internal/validate"
)

type Outcome int

const (
	OutcomeDisabled Outcome = iota
	OutcomeExists
	OutcomeCreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDisabled:
		return "disabled"
	case OutcomeExists:
		return "exists"
	case OutcomeCreated:
		return "created"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

type AdminStore interface {
	GetUserByEmail(ctx context.Context, email string) (*db.User, bool, error)
	CreateUser(ctx context.Context, email, passHash string, isAdmin bool) (int64, error)
}

// EnsureAdmin creates an admin account for email unless one already exists.
// Either value empty disables it; a malformed email is an error and creates
// nothing. Running it repeatedly never creates a second user: a concurrent
// insert that loses the unique-email race is also reported as OutcomeExists.
func EnsureAdmin(ctx context.Context, store AdminStore, hasher auth.Hasher, email, password string) (Outcome, error) {
	if email == "" || password == "" {
		return OutcomeDisabled, nil
	}
	if err := validate.Email(email); err != nil {
		return OutcomeDisabled, err
	}

	_, ok, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return OutcomeDisabled, err
	}
	if ok {
		return OutcomeExists, nil
	}

	h, err := hasher.Hash(password)
	if err != nil {
		return OutcomeDisabled, err
	}
	if _, err := store.CreateUser(ctx, email, h, true); err != nil {
		if errors.Is(err, db.ErrConstraint) {
			return OutcomeExists, nil
		}
		return OutcomeDisabled, err
	}
	return OutcomeCreated, nil
}
