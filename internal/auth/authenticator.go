package auth

import (
	"context"
	"errors"
	"sync"

	"infocomp/internal/db"
)

// ErrInvalidCredentials is returned for both an unknown email and a wrong
// password.
var ErrInvalidCredentials = errors.New("invalid credentials")

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (*db.User, bool, error)
}

type Authenticator struct {
	Users  UserStore
	Hasher Hasher

	dummyOnce sync.Once
	dummy     string
}

// Authenticate looks the user up by exact email and checks the password.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (*db.User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, ok, err := a.Users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Pay for a comparison anyway so response time does not reveal
		// whether the email exists.
		_, _ = VerifyPassword(password, a.dummyHash())
		return nil, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, u.PassHash)
	if err != nil {
		return nil, err
	}
	if !match {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (a *Authenticator) dummyHash() string {
	a.dummyOnce.Do(func() {
		h, err := a.Hasher.Hash("infocomp-dummy-password")
		if err == nil {
			a.dummy = h
		}
	})
	return a.dummy
}
