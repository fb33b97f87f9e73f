package setup

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"infocomp/internal/auth"
	"infocomp/internal/db"
)

type ResetStore interface {
	GetUserByEmail(ctx context.Context, email string) (*db.User, bool, error)
	SetUserPasswordHash(ctx context.Context, id int64, passHash string) error
}

type ResetAdminOptions struct {
	Email    string
	Password string // prompted for when empty
}

// ResetAdmin replaces the password of an existing admin account.
func ResetAdmin(ctx context.Context, store ResetStore, hasher auth.Hasher, opt ResetAdminOptions) error {
	if opt.Email == "" {
		return errors.New("admin email is required")
	}
	u, ok, err := store.GetUserByEmail(ctx, opt.Email)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no user with email %q", opt.Email)
	}
	if !u.IsAdmin {
		return fmt.Errorf("user %q is not an admin", opt.Email)
	}

	pass := opt.Password
	if pass == "" {
		if pass, err = PromptPassword("New admin password"); err != nil {
			return err
		}
	}
	h, err := hasher.Hash(pass)
	if err != nil {
		return err
	}
	return store.SetUserPasswordHash(ctx, u.ID, h)
}

// PromptPassword asks for a password twice on stderr. Echo is disabled when
// stdin is a terminal; piped input is read line by line.
func PromptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	interactive := term.IsTerminal(fd)
	r := bufio.NewReader(os.Stdin)

	read := func(prompt string) (string, error) {
		fmt.Fprintf(os.Stderr, "%s: ", prompt)
		if interactive {
			b, err := term.ReadPassword(fd)
			fmt.Fprintln(os.Stderr)
			return string(b), err
		}
		s, err := r.ReadString('\n')
		return strings.TrimRight(s, "\r\n"), err
	}

	for {
		p1, err := read(label)
		if err != nil {
			return "", err
		}
		p2, err := read("Confirm password")
		if err != nil {
			return "", err
		}
		if p1 == "" {
			fmt.Fprintln(os.Stderr, "password cannot be empty")
			continue
		}
		if p1 != p2 {
			fmt.Fprintln(os.Stderr, "passwords do not match")
			continue
		}
		return p1, nil
	}
}
