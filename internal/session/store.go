// Package session keeps login sessions server-side. The browser only holds a
// signed cookie carrying an opaque token; user id, admin flag and expiry live
// in the sessions table.
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"infocomp/internal/auth"
	"infocomp/internal/db"
)

const (
	keyUserID  = "user_id"
	keyIsAdmin = "is_admin"
)

// Backend persists session rows. *db.DB implements it.
type Backend interface {
	CreateSession(ctx context.Context, token string, userID int64, isAdmin bool, ttl time.Duration) error
	GetSession(ctx context.Context, token string) (*db.Session, bool, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now int64) (int64, error)
}

// Store is a sessions.Store whose state lives in a Backend. Session values
// are fixed at creation; saving an existing session only refreshes the cookie.
type Store struct {
	Backend Backend
	Codecs  []securecookie.Codec
	Options *sessions.Options
	TTL     time.Duration
}

func NewStore(b Backend, secret []byte, ttl time.Duration, opts sessions.Options) *Store {
	codecs := securecookie.CodecsFromPairs(secret)
	for _, c := range codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(int(ttl.Seconds()))
		}
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = int(ttl.Seconds())
	}
	return &Store{Backend: b, Codecs: codecs, Options: &opts, TTL: ttl}
}

// Get returns the session for name, cached per request.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session referenced by the request cookie. It always returns
// a usable session; a missing, tampered, unknown or expired token yields a
// fresh one (IsNew). Decode and backend errors are returned alongside it.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := s.blank(name)

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}
	var token string
	if err := securecookie.DecodeMulti(name, c.Value, &token, s.Codecs...); err != nil {
		return sess, err
	}
	if !auth.IsSessionToken(token) {
		return sess, nil
	}
	row, ok, err := s.Backend.GetSession(r.Context(), token)
	if err != nil {
		return sess, err
	}
	if !ok || row.ExpiresAt <= time.Now().Unix() {
		return sess, nil
	}

	sess.ID = row.Token
	sess.Values[keyUserID] = row.UserID
	sess.Values[keyIsAdmin] = row.IsAdmin
	sess.IsNew = false
	return sess, nil
}

// Save writes the cookie. A session without ID gets a new token and backend
// row; MaxAge < 0 deletes the row and expires the cookie.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	if sess.Options == nil {
		sess.Options = s.options()
	}
	if sess.Options.MaxAge < 0 {
		if sess.ID != "" {
			if err := s.Backend.DeleteSession(r.Context(), sess.ID); err != nil {
				return err
			}
		}
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		return nil
	}

	if sess.ID == "" {
		userID, _ := sess.Values[keyUserID].(int64)
		isAdmin, _ := sess.Values[keyIsAdmin].(bool)
		if userID <= 0 {
			return errors.New("session has no user")
		}
		token, err := auth.NewSessionToken()
		if err != nil {
			return err
		}
		if err := s.Backend.CreateSession(r.Context(), token, userID, isAdmin, s.TTL); err != nil {
			return err
		}
		sess.ID = token
	}

	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.Codecs...)
	if err != nil {
		return err
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

// Sweep deletes expired rows from the backend.
func (s *Store) Sweep(ctx context.Context) (int64, error) {
	return s.Backend.DeleteExpiredSessions(ctx, time.Now().Unix())
}

func (s *Store) blank(name string) *sessions.Session {
	sess := sessions.NewSession(s, name)
	sess.Options = s.options()
	sess.IsNew = true
	return sess
}

func (s *Store) options() *sessions.Options {
	opts := *s.Options
	return &opts
}
