package session

import (
	"context"
	"log/slog"
	"net/http"
)

// Info is what handlers see of the current session.
type Info struct {
	Authenticated bool
	UserID        int64
	IsAdmin       bool
}

type Manager struct {
	Store  *Store
	Name   string
	Logger *slog.Logger
}

// Establish starts a fresh session for userID, replacing any session the
// request already carried.
func (m *Manager) Establish(w http.ResponseWriter, r *http.Request, userID int64, isAdmin bool) error {
	if old, err := m.Store.Get(r, m.Name); err == nil && old.ID != "" {
		if err := m.Store.Backend.DeleteSession(r.Context(), old.ID); err != nil {
			return err
		}
	}
	sess := m.Store.blank(m.Name)
	sess.Values[keyUserID] = userID
	sess.Values[keyIsAdmin] = isAdmin
	return m.Store.Save(r, w, sess)
}

// Destroy removes the session row, if any, and expires the cookie. Calling
// it without a session is not an error.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) error {
	sess, err := m.Store.Get(r, m.Name)
	if err != nil {
		m.logger().Debug("discarding unreadable session", "err", err)
	}
	if sess == nil {
		sess = m.Store.blank(m.Name)
	}
	sess.Options.MaxAge = -1
	return m.Store.Save(r, w, sess)
}

// Current never fails: anything other than a live session is reported as
// unauthenticated.
func (m *Manager) Current(r *http.Request) Info {
	sess, err := m.Store.Get(r, m.Name)
	if err != nil {
		m.logger().Debug("session lookup failed", "err", err)
	}
	if sess == nil || sess.IsNew || sess.ID == "" {
		return Info{}
	}
	userID, _ := sess.Values[keyUserID].(int64)
	isAdmin, _ := sess.Values[keyIsAdmin].(bool)
	if userID <= 0 {
		return Info{}
	}
	return Info{Authenticated: true, UserID: userID, IsAdmin: isAdmin}
}

func (m *Manager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

type ctxKey int

const infoKey ctxKey = iota

func NewContext(ctx context.Context, info Info) context.Context {
	return context.WithValue(ctx, infoKey, info)
}

// FromContext returns the Info stored by NewContext, or the zero Info.
func FromContext(ctx context.Context) Info {
	info, _ := ctx.Value(infoKey).(Info)
	return info
}
