package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SessionTokenBytes is the random payload behind each session id.
const SessionTokenBytes = 32

var sessionTokenEncoding = base64.RawURLEncoding

// NewSessionToken returns a fresh opaque session id, the primary key of a
// sessions row and the value carried in the signed cookie.
func NewSessionToken() (string, error) {
	var b [SessionTokenBytes]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("session token: %w", err)
	}
	return sessionTokenEncoding.EncodeToString(b[:]), nil
}

// IsSessionToken reports whether s has the shape NewSessionToken produces.
func IsSessionToken(s string) bool {
	b, err := sessionTokenEncoding.DecodeString(s)
	return err == nil && len(b) == SessionTokenBytes
}
