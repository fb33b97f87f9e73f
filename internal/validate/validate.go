// Package validate contains simple input validation helpers.
package validate

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Email does a shape check only: one @ with text on both sides and no
// whitespace. Addresses are otherwise compared exactly as stored.
func Email(s string) error {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return errors.New("invalid email")
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return errors.New("invalid email")
	}
	return nil
}

// InfoName trims s and rejects the empty result.
func InfoName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", errors.New("name is required")
	}
	return s, nil
}

// UploadName accepts only names the image pipeline generates:
// a canonical UUID followed by ext.
func UploadName(name, ext string) error {
	stem, ok := strings.CutSuffix(name, ext)
	if !ok || stem == "" {
		return errors.New("invalid upload name")
	}
	u, err := uuid.Parse(stem)
	if err != nil || u.String() != stem {
		return errors.New("invalid upload name")
	}
	return nil
}
