// Package auth hashes and verifies passwords and authenticates users by
// email and password.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	// MinBcryptCost is the lowest cost accepted from configuration.
	MinBcryptCost = 12
)

type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 4,
		SaltLen:     16,
		KeyLen:      32,
	}
}

// Hasher produces new password hashes. Stored hashes are self-describing, so
// verification does not need a Hasher.
type Hasher struct {
	Algorithm  string
	BcryptCost int
	Argon2     Argon2Params
}

func DefaultHasher() Hasher {
	return Hasher{
		Algorithm:  AlgorithmBcrypt,
		BcryptCost: MinBcryptCost,
		Argon2:     DefaultArgon2Params(),
	}
}

func (h Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is required")
	}
	switch h.Algorithm {
	case "", AlgorithmBcrypt:
		cost := h.BcryptCost
		if cost == 0 {
			cost = MinBcryptCost
		}
		b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(b), nil
	case AlgorithmArgon2id:
		return hashArgon2(password, h.Argon2)
	default:
		return "", fmt.Errorf("unsupported password algorithm %q", h.Algorithm)
	}
}

// VerifyPassword reports whether password matches encoded, which may be a
// bcrypt hash ($2a$/$2b$/$2y$) or a PHC argon2id string.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}
	switch {
	case strings.HasPrefix(encoded, "$2"):
		err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
		if err == nil {
			return true, nil
		}
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	case strings.HasPrefix(encoded, AlgorithmArgon2id+"$"):
		p, salt, want, err := parseArgon2(encoded)
		if err != nil {
			return false, err
		}
		got := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, uint32(len(want)))
		return subtle.ConstantTimeCompare(got, want) == 1, nil
	default:
		return false, errors.New("unrecognized password hash format")
	}
}

// hashArgon2 returns argon2id$v=19$m=65536,t=3,p=4$<salt_b64>$<hash_b64>.
func hashArgon2(password string, p Argon2Params) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	key := argon2.IDKey([]byte(password), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLen)
	enc := base64.RawStdEncoding
	return fmt.Sprintf("%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		AlgorithmArgon2id, argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

func parseArgon2(s string) (p Argon2Params, salt, key []byte, err error) {
	parts := strings.Split(s, "$")
	if len(parts) != 5 {
		return p, nil, nil, errors.New("invalid argon2 hash format")
	}
	ver, err := strconv.Atoi(strings.TrimPrefix(parts[1], "v="))
	if err != nil || ver != argon2.Version {
		return p, nil, nil, errors.New("unsupported argon2 version")
	}
	for _, kv := range strings.Split(parts[2], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, errors.New("invalid argon2 parameters")
		}
		n, perr := strconv.ParseUint(v, 10, 32)
		if perr != nil {
			return p, nil, nil, fmt.Errorf("invalid argon2 parameter %q", k)
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Iterations = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, nil, errors.New("invalid argon2 parallelism")
			}
			p.Parallelism = uint8(n)
		default:
			return p, nil, nil, fmt.Errorf("unknown argon2 parameter %q", k)
		}
	}

	enc := base64.RawStdEncoding
	if salt, err = enc.DecodeString(parts[3]); err != nil {
		return p, nil, nil, errors.New("invalid argon2 salt")
	}
	if key, err = enc.DecodeString(parts[4]); err != nil {
		return p, nil, nil, errors.New("invalid argon2 hash")
	}
	if len(key) < 16 {
		return p, nil, nil, errors.New("invalid argon2 hash length")
	}
	return p, salt, key, nil
}
