package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

type (
	Scheme string

	HasherConfig struct {
		Scheme Scheme
		// BcryptCost is the log2 of the number of bcrypt rounds
		BcryptCost int
		// Argon2id parameters, memory is in KiB
		ArgonTime    uint32
		ArgonMemory  uint32
		ArgonThreads uint8
	}

	Hasher struct {
		cfg     HasherConfig
		entropy io.Reader
	}
)

const (
	Bcrypt   = Scheme("bcrypt")
	Argon2id = Scheme("argon2id")

	bcryptMaxPassword = 72
	argonSaltSize     = 16
	argonKeySize      = 32
	argonPrefix       = "$argon2id$"
)

func DefaultHasherConfig() HasherConfig {
	return HasherConfig{
		Scheme:       Bcrypt,
		BcryptCost:   bcrypt.DefaultCost,
		ArgonTime:    3,
		ArgonMemory:  64 * 1024,
		ArgonThreads: defaultArgonThreads(),
	}
}

func defaultArgonThreads() uint8 {
	n := runtime.NumCPU() / 2
	switch {
	case n < 1:
		return 1
	case n > 8:
		return 8
	}
	return uint8(n)
}

func NewHasher(cfg HasherConfig) (*Hasher, error) {
	switch cfg.Scheme {
	case Bcrypt:
		if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("auth: bcrypt cost must be between %v and %v, got %v", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost)
		}
	case Argon2id:
		if cfg.ArgonTime == 0 || cfg.ArgonThreads == 0 {
			return nil, fmt.Errorf("auth: argon2id time and threads must be positive")
		}
		if cfg.ArgonMemory < 8*uint32(cfg.ArgonThreads) {
			return nil, fmt.Errorf("auth: argon2id memory must be at least %v KiB", 8*uint32(cfg.ArgonThreads))
		}
	default:
		return nil, fmt.Errorf("auth: unknown hash scheme %q", cfg.Scheme)
	}
	return &Hasher{cfg: cfg, entropy: rand.Reader}, nil
}

// Hash returns a self describing hash of password, the salt is random so the
// same password never hashes to the same string twice.
func (h *Hasher) Hash(password string) (string, error) {
	switch h.cfg.Scheme {
	case Argon2id:
		return h.hashArgon2id(password)
	default:
		if len(password) > bcryptMaxPassword {
			return "", ErrPasswordTooLong
		}
		buf, err := bcrypt.GenerateFromPassword([]byte(password), h.cfg.BcryptCost)
		if err != nil {
			return "", fmt.Errorf("unable to hash password, cause %w", err)
		}
		return string(buf), nil
	}
}

// Verify checks password against a hash produced by any supported scheme.
// Malformed hashes simply do not match.
func (h *Hasher) Verify(password, hash string) bool {
	switch {
	case strings.HasPrefix(hash, argonPrefix):
		return verifyArgon2id(password, hash)
	case strings.HasPrefix(hash, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	return false
}

func (h *Hasher) hashArgon2id(password string) (string, error) {
	var salt [argonSaltSize]byte
	_, err := io.ReadFull(h.entropy, salt[:])
	if err != nil {
		return "", fmt.Errorf("unable to generate salt, cause %w", err)
	}
	key := argon2.IDKey([]byte(password), salt[:], h.cfg.ArgonTime, h.cfg.ArgonMemory, h.cfg.ArgonThreads, argonKeySize)
	return fmt.Sprintf("%vv=%d$m=%d,t=%d,p=%d$%v$%v", argonPrefix, argon2.Version,
		h.cfg.ArgonMemory, h.cfg.ArgonTime, h.cfg.ArgonThreads,
		base64.RawStdEncoding.EncodeToString(salt[:]),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// $argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
func verifyArgon2id(password, hash string) bool {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 {
		return false
	}
	var version int
	_, err := fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil || version != argon2.Version {
		return false
	}
	var memory, time uint32
	var threads uint8
	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads)
	if err != nil || time == 0 || threads == 0 {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false
	}
	actual := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1
}
