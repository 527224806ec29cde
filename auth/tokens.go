package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/andrebq/teta/credstore"
	"github.com/andrebq/teta/internal/logutil"
)

type (
	Issuer struct {
		store   CredentialStore
		entropy io.Reader
	}
)

const (
	tokenSize = 32
	// a collision on 256 random bits means the entropy source is broken,
	// retrying forever would only hide it
	maxIssueAttempts = 3
)

func NewIssuer(store CredentialStore) *Issuer {
	return &Issuer{store: store, entropy: rand.Reader}
}

// Issue mints a new active token for userID. Every call returns a different
// token; older tokens of the same user remain valid.
func (i *Issuer) Issue(ctx context.Context, userID int64) (string, error) {
	log := logutil.GetOrDefault(ctx)
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		value, err := i.newValue()
		if err != nil {
			return "", err
		}
		_, err = i.store.CreateToken(ctx, userID, value)
		if errors.Is(err, credstore.ErrDuplicateToken) {
			log.Warn().Int("attempt", attempt).Msg("Token collision detected, retrying with a new value")
			continue
		} else if err != nil {
			return "", fmt.Errorf("unable to persist token, cause %w", err)
		}
		return value, nil
	}
	return "", fmt.Errorf("unable to issue a unique token after %v attempts", maxIssueAttempts)
}

// Verify returns the owner of an active token, it never changes the token.
func (i *Issuer) Verify(ctx context.Context, token string) (int64, error) {
	if len(token) == 0 {
		return 0, ErrInvalidToken
	}
	tk, err := i.store.FindActiveToken(ctx, token)
	if errors.Is(err, credstore.ErrNotFound) {
		return 0, ErrInvalidToken
	} else if err != nil {
		return 0, fmt.Errorf("unable to verify token, cause %w", err)
	}
	return tk.UserID, nil
}

func (i *Issuer) newValue() (string, error) {
	var buf [tokenSize]byte
	_, err := io.ReadFull(i.entropy, buf[:])
	if err != nil {
		return "", fmt.Errorf("unable to generate token, cause %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf[:]), nil
}
