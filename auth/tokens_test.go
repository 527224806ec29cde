package auth

import (
	"bytes"
	"context"
	"testing"

	"github.com/andrebq/teta/credstore"
	"github.com/stretchr/testify/require"
)

type (
	fakeTokens struct {
		CredentialStore
		saved    map[string]int64
		attempts int
	}
)

func (f *fakeTokens) CreateToken(ctx context.Context, userID int64, value string) (credstore.Token, error) {
	f.attempts++
	if _, ok := f.saved[value]; ok {
		return credstore.Token{}, credstore.ErrDuplicateToken
	}
	f.saved[value] = userID
	return credstore.Token{ID: int64(len(f.saved)), UserID: userID, Value: value, Active: true}, nil
}

func (f *fakeTokens) FindActiveToken(ctx context.Context, value string) (credstore.Token, error) {
	uid, ok := f.saved[value]
	if !ok {
		return credstore.Token{}, credstore.ErrNotFound
	}
	return credstore.Token{UserID: uid, Value: value, Active: true}, nil
}

func TestIssueAndVerify(t *testing.T) {
	ctx := context.Background()
	store := &fakeTokens{saved: map[string]int64{}}
	issuer := NewIssuer(store)

	a, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)
	b, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	// 32 bytes, base64url without padding
	require.Len(t, a, 43)
	require.NotContains(t, a, "=")

	uid, err := issuer.Verify(ctx, a)
	require.NoError(t, err)
	require.Equal(t, int64(1), uid)

	_, err = issuer.Verify(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Verify(ctx, a+"x")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestIssueRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	store := &fakeTokens{saved: map[string]int64{}}
	issuer := NewIssuer(store)

	zeros := bytes.Repeat([]byte{0}, tokenSize)
	ones := bytes.Repeat([]byte{1}, tokenSize)

	issuer.entropy = bytes.NewReader(zeros)
	first, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)

	issuer.entropy = bytes.NewReader(append(append([]byte{}, zeros...), ones...))
	second, err := issuer.Issue(ctx, 2)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
	require.Equal(t, 3, store.attempts)
}

func TestIssueGivesUp(t *testing.T) {
	ctx := context.Background()
	store := &fakeTokens{saved: map[string]int64{}}
	issuer := NewIssuer(store)
	zeros := bytes.Repeat([]byte{0}, tokenSize)
	issuer.entropy = bytes.NewReader(zeros)
	_, err := issuer.Issue(ctx, 1)
	require.NoError(t, err)

	issuer.entropy = bytes.NewReader(bytes.Repeat(zeros, maxIssueAttempts))
	_, err = issuer.Issue(ctx, 1)
	require.Error(t, err)
	require.Len(t, store.saved, 1)
}
