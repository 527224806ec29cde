package credstore

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s, cleanup := tempStore(ctx, t)
	defer cleanup()

	alice, err := s.CreateUser(ctx, "alice", "hash-1")
	require.NoError(t, err)
	require.NotZero(t, alice.ID)
	require.True(t, alice.Active)

	_, err = s.CreateUser(ctx, "alice", "hash-2")
	require.ErrorIs(t, err, ErrDuplicateUsername)

	// usernames are case sensitive
	_, err = s.CreateUser(ctx, "Alice", "hash-3")
	require.NoError(t, err)

	found, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice, found)

	_, err = s.FindUserByUsername(ctx, "bob")
	require.ErrorIs(t, err, ErrNotFound)

	n, err := s.CountUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)
}

func TestTokens(t *testing.T) {
	ctx := context.Background()
	s, cleanup := tempStore(ctx, t)
	defer cleanup()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)

	tk, err := s.CreateToken(ctx, alice.ID, "token-a")
	require.NoError(t, err)
	require.Equal(t, alice.ID, tk.UserID)

	_, err = s.CreateToken(ctx, alice.ID, "token-a")
	require.ErrorIs(t, err, ErrDuplicateToken)

	second, err := s.CreateToken(ctx, alice.ID, "token-b")
	require.NoError(t, err)
	require.NotEqual(t, tk.ID, second.ID)

	found, err := s.FindActiveToken(ctx, "token-a")
	require.NoError(t, err)
	require.Equal(t, tk, found)

	_, err = s.FindActiveToken(ctx, "token-c")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	s, cleanup := tempStore(ctx, t)
	defer cleanup()

	alice, err := s.CreateUser(ctx, "alice", "hash")
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, "bob", "hash")
	require.NoError(t, err)
	for _, v := range []string{"a1", "a2", "a3"} {
		_, err = s.CreateToken(ctx, alice.ID, v)
		require.NoError(t, err)
	}
	_, err = s.CreateToken(ctx, bob.ID, "b1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))

	for _, v := range []string{"a1", "a2", "a3"} {
		_, err = s.FindActiveToken(ctx, v)
		require.ErrorIs(t, err, ErrNotFound, "token %v should be gone", v)
	}
	_, err = s.FindActiveToken(ctx, "b1")
	require.NoError(t, err)
	_, err = s.FindUserByUsername(ctx, "alice")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.DeleteUser(ctx, alice.ID), ErrNotFound)

	// the username can be taken again after a hard delete
	again, err := s.CreateUser(ctx, "alice", "other-hash")
	require.NoError(t, err)
	require.NotEqual(t, alice.ID, again.ID)
}

func TestConcurrentCreateUser(t *testing.T) {
	ctx := context.Background()
	s, cleanup := tempStore(ctx, t)
	defer cleanup()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateUser(ctx, "carol", "hash")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateUsername):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, writers-1, dup)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, cleanup := tempStore(ctx, t)
	defer cleanup()
	require.NoError(t, s.Migrate(ctx))
}

func tempStore(ctx context.Context, t interface {
	Fatal(...interface{})
	Log(...interface{})
}) (*Store, func()) {
	dir, err := ioutil.TempDir("", "teta-tests")
	if err != nil {
		t.Fatal(err)
	}
	s, err := Open(ctx, filepath.Join(dir, "credentials.db"))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Migrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return s, func() {
		err := s.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}
