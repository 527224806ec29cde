package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/andrebq/teta/credstore"
	"github.com/andrebq/teta/internal/logutil"
)

type (
	CredentialStore interface {
		CreateUser(ctx context.Context, username, passwordHash string) (credstore.User, error)
		FindUserByUsername(ctx context.Context, username string) (credstore.User, error)
		DeleteUser(ctx context.Context, userID int64) error
		CreateToken(ctx context.Context, userID int64, value string) (credstore.Token, error)
		FindActiveToken(ctx context.Context, value string) (credstore.Token, error)
	}

	Accounts struct {
		store  CredentialStore
		hasher *Hasher
		issuer *Issuer

		// verified against when the user does not exist, so both failure
		// paths cost one hash computation
		decoyHash string
	}

	LoginResult struct {
		User           credstore.User
		Token          string
		TokenType      string
		WelcomeMessage string
	}
)

const (
	TokenTypeBearer = "bearer"

	welcomeTemplate = "Это учебный Web-Service TETA в рамках курса по тестированию производительности, %v"
)

func NewAccounts(store CredentialStore, hasher *Hasher, issuer *Issuer) (*Accounts, error) {
	decoy, err := hasher.Hash("decoy password, never matches anything")
	if err != nil {
		return nil, err
	}
	return &Accounts{
		store:     store,
		hasher:    hasher,
		issuer:    issuer,
		decoyHash: decoy,
	}, nil
}

func (a *Accounts) Register(ctx context.Context, username, password string) (credstore.User, error) {
	_, err := a.store.FindUserByUsername(ctx, username)
	if err == nil {
		return credstore.User{}, ErrDuplicateUsername
	} else if !errors.Is(err, credstore.ErrNotFound) {
		return credstore.User{}, err
	}
	hash, err := a.hasher.Hash(password)
	if err != nil {
		return credstore.User{}, err
	}
	// a concurrent registration can still win between the lookup and the
	// insert, the unique index settles it
	u, err := a.store.CreateUser(ctx, username, hash)
	if errors.Is(err, credstore.ErrDuplicateUsername) {
		return credstore.User{}, ErrDuplicateUsername
	} else if err != nil {
		return credstore.User{}, err
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int64("user_id", u.ID).Str("username", username).Msg("User registered")
	return u, nil
}

func (a *Accounts) Authenticate(ctx context.Context, username, password string) (credstore.User, error) {
	log := logutil.GetOrDefault(ctx)
	u, err := a.store.FindUserByUsername(ctx, username)
	if errors.Is(err, credstore.ErrNotFound) {
		a.hasher.Verify(password, a.decoyHash)
		log.Debug().Str("username", username).Msg("Authentication failed")
		return credstore.User{}, ErrAuthFailure
	} else if err != nil {
		return credstore.User{}, err
	}
	if !a.hasher.Verify(password, u.PasswordHash) {
		log.Debug().Str("username", username).Msg("Authentication failed")
		return credstore.User{}, ErrAuthFailure
	}
	return u, nil
}

func (a *Accounts) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := a.Authenticate(ctx, username, password)
	if err != nil {
		return LoginResult{}, err
	}
	token, err := a.issuer.Issue(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		User:           u,
		Token:          token,
		TokenType:      TokenTypeBearer,
		WelcomeMessage: fmt.Sprintf(welcomeTemplate, u.Username),
	}, nil
}

// DeleteAccount removes the account and revokes all of its tokens. The
// password is required even for callers holding a valid token.
func (a *Accounts) DeleteAccount(ctx context.Context, username, password string) error {
	u, err := a.Authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	err = a.store.DeleteUser(ctx, u.ID)
	if errors.Is(err, credstore.ErrNotFound) {
		// someone else deleted it first
		return ErrAuthFailure
	} else if err != nil {
		return err
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Int64("user_id", u.ID).Str("username", username).Msg("User deleted")
	return nil
}

// SeedDemoUsers makes sure demouser1..demouserN exist, each with PasswordN as
// password. Existing users are left untouched.
func (a *Accounts) SeedDemoUsers(ctx context.Context, n int) (int, error) {
	log := logutil.GetOrDefault(ctx)
	created := 0
	for i := 1; i <= n; i++ {
		username := fmt.Sprintf("demouser%d", i)
		_, err := a.Register(ctx, username, fmt.Sprintf("Password%d", i))
		if errors.Is(err, ErrDuplicateUsername) {
			log.Debug().Str("username", username).Msg("Demo user already exists")
			continue
		} else if err != nil {
			return created, fmt.Errorf("unable to seed %v, cause %w", username, err)
		}
		created++
	}
	return created, nil
}
