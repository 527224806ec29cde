package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/andrebq/teta/auth"
	"github.com/andrebq/teta/branches"
	"github.com/andrebq/teta/credstore"
	"github.com/andrebq/teta/internal/logutil"
)

type (
	Options struct {
		Database string
		Hasher   auth.HasherConfig
		// StrictSessions binds session ids to the user that requested them
		StrictSessions bool
		SessionTTL     time.Duration
		SeedDemoUsers  int
		// Branches replaces the default branch table when not empty
		Branches []branches.Branch
	}

	// Runtime holds everything the HTTP API needs, Close releases it
	Runtime struct {
		Store    *credstore.Store
		Accounts *auth.Accounts
		Issuer   *auth.Issuer
		Sessions *auth.Correlator
		Table    *branches.Table
		SimCards *branches.SimCards
	}
)

const (
	DefaultSessionTTL = 30 * time.Minute
	DefaultDemoUsers  = 10
)

func DefaultOptions() Options {
	return Options{
		Database:      "teta.db",
		Hasher:        auth.DefaultHasherConfig(),
		SessionTTL:    DefaultSessionTTL,
		SeedDemoUsers: DefaultDemoUsers,
	}
}

// Setup opens and migrates the credential store, then seeds the demo users.
func Setup(ctx context.Context, opts Options) (*Runtime, error) {
	log := logutil.GetOrDefault(ctx)
	table := branches.DefaultTable()
	if len(opts.Branches) > 0 {
		var err error
		table, err = branches.NewTable(opts.Branches)
		if err != nil {
			return nil, err
		}
	}
	hasher, err := auth.NewHasher(opts.Hasher)
	if err != nil {
		return nil, err
	}
	store, err := credstore.Open(ctx, opts.Database)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Store: store, Table: table, SimCards: branches.NewSimCards(nil)}
	err = rt.init(ctx, opts, hasher)
	if err != nil {
		rt.Close()
		return nil, err
	}
	log.Info().Str("dialect", string(store.Dialect())).Bool("strict_sessions", rt.Sessions.Strict()).
		Int("branches", len(table.List())).Msg("Service ready")
	return rt, nil
}

func (rt *Runtime) init(ctx context.Context, opts Options, hasher *auth.Hasher) error {
	err := rt.Store.Migrate(ctx)
	if err != nil {
		return err
	}
	rt.Issuer = auth.NewIssuer(rt.Store)
	rt.Accounts, err = auth.NewAccounts(rt.Store, hasher, rt.Issuer)
	if err != nil {
		return err
	}
	if opts.StrictSessions {
		rt.Sessions, err = auth.NewStrictCorrelator(ctx, opts.SessionTTL)
		if err != nil {
			return err
		}
	} else {
		rt.Sessions = auth.NewCorrelator()
	}
	if opts.SeedDemoUsers > 0 {
		created, err := rt.Accounts.SeedDemoUsers(ctx, opts.SeedDemoUsers)
		if err != nil {
			return fmt.Errorf("unable to seed demo users, cause %w", err)
		}
		log := logutil.GetOrDefault(ctx)
		log.Info().Int("created", created).Int("requested", opts.SeedDemoUsers).Msg("Demo users seeded")
	}
	return nil
}

func (rt *Runtime) Handler(ctx context.Context) http.Handler {
	return AsHandler(ctx, Deps{
		Accounts: rt.Accounts,
		Tokens:   rt.Issuer,
		Sessions: rt.Sessions,
		Table:    rt.Table,
		SimCards: rt.SimCards,
	})
}

func (rt *Runtime) Close() error {
	if rt.Sessions != nil {
		rt.Sessions.Close()
	}
	return rt.Store.Close()
}
