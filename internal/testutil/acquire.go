package testutil

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/andrebq/teta/auth"
	"github.com/andrebq/teta/credstore"
	"golang.org/x/crypto/bcrypt"
)

type (
	TestLog interface {
		Fatal(...interface{})
		Log(...interface{})
	}
)

// AcquireStore returns a migrated sqlite credential store living in a
// temporary directory removed by the cleanup function.
func AcquireStore(ctx context.Context, t TestLog) (*credstore.Store, func()) {
	dir, err := ioutil.TempDir("", "teta-tests")
	if err != nil {
		t.Fatal(err)
	}
	store, err := credstore.Open(ctx, filepath.Join(dir, "credentials.db"))
	if err != nil {
		t.Fatal(err)
	}
	err = store.Migrate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return store, func() {
		err := store.Close()
		if err != nil {
			t.Log("unable to close store", err)
		}
		err = os.RemoveAll(dir)
		if err != nil {
			t.Log("unable to cleanup temp dir", dir)
		}
	}
}

// FastHasher uses the cheapest bcrypt cost, tests do not need slow hashes.
func FastHasher(t TestLog) *auth.Hasher {
	cfg := auth.DefaultHasherConfig()
	cfg.BcryptCost = bcrypt.MinCost
	h, err := auth.NewHasher(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func AcquireAccounts(ctx context.Context, t TestLog) (*auth.Accounts, *auth.Issuer, *credstore.Store, func()) {
	store, cleanup := AcquireStore(ctx, t)
	issuer := auth.NewIssuer(store)
	accounts, err := auth.NewAccounts(store, FastHasher(t), issuer)
	if err != nil {
		cleanup()
		t.Fatal(err)
	}
	return accounts, issuer, store, cleanup
}
