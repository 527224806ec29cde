package users

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/andrebq/teta/auth"
	"github.com/andrebq/teta/credstore"
	"github.com/andrebq/teta/internal/cmdflags"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
)

func Cmd() *cli.Command {
	database := "teta.db"
	hashScheme := string(auth.Bcrypt)
	bcryptCost := bcrypt.DefaultCost
	var store *credstore.Store
	var accounts *auth.Accounts
	return &cli.Command{
		Name:  "users",
		Usage: "Manage accounts directly in the credential store",
		Flags: []cli.Flag{
			cmdflags.Database(&database),
			cmdflags.HashScheme(&hashScheme),
			cmdflags.BcryptCost(&bcryptCost),
		},
		Before: func(ctx *cli.Context) error {
			cfg := auth.DefaultHasherConfig()
			cfg.Scheme = auth.Scheme(hashScheme)
			cfg.BcryptCost = bcryptCost
			hasher, err := auth.NewHasher(cfg)
			if err != nil {
				return err
			}
			store, err = credstore.Open(ctx.Context, database)
			if err != nil {
				return err
			}
			err = store.Migrate(ctx.Context)
			if err != nil {
				return err
			}
			accounts, err = auth.NewAccounts(store, hasher, auth.NewIssuer(store))
			return err
		},
		After: func(ctx *cli.Context) error {
			if store == nil {
				return nil
			}
			return store.Close()
		},
		Subcommands: []*cli.Command{
			registerCmd(&accounts),
			deleteCmd(&accounts),
			seedCmd(&accounts),
		},
	}
}

func registerCmd(accounts **auth.Accounts) *cli.Command {
	var username string
	return &cli.Command{
		Name:  "register",
		Usage: "Register a new user (password is read from stdin)",
		Flags: []cli.Flag{usernameFlag(&username)},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(os.Stdin)
			if err != nil {
				return err
			}
			_, err = (*accounts).Register(ctx.Context, username, password)
			return err
		},
	}
}

func deleteCmd(accounts **auth.Accounts) *cli.Command {
	var username string
	return &cli.Command{
		Name:  "delete",
		Usage: "Delete a user and revoke its tokens (password is read from stdin)",
		Flags: []cli.Flag{usernameFlag(&username)},
		Action: func(ctx *cli.Context) error {
			password, err := readPassword(os.Stdin)
			if err != nil {
				return err
			}
			return (*accounts).DeleteAccount(ctx.Context, username, password)
		},
	}
}

func seedCmd(accounts **auth.Accounts) *cli.Command {
	count := 10
	return &cli.Command{
		Name:  "seed",
		Usage: "Create demouser1..N with password PasswordN when missing",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"n"},
				Value:       count,
				Destination: &count,
			},
		},
		Action: func(ctx *cli.Context) error {
			created, err := (*accounts).SeedDemoUsers(ctx.Context, count)
			if err != nil {
				return err
			}
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Int("created", created).Msg("Demo users seeded")
			return nil
		},
	}
}

func usernameFlag(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "username",
		Aliases:     []string{"u", "user"},
		Usage:       "Name of the user",
		Destination: out,
		Required:    true,
	}
}

func readPassword(in io.Reader) (string, error) {
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if sc.Err() != nil {
			return "", sc.Err()
		}
		return "", errors.New("missing password from stdin")
	}
	password := strings.TrimSpace(sc.Text())
	if len(password) == 0 {
		return "", errors.New("missing password from stdin")
	}
	return password, nil
}
