package cmdflags

import (
	"time"

	"github.com/urfave/cli/v2"
)

const (
	DatabaseFlag       = "db"
	ConfigFlag         = "config"
	BindFlag           = "bind"
	HashSchemeFlag     = "hash-scheme"
	BcryptCostFlag     = "bcrypt-cost"
	StrictSessionsFlag = "strict-sessions"
	SessionTTLFlag     = "session-ttl"
	SeedDemoUsersFlag  = "seed-demo-users"
)

func Database(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        DatabaseFlag,
		Aliases:     []string{"d", "database"},
		Usage:       "Path to the sqlite database or a postgres:// URL",
		EnvVars:     []string{"TETA_DB"},
		Destination: out,
		Value:       *out,
	}
}

func ConfigFile(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        ConfigFlag,
		Aliases:     []string{"c"},
		Usage:       "Lua configuration file, explicit flags take precedence over it",
		EnvVars:     []string{"TETA_CONFIG"},
		Destination: out,
		Value:       *out,
	}
}

func Bind(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        BindFlag,
		Usage:       "Address to bind the HTTP API",
		EnvVars:     []string{"TETA_BIND"},
		Destination: out,
		Value:       *out,
	}
}

func HashScheme(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        HashSchemeFlag,
		Usage:       "Password hash for new accounts (bcrypt or argon2id), existing hashes keep working",
		EnvVars:     []string{"TETA_HASH_SCHEME"},
		Destination: out,
		Value:       *out,
	}
}

func BcryptCost(out *int) cli.Flag {
	return &cli.IntFlag{
		Name:        BcryptCostFlag,
		Usage:       "bcrypt cost (4-31)",
		EnvVars:     []string{"TETA_BCRYPT_COST"},
		Destination: out,
		Value:       *out,
	}
}

func StrictSessions(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        StrictSessionsFlag,
		Usage:       "Only accept x_id_session values issued to the same user by GET /branches",
		EnvVars:     []string{"TETA_STRICT_SESSIONS"},
		Destination: out,
		Value:       *out,
	}
}

func SessionTTL(out *time.Duration) cli.Flag {
	return &cli.DurationFlag{
		Name:        SessionTTLFlag,
		Usage:       "How long a session id is remembered in strict mode",
		EnvVars:     []string{"TETA_SESSION_TTL"},
		Destination: out,
		Value:       *out,
	}
}

func SeedDemoUsers(out *int) cli.Flag {
	return &cli.IntFlag{
		Name:        SeedDemoUsersFlag,
		Usage:       "Create demouser1..N (password PasswordN) at startup when missing, 0 disables it",
		EnvVars:     []string{"TETA_SEED_DEMO_USERS"},
		Destination: out,
		Value:       *out,
	}
}

func LogLevel(out *string) cli.Flag {
	return &cli.StringFlag{
		Name:        "log-level",
		Usage:       "Minimum log level (trace, debug, info, warn, error)",
		EnvVars:     []string{"TETA_LOG_LEVEL"},
		Destination: out,
		Value:       *out,
	}
}

func LogConsole(out *bool) cli.Flag {
	return &cli.BoolFlag{
		Name:        "log-console",
		Usage:       "Human friendly logs instead of JSON lines",
		EnvVars:     []string{"TETA_LOG_CONSOLE"},
		Destination: out,
		Value:       *out,
	}
}
