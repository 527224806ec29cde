package serve

import (
	"time"

	"github.com/andrebq/teta/auth"
	"github.com/andrebq/teta/internal/cmdflags"
	"github.com/andrebq/teta/internal/httpserver"
	"github.com/andrebq/teta/internal/logutil"
	"github.com/andrebq/teta/internal/luaconf"
	"github.com/andrebq/teta/service"
	"github.com/urfave/cli/v2"
)

type (
	settings struct {
		bind           string
		database       string
		config         string
		hashScheme     string
		bcryptCost     int
		strictSessions bool
		sessionTTL     time.Duration
		seedDemoUsers  int
	}
)

func defaultSettings() *settings {
	opts := service.DefaultOptions()
	return &settings{
		bind:          "localhost:8000",
		database:      opts.Database,
		hashScheme:    string(opts.Hasher.Scheme),
		bcryptCost:    opts.Hasher.BcryptCost,
		sessionTTL:    opts.SessionTTL,
		seedDemoUsers: opts.SeedDemoUsers,
	}
}

func (s *settings) flags() []cli.Flag {
	return []cli.Flag{
		cmdflags.Bind(&s.bind),
		cmdflags.Database(&s.database),
		cmdflags.ConfigFile(&s.config),
		cmdflags.HashScheme(&s.hashScheme),
		cmdflags.BcryptCost(&s.bcryptCost),
		cmdflags.StrictSessions(&s.strictSessions),
		cmdflags.SessionTTL(&s.sessionTTL),
		cmdflags.SeedDemoUsers(&s.seedDemoUsers),
	}
}

// resolve merges the configuration file (if any) with the flags, flags set
// explicitly (or through their env var) win.
func (s *settings) resolve(ctx *cli.Context) (string, service.Options, error) {
	opts := service.DefaultOptions()
	if len(s.config) > 0 {
		cfg, err := luaconf.Load(ctx.Context, s.config)
		if err != nil {
			return "", service.Options{}, err
		}
		overlayString(ctx, cmdflags.BindFlag, &s.bind, cfg.Bind)
		overlayString(ctx, cmdflags.DatabaseFlag, &s.database, cfg.Database)
		overlayString(ctx, cmdflags.HashSchemeFlag, &s.hashScheme, cfg.HashScheme)
		if !ctx.IsSet(cmdflags.BcryptCostFlag) && cfg.BcryptCost != 0 {
			s.bcryptCost = cfg.BcryptCost
		}
		if !ctx.IsSet(cmdflags.StrictSessionsFlag) && cfg.StrictSessions {
			s.strictSessions = true
		}
		if ttl, _ := cfg.SessionTTLDuration(); !ctx.IsSet(cmdflags.SessionTTLFlag) && ttl > 0 {
			s.sessionTTL = ttl
		}
		if !ctx.IsSet(cmdflags.SeedDemoUsersFlag) && cfg.SeedDemoUsers != nil {
			s.seedDemoUsers = *cfg.SeedDemoUsers
		}
		opts.Branches = cfg.Branches
	}
	opts.Database = s.database
	opts.Hasher.Scheme = auth.Scheme(s.hashScheme)
	opts.Hasher.BcryptCost = s.bcryptCost
	opts.StrictSessions = s.strictSessions
	opts.SessionTTL = s.sessionTTL
	opts.SeedDemoUsers = s.seedDemoUsers
	return s.bind, opts, nil
}

func overlayString(ctx *cli.Context, flag string, out *string, fromFile string) {
	if ctx.IsSet(flag) || len(fromFile) == 0 {
		return
	}
	*out = fromFile
}

func Cmd() *cli.Command {
	s := defaultSettings()
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: s.flags(),
		Action: func(ctx *cli.Context) error {
			bind, opts, err := s.resolve(ctx)
			if err != nil {
				return err
			}
			rt, err := service.Setup(ctx.Context, opts)
			if err != nil {
				return err
			}
			defer rt.Close()
			log := logutil.GetOrDefault(ctx.Context)
			log.Info().Str("bind", bind).Msg("Serving TETA API")
			return httpserver.Serve(ctx.Context, bind, rt.Handler(ctx.Context), httpserver.DefaultTimeouts())
		},
	}
}
