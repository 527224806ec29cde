// Package luaconf reads the optional teta.lua configuration file.
//
// The file is plain Lua evaluated in a restricted state (package, base, table
// and string libs, no file loading). It either returns a table or assigns one
// to the global `teta`:
//
//	return {
//	  bind = "0.0.0.0:8000",
//	  database = getenv("TETA_DB", "teta.db"),
//	  hash_scheme = "bcrypt",
//	  bcrypt_cost = 12,
//	  strict_sessions = true,
//	  session_ttl = "30m",
//	  seed_demo_users = 10,
//	  branches = {
//	    { id = 1, name = "Филиал МРМ" },
//	  },
//	}
//
// Keys are snake_case in Lua and mapped to Config with gluamapper.
package luaconf

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/andrebq/teta/branches"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
)

type (
	Config struct {
		Bind           string
		Database       string
		HashScheme     string
		BcryptCost     int
		StrictSessions bool
		SessionTTL     string
		// nil when the file does not mention it, zero disables seeding
		SeedDemoUsers *int
		Branches      []branches.Branch
	}

	InvalidConfig struct {
		File  string
		Cause error
	}
)

const (
	GlobalName = "teta"

	evalTimeout = 5 * time.Second
)

func (i InvalidConfig) Error() string {
	return fmt.Sprintf("invalid configuration file %v: %v", i.File, i.Cause)
}

func (i InvalidConfig) Unwrap() error {
	return i.Cause
}

// Load evaluates file and maps the resulting table into a Config
func Load(ctx context.Context, file string) (Config, error) {
	code, err := os.ReadFile(file)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read configuration %v, cause %w", file, err)
	}
	cfg, err := Eval(ctx, file, string(code))
	if err != nil {
		return Config{}, InvalidConfig{File: file, Cause: err}
	}
	return cfg, nil
}

// Eval runs code (name is only used in error messages) and decodes the
// configuration table it produces.
func Eval(ctx context.Context, name, code string) (Config, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	ctx, cancel := context.WithTimeout(ctx, evalTimeout)
	defer cancel()
	L.SetContext(ctx)
	injectConfigLibs(L)

	fn, err := L.Load(strings.NewReader(code), name)
	if err != nil {
		return Config{}, err
	}
	L.Push(fn)
	err = L.PCall(0, 1, nil)
	if err != nil {
		return Config{}, err
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		tbl, ok = L.GetGlobal(GlobalName).(*lua.LTable)
	}
	if !ok {
		return Config{}, fmt.Errorf("expecting a table, either returned or assigned to %v", GlobalName)
	}
	var cfg Config
	err = gluamapper.Map(tbl, &cfg)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if len(c.SessionTTL) > 0 {
		if _, err := c.SessionTTLDuration(); err != nil {
			return err
		}
	}
	if c.SeedDemoUsers != nil && *c.SeedDemoUsers < 0 {
		return fmt.Errorf("seed_demo_users cannot be negative")
	}
	if len(c.Branches) > 0 {
		_, err := branches.NewTable(c.Branches)
		if err != nil {
			return err
		}
	}
	return nil
}

// SessionTTLDuration parses SessionTTL, an empty value returns 0
func (c Config) SessionTTLDuration() (time.Duration, error) {
	if len(c.SessionTTL) == 0 {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return 0, fmt.Errorf("session_ttl %q is not a valid duration, cause %w", c.SessionTTL, err)
	}
	return d, nil
}

func injectConfigLibs(L *lua.LState) {
	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage}, // Must be first
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(pair.f),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.n)); err != nil {
			panic(err)
		}
	}
	// configuration is a single file
	for _, name := range []string{"dofile", "loadfile", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("getenv", L.NewFunction(getenv))
}

// getenv(name [, default])
func getenv(L *lua.LState) int {
	name := L.CheckString(1)
	def := L.OptString(2, "")
	if v, ok := os.LookupEnv(name); ok {
		L.Push(lua.LString(v))
	} else {
		L.Push(lua.LString(def))
	}
	return 1
}
