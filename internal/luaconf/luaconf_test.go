package luaconf

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andrebq/teta/branches"
	"github.com/stretchr/testify/require"
)

func TestEvalReturnedTable(t *testing.T) {
	cfg, err := Eval(context.Background(), "test.lua", `
	local names = { "Север", "Юг" }
	local list = {}
	for i, n in ipairs(names) do
		table.insert(list, { id = i * 10, name = string.format("Филиал %s", n) })
	end
	return {
		bind = "0.0.0.0:9000",
		bcrypt_cost = 12,
		strict_sessions = true,
		session_ttl = "15m",
		seed_demo_users = 0,
		branches = list,
	}`)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Bind)
	require.Equal(t, 12, cfg.BcryptCost)
	require.True(t, cfg.StrictSessions)
	require.NotNil(t, cfg.SeedDemoUsers)
	require.Zero(t, *cfg.SeedDemoUsers)
	ttl, err := cfg.SessionTTLDuration()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, ttl)
	require.Equal(t, []branches.Branch{
		{ID: 10, Name: "Филиал Север"},
		{ID: 20, Name: "Филиал Юг"},
	}, cfg.Branches)
}

func TestEvalGlobal(t *testing.T) {
	os.Setenv("TETA_TEST_DB", "/tmp/from-env.db")
	defer os.Unsetenv("TETA_TEST_DB")
	cfg, err := Eval(context.Background(), "test.lua", `
	teta = {
		database = getenv("TETA_TEST_DB", "teta.db"),
		hash_scheme = getenv("TETA_TEST_MISSING", "argon2id"),
	}`)
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-env.db", cfg.Database)
	require.Equal(t, "argon2id", cfg.HashScheme)
	require.Nil(t, cfg.SeedDemoUsers)
	require.Empty(t, cfg.Branches)
}

func TestEvalErrors(t *testing.T) {
	ctx := context.Background()
	for name, code := range map[string]string{
		"no table":         `local x = 1`,
		"syntax":           `return {`,
		"runtime":          `error("boom")`,
		"sandboxed":        `dofile("/etc/passwd")`,
		"bad ttl":          `return { session_ttl = "soon" }`,
		"negative seed":    `return { seed_demo_users = -1 }`,
		"duplicate branch": `return { branches = { { id = 1, name = "a" }, { id = 1, name = "b" } } }`,
	} {
		_, err := Eval(ctx, "test.lua", code)
		require.Error(t, err, name)
	}
}

func TestEvalStopsRunawayScripts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := Eval(ctx, "test.lua", `while true do end`)
	require.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "teta.lua")
	require.NoError(t, os.WriteFile(file, []byte(`return { bind = "localhost:1234" }`), 0644))
	cfg, err := Load(context.Background(), file)
	require.NoError(t, err)
	require.Equal(t, "localhost:1234", cfg.Bind)

	require.NoError(t, os.WriteFile(file, []byte(`return 1`), 0644))
	_, err = Load(context.Background(), file)
	require.ErrorAs(t, err, &InvalidConfig{})

	_, err = Load(context.Background(), filepath.Join(dir, "missing.lua"))
	require.Error(t, err)
}
