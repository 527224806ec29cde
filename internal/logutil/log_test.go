package logutil

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", false)
	require.NoError(t, err)

	ctx := WithLogger(context.Background(), logger)
	log := GetOrDefault(ctx)
	log.Debug().Msg("hidden")
	log.Info().Str("username", "alice").Msg("visible")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"username":"alice"`)
}

func TestInvalidLevel(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "loud", false)
	require.Error(t, err)
}
