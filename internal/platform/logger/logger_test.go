package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHonoursLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for value, want := range cases {
		log, err := New(value)
		require.NoError(t, err)
		require.True(t, log.Enabled(context.Background(), want), value)
		if want > slog.LevelDebug {
			require.False(t, log.Enabled(context.Background(), want-1), value)
		}
	}
}
