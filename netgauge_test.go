package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/activecm/netgauge/logger"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoadEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), "netgauge.env")
	require.NoError(t, os.WriteFile(envFile, []byte("NETGAUGE_TEST_ADDRESS=db:9000\n"), 0o600))

	tests := []struct {
		name          string
		args          []string
		expectedDebug bool
		expectedError bool
	}{
		{
			name: "Env File",
			args: []string{"netgauge", "--env-file", envFile, "status"},
		},
		{
			name:          "Debug",
			args:          []string{"netgauge", "-d", "-e", envFile, "status"},
			expectedDebug: true,
		},
		{
			name:          "Missing Env File",
			args:          []string{"netgauge", "--env-file", filepath.Join(t.TempDir(), "missing.env"), "status"},
			expectedError: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "production")
			t.Setenv("NETGAUGE_TEST_ADDRESS", "")
			require.NoError(t, os.Unsetenv("NETGAUGE_TEST_ADDRESS"))
			t.Cleanup(func() { logger.DebugMode = false })

			var ran bool
			app := newApp()
			app.Commands = []*cli.Command{{Name: "status", Action: func(*cli.Context) error { ran = true; return nil }}}
			app.ExitErrHandler = func(*cli.Context, error) {}

			err := app.Run(test.args)
			if test.expectedError {
				require.ErrorContains(t, err, "could not load environment file")
				require.False(t, ran, "the command should not run without its environment")
				return
			}
			require.NoError(t, err)
			require.True(t, ran)
			require.Equal(t, "db:9000", os.Getenv("NETGAUGE_TEST_ADDRESS"))
			require.Equal(t, test.expectedDebug, logger.DebugMode)
		})
	}
}
