package logger

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLoggerNil(t *testing.T) {
	logger := GetLogger()
	require.NotNil(t, logger, "logger cannot be nil")

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			l := GetLogger()
			require.NotNil(t, l, "logger cannot be nil")
			l.Info().Int("thread index", i).Send()
			wg.Done()
		}(i)
	}
	wg.Wait()
}

func TestLevel(t *testing.T) {
	tests := []struct {
		name      string
		logLevel  string
		appEnv    string
		debugMode bool
		expected  zerolog.Level
	}{
		{name: "Unset", expected: zerolog.InfoLevel},
		{name: "Warn", logLevel: "2", expected: zerolog.WarnLevel},
		{name: "Trace", logLevel: "-1", expected: zerolog.TraceLevel},
		{name: "Not A Number", logLevel: "loud", expected: zerolog.InfoLevel},
		{name: "Out Of Range", logLevel: "9", expected: zerolog.InfoLevel},
		{name: "Dev Environment", logLevel: "3", appEnv: "dev", expected: zerolog.DebugLevel},
		{name: "Debug Flag", logLevel: "3", debugMode: true, expected: zerolog.DebugLevel},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", test.logLevel)
			t.Setenv("APP_ENV", test.appEnv)
			DebugMode = test.debugMode
			t.Cleanup(func() { DebugMode = false })

			require.Equal(t, test.expected, Level(zerolog.New(io.Discard)))
		})
	}
}

func TestLevelWriterAdapter(t *testing.T) {
	var buf bytes.Buffer
	lw := LevelWriterAdapter{Level: zerolog.WarnLevel, LevelWriterAdapter: zerolog.LevelWriterAdapter{Writer: &buf}}

	n, err := lw.WriteLevel(zerolog.InfoLevel, []byte("dropped"))
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = lw.WriteLevel(zerolog.ErrorLevel, []byte("kept"))
	require.NoError(t, err)
	require.Equal(t, "kept", buf.String())
}
