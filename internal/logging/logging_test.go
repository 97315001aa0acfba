package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "debug", "json")
	require.NoError(t, err)
	require.Equal(t, zerolog.DebugLevel, log.GetLevel())

	log.Debug().Str("class", "Main").Msg("loaded class")
	log.Trace().Msg("dropped")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "debug", entry["level"])
	require.Equal(t, "Main", entry["class"])
	require.Equal(t, "loaded class", entry["message"])
	require.Contains(t, entry, "time")
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "", "console")
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, log.GetLevel())

	log.Info().Msg("hidden")
	log.Warn().Str("requested", "Alias").Msg("class file declares a different name")

	out := buf.String()
	require.NotContains(t, out, "hidden")
	require.Contains(t, out, "WRN")
	require.Contains(t, out, "class file declares a different name")
	require.Contains(t, out, "requested=Alias")
	require.NotContains(t, out, "\x1b[", "a buffer is not a terminal")
}

func TestNewErrors(t *testing.T) {
	var buf bytes.Buffer
	_, err := New(&buf, "loud", "json")
	require.ErrorContains(t, err, "invalid log level")

	_, err = New(&buf, "info", "xml")
	require.ErrorContains(t, err, "invalid log format")
}

func TestIsTerminal(t *testing.T) {
	require.False(t, IsTerminal(&bytes.Buffer{}))
}
