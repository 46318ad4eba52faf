package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONAtInfo(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&buf, false)

	log.Debug().Msg("hidden")
	require.Zero(t, buf.Len())

	log.Info().Str("user_id", "anyone").Msg("authenticated")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "authenticated", line["message"])
	require.Equal(t, "anyone", line["user_id"])
	require.Contains(t, line, zerolog.TimestampFieldName)
}

func TestSetup_DebugConsole(t *testing.T) {
	var buf bytes.Buffer
	log := setup(&buf, true)

	log.Debug().Msg("visible")
	require.Contains(t, buf.String(), "visible")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}
