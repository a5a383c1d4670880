package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(Config{Level: "debug", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	log.Debug().Str("route", "/cart").Msg("issuing request")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "debug", line["level"])
	assert.Equal(t, "/cart", line["route"])
	assert.Equal(t, "issuing request", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(Config{Level: "warn", Format: FormatJSON, Output: &buf})
	require.NoError(t, err)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewConsoleLogger(t *testing.T) {
	var buf bytes.Buffer

	log, err := New(Config{Format: FormatConsole, Output: &buf})
	require.NoError(t, err)

	log.Info().Msg("hello")
	assert.Contains(t, buf.String(), "hello")
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    zerolog.Level
		wantErr bool
	}{
		{name: "", want: zerolog.InfoLevel},
		{name: "debug", want: zerolog.DebugLevel},
		{name: " WARN ", want: zerolog.WarnLevel},
		{name: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
