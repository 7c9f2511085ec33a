package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Production, &buf)

	l.Debug().Msg("hidden")
	l.Info().Str("resource", "santa-maria").Msg("availability updated")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "santa-maria", entry["resource"])
	assert.Equal(t, "availability updated", entry["message"])
	assert.NotContains(t, buf.String(), "hidden")
}

func TestNew_DevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New(Development, &buf)
	l.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestComponent(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = New(Production, &buf)

	l := Component("importer")
	l.Info().Msg("import completed")
	assert.Contains(t, buf.String(), `"component":"importer"`)
}
