package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/logging"
)

func TestNew_Formats(t *testing.T) {
	var text, js bytes.Buffer

	logging.New(config.LoggingConfig{Level: "info", Format: "text"}, &text).Info("hello", "module", "a")
	assert.Contains(t, text.String(), "msg=hello")
	assert.Contains(t, text.String(), "module=a")

	logging.New(config.LoggingConfig{Level: "info", Format: "json"}, &js).Info("hello", "module", "a")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(js.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "a", rec["module"])
}

func TestFollow_ChangesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	next := &config.Root{Logging: config.LoggingConfig{Level: "debug"}}
	events := make(chan config.Event, 2)
	events <- config.Event{ChangedKeys: []string{"Admin.Token"}, NewConfig: &config.Root{}}
	events <- config.Event{ChangedKeys: []string{"Logging", "Logging.Level"}, NewConfig: next}
	close(events)
	logging.Follow(events, logger)

	logger.Debug("visible")
	assert.Contains(t, buf.String(), "visible")

	logging.SetLevel("bogus")
	logger.Debug("still visible")
	assert.Contains(t, buf.String(), "still visible")
	logging.SetLevel("info")
}
