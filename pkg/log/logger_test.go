package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func decodeRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))
		records = append(records, record)
	}
	return records
}

func TestLogger(t *testing.T) {
	t.Run("filter level", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerWithWriter("info", nil, &buf)
		require.NoError(t, err)

		logger.Debug("foo")
		logger.Info("bar", zap.String("node-id", "n1"))

		records := decodeRecords(t, &buf)
		require.Equal(t, 1, len(records))
		assert.Equal(t, "bar", records[0]["msg"])
		assert.Equal(t, "n1", records[0]["node-id"])
		assert.Equal(t, "main", records[0]["subsystem"])
	})

	t.Run("enabled subsystem", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerWithWriter("error", []string{"gossip"}, &buf)
		require.NoError(t, err)

		logger.WithSubsystem("gossip").Debug("foo")
		logger.WithSubsystem("node").Debug("bar")

		records := decodeRecords(t, &buf)
		require.Equal(t, 1, len(records))
		assert.Equal(t, "foo", records[0]["msg"])
		assert.Equal(t, "gossip", records[0]["subsystem"])
	})

	t.Run("enabled parent subsystem", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := NewLoggerWithWriter("error", []string{"app"}, &buf)
		require.NoError(t, err)

		logger.WithSubsystem("app.kafka").Debug("foo")
		logger.WithSubsystem("application").Debug("bar")

		records := decodeRecords(t, &buf)
		require.Equal(t, 1, len(records))
		assert.Equal(t, "app.kafka", records[0]["subsystem"])
	})

	t.Run("unsupported level", func(t *testing.T) {
		_, err := NewLoggerWithWriter("trace", nil, &bytes.Buffer{})
		assert.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	conf := Config{}
	assert.Error(t, conf.Validate())

	conf.Level = "warn"
	assert.NoError(t, conf.Validate())

	conf.Level = "verbose"
	assert.Error(t, conf.Validate())
}
