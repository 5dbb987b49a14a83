package observability

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ayusman/mudra/internal/config"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func initialize(t *testing.T, cfg config.LoggerConfig) *syncBuffer {
	t.Helper()
	ResetForTest()
	t.Cleanup(ResetForTest)
	buf := &syncBuffer{}
	Initialize(cfg, buf)
	return buf
}

func TestInitialize_Console(t *testing.T) {
	buf := initialize(t, config.LoggerConfig{
		Level:       "debug",
		Format:      "console",
		ServiceName: "mudra",
		Colors:      config.ColorConfig{Info: "green"},
	})

	GetLogger().Named("tracker").Info("Camera opened")
	Sync()

	out := buf.String()
	assert.Contains(t, out, colorGreen+"INFO"+colorReset)
	assert.Contains(t, out, "mudra.tracker.")
	assert.Contains(t, out, "Camera opened")
}

func TestInitialize_JSON(t *testing.T) {
	buf := initialize(t, config.LoggerConfig{Level: "info", Format: "json", ServiceName: "mudra"})

	GetLogger().Info("Mode changed", zap.String("mode", "active"))
	Sync()

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "mudra", entry["logger"])
	assert.Equal(t, "Mode changed", entry["msg"])
	assert.Equal(t, "active", entry["mode"])
}

func TestInitialize_LevelFiltering(t *testing.T) {
	buf := initialize(t, config.LoggerConfig{Level: "warn", Format: "json"})

	GetLogger().Info("hidden")
	GetLogger().Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	require.NoError(t, SetLevel("debug"))
	GetLogger().Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")

	assert.Error(t, SetLevel("loud"))
}

func TestInitialize_InvalidLevelFallsBackToInfo(t *testing.T) {
	buf := initialize(t, config.LoggerConfig{Level: "chatty", Format: "json"})

	GetLogger().Debug("debug line")
	GetLogger().Info("info line")
	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}

func TestInitialize_OnlyOnce(t *testing.T) {
	first := initialize(t, config.LoggerConfig{Level: "info", Format: "json"})
	second := &syncBuffer{}
	Initialize(config.LoggerConfig{Level: "info", Format: "json"}, second)

	GetLogger().Info("once")
	assert.Contains(t, first.String(), "once")
	assert.Empty(t, second.String())
}

func TestInitialize_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mudra.log")
	initialize(t, config.LoggerConfig{Level: "info", Format: "console", LogFile: path, MaxSize: 1})

	GetLogger().Info("to file")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestGetLogger_Fallback(t *testing.T) {
	ResetForTest()
	t.Cleanup(ResetForTest)
	assert.NotNil(t, GetLogger())
}

func TestColorizedLevelEncoder_UnknownColor(t *testing.T) {
	enc := &stringArray{}
	colorizedLevelEncoder(config.ColorConfig{Warn: "mauve"})(zapcore.WarnLevel, enc)
	assert.Equal(t, []string{"WARN"}, enc.items)
}
