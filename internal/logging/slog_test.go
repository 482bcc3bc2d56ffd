package logging

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// captureStdout points the stdout fallback at a pipe and returns a function
// that restores it and returns what was written.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		_ = w.Close()
		osStdout = orig
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(r)
		_ = r.Close()
		return buf.String()
	}
}

// recordingExporter keeps every OTel log record it receives.
type recordingExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *recordingExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *recordingExporter) Shutdown(context.Context) error   { return nil }
func (e *recordingExporter) ForceFlush(context.Context) error { return nil }

// scopeOf returns the instrumentation scope of the first record with body msg.
func (e *recordingExporter) scopeOf(msg string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.records {
		if r.Body().AsString() == msg {
			return r.InstrumentationScope().Name, true
		}
	}
	return "", false
}

// jsonLines decodes one JSON object per line.
func jsonLines(t *testing.T, data string) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec), sc.Text())
		out = append(out, rec)
	}
	return out
}

// lineWith returns the first output line containing msg.
func lineWith(out, msg string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, msg) {
			return l
		}
	}
	return ""
}

func TestSetup_FileOnly(t *testing.T) {
	restore := captureStdout(t)

	var file bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil)
	m.Logger().Info("engine started", "car", "car-1")

	stdout := restore()
	assert.Contains(t, file.String(), "Logging initialized")
	assert.Contains(t, lineWith(file.String(), "engine started"), "car=car-1")
	assert.Empty(t, stdout)
}

func TestSetup_NilFileFallsBackToStdout(t *testing.T) {
	restore := captureStdout(t)

	m := NewSlogManager()
	m.Setup(nil, "info", nil)
	m.Logger().Info("no log file yet")

	assert.Contains(t, restore(), "no log file yet")
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
	}{
		{"debug", true},
		{"info", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, tt.level, nil)
			m.Logger().Debug("clutch step")
			m.Logger().Info("gear shifted")

			assert.Equal(t, tt.wantDebug, strings.Contains(buf.String(), "clutch step"))
			assert.Contains(t, buf.String(), "gear shifted")
		})
	}
}

func TestSetup_WithGraylogEmitsJSON(t *testing.T) {
	var file, gelf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&file, "info", nil, WithGraylog(&gelf))
	m.Logger().Warn("engine stalled", "car", "car-1", "tick", 12)

	var found map[string]any
	for _, rec := range jsonLines(t, gelf.String()) {
		if rec["msg"] == "engine stalled" {
			found = rec
		}
	}
	require.NotNil(t, found, "graylog output: %s", gelf.String())
	assert.Equal(t, "WARN", found["level"])
	assert.Equal(t, "car-1", found["car"])
	assert.Equal(t, 12.0, found["tick"])

	ts, ok := found["time"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339, ts)
	require.NoError(t, err)
	assert.Equal(t, time.UTC, parsed.Location())

	// The file output stays text.
	assert.Contains(t, lineWith(file.String(), "engine stalled"), "car=car-1")
	assert.NotContains(t, file.String(), `"msg"`)
}

func TestSetup_WithContextInjectsCarCount(t *testing.T) {
	var mu sync.Mutex
	cars := 2
	provider := func() []slog.Attr {
		mu.Lock()
		defer mu.Unlock()
		return []slog.Attr{slog.Int("cars", cars)}
	}

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", nil, WithContext(provider))

	m.Logger().Info("tick loop running")
	assert.Contains(t, lineWith(buf.String(), "tick loop running"), "cars=2")

	mu.Lock()
	cars = 3
	mu.Unlock()
	m.Logger().Info("car added")
	assert.Contains(t, lineWith(buf.String(), "car added"), "cars=3")

	m.Logger().Info("explicit count", "cars", 7)
	line := lineWith(buf.String(), "explicit count")
	assert.Contains(t, line, "cars=7")
	assert.Equal(t, 1, strings.Count(line, "cars="))
}

func TestSetup_WithServiceNameReachesOTelBridge(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(&buf, "info", provider, WithServiceName("drivetrain-test"))
	m.Logger().Info("shift applied")
	require.NoError(t, m.Flush(context.Background()))

	scope, ok := exp.scopeOf("shift applied")
	require.True(t, ok)
	assert.Equal(t, "drivetrain-test", scope)
	assert.Contains(t, buf.String(), "shift applied")
}

func TestSetup_OTelBridgeDefaultScope(t *testing.T) {
	exp := &recordingExporter{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(sdklog.NewSimpleProcessor(exp)))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m := NewSlogManager()
	m.Setup(&bytes.Buffer{}, "info", provider)
	m.Logger().Info("handbrake released")

	scope, ok := exp.scopeOf("handbrake released")
	require.True(t, ok)
	assert.Equal(t, DefaultServiceName, scope)
}

func TestSetup_ReplacesLogger(t *testing.T) {
	var first, second bytes.Buffer
	m := NewSlogManager()

	m.Setup(&first, "info", nil)
	m.Setup(&second, "info", nil)
	m.Logger().Info("after reload")

	assert.NotContains(t, first.String(), "after reload")
	assert.Contains(t, second.String(), "after reload")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	assert.Equal(t, slog.Default(), NewSlogManager().Logger())
}

func TestFlush(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))

	m.Setup(&bytes.Buffer{}, "info", sdklog.NewLoggerProvider())
	assert.NoError(t, m.Flush(context.Background()))
}

func TestWriteLog(t *testing.T) {
	tests := []struct {
		level string
		want  string
	}{
		{"debug", "level=DEBUG"},
		{"INFO", "level=INFO"},
		{"warn", "level=WARN"},
		{"error", "level=ERROR"},
		{"loud", "level=INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			m := NewSlogManager()
			m.Setup(&buf, "debug", nil)

			m.WriteLog("lap-script", "lap "+tt.level, tt.level)

			line := lineWith(buf.String(), "lap "+tt.level)
			assert.Contains(t, line, tt.want)
			assert.Contains(t, line, "source=lap-script")
		})
	}
}

func TestWriteLog_BeforeSetup(t *testing.T) {
	NewSlogManager().WriteLog("lap-script", "ignored", "info")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelError, parseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
