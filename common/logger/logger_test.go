package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() {
		SetOutput(nil)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelWarn)

	Debugf("hidden %d", 1)
	Infof("hidden %d", 2)
	Warnf("shown %d", 3)
	Errorf("shown %d", 4)

	got := buf.String()
	assert.NotContains(t, got, "hidden")
	assert.Contains(t, got, "[WARN] shown 3")
	assert.Contains(t, got, "[ERROR] shown 4")
}

func TestDebugShownAtDebugLevel(t *testing.T) {
	buf := capture(t)
	SetLevel(LevelDebug)

	Debugf("visible")
	assert.Contains(t, buf.String(), "[DEBUG] visible")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "input %q", tt.in)
	}
}

func TestConcurrentLevelChangesAndLogging(t *testing.T) {
	buf := capture(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				SetLevel(LevelDebug)
				SetLevel(LevelInfo)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Infof("line %d", j)
				Debugf("line %d", j)
			}
		}()
	}
	wg.Wait()

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		assert.Regexp(t, `^\[(DEBUG|INFO)\] line \d+$`, line, "lines must never interleave")
	}
}
