package util

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	DiscardLogger
	debug []string
	warn  []string
}

func (r *recordingLogger) Debugf(format string, a ...any) {
	r.debug = append(r.debug, fmt.Sprintf(format, a...))
}

func (r *recordingLogger) Warnf(format string, a ...any) {
	r.warn = append(r.warn, fmt.Sprintf(format, a...))
}

func withLogger(t *testing.T, l Logger) {
	previous := current()
	SetLogger(l)
	t.Cleanup(func() { SetLogger(previous) })
}

func TestSetLogger_Nil(t *testing.T) {
	require.Panics(t, func() { SetLogger(nil) })
}

func TestGlobalHelpersUseLogger(t *testing.T) {
	logger := &recordingLogger{}
	withLogger(t, logger)

	Debugf("stream %s", "opened")
	Warnf("closing took %dms", 15)
	Infof("ignored")

	require.Equal(t, []string{"stream opened"}, logger.debug)
	require.Equal(t, []string{"closing took 15ms"}, logger.warn)
}

func TestErrorfReturnsError(t *testing.T) {
	withLogger(t, defaultLogger{})
	err := Errorf("bad frame %q", "put")
	require.EqualError(t, err, `bad frame "put"`)
}

func TestDiscardLoggerErrorfIsSilent(t *testing.T) {
	withLogger(t, DiscardLogger{})
	require.NoError(t, Errorf("bad frame %q", "put"))
}

func TestStreamLogger(t *testing.T) {
	logger := &recordingLogger{}
	withLogger(t, logger)

	s := StreamLogger{Prefix: "SSE - "}
	s.Println("Reconnecting", 3)
	s.Printf("Error: %v", "EOF")

	require.Equal(t, []string{"SSE - Reconnecting 3", "SSE - Error: EOF"}, logger.debug)
}
