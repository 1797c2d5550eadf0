package logger

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWithFieldAndError(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{logger: zerolog.New(&buf)}

	l.WithField("source", "vendora").WithError(errors.New("boom")).Info().Msg("extracted")

	out := buf.String()
	assert.Contains(t, out, `"source":"vendora"`)
	assert.Contains(t, out, `"error":"boom"`)
	assert.Contains(t, out, "extracted")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{logger: zerolog.New(&buf)}

	l.WithFields(Fields{"component": "renderer", "renderer": "static"}).Warn().Msg("partial load")

	out := buf.String()
	assert.Contains(t, out, `"component":"renderer"`)
	assert.Contains(t, out, `"renderer":"static"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestForSourceInitializesDefault(t *testing.T) {
	Default = nil
	l := ForSource("skroutz")
	assert.NotNil(t, l)
	assert.NotNil(t, Default)
}
