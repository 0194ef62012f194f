package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWriterLevels(t *testing.T) {
	var quiet, loud bytes.Buffer

	SetLogger(NewWriter(&quiet, false))
	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warning", "file", "a.dash")

	SetLogger(NewWriter(&loud, true))
	Debug("shown debug", "sections", 3)

	assert.NotContains(t, quiet.String(), "hidden")
	assert.Contains(t, quiet.String(), "shown warning")
	assert.Contains(t, quiet.String(), "file=a.dash")
	assert.Contains(t, loud.String(), "sections=3")
}
