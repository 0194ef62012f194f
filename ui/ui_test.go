package ui

import (
	"bytes"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })
	return &buf
}

func TestMessages(t *testing.T) {
	buf := captureOutput(t)

	Step(1, 2, "Loading")
	Detail("3 files")
	SuccessMsg("done")
	WarnMsg("careful")
	ErrorMsg("failed", errors.New("boom"), "check the file")

	out := buf.String()
	assert.Contains(t, out, "[1/2] Loading")
	assert.Contains(t, out, "→ 3 files")
	assert.Contains(t, out, "✓ done")
	assert.Contains(t, out, "! careful")
	assert.Contains(t, out, "✗ failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "Hint: check the file")
}

func TestVerbosef(t *testing.T) {
	buf := captureOutput(t)
	t.Cleanup(func() { SetVerbose(false) })

	SetVerbose(false)
	Verbosef("hidden %d", 1)
	SetVerbose(true)
	Verbosef("shown %d", 2)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown 2")
}

func TestRunWithSpinnerWithoutTTY(t *testing.T) {
	buf := captureOutput(t)

	ran := false
	err := RunWithSpinner("Fetching bugs...", func() error {
		ran = true
		return errors.New("tracker down")
	})

	require.Error(t, err)
	assert.True(t, ran)
	assert.Contains(t, buf.String(), "Fetching bugs...")
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "234ms", FormatDuration(234*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "1 file", Plural(1, "file", "files"))
	assert.Equal(t, "0 files", Plural(0, "file", "files"))
}
