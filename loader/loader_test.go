package loader

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xschemadev/gerrit-dash/parser"
)

const validDash = "[dashboard]\ntitle = T\nforeach = status:open\n"

func writeFiles(t *testing.T, fs afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
}

func TestLoadDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/dashboards/a.dash":        validDash,
		"/dashboards/b.dash":        validDash,
		"/dashboards/nested/c.dash": validDash,
		"/dashboards/README.md":     "# not a dashboard",
		"/dashboards/d.dash.bak":    "[broken",
	})

	dashboards, err := New(fs).Load(context.Background(), []string{"/dashboards"})
	require.NoError(t, err)
	require.Len(t, dashboards, 3)

	var paths []string
	for _, d := range dashboards {
		paths = append(paths, d.Path)
		assert.NotNil(t, d.Definition)
		assert.Equal(t, d.Path, d.Definition.Path())
	}
	assert.ElementsMatch(t, []string{"/dashboards/a.dash", "/dashboards/b.dash", "/dashboards/nested/c.dash"}, paths)
}

func TestResolveMixedPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/dir/one.dash":   validDash,
		"/dir/two.txt":    "ignored",
		"/single.ini":     validDash,
		"/other/x.custom": validDash,
	})

	files, err := New(fs).Resolve([]string{"/single.ini", "/dir", "/missing.dash"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/single.ini", "/dir/one.dash", "/missing.dash"}, files)

	files, err = New(fs, WithSuffix(".custom")).Resolve([]string{"/other"})
	require.NoError(t, err)
	assert.Equal(t, []string{"/other/x.custom"}, files)
}

func TestLoadFileErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/bad.dash": "[dashboard\n",
	})
	require.NoError(t, fs.MkdirAll("/adir", 0755))

	l := New(fs)

	_, err := l.LoadFile("/missing.dash")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadable))
	assert.Contains(t, err.Error(), "/missing.dash")

	_, err = l.LoadFile("/adir")
	assert.True(t, errors.Is(err, ErrUnreadable))

	_, err = l.LoadFile("/bad.dash")
	var perr *parser.ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "/bad.dash", perr.Path)
}

func TestLoadAllOrNothing(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{
		"/set/a.dash": validDash,
		"/set/b.dash": "[dashboard]\ntitle = x\ntitle = y\n",
		"/set/c.dash": validDash,
	})

	dashboards, err := New(fs).Load(context.Background(), []string{"/set"})
	require.Error(t, err)
	assert.Nil(t, dashboards)
	assert.Contains(t, err.Error(), "/set/b.dash")
}

func TestLoadCanceled(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFiles(t, fs, map[string]string{"/a.dash": validDash})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fs).Load(ctx, []string{"/a.dash"})
	assert.ErrorIs(t, err, context.Canceled)
}
