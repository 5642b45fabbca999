package extload_test

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/idio/cond"
	"github.com/jcorbin/idio/extload"
)

type stubModule struct{ closed bool }

func (m *stubModule) Close() error { m.closed = true; return nil }

func stubOpener(calls *[]string) extload.NativeOpener {
	return func(path, sym string) (extload.NativeModule, error) {
		*calls = append(*calls, path+"#"+sym)
		return &stubModule{}, nil
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// TestSearchPathPrefersEarlierDirectory exercises the search-path property
// named in spec.md §8: given IDIOLIB "A:B", a module present under both
// resolves to the one under A.
func TestSearchPathPrefersEarlierDirectory(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writeFile(t, filepath.Join(a, "m.idio"), ";; from A\n")
	writeFile(t, filepath.Join(b, "m.idio"), ";; from B\n")

	l := extload.New(a+":"+b, t.TempDir(), nil)
	loc, err := l.Find("m", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(a, "m.idio"), loc.Path)
}

func TestSearchPathFallsBackToDefault(t *testing.T) {
	a := t.TempDir()
	def := t.TempDir()
	writeFile(t, filepath.Join(def, "m.idio"), ";; default\n")

	l := extload.New(a, def, nil)
	loc, err := l.Find("m", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(def, "m.idio"), loc.Path)
}

func TestFindMissingModuleReturnsNoSuchFile(t *testing.T) {
	l := extload.New(t.TempDir(), t.TempDir(), nil)
	_, err := l.Find("nope", false)
	assert.ErrorIs(t, err, extload.ErrNoSuchFile)

	var c *cond.Condition
	require.True(t, errors.As(err, &c), "callers should be able to pattern-match the failure's Kind")
	assert.Equal(t, cond.IONoSuchFile, c.K)
}

func TestFindAbsolutePathSkipsSearch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "abs.idio")
	writeFile(t, path, ";; abs\n")

	l := extload.New("", t.TempDir(), nil)
	loc, err := l.Find(path, false)
	require.NoError(t, err)
	assert.Equal(t, path, loc.Path)
}

func TestFindAbsolutePathTooLongIsFilenameError(t *testing.T) {
	l := extload.New("", "", nil)
	long := "/" + strings.Repeat("a", extload.PathMax+10)
	_, err := l.Find(long, false)
	assert.ErrorIs(t, err, extload.ErrFilenameError)
}

func TestFindNativeModuleUsesLatestFile(t *testing.T) {
	root := t.TempDir()
	arch := runtime.GOARCH
	modDir := filepath.Join(root, "mymod", "1.0")
	require.NoError(t, os.MkdirAll(filepath.Join(modDir, arch), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modDir, arch, "libmymod.so"), []byte{}, 0644))
	writeFile(t, filepath.Join(root, "mymod", "latest"), "mymod@1.0\n")

	l := extload.New(root, "", nil)
	loc, err := l.Find("mymod", true)
	require.NoError(t, err)
	assert.Equal(t, extload.KindNative, loc.Kind)
	assert.Equal(t, "1.0", loc.Version)
}

func TestFindNativeModuleMalformedLatestIsDynamicLoadError(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mymod", "latest"), "not-a-version-line\n")

	l := extload.New(root, "", nil)
	_, err := l.Find("mymod", true)
	assert.ErrorIs(t, err, extload.ErrDynamicLoad)
}

func TestLoadNativeInvokesOpenerWithSanitizedSymbol(t *testing.T) {
	root := t.TempDir()
	arch := runtime.GOARCH
	modDir := filepath.Join(root, "my-mod", "2.0")
	require.NoError(t, os.MkdirAll(filepath.Join(modDir, arch), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modDir, arch, "libmy-mod.so"), []byte{}, 0644))
	writeFile(t, filepath.Join(root, "my-mod", "latest"), "my-mod@2.0\n")

	var calls []string
	l := extload.New(root, "", stubOpener(&calls))
	loc, err := l.Load("my-mod", true)
	require.NoError(t, err)
	assert.Equal(t, "2.0", loc.Version)
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "idio_init_my_mod")
}

func TestLoadNativeDuplicateIsRejected(t *testing.T) {
	root := t.TempDir()
	arch := runtime.GOARCH
	modDir := filepath.Join(root, "dupmod", "1.0")
	require.NoError(t, os.MkdirAll(filepath.Join(modDir, arch), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modDir, arch, "libdupmod.so"), []byte{}, 0644))
	writeFile(t, filepath.Join(root, "dupmod", "latest"), "dupmod@1.0\n")

	var calls []string
	l := extload.New(root, "", stubOpener(&calls))
	_, err := l.Load("dupmod", true)
	require.NoError(t, err)

	_, err = l.Load("dupmod", true)
	assert.True(t, errors.Is(err, extload.ErrDuplicateLoad))
}

func TestLoadNativeFindsSiblingSourceFile(t *testing.T) {
	root := t.TempDir()
	arch := runtime.GOARCH
	modDir := filepath.Join(root, "withsrc", "1.0")
	require.NoError(t, os.MkdirAll(filepath.Join(modDir, arch), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(modDir, arch, "libwithsrc.so"), []byte{}, 0644))
	writeFile(t, filepath.Join(modDir, "withsrc.idio"), ";; sibling\n")
	writeFile(t, filepath.Join(root, "withsrc", "latest"), "withsrc@1.0\n")

	var calls []string
	l := extload.New(root, "", stubOpener(&calls))
	loc, err := l.Load("withsrc", true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(modDir, "withsrc.idio"), loc.Sibling)
}
