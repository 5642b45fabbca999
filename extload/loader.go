// Package extload implements the extension loader and library search
// algorithm of spec.md §4.8: resolving a requested library name to one of
// several on-disk forms and loading its native module through a pluggable
// dlopen/dlsym seam. Evaluating the source file, or a native module's
// sibling source file, is left to the caller.
package extload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/jcorbin/idio/cond"
)

// PathMax mirrors POSIX PATH_MAX; used to bound probed path lengths exactly
// as spec.md §4.8 requires ("PATH_MAX overruns -> filename-error").
const PathMax = 4096

// ErrNoSuchFile/ErrFilenameError/ErrDynamicLoad/ErrDuplicateLoad are
// *cond.Condition sentinels carrying the matching Kind (spec.md §4.8's
// failure list), so callers can pattern-match on Kind or read
// Message/Location/Detail/Irritants instead of just comparing errors.
var (
	ErrNoSuchFile    = cond.New(cond.IONoSuchFile, "no such library file")
	ErrFilenameError = cond.New(cond.IOFilenameError, "malformed library path")
	ErrDynamicLoad   = cond.New(cond.DynamicLoadError, "dynamic load failed")
	ErrDuplicateLoad = cond.New(cond.DynamicLoadError, "module already loaded")
)

// Kind distinguishes the two on-disk forms a Location can name.
type Kind int

const (
	KindSource Kind = iota // .idio source, read+evaluate only
	KindNative             // .so native module, dlopen+idio_init_<mod>, then sibling .idio
)

// Location is the resolved result of a Find call.
type Location struct {
	Kind    Kind
	Path    string // .idio source path, or the .so path for KindNative
	Sibling string // KindNative only: the module's own M.idio, if present
	Module  string
	Version string
}

// NativeModule is the live handle returned by a successful native open,
// abstracting dlopen's returned handle for later dlclose.
type NativeModule interface {
	Close() error
}

// NativeOpener abstracts the real dlopen/dlsym syscalls (out of scope here:
// platform-specific and would require cgo) behind a seam so Loader's search
// and bookkeeping logic can be exercised without a real shared object.
type NativeOpener func(path, initSymbol string) (NativeModule, error)

// Loader resolves and loads libraries against a search path.
type Loader struct {
	SearchPath []string // parsed IDIOLIB, "" entries mean cwd
	Default    string   // compiled-in fallback directory
	Opener     NativeOpener

	loaded map[string]NativeModule // module name -> handle, for duplicate-load detection
}

// New builds a Loader from an IDIOLIB-style colon-separated path string and
// a compiled-in default directory (spec.md §4.8: "unset or non-string falls
// back to the compiled-in default").
func New(idiolib, defaultDir string, opener NativeOpener) *Loader {
	var path []string
	if idiolib != "" {
		path = strings.Split(idiolib, ":")
	}
	return &Loader{
		SearchPath: path,
		Default:    defaultDir,
		Opener:     opener,
		loaded:     make(map[string]NativeModule),
	}
}

var sanitizeRE = regexp.MustCompile(`[^A-Za-z0-9_]`)

// sanitize maps non-alphanumeric characters in a module name to '_', per
// spec.md §4.8's idio_init_<sanitized-M> symbol-naming rule.
func sanitize(name string) string { return sanitizeRE.ReplaceAllString(name, "_") }

// splitNameVersion splits a requested "M" or "M@V" library name.
func splitNameVersion(name string) (mod, version string) {
	if i := strings.IndexByte(name, '@'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return name, ""
}

var trailingJunkRE = regexp.MustCompile(`[^A-Za-z0-9.]+$`)

// trimVersionJunk strips trailing non-alphanumeric-non-dot characters from a
// version string, per spec.md §4.8.
func trimVersionJunk(v string) string { return trailingJunkRE.ReplaceAllString(v, "") }

// readLatest parses a "D/M/latest" one-line "M@V" file, validating the "@"
// prefix matches M (spec.md §4.8/§4.8 failure list: "a latest file missing
// the @ -> dynamic-load-error").
func readLatest(dir, mod string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, mod, "latest"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoSuchFile
		}
		return "", fmt.Errorf("%w: %v", ErrDynamicLoad, err)
	}
	line := strings.TrimSpace(string(data))
	atName, ver := splitNameVersion(line)
	if ver == "" || atName != mod {
		return "", fmt.Errorf("%w: malformed latest file for %q", ErrDynamicLoad, mod)
	}
	return trimVersionJunk(ver), nil
}

func checkPathLen(p string) error {
	if len(p) > PathMax {
		return fmt.Errorf("%w: %q exceeds PATH_MAX", ErrFilenameError, p)
	}
	return nil
}

// Find resolves name (optionally "M@V") to an on-disk Location. wantNative
// selects the .so probe (step 2) in place of the .idio probe (step 3): a
// native request never falls back to D/M.idio. Source-only requests pass
// false.
func (l *Loader) Find(name string, wantNative bool) (*Location, error) {
	if strings.ContainsRune(name, '/') {
		// Step 1: absolute/relative path, search is skipped entirely.
		if err := checkPathLen(name); err != nil {
			return nil, err
		}
		path := name
		if !strings.HasSuffix(path, ".idio") {
			if _, err := os.Stat(path); err != nil {
				path += ".idio"
			}
		}
		if _, err := os.Stat(path); err != nil {
			return nil, ErrNoSuchFile
		}
		return &Location{Kind: KindSource, Path: path, Module: name}, nil
	}

	mod, version := splitNameVersion(name)

	dirs := append(append([]string{}, l.SearchPath...), l.Default)
	for _, d := range dirs {
		if d == "" {
			d = "."
		}

		if wantNative {
			v := version
			if v == "" {
				lv, err := readLatest(d, mod)
				if err != nil {
					if errors.Is(err, ErrNoSuchFile) {
						continue // no latest file in this directory, try the next
					}
					return nil, err
				}
				v = lv
			}
			soPath := filepath.Join(d, mod, v, runtime.GOARCH, "lib"+mod+".so")
			if err := checkPathLen(soPath); err != nil {
				return nil, err
			}
			if st, err := os.Stat(filepath.Join(d, mod, v)); err == nil && st.IsDir() {
				if _, err := os.Stat(soPath); err == nil {
					loc := &Location{Kind: KindNative, Path: soPath, Module: mod, Version: v}
					sibling := filepath.Join(d, mod, v, mod+".idio")
					if _, err := os.Stat(sibling); err == nil {
						loc.Sibling = sibling
					}
					return loc, nil
				}
			}
			continue
		}

		// Step 3: D/M.idio
		srcPath := filepath.Join(d, mod+".idio")
		if err := checkPathLen(srcPath); err != nil {
			return nil, err
		}
		if _, err := os.Stat(srcPath); err == nil {
			return &Location{Kind: KindSource, Path: srcPath, Module: mod}, nil
		}
	}

	return nil, ErrNoSuchFile
}

// Load finds and, for a native module, dlopen-loads name, invoking
// idio_init_<sanitized-M> through the Loader's NativeOpener. The caller is
// responsible for separately evaluating Location.Path (source) or
// Location.Sibling (native module's companion source) through the external
// reader/evaluator; Load only performs the search and the native open.
func (l *Loader) Load(name string, wantNative bool) (*Location, error) {
	mod, _ := splitNameVersion(name)
	if wantNative {
		if _, dup := l.loaded[mod]; dup {
			return nil, ErrDuplicateLoad
		}
	}

	loc, err := l.Find(name, wantNative)
	if err != nil {
		return nil, err
	}

	if loc.Kind == KindNative {
		if l.Opener == nil {
			return nil, fmt.Errorf("%w: no native opener configured", ErrDynamicLoad)
		}
		sym := "idio_init_" + sanitize(loc.Module)
		nm, err := l.Opener(loc.Path, sym)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDynamicLoad, err)
		}
		l.loaded[mod] = nm
	}

	return loc, nil
}

// Unload closes a previously loaded native module's handle and forgets it,
// so the module can be loaded again. It does nothing for a module that was
// never loaded.
func (l *Loader) Unload(mod string) error {
	nm, ok := l.loaded[mod]
	if !ok {
		return nil
	}
	delete(l.loaded, mod)
	return nm.Close()
}
