// Package storage resolves where voiceguard keeps configuration, session
// history and case corpora, following XDG conventions where they apply.
package storage

import (
	"os"
	"path/filepath"
	"sync"
)

const AppName = "voiceguard"

// Dirs holds the per-user directories.
type Dirs struct {
	Config string // settings
	Data   string // session database, case corpus
	Cache  string // regenerable data
	State  string // logs
}

// ProjectDirs holds the directories of a working-directory override.
type ProjectDirs struct {
	Root   string // .voiceguard/
	Config string // .voiceguard/config.yaml (committed)
	Local  string // .voiceguard/local/ (gitignored)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
	globalDirsErr  error
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() (*Dirs, error) {
	globalDirsOnce.Do(func() {
		globalDirs, globalDirsErr = resolveDirsImpl()
	})
	return globalDirs, globalDirsErr
}

func resolveDirsImpl() (*Dirs, error) {
	return &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
		Data:   resolveDir("XDG_DATA_HOME", platformDataDefault()),
		Cache:  resolveDir("XDG_CACHE_HOME", platformCacheDefault()),
		State:  resolveDir("XDG_STATE_HOME", platformStateDefault()),
	}, nil
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return fallback
}

// ResolveProjectDirs returns project-local directories for the given root.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, "."+AppName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
		Local:  filepath.Join(root, "local"),
	}
}

// EnsureDir creates path with perm (0700 when zero).
func EnsureDir(path string, perm os.FileMode) error {
	if perm == 0 {
		perm = 0700
	}
	return os.MkdirAll(path, perm)
}

func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

func (d *Dirs) DataDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Data}, subpath...)...)
}

func (d *Dirs) StateDir(subpath ...string) string {
	return filepath.Join(append([]string{d.State}, subpath...)...)
}

// SessionDB is the default path of the session history database.
func (d *Dirs) SessionDB() string {
	return d.DataDir("sessions.db")
}

// CorpusDir is the default directory of YAML case files.
func (d *Dirs) CorpusDir() string {
	return d.DataDir("corpus")
}

func (d *Dirs) LogDir() string {
	return d.StateDir("logs")
}

// EnsureAll creates every directory the CLI writes to.
func (d *Dirs) EnsureAll() error {
	if err := EnsureDir(d.Config, 0700); err != nil {
		return err
	}
	for _, dir := range []string{d.Data, d.CorpusDir(), d.Cache, d.State, d.LogDir()} {
		if err := EnsureDir(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
