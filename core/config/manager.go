package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/adalundhe/voiceguard/core/storage"
	"gopkg.in/yaml.v3"
)

// Manager loads the layered configuration and publishes it atomically.
type Manager struct {
	config      atomic.Pointer[Config]
	dirs        *storage.Dirs
	projectRoot string
	watchers    []func(*Config)
	watcherMu   sync.RWMutex
}

func NewManager(dirs *storage.Dirs) *Manager {
	m := &Manager{dirs: dirs, projectRoot: "."}
	m.config.Store(DefaultConfig())
	return m
}

// WithProjectRoot sets the directory searched for .voiceguard/.
func (m *Manager) WithProjectRoot(root string) *Manager {
	m.projectRoot = root
	return m
}

func (m *Manager) Get() *Config {
	return m.config.Load()
}

// Load applies, in order: defaults, the project file, the user file, the
// project-local file and VG_* environment variables. Later layers win
// field by field.
func (m *Manager) Load() error {
	cfg := DefaultConfig()
	project := storage.ResolveProjectDirs(m.projectRoot)

	layers := []struct {
		name string
		path string
	}{
		{"project config", project.Config},
		{"user config", m.dirs.ConfigDir("config.yaml")},
		{"local config", filepath.Join(project.Local, "config.yaml")},
	}
	for _, layer := range layers {
		if err := m.mergeYAMLFile(layer.path, cfg); err != nil {
			return fmt.Errorf("%s: %w", layer.name, err)
		}
	}

	if err := applyEnvironment(cfg); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	m.resolvePaths(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

func (m *Manager) mergeYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var layer Config
	if err := yaml.Unmarshal(data, &layer); err != nil {
		return err
	}
	DeepMerge(cfg, &layer)
	return nil
}

func (m *Manager) resolvePaths(cfg *Config) {
	if cfg.Session.DBPath == "" {
		cfg.Session.DBPath = m.dirs.SessionDB()
	}
	if cfg.Retrieval.Backend == RetrievalBackendBleve && cfg.Retrieval.CorpusDir == "" {
		cfg.Retrieval.CorpusDir = m.dirs.CorpusDir()
	}
}

func applyEnvironment(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v := os.Getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("VG_LLM_PROVIDER", &cfg.LLM.Provider)
	str("VG_LLM_MODEL", &cfg.LLM.Model)
	str("VG_LLM_BASE_URL", &cfg.LLM.BaseURL)
	str("VG_RETRIEVAL_BACKEND", &cfg.Retrieval.Backend)
	str("VG_RETRIEVAL_CORPUS_DIR", &cfg.Retrieval.CorpusDir)
	str("VG_SESSION_DB_PATH", &cfg.Session.DBPath)
	str("VG_LOG_LEVEL", &cfg.Log.Level)
	str("VG_LOG_FORMAT", &cfg.Log.Format)

	if v := os.Getenv("VG_LLM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("VG_LLM_TIMEOUT: %w", err)
		}
		cfg.LLM.Timeout = d
	}
	if v := os.Getenv("VG_RETRIEVAL_WATCH"); v != "" {
		cfg.Retrieval.Watch = strings.EqualFold(v, "true") || v == "1"
	}

	for key, dst := range map[string]*int{
		"VG_LLM_MAX_RETRIES":    &cfg.LLM.MaxRetries,
		"VG_WORKFLOW_MAX_TURNS": &cfg.Workflow.MaxTurns,
		"VG_RETRIEVAL_TOP_K":    &cfg.Retrieval.TopK,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// OnChange registers fn to run after every successful Load.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}
