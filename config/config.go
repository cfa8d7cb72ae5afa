package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ServerSettings configure the HTTP listener.
type ServerSettings struct {
	ListenAddr string `json:"listenAddr"`
	// PublicBaseURL is the address written into pointer files; the host's
	// player must be able to reach it.
	PublicBaseURL string `json:"publicBaseUrl"`
}

// LibrarySettings configure where and how artifacts are materialized.
type LibrarySettings struct {
	Root            string `json:"root"`
	DatabasePath    string `json:"databasePath"`
	SidecarExt      string `json:"sidecarExt,omitempty"`
	WriteNFO        bool   `json:"writeNfo"`
	IncludeSpecials bool   `json:"includeSpecials"`
	Overwrite       bool   `json:"overwrite"`
}

// CatalogSettings hold the upstream metadata provider credentials.
type CatalogSettings struct {
	TMDBAPIKey string `json:"tmdbApiKey"`
	Language   string `json:"language"`
}

// AddonSettings point at the upstream stream addon.
type AddonSettings struct {
	BaseURL   string `json:"baseUrl"`
	CatalogID string `json:"catalogId,omitempty"`
}

// HostSettings describe the media server whose library we extend.
type HostSettings struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// CacheSettings tune the virtual-title metadata cache.
type CacheSettings struct {
	TTLMinutes int `json:"ttlMinutes"`
}

// ResolverSettings tune request-time orchestration.
type ResolverSettings struct {
	StrictDuplicateCheck bool `json:"strictDuplicateCheck"`
}

// LogSettings configure file logging. An empty File keeps logs on stderr.
type LogSettings struct {
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"maxSizeMb,omitempty"`
	MaxBackups int    `json:"maxBackups,omitempty"`
}

// Settings is the full persisted configuration.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	Library  LibrarySettings  `json:"library"`
	Catalog  CatalogSettings  `json:"catalog"`
	Addon    AddonSettings    `json:"addon"`
	Host     HostSettings     `json:"host"`
	Cache    CacheSettings    `json:"cache"`
	Resolver ResolverSettings `json:"resolver"`
	Log      LogSettings      `json:"log"`
}

// CacheTTL returns the configured TTL as a duration, zero when unset so the
// cache falls back to its own default.
func (s Settings) CacheTTL() time.Duration {
	return time.Duration(s.Cache.TTLMinutes) * time.Minute
}

// DefaultSettings returns a working local configuration.
func DefaultSettings() Settings {
	return Settings{
		Server: ServerSettings{
			ListenAddr:    ":8085",
			PublicBaseURL: "http://127.0.0.1:8085",
		},
		Library: LibrarySettings{
			Root:         "./library",
			DatabasePath: "./data/library.db",
		},
		Catalog: CatalogSettings{
			Language: "en-US",
		},
		Cache: CacheSettings{
			TTLMinutes: 5,
		},
		Log: LogSettings{
			MaxSizeMB:  20,
			MaxBackups: 3,
		},
	}
}

// Manager loads and saves the settings file. Safe for concurrent use; every
// Load reads from disk so external edits are picked up.
type Manager struct {
	mu   sync.Mutex
	path string
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

// Path returns the settings file location.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the settings file. A missing file yields defaults, not an
// error, so first-run works without setup.
func (m *Manager) Load() (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := DefaultSettings()
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&s)
			return s, nil
		}
		return s, fmt.Errorf("read settings %s: %w", m.path, err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("parse settings %s: %w", m.path, err)
	}
	applyDefaults(&s)
	applyEnv(&s)
	return s, nil
}

// Save writes the settings file atomically.
func (m *Manager) Save(s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}

// applyEnv lets deployments inject secrets and addresses without touching
// the settings file.
func applyEnv(s *Settings) {
	if v := os.Getenv("JFRESOLVE_LISTEN_ADDR"); v != "" {
		s.Server.ListenAddr = v
	}
	if v := os.Getenv("JFRESOLVE_PUBLIC_BASE_URL"); v != "" {
		s.Server.PublicBaseURL = v
	}
	if v := os.Getenv("JFRESOLVE_LIBRARY_ROOT"); v != "" {
		s.Library.Root = v
	}
	if v := os.Getenv("JFRESOLVE_TMDB_API_KEY"); v != "" {
		s.Catalog.TMDBAPIKey = v
	}
	if v := os.Getenv("JFRESOLVE_ADDON_URL"); v != "" {
		s.Addon.BaseURL = v
	}
	if v := os.Getenv("JFRESOLVE_HOST_URL"); v != "" {
		s.Host.BaseURL = v
	}
	if v := os.Getenv("JFRESOLVE_HOST_API_KEY"); v != "" {
		s.Host.APIKey = v
	}
}

// applyDefaults fills fields an older or hand-edited config may omit.
func applyDefaults(s *Settings) {
	d := DefaultSettings()
	if s.Server.ListenAddr == "" {
		s.Server.ListenAddr = d.Server.ListenAddr
	}
	if s.Server.PublicBaseURL == "" {
		s.Server.PublicBaseURL = d.Server.PublicBaseURL
	}
	if s.Library.Root == "" {
		s.Library.Root = d.Library.Root
	}
	if s.Library.DatabasePath == "" {
		s.Library.DatabasePath = d.Library.DatabasePath
	}
	if s.Catalog.Language == "" {
		s.Catalog.Language = d.Catalog.Language
	}
	if s.Cache.TTLMinutes <= 0 {
		s.Cache.TTLMinutes = d.Cache.TTLMinutes
	}
}
