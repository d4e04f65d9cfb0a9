package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/githubapi"
)

const (
	DefaultFilter                 = "premium"
	DefaultRefreshIntervalSeconds = 300
	MinRefreshIntervalSeconds     = 30
	DefaultRequestTimeoutSeconds  = 15
)

type ProxyConfig struct {
	URL       string `json:"url,omitempty"`
	StrictSSL *bool  `json:"strict_ssl,omitempty"` // nil means true
}

// ManualConfig holds figures copied from the billing page for accounts the
// API cannot report on.
type ManualConfig struct {
	Spent  *float64 `json:"spent,omitempty"`
	Budget *float64 `json:"budget,omitempty"`
}

type UIConfig struct {
	WarnThreshold float64 `json:"warn_threshold"`
	CritThreshold float64 `json:"crit_threshold"`
}

type LogConfig struct {
	Level  string `json:"level,omitempty"`
	Format string `json:"format,omitempty"`
	File   string `json:"file,omitempty"`
}

type Config struct {
	Org                    string       `json:"org,omitempty"`
	Filter                 string       `json:"filter"`
	RefreshIntervalSeconds int          `json:"refresh_interval_seconds"`
	RequestTimeoutSeconds  int          `json:"request_timeout_seconds"`
	APIBaseURL             string       `json:"api_base_url,omitempty"`
	Proxy                  ProxyConfig  `json:"proxy"`
	Manual                 ManualConfig `json:"manual"`
	UI                     UIConfig     `json:"ui"`
	Log                    LogConfig    `json:"log"`
	MetricsAddr            string       `json:"metrics_addr,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Filter:                 DefaultFilter,
		RefreshIntervalSeconds: DefaultRefreshIntervalSeconds,
		RequestTimeoutSeconds:  DefaultRequestTimeoutSeconds,
		UI: UIConfig{
			WarnThreshold: 0.75,
			CritThreshold: 0.90,
		},
	}
}

func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

func (p ProxyConfig) Settings() githubapi.ProxySettings {
	insecure := p.StrictSSL != nil && !*p.StrictSSL
	return githubapi.ProxySettings{URL: strings.TrimSpace(p.URL), InsecureSkipVerify: insecure}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "copilotspend")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "copilotspend")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	return normalize(cfg), nil
}

func normalize(cfg Config) Config {
	def := DefaultConfig()
	cfg.Org = strings.TrimSpace(cfg.Org)
	cfg.Filter = strings.TrimSpace(cfg.Filter)
	if cfg.Filter == "" {
		cfg.Filter = def.Filter
	}
	if cfg.RefreshIntervalSeconds <= 0 {
		cfg.RefreshIntervalSeconds = def.RefreshIntervalSeconds
	}
	if cfg.RefreshIntervalSeconds < MinRefreshIntervalSeconds {
		cfg.RefreshIntervalSeconds = MinRefreshIntervalSeconds
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = def.RequestTimeoutSeconds
	}
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.UI.WarnThreshold <= 0 || cfg.UI.WarnThreshold > 1 {
		cfg.UI.WarnThreshold = def.UI.WarnThreshold
	}
	if cfg.UI.CritThreshold <= 0 || cfg.UI.CritThreshold > 1 {
		cfg.UI.CritThreshold = def.UI.CritThreshold
	}
	if cfg.UI.CritThreshold < cfg.UI.WarnThreshold {
		cfg.UI.CritThreshold = cfg.UI.WarnThreshold
	}
	if cfg.Manual.Spent != nil && *cfg.Manual.Spent < 0 {
		cfg.Manual.Spent = nil
	}
	if cfg.Manual.Budget != nil && *cfg.Manual.Budget < 0 {
		cfg.Manual.Budget = nil
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	return cfg
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveManual persists manually entered figures into the config file (read-modify-write).
func SaveManual(spent, budget float64) error {
	return SaveManualTo(ConfigPath(), spent, budget)
}

func SaveManualTo(path string, spent, budget float64) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Manual = ManualConfig{Spent: &spent, Budget: &budget}
	return SaveTo(path, cfg)
}

// SaveOrg persists the organization to bill against; empty selects the personal account.
func SaveOrg(org string) error {
	return SaveOrgTo(ConfigPath(), org)
}

func SaveOrgTo(path, org string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Org = strings.TrimSpace(org)
	return SaveTo(path, cfg)
}

// ClearManualTo removes stored manual figures.
func ClearManualTo(path string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Manual = ManualConfig{}
	return SaveTo(path, cfg)
}
