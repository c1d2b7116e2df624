package config

import (
	"encoding/json"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/petervdpas/treebridge/internal/util"
)

type Config struct {
	Host Host `json:"host"`
	UI   UI   `json:"ui"`
	Log  Log  `json:"log"`
}

type Host struct {
	// Workspace directory served to the tree. Relative paths resolve
	// against the directory holding the config file.
	Root string `json:"root"`

	// Listen address for the websocket server and shell page.
	HTTPAddr string `json:"http_addr"`

	// How many folder levels a listing scans. 0 means unlimited.
	ScanDepth int `json:"scan_depth"`

	// Entry names left out of listings (path.Match patterns).
	Ignore []string `json:"ignore"`

	// Largest file read_file will return. 0 means no limit.
	MaxFileBytes int64 `json:"max_file_bytes"`
}

type UI struct {
	// Websocket endpoint the headless client dials.
	HostURL string `json:"host_url"`
}

type Log struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // color, nocolor, json
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"color", "nocolor", "json"}
)

func Default() Config {
	return Config{
		Host: Host{
			Root:         ".",
			HTTPAddr:     "127.0.0.1:7788",
			ScanDepth:    0,
			Ignore:       []string{".git", "node_modules"},
			MaxFileBytes: 8 << 20,
		},
		UI: UI{
			HostURL: "ws://127.0.0.1:7788/ws",
		},
		Log: Log{
			Level:  "info",
			Format: "color",
		},
	}
}

func (c *Config) Validate() error {
	// Host
	if strings.TrimSpace(c.Host.Root) == "" {
		return errors.New("host.root is required")
	}
	if _, _, err := net.SplitHostPort(c.Host.HTTPAddr); err != nil {
		return errors.Wrap(err, "host.http_addr")
	}
	if c.Host.ScanDepth < 0 {
		return errors.New("host.scan_depth must be >= 0")
	}
	if c.Host.MaxFileBytes < 0 {
		return errors.New("host.max_file_bytes must be >= 0")
	}
	for _, pat := range c.Host.Ignore {
		if _, err := path.Match(pat, ""); err != nil {
			return errors.Wrapf(err, "host.ignore pattern %q", pat)
		}
	}

	// UI
	u, err := url.Parse(c.UI.HostURL)
	if err != nil {
		return errors.Wrap(err, "ui.host_url")
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return errors.New("ui.host_url scheme must be ws or wss")
	}
	if u.Host == "" {
		return errors.New("ui.host_url is missing a host")
	}

	// Log
	if !oneOf(c.Log.Level, logLevels) {
		return errors.Newf("log.level must be one of %s", strings.Join(logLevels, ", "))
	}
	if !oneOf(c.Log.Format, logFormats) {
		return errors.Newf("log.format must be one of %s", strings.Join(logFormats, ", "))
	}

	return nil
}

func oneOf(v string, set []string) bool {
	for _, s := range set {
		if v == s {
			return true
		}
	}
	return false
}

// RootDir resolves Host.Root against the directory of the config file.
func (c *Config) RootDir(cfgPath string) string {
	return util.ResolvePath(filepath.Dir(cfgPath), c.Host.Root)
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Strip UTF-8 BOM if present (common when editing JSON on Windows).
	b = stripBOM(b)

	// Start from defaults so missing JSON fields remain initialized.
	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// stripBOM removes a UTF-8 byte order mark if present.
func stripBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}

func Save(path string, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	return util.WriteJSONFile(path, cfg)
}

// Ensure loads config if it exists; otherwise creates a default config file.
// Returns (cfg, createdNew, err).
func Ensure(path string) (Config, bool, error) {
	if _, err := os.Stat(path); err == nil {
		cfg, err := Load(path)
		return cfg, false, err
	} else if !os.IsNotExist(err) {
		return Config{}, false, err
	}

	cfg := Default()
	if err := Save(path, cfg); err != nil {
		return Config{}, false, errors.Wrap(err, "create default config")
	}
	return cfg, true, nil
}
