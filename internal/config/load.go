package config

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/xyue92/gitai/internal/logging"
	"github.com/xyue92/gitai/internal/platform"
)

const (
	// FileName is the YAML config file name.
	FileName = ".gitcommit.yaml"
	// LuaFileName is the Lua config file name.
	LuaFileName = ".gitcommit.lua"

	EnvConfig     = "GITAI_CONFIG"
	EnvOllamaHost = "OLLAMA_HOST"
)

// ErrConfigNotFound is returned when GITAI_CONFIG names a missing file.
var ErrConfigNotFound = errors.New("config file not found")

// Loader finds and reads configuration files.
type Loader struct {
	// WorkDir is searched first. Defaults to the process working directory.
	WorkDir string
	// RepoRoot is the enclosing repository root, if any. When empty it is
	// discovered by walking up from WorkDir.
	RepoRoot string
	// HomeDir defaults to the user's home directory.
	HomeDir string
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	Parser *Parser
	Logger logging.Logger
}

// NewLoader returns a loader for the current process.
func NewLoader(logger logging.Logger) *Loader {
	return &Loader{
		Parser: NewParser(platform.NewDetector()),
		Logger: logging.OrNop(logger),
	}
}

// LoadConfig loads configuration for the current directory.
func LoadConfig() (*Config, error) {
	cfg, _, err := NewLoader(nil).Load(context.Background())
	return cfg, err
}

// Find returns the config file that Load would use, or "" for defaults.
func (l *Loader) Find() (string, error) {
	getenv := l.getenv()
	if explicit := getenv(EnvConfig); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s=%s", ErrConfigNotFound, EnvConfig, explicit)
		}
		return explicit, nil
	}

	for _, candidate := range l.candidates() {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	return "", nil
}

// Load reads the first config file found and returns it with its path.
func (l *Loader) Load(ctx context.Context) (*Config, string, error) {
	logger := logging.OrNop(l.Logger)

	path, err := l.Find()
	if err != nil {
		return nil, "", err
	}

	var cfg *Config
	if path == "" {
		logger.Debug("no config file found, using defaults")
		cfg = DefaultConfig()
	} else {
		logger.Debug("loading config", "path", path)
		cfg, err = l.loadPath(ctx, path)
		if err != nil {
			return nil, path, err
		}
	}

	if host := l.getenv()(EnvOllamaHost); host != "" {
		cfg.Ollama.URL = normalizeOllamaHost(host)
		if err := cfg.Validate(); err != nil {
			return nil, path, fmt.Errorf("%s: %w", EnvOllamaHost, err)
		}
	}

	return cfg, path, nil
}

func (l *Loader) loadPath(ctx context.Context, path string) (*Config, error) {
	if strings.EqualFold(filepath.Ext(path), ".lua") {
		parser := l.Parser
		if parser == nil {
			parser = NewParser(platform.NewDetector())
		}
		cfg, err := parser.ParseFile(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	}
	return loadFromFile(path)
}

func (l *Loader) candidates() []string {
	workDir := l.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	var out []string
	if workDir != "" {
		out = append(out,
			filepath.Join(workDir, FileName),
			filepath.Join(workDir, LuaFileName),
		)
	}

	root := l.RepoRoot
	if root == "" && workDir != "" {
		root = findRepoRoot(workDir)
	}
	if root != "" && root != workDir {
		out = append(out, filepath.Join(root, FileName))
	}

	home := l.HomeDir
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home != "" {
		out = append(out, filepath.Join(home, FileName))
	}
	return out
}

func (l *Loader) getenv() func(string) string {
	if l.Getenv != nil {
		return l.Getenv
	}
	return os.Getenv
}

// findRepoRoot walks up from dir looking for a .git entry.
func findRepoRoot(dir string) string {
	dir = filepath.Clean(dir)
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// normalizeOllamaHost accepts OLLAMA_HOST in ollama's own forms: "host",
// "host:port", ":port" or a full URL. The default port 11434 applies only when
// no scheme was given; an explicit scheme keeps its own default port.
func normalizeOllamaHost(host string) string {
	host = strings.TrimSpace(host)
	hasScheme := strings.Contains(host, "://")
	if !hasScheme {
		host = "http://" + host
	}

	u, err := url.Parse(host)
	if err != nil {
		return strings.TrimRight(host, "/")
	}
	hostname, port := u.Hostname(), u.Port()
	if hostname == "" {
		hostname = "127.0.0.1"
	}
	if port == "" && !hasScheme {
		port = "11434"
	}
	if port != "" {
		u.Host = net.JoinHostPort(hostname, port)
	} else if strings.Contains(hostname, ":") {
		u.Host = "[" + hostname + "]"
	} else {
		u.Host = hostname
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	return u.String()
}

// loadFromFile reads a YAML config over DefaultConfig.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxConfigSize {
		return nil, fmt.Errorf("%s: config file too large (%d bytes)", path, len(data))
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	header := "# gitai configuration\n# See `gitai config --show` for the effective values.\n\n"
	if err := os.WriteFile(path, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
