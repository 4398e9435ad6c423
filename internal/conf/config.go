package conf

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gopasspw/gopass/pkg/appdir"
	"github.com/gopasspw/gopass/pkg/set"
	"github.com/rs/zerolog"
)

const appName = "confpatch"

//go:embed defaults.toml
var defaultConfig string

// Config is the resolved tool configuration.
type Config struct {
	LogLevel     zerolog.Level
	BackupSuffix string
	SudoCommand  string

	SSHUser       string
	SSHKeyFile    string
	SSHKnownHosts []string
	SSHInsecure   bool
	SSHAgent      bool
	SSHTimeout    time.Duration

	MetricsFile string
}

type configDTO struct {
	LogLevel     *string `toml:"log-level"`
	BackupSuffix *string `toml:"backup-suffix"`
	SudoCommand  *string `toml:"sudo-command"`

	SSHUser       *string   `toml:"ssh-user"`
	SSHKeyFile    *string   `toml:"ssh-key-file"`
	SSHKnownHosts *[]string `toml:"ssh-known-hosts"`
	SSHInsecure   *bool     `toml:"ssh-insecure"`
	SSHAgent      *bool     `toml:"ssh-agent"`
	SSHTimeout    *string   `toml:"ssh-timeout"`

	MetricsFile *string `toml:"metrics-file"`
}

// Update applies the values set in dto.
func (c *Config) Update(dto configDTO) error {
	if dto.LogLevel != nil {
		lvl, err := zerolog.ParseLevel(strings.ToLower(*dto.LogLevel))
		if err != nil {
			return fmt.Errorf("invalid log-level %q: %w", *dto.LogLevel, err)
		}
		c.LogLevel = lvl
	}
	if dto.BackupSuffix != nil {
		c.BackupSuffix = *dto.BackupSuffix
	}
	if dto.SudoCommand != nil {
		c.SudoCommand = *dto.SudoCommand
	}
	if dto.SSHUser != nil {
		c.SSHUser = *dto.SSHUser
	}
	if dto.SSHKeyFile != nil {
		c.SSHKeyFile = *dto.SSHKeyFile
	}
	if dto.SSHKnownHosts != nil {
		c.SSHKnownHosts = slices.Clone(*dto.SSHKnownHosts)
	}
	if dto.SSHInsecure != nil {
		c.SSHInsecure = *dto.SSHInsecure
	}
	if dto.SSHAgent != nil {
		c.SSHAgent = *dto.SSHAgent
	}
	if dto.SSHTimeout != nil {
		d, err := time.ParseDuration(*dto.SSHTimeout)
		if err != nil {
			return fmt.Errorf("invalid ssh-timeout %q: %w", *dto.SSHTimeout, err)
		}
		c.SSHTimeout = d
	}
	if dto.MetricsFile != nil {
		c.MetricsFile = *dto.MetricsFile
	}

	return nil
}

func parseConfigDTO(data string) (configDTO, error) {
	var dto configDTO

	md, err := toml.Decode(data, &dto)
	if err != nil {
		return dto, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}

		return dto, fmt.Errorf("unknown keys: %s", strings.Join(set.Sorted(keys), ", "))
	}

	return dto, nil
}

// Source locates the configuration files.
type Source struct {
	Path      string
	DropInDir string
}

// DefaultSource returns the per-user configuration location.
func DefaultSource() *Source {
	dir := appdir.New(appName).UserConfig()

	return &Source{
		Path:      filepath.Join(dir, "config.toml"),
		DropInDir: filepath.Join(dir, "config.toml.d"),
	}
}

// FileSource uses path and the drop-in directory next to it.
func FileSource(path string) *Source {
	return &Source{
		Path:      path,
		DropInDir: path + ".d",
	}
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	var c Config

	dto, err := parseConfigDTO(defaultConfig)
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded defaults: %v", err))
	}
	if err := c.Update(dto); err != nil {
		panic(fmt.Sprintf("invalid embedded defaults: %v", err))
	}

	return c
}

// Read merges the defaults, the main file and the drop-in files. Missing files
// are skipped, malformed ones are an error.
func (s *Source) Read() (Config, error) {
	resolved := Defaults()

	data, err := os.ReadFile(s.Path)
	switch {
	case err == nil:
		dto, err := parseConfigDTO(string(data))
		if err != nil {
			return resolved, fmt.Errorf("failed to parse %s: %w", s.Path, err)
		}
		if err := resolved.Update(dto); err != nil {
			return resolved, fmt.Errorf("%s: %w", s.Path, err)
		}
	case !os.IsNotExist(err):
		return resolved, fmt.Errorf("failed to load %s: %w", s.Path, err)
	}

	paths, err := s.dropInFiles()
	if err != nil {
		return resolved, err
	}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return resolved, fmt.Errorf("failed to load %s: %w", p, err)
		}
		dto, err := parseConfigDTO(string(data))
		if err != nil {
			return resolved, fmt.Errorf("failed to parse %s: %w", p, err)
		}
		if err := resolved.Update(dto); err != nil {
			return resolved, fmt.Errorf("%s: %w", p, err)
		}
	}

	return resolved, nil
}

// dropInFiles returns the *.toml files of the drop-in directory in lexical
// order. A missing directory has no files.
func (s *Source) dropInFiles() ([]string, error) {
	entries, err := os.ReadDir(s.DropInDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read drop-in directory %s: %w", s.DropInDir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".toml") {
			continue
		}
		paths = append(paths, filepath.Join(s.DropInDir, e.Name()))
	}

	return set.Sorted(paths), nil
}
