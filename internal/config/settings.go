package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the settings file.
const (
	EnvLastoolsFolder = "LASTOOLS_FOLDER"
	EnvWineFolder     = "WINE_FOLDER"
)

// DefaultFileName is the settings file looked up in the user config dir.
const DefaultFileName = "lasrun.yaml"

// maxSettingsSize bounds the settings file we are willing to read.
const maxSettingsSize = 1 * 1024 * 1024

// Settings holds every lasrun setting. Zero values are filled in by
// applyDefaults; pointer fields distinguish "unset" from "false".
type Settings struct {
	// LastoolsFolder is the LAStools installation root; binaries live in
	// its bin/ subdirectory.
	LastoolsFolder string `yaml:"lastools_folder"`

	// WineFolder is the directory holding the wine executable. Only used on
	// non-Windows hosts; empty means run native binaries.
	WineFolder string `yaml:"wine_folder"`

	// CPU64 selects the 64-bit executables (lasground64 ...). Default true.
	CPU64 *bool `yaml:"cpu64"`

	// Cores is the default for the -cores parameter of production tools
	// and pipelines. 0 leaves the tool default.
	Cores int `yaml:"cores"`

	// TempDirectory holds pipeline intermediates (default <os temp>/lasrun).
	TempDirectory string `yaml:"temp_directory"`

	// HistoryDB is the sqlite run history path. Empty disables recording.
	HistoryDB string `yaml:"history_db"`

	// HaltOnError stops a pipeline at the first failed stage.
	HaltOnError bool `yaml:"halt_on_error"`

	Remote RemoteSettings `yaml:"remote"`
}

// RemoteSettings configures the gRPC runner service and its client.
type RemoteSettings struct {
	// Address is the default runner service dialled by --remote.
	Address string `yaml:"address"`

	// Listen is the gRPC listen address of `lasrun serve`.
	Listen string `yaml:"listen"`

	// AdminListen is the HTTP listen address for the debug pages.
	AdminListen string `yaml:"admin_listen"`

	// AllowedDirs restricts the file parameters remote callers may pass.
	AllowedDirs []string `yaml:"allowed_dirs"`
}

// Use64 reports whether 64-bit executables should be used.
// Handles the nil-pointer case for the default (true).
func (s *Settings) Use64() bool {
	if s.CPU64 == nil {
		return true
	}
	return *s.CPU64
}

// Default returns settings with every default applied for this platform.
func Default() Settings {
	var s Settings
	s.applyDefaults(runtime.GOOS)
	return s
}

func (s *Settings) applyDefaults(goos string) {
	if s.LastoolsFolder == "" {
		if goos == "windows" {
			s.LastoolsFolder = `C:\LAStools`
		} else {
			s.LastoolsFolder = "/opt/LAStools"
		}
	}
	if s.TempDirectory == "" {
		s.TempDirectory = filepath.Join(os.TempDir(), "lasrun")
	}
	if s.Remote.Listen == "" {
		s.Remote.Listen = ":50051"
	}
	if s.Remote.AdminListen == "" {
		s.Remote.AdminListen = ":8080"
	}
}

// applyEnv lets the environment override the file.
func (s *Settings) applyEnv(getenv func(string) string) {
	if v := getenv(EnvLastoolsFolder); v != "" {
		s.LastoolsFolder = v
	}
	if v := getenv(EnvWineFolder); v != "" {
		s.WineFolder = v
	}
}

// DefaultPath returns <user config dir>/lasrun/lasrun.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultFileName
	}
	return filepath.Join(dir, "lasrun", DefaultFileName)
}

// Load reads the settings file at path, applies environment overrides and
// defaults, and validates the result. When path is empty the default path
// is used and a missing file is not an error.
func Load(path string) (Settings, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	var s Settings
	data, err := readSettingsFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("parsing settings file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// no settings file: defaults and environment only
	default:
		return Settings{}, err
	}

	s.applyEnv(os.Getenv)
	s.applyDefaults(runtime.GOOS)
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

func readSettingsFile(path string) ([]byte, error) {
	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	if info.Size() > maxSettingsSize {
		return nil, fmt.Errorf("settings file too large: %d bytes (max %d)", info.Size(), maxSettingsSize)
	}
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}
	return data, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.LastoolsFolder == "" {
		return fmt.Errorf("lastools_folder must not be empty")
	}
	if s.Cores < 0 {
		return fmt.Errorf("cores must be non-negative, got %d", s.Cores)
	}
	for name, addr := range map[string]string{
		"remote.listen":       s.Remote.Listen,
		"remote.admin_listen": s.Remote.AdminListen,
		"remote.address":      s.Remote.Address,
	} {
		if addr == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, addr, err)
		}
	}
	for _, dir := range s.Remote.AllowedDirs {
		if !filepath.IsAbs(dir) {
			return fmt.Errorf("remote.allowed_dirs entries must be absolute, got %q", dir)
		}
	}
	return nil
}

// Marshal renders the settings as YAML, for `lasrun config show`.
func (s Settings) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
