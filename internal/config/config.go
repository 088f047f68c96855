package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "skin-sync.yaml"
	EnvFileName    = ".env"
	// MetaDirName holds everything skin-sync keeps next to the working copy.
	MetaDirName = ".sync_temp"
)

var ErrNotFound = errors.New(ConfigFileName + " not found, run 'skin-sync init' first")

type Config struct {
	ProjectName string   `yaml:"project_name" validate:"required"`
	Solution    string   `yaml:"solution" validate:"required,oneof=skin-ftp mobile-ftp browser-upload"`
	LocalPath   string   `yaml:"local_path" validate:"required"`
	RemotePath  string   `yaml:"remote_path" validate:"required,startswith=/"`
	FTP         FTP      `yaml:"ftp"`
	Transfer    Transfer `yaml:"transfer"`
	Metadata    Metadata `yaml:"metadata"`
	Watch       Watch    `yaml:"watch"`
	Log         Log      `yaml:"log"`

	dir string
}

type FTP struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" validate:"min=1,max=65535"`
	User     string `yaml:"user"`
	Password string `yaml:"password,omitempty"`
	// Vault keeps the password encrypted in the metadata directory instead.
	Vault     bool `yaml:"vault"`
	ForcePASV bool `yaml:"force_pasv"`
}

type Transfer struct {
	Timeout       time.Duration `yaml:"timeout" validate:"min=0"`
	MaxAttempts   int           `yaml:"max_attempts" validate:"min=1,max=10"`
	ProgressEvery int           `yaml:"progress_every" validate:"min=1"`
}

type Metadata struct {
	Backend string `yaml:"backend" validate:"oneof=json sqlite"`
}

type Watch struct {
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`
}

type Log struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"min=1"`
	MaxBackups int    `yaml:"max_backups" validate:"min=0"`
}

// Default returns a configuration with every default applied.
func Default(projectName string) *Config {
	cfg := &Config{ProjectName: projectName}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills zero values.
func ApplyDefaults(cfg *Config) {
	if cfg.Solution == "" {
		cfg.Solution = "skin-ftp"
	}
	if cfg.LocalPath == "" {
		cfg.LocalPath = "skin"
	}
	if cfg.RemotePath == "" {
		cfg.RemotePath = "/"
	}
	if cfg.FTP.Port == 0 {
		cfg.FTP.Port = 21
	}
	if cfg.Transfer.Timeout == 0 {
		cfg.Transfer.Timeout = 180 * time.Second
	}
	if cfg.Transfer.MaxAttempts == 0 {
		cfg.Transfer.MaxAttempts = 3
	}
	if cfg.Transfer.ProgressEvery == 0 {
		cfg.Transfer.ProgressEvery = 25
	}
	if cfg.Metadata.Backend == "" {
		cfg.Metadata.Backend = "json"
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 1500 * time.Millisecond
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 3
	}
}

var validate = validator.New()

// ValidateConfig checks field constraints and that the working copy is a
// proper subdirectory of the project directory.
func ValidateConfig(cfg *Config) error {
	var validationErrors []string
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			validationErrors = append(validationErrors, describe(fe))
		}
	}

	local := filepath.Clean(filepath.FromSlash(strings.TrimSpace(cfg.LocalPath)))
	switch {
	case cfg.LocalPath == "":
	case local == "." || (cfg.dir != "" && filepath.IsAbs(local) && local == filepath.Clean(cfg.dir)):
		validationErrors = append(validationErrors, "local_path must be a subdirectory of the project, not the project itself")
	case !filepath.IsAbs(local) && (local == ".." || strings.HasPrefix(local, ".."+string(filepath.Separator))):
		validationErrors = append(validationErrors, "local_path must not point outside the project directory")
	case cfg.dir != "" && filepath.IsAbs(local) && contains(local, cfg.dir):
		validationErrors = append(validationErrors, "local_path must not contain the project directory")
	case strings.HasPrefix(filepath.Base(local), ".sync_"):
		validationErrors = append(validationErrors, "local_path must not use the reserved .sync_ prefix")
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}

// contains reports whether dir is root or lies below it.
func contains(root, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(dir))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func describe(fe validator.FieldError) string {
	name := yamlPath(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return name + " cannot be empty"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", name, fe.Param(), fe.Value())
	case "startswith":
		return fmt.Sprintf("%s must start with %q", name, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s=%s (got %v)", name, fe.Tag(), fe.Param(), fe.Value())
	}
}

var camel = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// yamlPath turns "Config.Transfer.MaxAttempts" into "transfer.max_attempts".
func yamlPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "FTP" || p == "PASV" {
			parts[i] = strings.ToLower(p)
			continue
		}
		parts[i] = strings.ToLower(camel.ReplaceAllString(p, "${1}_${2}"))
	}
	return strings.Join(parts, ".")
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolate replaces ${VAR} with the OS environment value, falling back to
// the .env file next to the config. Unknown variables become empty.
func interpolate(text string, dotenv map[string]string) string {
	return envRef.ReplaceAllStringFunc(text, func(m string) string {
		name := envRef.FindStringSubmatch(m)[1]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return dotenv[name]
	})
}

// Load reads, interpolates, defaults and validates the config in dir.
func Load(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(abs, ConfigFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	dotenv := map[string]string{}
	if _, err := os.Stat(filepath.Join(abs, EnvFileName)); err == nil {
		dotenv, err = godotenv.Read(filepath.Join(abs, EnvFileName))
		if err != nil {
			return nil, fmt.Errorf("error reading %s: %w", EnvFileName, err)
		}
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(interpolate(string(data), dotenv)), &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	cfg.dir = abs
	ApplyDefaults(&cfg)
	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg as the config file of dir.
func Save(dir string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0644)
}

// Exists reports whether dir holds a config file.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectDir walks up from start to the first directory holding a
// config file.
func FindProjectDir(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNotFound
		}
		dir = parent
	}
}

// Dir is the project directory the config was loaded from.
func (c *Config) Dir() string { return c.dir }

// SetDir binds a config built in memory to a project directory.
func (c *Config) SetDir(dir string) { c.dir = dir }

// LocalRoot is the absolute path of the working copy.
func (c *Config) LocalRoot() string {
	if filepath.IsAbs(c.LocalPath) {
		return filepath.Clean(c.LocalPath)
	}
	return filepath.Join(c.dir, filepath.FromSlash(c.LocalPath))
}

// MetaDir is the absolute path of the metadata directory.
func (c *Config) MetaDir() string {
	return filepath.Join(c.dir, MetaDirName)
}
