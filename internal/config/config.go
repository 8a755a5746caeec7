package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"docblocks/internal/render"
)

// DefaultPath is the config file looked up in the working directory.
const DefaultPath = "docblocks.yaml"

type Config struct {
	Project struct {
		Root   string   `yaml:"root"`
		Output string   `yaml:"output"`
		DB     string   `yaml:"db"`
		Ignore []string `yaml:"ignore"`
	} `yaml:"project"`
	Render render.Config `yaml:"render"`
	Log    struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Git struct {
		BaseRef string `yaml:"base_ref"`
	} `yaml:"git"`
	Watch struct {
		Debounce time.Duration `yaml:"debounce"`
	} `yaml:"watch"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{Render: render.DefaultConfig()}
	cfg.Project.Root = "."
	cfg.Project.Output = "docs"
	cfg.Project.DB = "docblocks.db"
	cfg.Log.Level = "info"
	cfg.Git.BaseRef = "HEAD"
	cfg.Watch.Debounce = 500 * time.Millisecond
	return cfg
}

// LoadConfig reads path on top of the defaults. A missing file is not an
// error. Environment variables (and a .env file) override file values.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// 3. Override with Environment Variables if present
	if root := os.Getenv("DOCBLOCKS_ROOT"); root != "" {
		cfg.Project.Root = root
	}
	if out := os.Getenv("DOCBLOCKS_OUTPUT"); out != "" {
		cfg.Project.Output = out
	}
	if db := os.Getenv("DOCBLOCKS_DB"); db != "" {
		cfg.Project.DB = db
	}
	if level := os.Getenv("DOCBLOCKS_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	return cfg, nil
}

// RenderConfig returns the validated rendering options.
func (c *Config) RenderConfig() (render.Config, error) {
	if err := c.Render.Validate(); err != nil {
		return render.Config{}, err
	}
	return c.Render, nil
}

// NewLogger builds the logger for the configured level.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(level)
	return logger, nil
}
