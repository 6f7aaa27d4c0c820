// Package config loads treestore settings from YAML (or JSON) files and
// layers command-line overrides on top of the defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/roach88/treestore/internal/querysql"
	"github.com/roach88/treestore/internal/schema"
	"github.com/roach88/treestore/internal/store"
)

// Default configuration values. See [Config] for field descriptions.
const (
	DefaultDatabasePath = "treestore.db"
	DefaultDriver       = store.DriverCGO
	DefaultBusyTimeout  = 5 * time.Second
	DefaultDialect      = "sqlite"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultServerAddr   = "127.0.0.1:8707"
	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second

	// DefaultFile is looked up in the working directory when no --config is given.
	DefaultFile = "treestore.yaml"
)

// Config is the resolved runtime configuration.
type Config struct {
	Database Database
	Dialect  string // dialect used by `compile` when none is given
	Log      Log
	Server   Server
	Schemas  []schema.Binding
}

// Database selects the SQLite file and driver.
type Database struct {
	Path        string
	Driver      string // store.DriverCGO or store.DriverPureGo
	BusyTimeout time.Duration
}

// Log controls the logrus level and formatter.
type Log struct {
	Level  string // any logrus level name
	Format string // text | json
}

// Server configures `treestore serve`.
type Server struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Override uses pointer fields to distinguish unset from zero values.
type Override struct {
	Database *DatabaseOverride `yaml:"database,omitempty" json:"database,omitempty"`
	Dialect  *string           `yaml:"dialect,omitempty" json:"dialect,omitempty"`
	Log      *LogOverride      `yaml:"log,omitempty" json:"log,omitempty"`
	Server   *ServerOverride   `yaml:"server,omitempty" json:"server,omitempty"`
	Schemas  []SchemaBinding   `yaml:"schemas,omitempty" json:"schemas,omitempty"`
}

type DatabaseOverride struct {
	Path          *string `yaml:"path,omitempty" json:"path,omitempty"`
	Driver        *string `yaml:"driver,omitempty" json:"driver,omitempty"`
	BusyTimeoutMS *int    `yaml:"busy_timeout_ms,omitempty" json:"busy_timeout_ms,omitempty"`
}

type LogOverride struct {
	Level  *string `yaml:"level,omitempty" json:"level,omitempty"`
	Format *string `yaml:"format,omitempty" json:"format,omitempty"`
}

type ServerOverride struct {
	Addr         *string        `yaml:"addr,omitempty" json:"addr,omitempty"`
	ReadTimeout  *time.Duration `yaml:"read_timeout,omitempty" json:"-"`
	WriteTimeout *time.Duration `yaml:"write_timeout,omitempty" json:"-"`
}

// SchemaBinding binds a CUE file to a path prefix.
type SchemaBinding struct {
	Prefix string `yaml:"prefix" json:"prefix"`
	File   string `yaml:"file" json:"file"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Database: Database{
			Path:        DefaultDatabasePath,
			Driver:      DefaultDriver,
			BusyTimeout: DefaultBusyTimeout,
		},
		Dialect: DefaultDialect,
		Log:     Log{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Server: Server{
			Addr:         DefaultServerAddr,
			ReadTimeout:  DefaultReadTimeout,
			WriteTimeout: DefaultWriteTimeout,
		},
	}
}

// Merge applies the non-nil values of o. Schema bindings are appended.
func (c *Config) Merge(o *Override) {
	if o == nil {
		return
	}
	if d := o.Database; d != nil {
		if d.Path != nil {
			c.Database.Path = *d.Path
		}
		if d.Driver != nil {
			c.Database.Driver = *d.Driver
		}
		if d.BusyTimeoutMS != nil {
			c.Database.BusyTimeout = time.Duration(*d.BusyTimeoutMS) * time.Millisecond
		}
	}
	if o.Dialect != nil {
		c.Dialect = *o.Dialect
	}
	if l := o.Log; l != nil {
		if l.Level != nil {
			c.Log.Level = *l.Level
		}
		if l.Format != nil {
			c.Log.Format = *l.Format
		}
	}
	if s := o.Server; s != nil {
		if s.Addr != nil {
			c.Server.Addr = *s.Addr
		}
		if s.ReadTimeout != nil {
			c.Server.ReadTimeout = *s.ReadTimeout
		}
		if s.WriteTimeout != nil {
			c.Server.WriteTimeout = *s.WriteTimeout
		}
	}
	for _, b := range o.Schemas {
		c.Schemas = append(c.Schemas, schema.Binding{Prefix: b.Prefix, File: b.File})
	}
}

// Validate rejects unknown drivers, dialects, log levels and formats.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if !slices.Contains(store.Drivers(), c.Database.Driver) {
		return fmt.Errorf("database.driver %q: must be one of %s", c.Database.Driver, strings.Join(store.Drivers(), ", "))
	}
	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout_ms must not be negative")
	}
	if _, err := querysql.Lookup(c.Dialect); err != nil {
		return fmt.Errorf("dialect: %w", err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: must be text or json", c.Log.Format)
	}
	for i, b := range c.Schemas {
		if b.Prefix == "" || b.File == "" {
			return fmt.Errorf("schemas[%d]: prefix and file are required", i)
		}
	}
	return nil
}

// ConfigureLogger applies the level and formatter to l.
func (c *Config) ConfigureLogger(l *log.Logger) error {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	l.SetLevel(level)
	switch c.Log.Format {
	case "json":
		l.SetFormatter(&log.JSONFormatter{})
	default:
		l.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	}
	return nil
}

// LoadOverrideFile reads overrides from a file without merging. The format
// follows the extension: .yaml, .yml or .json. Relative schema files are
// resolved against the file's directory.
func LoadOverrideFile(path string) (*Override, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var o Override
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	dir := filepath.Dir(path)
	for i := range o.Schemas {
		if f := o.Schemas[i].File; f != "" && !filepath.IsAbs(f) {
			o.Schemas[i].File = filepath.Join(dir, f)
		}
	}
	return &o, nil
}

// Load returns the defaults merged with the file at path. An empty path
// loads DefaultFile when it exists and the bare defaults otherwise.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat(DefaultFile); err != nil {
			return cfg, nil
		}
		path = DefaultFile
	}
	o, err := LoadOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(o)
	return cfg, nil
}
