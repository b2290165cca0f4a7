package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the main configuration structure
type Config struct {
	Backup BackupSettings `yaml:"backup" mapstructure:"backup"`

	SQLite     EngineConfig `yaml:"sqlite" mapstructure:"sqlite"`
	MySQL      EngineConfig `yaml:"mysql" mapstructure:"mysql"`
	PostgreSQL EngineConfig `yaml:"postgresql" mapstructure:"postgresql"`
	MSSQL      EngineConfig `yaml:"mssql" mapstructure:"mssql"`
	MongoDB    EngineConfig `yaml:"mongodb" mapstructure:"mongodb"`

	Offsite *Offsite `yaml:"offsite,omitempty" mapstructure:"offsite,omitempty"`
}

// BackupSettings holds the global backup parameters
type BackupSettings struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
	Retention int    `yaml:"retention" mapstructure:"retention"`
	Schedule  string `yaml:"schedule,omitempty" mapstructure:"schedule,omitempty"`
}

// EngineConfig represents one database engine section
type EngineConfig struct {
	Enabled   bool       `yaml:"enabled" mapstructure:"enabled"`
	Instances []Instance `yaml:"instances" mapstructure:"instances"`
}

// Instance represents one addressable database server, or one
// database file for SQLite
type Instance struct {
	Name     string `yaml:"name" mapstructure:"name"`
	Host     string `yaml:"host,omitempty" mapstructure:"host,omitempty"`
	Port     int    `yaml:"port,omitempty" mapstructure:"port,omitempty"`
	User     string `yaml:"user,omitempty" mapstructure:"user,omitempty"`
	Password string `yaml:"password,omitempty" mapstructure:"password,omitempty"`

	// Path is the database file location; SQLite only.
	Path string `yaml:"path,omitempty" mapstructure:"path,omitempty"`

	// Image overrides the engine's default tool image.
	Image string `yaml:"image,omitempty" mapstructure:"image,omitempty"`

	// AuthDB is the MongoDB authentication database.
	AuthDB string `yaml:"auth_db,omitempty" mapstructure:"auth_db,omitempty"`

	// Databases is an explicit allow-list. Entries may be glob
	// patterns, in which case the engine catalog is enumerated and
	// filtered. Empty means back up every non-system database.
	Databases []string `yaml:"databases,omitempty" mapstructure:"databases,omitempty"`
}

// ImageOr returns the configured tool image or the engine default
func (i Instance) ImageOr(def string) string {
	if i.Image != "" {
		return i.Image
	}
	return def
}

// PortOr returns the configured port or the engine default
func (i Instance) PortOr(def int) int {
	if i.Port != 0 {
		return i.Port
	}
	return def
}

// Offsite holds optional replication targets for finished artifacts
type Offsite struct {
	S3   *S3Config   `yaml:"s3,omitempty" mapstructure:"s3,omitempty"`
	SFTP *SFTPConfig `yaml:"sftp,omitempty" mapstructure:"sftp,omitempty"`
}

// S3Config represents S3-compatible storage configuration
type S3Config struct {
	Endpoint        string `yaml:"endpoint,omitempty" mapstructure:"endpoint,omitempty"`
	Region          string `yaml:"region" mapstructure:"region"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" mapstructure:"secret_access_key"`
	Path            string `yaml:"path,omitempty" mapstructure:"path,omitempty"`
}

// SFTPConfig represents SFTP storage configuration
type SFTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyFile  string `yaml:"key_file" mapstructure:"key_file"`
	Path     string `yaml:"path,omitempty" mapstructure:"path,omitempty"`
}

// Load loads the configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills in the global defaults for unset fields
func (c *Config) SetDefaults() {
	if c.Backup.OutputDir == "" {
		c.Backup.OutputDir = "backups"
	}
	if c.Backup.Retention == 0 {
		c.Backup.Retention = 10
	}
}

// Section returns the engine section for the given engine name
func (c *Config) Section(engine string) (*EngineConfig, bool) {
	switch engine {
	case "sqlite":
		return &c.SQLite, true
	case "mysql":
		return &c.MySQL, true
	case "postgresql":
		return &c.PostgreSQL, true
	case "mssql":
		return &c.MSSQL, true
	case "mongodb":
		return &c.MongoDB, true
	}
	return nil, false
}

// FindInstance looks up a configured instance by engine and name
func (c *Config) FindInstance(engine, name string) (Instance, bool) {
	section, ok := c.Section(engine)
	if !ok {
		return Instance{}, false
	}
	for _, inst := range section.Instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return Instance{}, false
}

// Validate checks required fields across every engine section
func (c *Config) Validate() error {
	if c.Backup.Retention < 0 {
		return fmt.Errorf("backup.retention must not be negative, got %d", c.Backup.Retention)
	}

	for _, engine := range []string{"sqlite", "mysql", "postgresql", "mssql", "mongodb"} {
		section, _ := c.Section(engine)
		if !section.Enabled {
			continue
		}
		seen := make(map[string]bool)
		for _, inst := range section.Instances {
			if inst.Name == "" {
				return fmt.Errorf("%s: instance is missing a name", engine)
			}
			if seen[inst.Name] {
				return fmt.Errorf("%s: duplicate instance name %q", engine, inst.Name)
			}
			seen[inst.Name] = true

			switch engine {
			case "sqlite":
				if inst.Path == "" {
					return fmt.Errorf("sqlite: instance %q is missing a path", inst.Name)
				}
			case "mongodb":
				if inst.Host == "" {
					return fmt.Errorf("mongodb: instance %q is missing a host", inst.Name)
				}
			default:
				if inst.Host == "" {
					return fmt.Errorf("%s: instance %q is missing a host", engine, inst.Name)
				}
				if inst.User == "" {
					return fmt.Errorf("%s: instance %q is missing a user", engine, inst.Name)
				}
			}
		}
	}
	return nil
}
