package config

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Manager handles loading and hot-reloading configuration.
//
// Not every field is safe to hot-reload: db_fname and endpoint are read once
// at startup by the manager loop (the socket is already bound and the ledger
// already opened by the time a file change could be observed), so callers
// that only care about those must re-exec rather than rely on OnChange.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("db_fname", defaults.DBFname)
	viper.SetDefault("endpoint", defaults.Endpoint)
	viper.SetDefault("learners_fnames", defaults.LearnersFnames)
	viper.SetDefault("reconcile_interval", defaults.ReconcileInterval)
	viper.SetDefault("overwrite_db", defaults.OverwriteDB)
	viper.SetDefault("strict_stop", defaults.StrictStop)
	viper.SetDefault("status_addr", defaults.StatusAddr)
	viper.SetDefault("scheduler", defaults.Scheduler)

	// Environment variables with HPCLEDGER_ prefix
	viper.SetEnvPrefix("HPCLEDGER")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.hpcledger")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct and validates it
// against the JSON Schema in Schema() before returning it.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
// A reload that fails to parse or validate is dropped without logging or
// notifying callbacks, and the previous good config is kept.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# hpcledger configuration
# hpcledger serve reads every setting here once at startup; changes made
# while it runs take effect on the next restart.

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}

// schemaJSON is the JSON Schema used to validate a loaded Config.
const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "db_fname": {"type": "string", "minLength": 1},
    "endpoint": {"type": "string", "minLength": 1},
    "learners_fnames": {"type": "array", "items": {"type": "string"}},
    "reconcile_interval": {},
    "overwrite_db": {"type": "boolean"},
    "strict_stop": {"type": "boolean"},
    "status_addr": {"type": "string"},
    "scheduler": {
      "type": "object",
      "properties": {
        "kind": {"type": "string", "enum": ["textqueue", "docker"]},
        "queue_command": {"type": "string"},
        "container_label": {"type": "string"},
        "output_patterns": {"type": "array", "items": {"type": "string"}}
      },
      "required": ["kind"]
    }
  },
  "required": ["db_fname", "endpoint"]
}`

var compiledSchema *jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("hpcledger-config.json", mustJSONReader(schemaJSON)); err != nil {
		panic(fmt.Sprintf("config: invalid embedded schema: %v", err))
	}
	s, err := compiler.Compile("hpcledger-config.json")
	if err != nil {
		panic(fmt.Sprintf("config: schema does not compile: %v", err))
	}
	compiledSchema = s
}

// Validate checks cfg against the embedded JSON Schema, after round-tripping
// the struct through encoding/json so the schema sees plain JSON values.
// ReconcileInterval is therefore seen as integer nanoseconds, and the
// schema places no constraint on it.
func Validate(cfg *Config) error {
	doc, err := toValidatableDoc(cfg)
	if err != nil {
		return err
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if cfg.Scheduler.Kind == "" {
		return errors.New("scheduler.kind must be set")
	}
	return nil
}
