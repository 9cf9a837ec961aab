// Package config handles configuration loading and saving.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"

	"github.com/tesso57/feedrelay/internal/application/settings"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Store manages persisted application settings.
type Store struct {
	Settings   settings.Settings
	configPath string
}

// Load loads the configuration from the specified path or default location.
func Load(customPath ...string) (*Store, error) {
	var configPath string
	if len(customPath) > 0 && customPath[0] != "" {
		configPath = customPath[0]
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(home, ".config", "feedrelay", "config.yaml")
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg := settings.Settings{}
	store := &Store{Settings: cfg, configPath: configPath}

	var options []kong.Option

	// Only add configuration loader if file exists
	if _, err := os.Stat(configPath); err == nil {
		options = append(options, kong.Configuration(yamlKongLoader, configPath))
	}

	parser, err := kong.New(&cfg, options...)
	if err != nil {
		return nil, err
	}

	_, err = parser.Parse([]string{})
	if err != nil {
		return nil, err
	}

	store.Settings = cfg
	store.Settings.UserAgent = strings.TrimSpace(store.Settings.UserAgent)
	store.Settings.Database = strings.TrimSpace(store.Settings.Database)
	if store.Settings.Database == "" {
		store.Settings.Database = filepath.Join(defaultDataHome(), "feedrelay", "feedrelay.db")
	}

	if err := store.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	// Save defaults if new file
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := store.Save(); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	return store, nil
}

// Path returns the file the settings are read from.
func (s *Store) Path() string {
	return s.configPath
}

func defaultDataHome() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome != "" {
		return dataHome
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

func yamlKongLoader(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil {
		if err == io.EOF {
			return nil, nil // Return nil resolver (no op)
		}
		return nil, err
	}

	var f kong.ResolverFunc = func(_ *kong.Context, _ *kong.Path, flag *kong.Flag) (any, error) {
		v, ok := lookup(values, flag.Name)
		if !ok {
			return nil, nil
		}
		// Bare numbers for durations are milliseconds.
		if flag.Target.IsValid() && flag.Target.Type() == durationType {
			if ms, ok := v.(int); ok {
				return (time.Duration(ms) * time.Millisecond).String(), nil
			}
		}
		return v, nil
	}
	return f, nil
}

func lookup(values map[string]any, flagName string) (any, bool) {
	// Try various naming conventions
	names := []string{flagName, strings.ReplaceAll(flagName, "-", "_")}
	for _, name := range names {
		// Check direct match
		if v, ok := values[name]; ok {
			return v, true
		}

		// Check nested dot-notation
		parts := strings.Split(name, ".")
		if len(parts) < 2 {
			continue
		}
		curr := values
		for i, part := range parts {
			if i == len(parts)-1 {
				if v, ok := curr[part]; ok {
					return v, true
				}
				break
			}
			nextMap, ok := curr[part].(map[string]any)
			if !ok {
				break
			}
			curr = nextMap
		}
	}
	return nil, false
}

// Save writes the current settings to the config file.
func (s *Store) Save() error {
	f, err := os.Create(s.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return yaml.NewEncoder(f).Encode(s.Settings)
}
