// Package config loads and validates the declarative process configuration:
// where sources come from, which sizes and encodings to produce, and which
// super-resolution model to use.
package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Options controls where the configuration file is looked up.
type Options struct {
	// Path is the configuration file. When empty, "imgtools.yaml" in the
	// working directory is used.
	Path string
	// EnvPrefix namespaces environment overrides, e.g. IMGTOOLS_OUTPUT_PATH.
	EnvPrefix string
	// Watch reloads the bound struct when the file changes on disk.
	Watch bool
	// OnChange runs after a successful watched reload.
	OnChange func(e fsnotify.Event)
}

// DefaultOptions returns the conventional lookup options.
func DefaultOptions() Options {
	path := os.Getenv("IMGTOOLS_CONFIG")
	if path == "" {
		path = "imgtools.yaml"
	}
	return Options{
		Path:      path,
		EnvPrefix: "IMGTOOLS",
	}
}

// Config wraps a viper instance bound to one configuration file.
type Config struct {
	instance   *viper.Viper
	opts       Options
	watchOnce  sync.Once
	watchMutex sync.RWMutex
}

// New reads the configuration file described by opts (DefaultOptions when
// none given).
func New(optsArr ...Options) (*Config, error) {
	var opts Options
	if len(optsArr) == 0 {
		opts = DefaultOptions()
	} else {
		opts = optsArr[0]
	}

	v := viper.New()
	v.SetConfigFile(opts.Path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", opts.Path, err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()
	applyEnvOverrides(v, opts.EnvPrefix)

	return &Config{instance: v, opts: opts}, nil
}

// Bind unmarshals the configuration into instance. With Watch enabled the
// struct is re-unmarshaled whenever the file changes.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("unmarshal config %s: %w", c.opts.Path, err)
	}

	if c.opts.Watch {
		c.watchOnce.Do(func() {
			c.instance.WatchConfig()
			c.instance.OnConfigChange(func(e fsnotify.Event) {
				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()

				if err := c.instance.Unmarshal(instance); err != nil {
					fmt.Fprintf(os.Stderr, "config watch error: %v\n", err)
					return
				}
				if c.opts.OnChange != nil {
					c.opts.OnChange(e)
				}
			})
		})
	}

	return nil
}

// BindWithDefaults fills instance's `default` tags before and after binding
// so omitted keys end up with their documented values.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("setting defaults: %w", err)
	}
	if err := c.Bind(instance); err != nil {
		return err
	}
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("setting defaults after unmarshal: %w", err)
	}
	return nil
}

// Get returns a raw configuration value.
func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()
	return c.instance.Get(key)
}

// applyEnvOverrides gives environment variables priority over file values
// for every key present in the file.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_")
	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}
		if envValue := os.Getenv(envKey); envValue != "" {
			v.Set(key, envValue)
		}
	}
}
