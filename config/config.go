// Package config loads the YAML settings shared by the command line tools:
// which memcached servers to talk to, client behaviors, and how to pool
// connections.
package config

import (
	"bytes"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lericson/pylibmc/errors"
	"github.com/lericson/pylibmc/memcache"
	"github.com/lericson/pylibmc/resource_pool"
)

const (
	PoolKindBounded = "bounded"
	PoolKindMapped  = "mapped"

	// A Servers list consisting of only this entry selects the in-process
	// mock client.
	MockServer = "mock"

	// Environment variable overriding Servers (comma separated specs).
	ServersEnvVar = "MEMCACHED_SERVERS"
)

type Config struct {
	Servers []string `yaml:"servers"`

	// Requests the binary protocol.  Same as the binary_protocol behavior.
	Binary bool `yaml:"binary"`

	// Behavior name -> value, see memcache.NewBehaviors.
	Behaviors map[string]string `yaml:"behaviors"`

	Pool PoolConfig `yaml:"pool"`
}

type PoolConfig struct {
	Kind string `yaml:"kind"` // bounded | mapped

	// Capacity of a bounded pool.  Ignored by mapped pools.
	Slots int `yaml:"slots"`

	// How long to wait for a bounded pool's connection.  Zero waits
	// forever.
	ReserveTimeout time.Duration `yaml:"reserve_timeout"`
}

func Default() *Config {
	return &Config{
		Servers:   []string{"127.0.0.1"},
		Behaviors: map[string]string{},
		Pool: PoolConfig{
			Kind:  PoolKindBounded,
			Slots: 4,
		},
	}
}

// Reads the YAML file at path on top of Default(), then applies
// environment overrides and validates the result.  An empty path skips the
// file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := ioutil.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "Failed to read config file %s", path)
		}
		if err := decode(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "Failed to parse config file %s", path)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Same as Load, for an in-memory document and without environment
// overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decode(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return memcache.WrapInvalidConfigurationError(err, "Malformed YAML")
	}
	if len(root.Content) == 0 {
		// Empty document.
		return nil
	}

	doc := root.Content[0]
	if doc.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.Content); i += 2 {
			if doc.Content[i].Value == "behaviours" {
				return memcache.NewInvalidConfigurationError(
					"Unknown key \"behaviours\", did you mean \"behaviors\"?")
			}
		}
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return memcache.WrapInvalidConfigurationError(err, "Invalid config")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	servers := os.Getenv(ServersEnvVar)
	if servers == "" {
		return
	}

	cfg.Servers = cfg.Servers[:0]
	for _, spec := range strings.Split(servers, ",") {
		if spec = strings.TrimSpace(spec); spec != "" {
			cfg.Servers = append(cfg.Servers, spec)
		}
	}
}

func (c *Config) IsMock() bool {
	return len(c.Servers) == 1 && c.Servers[0] == MockServer
}

// Checks everything that can be checked without connecting.  Errors are
// InvalidConfigurationErrors.
func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return memcache.NewInvalidConfigurationError("No servers configured")
	}
	if !c.IsMock() {
		if _, err := memcache.ParseServerSpecs(c.Servers); err != nil {
			return err
		}
	}
	if _, err := memcache.NewBehaviors(c.behaviors()); err != nil {
		return err
	}

	switch c.Pool.Kind {
	case PoolKindBounded:
		if c.Pool.Slots <= 0 {
			return memcache.NewInvalidConfigurationError(
				"pool.slots must be positive, got %d",
				c.Pool.Slots)
		}
	case PoolKindMapped:
	default:
		return memcache.NewInvalidConfigurationError(
			"Unknown pool kind %q (expected %q or %q)",
			c.Pool.Kind,
			PoolKindBounded,
			PoolKindMapped)
	}

	if c.Pool.ReserveTimeout < 0 {
		return memcache.NewInvalidConfigurationError(
			"pool.reserve_timeout must not be negative, got %s",
			c.Pool.ReserveTimeout)
	}
	return nil
}

// Behaviors with Binary folded in.
func (c *Config) behaviors() map[string]string {
	res := make(map[string]string, len(c.Behaviors)+1)
	for k, v := range c.Behaviors {
		res[k] = v
	}
	if c.Binary {
		res["binary_protocol"] = "true"
	}
	return res
}

// Builds the master connection the pools clone from.
func NewConnection(cfg *Config) (memcache.Connection, error) {
	behaviors, err := memcache.NewBehaviors(cfg.behaviors())
	if err != nil {
		return nil, err
	}

	if cfg.IsMock() {
		return memcache.NewMockClientWithConfig(
			[]memcache.ServerAddress{{
				Type: memcache.ServerTypeTCP,
				Host: MockServer,
				Port: memcache.DefaultPort,
			}},
			behaviors), nil
	}

	servers, err := memcache.ParseServerSpecs(cfg.Servers)
	if err != nil {
		return nil, err
	}
	client, err := memcache.NewGomemcacheClient(servers, behaviors, 0)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Builds the configured kind of pool around master.  Bounded pools are
// filled up front.
func NewPool(
	cfg *Config,
	master memcache.Connection,
	options resource_pool.Options) (resource_pool.Pool, error) {

	var pool resource_pool.Pool
	var err error
	switch cfg.Pool.Kind {
	case PoolKindBounded:
		pool, err = resource_pool.NewFilledClientPool(
			master,
			cfg.Pool.Slots,
			options)
	case PoolKindMapped:
		pool, err = resource_pool.NewThreadMappedPool(master, options)
	default:
		err = memcache.NewInvalidConfigurationError(
			"Unknown pool kind %q",
			cfg.Pool.Kind)
	}
	if err != nil {
		return nil, err
	}
	return pool, nil
}
