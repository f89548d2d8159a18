package config

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	schema "github.com/hanpama/lighthouse/internal/schema"
)

// Config is the lighthouse configuration file.
type Config struct {
	Namespaces    Namespaces    `yaml:"namespaces"`
	Server        Server        `yaml:"server"`
	Subscriptions Subscriptions `yaml:"subscriptions"`
	Otel          Otel          `yaml:"otel"`
	Log           Log           `yaml:"log"`
	Auth          Auth          `yaml:"auth"`
}

// Namespaces maps root types to the resolver namespaces searched for their
// fields, in order.
type Namespaces struct {
	Queries       StringList `yaml:"queries"`
	Mutations     StringList `yaml:"mutations"`
	Subscriptions StringList `yaml:"subscriptions"`
}

// RootNamespaces converts the configured namespaces for schema lookups.
func (n Namespaces) RootNamespaces() schema.RootNamespaces {
	return schema.RootNamespaces{
		Queries:       []string(n.Queries),
		Mutations:     []string(n.Mutations),
		Subscriptions: []string(n.Subscriptions),
	}
}

type Server struct {
	Addr           string        `yaml:"addr" validate:"required"`
	Timeout        time.Duration `yaml:"timeout" validate:"gte=0"`
	Pretty         bool          `yaml:"pretty"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes" validate:"gte=0"`
	QueryCacheSize int           `yaml:"query_cache_size" validate:"gte=0"`
	CORS           StringList    `yaml:"cors"`
}

type Subscriptions struct {
	Storage      string `yaml:"storage" validate:"oneof=memory bolt"`
	BoltPath     string `yaml:"bolt_path" validate:"required_if=Storage bolt"`
	Broadcaster  string `yaml:"broadcaster" validate:"oneof=log memory"`
	QueueSize    int    `yaml:"queue_size" validate:"gte=0"`
	ExcludeEmpty bool   `yaml:"exclude_empty"`
	Version      int    `yaml:"version" validate:"oneof=1 2"`
}

type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service" validate:"required_with=Endpoint"`
}

type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

type Auth struct {
	UserHeader string `yaml:"user_header"`
}

// StringList accepts either a single string or a list of strings.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*s = nil
			return nil
		}
		*s = StringList{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", node.Line)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Namespaces: Namespaces{
			Queries:       StringList{"queries"},
			Mutations:     StringList{"mutations"},
			Subscriptions: StringList{"subscriptions"},
		},
		Server: Server{
			Addr:           ":8080",
			Timeout:        10 * time.Second,
			QueryCacheSize: 100,
		},
		Subscriptions: Subscriptions{
			Storage:     "memory",
			Broadcaster: "log",
			QueueSize:   64,
			Version:     2,
		},
		Otel: Otel{Service: "lighthouse"},
		Log:  Log{Level: "info"},
	}
}

// Load reads the YAML file at path over Default. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML data into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return cfg.Validate()
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validate checks the configuration against its struct tags.
func (c *Config) Validate() error {
	validateOnce.Do(func() { validate = validator.New() })
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
