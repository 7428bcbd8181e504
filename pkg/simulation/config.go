package simulation

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lao-tseu-is-alive/go-flock-simulation/pkg/flock"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const schemaURL = "https://github.com/lao-tseu-is-alive/go-flock-simulation/config.schema.json"

//go:embed config.schema.json
var configSchema []byte

type Config struct {
	// World Dimensions
	WorldWidth  float64 `json:"worldWidth" yaml:"worldWidth"`
	WorldHeight float64 `json:"worldHeight" yaml:"worldHeight"`

	// Population
	Population int    `json:"population" yaml:"population"`
	Seed       uint64 `json:"seed" yaml:"seed"` // 0 draws a random seed at startup

	// Boids flocking parameters
	Flock flock.Config `json:"flock" yaml:"flock"`
}

func DefaultConfig() *Config {
	return &Config{
		WorldWidth:  1280,
		WorldHeight: 720,
		Population:  300,
		Flock:       flock.DefaultConfig(),
	}
}

// Validate checks the host settings and the flock tuning. Errors wrap
// flock.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	if c.Population <= 0 {
		errs = append(errs, fmt.Errorf("%w: population must be > 0, got %d", flock.ErrInvalidConfig, c.Population))
	}
	if c.WorldWidth <= c.Flock.BoidSize || c.WorldHeight <= c.Flock.BoidSize {
		errs = append(errs, fmt.Errorf("%w: world %vx%v must be larger than boidSize %v",
			flock.ErrInvalidConfig, c.WorldWidth, c.WorldHeight, c.Flock.BoidSize))
	}
	if err := c.Flock.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// YAML renders the configuration in the format LoadConfig reads back.
func (c *Config) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("failed to encode config yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// LoadConfig loads a JSON or YAML configuration file (chosen by extension),
// validates it against the embedded schema and applies it over DefaultConfig.
// Fields missing from the file keep their default value.
func LoadConfig(configFile string) (*Config, error) {
	b, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(configFile))
	if ext == ".yaml" || ext == ".yml" {
		if b, err = yamlToJSON(b); err != nil {
			return nil, err
		}
	}
	return parseConfig(b)
}

func parseConfig(doc []byte) (*Config, error) {
	sch, err := compileSchema()
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(doc, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func compileSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(configSchema)); err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	sch, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return sch, nil
}

// yamlToJSON re-encodes a YAML document so YAML and JSON files share the same
// schema validation and decoding path.
func yamlToJSON(b []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("failed to decode config yaml: %w", err)
	}
	if v == nil {
		v = map[string]any{}
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("config yaml is not representable as json: %w", err)
	}
	return out, nil
}
