// Package config holds shared constants and the CLI configuration schema.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const SourceFileExt = ".tern"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".tern"}

// DefaultConfigFile is looked up in the working directory when no
// -config flag is given.
const DefaultConfigFile = "tern.yaml"

// Config is the front-end configuration. It only affects the CLI
// surface (logging, bytecode dumps, tracing); the core pipeline takes
// no configuration.
type Config struct {
	// LogLevel is a logrus level name: panic, fatal, error, warn,
	// info, debug, trace. Empty means "info".
	LogLevel string `yaml:"logLevel"`

	// Disassemble dumps the compiled top-level bytecode before running.
	Disassemble bool `yaml:"disassemble"`

	// Trace logs every executed instruction with the value stack.
	Trace bool `yaml:"trace"`
}

// Load reads a YAML config file. A missing file at the default path is
// not an error; a missing file at an explicit path is.
func Load(path string, explicit bool) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}
