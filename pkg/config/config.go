// Package config loads the dpc-auth configuration file.
//
// Example:
//
//	Network:
//	  ID: 1
//	Logging:
//	  Level: info
//	  Encoding: console
//	Metrics:
//	  Enabled: true
//	  Namespace: dpcauth
//	  Textfile: /var/lib/node_exporter/dpcauth.prom
package config

import (
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/suffix-labs/dpc-auth/pkg/dpc"
	"github.com/suffix-labs/dpc-auth/pkg/metrics"
)

// Config is the top-level configuration.
type Config struct {
	Network Network `yaml:"Network"`
	Logging Logging `yaml:"Logging"`
	Metrics Metrics `yaml:"Metrics"`
}

// Network selects the network authorizations are bound to.
type Network struct {
	ID uint8 `yaml:"ID"`
}

// Logging configures the zap logger.
type Logging struct {
	Level    string `yaml:"Level"`
	Encoding string `yaml:"Encoding"`
	Path     string `yaml:"Path"`
}

// Metrics configures the Prometheus collector. When Textfile is set the
// gathered metrics are written there in the text exposition format after
// each command.
type Metrics struct {
	Enabled   bool   `yaml:"Enabled"`
	Namespace string `yaml:"Namespace"`
	Textfile  string `yaml:"Textfile"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Network: Network{ID: dpc.TestnetNetworkID},
		Logging: Logging{Level: "info", Encoding: "console"},
		Metrics: Metrics{Namespace: metrics.DefaultNamespace},
	}
}

// Load reads the configuration at path on top of Default. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to read config")
	}
	return Parse(data)
}

// Parse decodes YAML configuration data on top of Default.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, errors.Wrap(err, "problem unmarshaling config data")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the logging settings.
func (c Config) Validate() error {
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return errors.Wrap(err, "log setting")
		}
	}
	switch c.Logging.Encoding {
	case "", "console", "json":
	default:
		return errors.Newf("unsupported log encoding %q", c.Logging.Encoding)
	}
	return nil
}
