// Package config loads and validates the bridge's JSON configuration,
// following the teacher's main.go sequence: load a .env overlay,
// validate the JSON against an embedded JSON Schema, then decode it with
// DisallowUnknownFields over the defaults.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/fieldtrace/telemetry-bridge/internal/mirror"
)

const schemaDoc = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "log-level": {"type": "string"},
    "log-date": {"type": "boolean"},
    "datalog-dir": {"type": "string"},
    "clients": {
      "type": "array",
      "items": {
        "type": "object",
        "additionalProperties": false,
        "properties": {
          "address": {"type": "string"},
          "port": {"type": "integer", "minimum": 1, "maximum": 65535},
          "identity": {"type": "string"},
          "connect-timeout-ms": {"type": "integer", "minimum": 0},
          "disconnect-retry-interval-ms": {"type": "integer", "minimum": 0}
        },
        "required": ["address", "port", "identity"]
      }
    },
    "mirror": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "address": {"type": "string"},
        "subject": {"type": "string"},
        "username": {"type": "string"},
        "password": {"type": "string"}
      }
    }
  }
}`

// ClientConfig describes one NT4 server this process should connect to
// at startup.
type ClientConfig struct {
	Address                   string `json:"address"`
	Port                      uint16 `json:"port"`
	Identity                  string `json:"identity"`
	ConnectTimeoutMs          int    `json:"connect-timeout-ms"`
	DisconnectRetryIntervalMs int    `json:"disconnect-retry-interval-ms"`
}

// Config is the top-level process configuration.
type Config struct {
	LogLevel   string         `json:"log-level"`
	LogDate    bool           `json:"log-date"`
	DatalogDir string         `json:"datalog-dir"`
	Clients    []ClientConfig `json:"clients"`
	Mirror     mirror.Config  `json:"mirror"`
}

// Default returns a Config with the same baseline defaults the teacher's
// config packages use: a sensible log level and no clients configured.
func Default() Config {
	return Config{
		LogLevel: "info",
	}
}

// Load reads an optional .env overlay, then path as JSON, validates it
// against the embedded schema, and returns the decoded Config merged
// over Default().
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional; absence is not an error

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := validate(raw); err != nil {
		return nil, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	cfg := Default()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader([]byte(schemaDoc))); err != nil {
		return err
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		return err
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}
