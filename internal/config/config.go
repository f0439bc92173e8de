// Package config loads authservicesapid's configuration: built-in
// defaults overlaid with an optional JSON file at SystemConfigFile,
// merged one level deep, then optionally nudged by a handful of
// environment variables for operational convenience.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SystemConfigFile is the on-disk config location, matching the
// original service's Settings.sysConfigFile.
const SystemConfigFile = "/etc/authservicesapi.conf"

// Config holds all configuration for authservicesapid.
type Config struct {
	Cassandra  CassandraConfig  `json:"cassandra"`
	DefaultOrg DefaultOrgConfig `json:"defaultorg"`
	Server     ServerConfig     `json:"server"`
	Auth       AuthConfig       `json:"auth"`
}

// CassandraConfig describes how to reach the cluster and which
// keyspace holds the auth schema.
type CassandraConfig struct {
	Cluster      string   `json:"cluster"`
	Nodes        []string `json:"nodes"`
	Port         string   `json:"port"`
	AuthKeyspace string   `json:"auth_keyspace"`
}

// DefaultOrgConfig seeds the organization created on first boot.
type DefaultOrgConfig struct {
	Name              string `json:"name"`
	DefaultAdminUser  string `json:"defaultadminuser"`
	DefaultAdminPass  string `json:"defaultadminpass"`
	DefaultAdminEmail string `json:"defaultadminemail"`
}

// ServerConfig holds HTTP server settings. Not part of the original
// config surface, but every server needs somewhere to bind and a
// timeout, and the spec's ambient stack section calls for it.
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"-"`
	WriteTimeout time.Duration `json:"-"`
}

// AuthConfig holds credential/session tuning knobs.
type AuthConfig struct {
	SessionKeyTTL time.Duration `json:"-"`
}

// Defaults returns the built-in configuration, matching
// original_source/settings.py's Settings.config literally.
func Defaults() *Config {
	return &Config{
		Cassandra: CassandraConfig{
			Cluster:      "AuthServices",
			Nodes:        []string{"127.0.0.1"},
			Port:         "9042",
			AuthKeyspace: "authdb",
		},
		DefaultOrg: DefaultOrgConfig{
			Name:              "example.net",
			DefaultAdminUser:  "admin",
			DefaultAdminPass:  "admin",
			DefaultAdminEmail: "admin@example.net",
		},
		Server: ServerConfig{
			Port:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			SessionKeyTTL: 24 * time.Hour,
		},
	}
}

// Load reads SystemConfigFile, if present, over the built-in defaults.
func Load() (*Config, error) {
	cfg, err := LoadFile(SystemConfigFile)
	if err != nil {
		return nil, err
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFile merges the JSON file at path over the defaults, one level
// deep, exactly like Settings.getConfig's mergeConfig: a key survives
// into the result only if it already exists in the defaults, and a
// nested object is merged key-by-key rather than replaced wholesale. A
// missing file is not an error; it just means the defaults stand.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file %q: %w", path, err)
	}

	var overrides map[string]interface{}
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parsing config file %q: %w", path, err)
	}

	defaultsJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling default config: %w", err)
	}
	var defaultsMap map[string]interface{}
	if err := json.Unmarshal(defaultsJSON, &defaultsMap); err != nil {
		return nil, fmt.Errorf("unmarshaling default config: %w", err)
	}

	merged := mergeConfig(defaultsMap, overrides)

	mergedJSON, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("marshaling merged config: %w", err)
	}
	result := Defaults()
	if err := json.Unmarshal(mergedJSON, result); err != nil {
		return nil, fmt.Errorf("unmarshaling merged config: %w", err)
	}
	return result, nil
}

// mergeConfig merges b over a, one level deep, keeping only keys that
// already exist in a. This is the literal shape of
// original_source/settings.py's mergeConfig.
func mergeConfig(a, b map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{}, len(a))
	for k, v := range a {
		result[k] = v
	}
	for k := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		if aMap, ok := result[k].(map[string]interface{}); ok {
			if bMap, ok := bv.(map[string]interface{}); ok {
				result[k] = mergeConfig(aMap, bMap)
				continue
			}
		}
		result[k] = bv
	}
	return result
}

// applyEnvOverrides lets an operator override the cluster address
// without editing the config file, the same convenience the teacher's
// loader offers for its own settings.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUTHSERVICESAPI_CASSANDRA_NODES"); v != "" {
		cfg.Cassandra.Nodes = []string{v}
	}
	if v := os.Getenv("AUTHSERVICESAPI_CASSANDRA_PORT"); v != "" {
		cfg.Cassandra.Port = v
	}
	if v := os.Getenv("AUTHSERVICESAPI_SERVER_PORT"); v != "" {
		cfg.Server.Port = v
	}
}
