// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "lootcrate.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	ListenAddress        string `yaml:"listenAddress"        split_words:"true"`
	MetricsListenAddress string `yaml:"metricsListenAddress" split_words:"true"`
	DatabasePath         string `yaml:"databasePath"         split_words:"true"`
	ChainRpcUrl          string `yaml:"chainRpcUrl"          envconfig:"LOOTCRATE_CHAIN_RPC_URL"`
	BurnContract         string `yaml:"burnContract"         split_words:"true"`
	FeeRecipient         string `yaml:"feeRecipient"         split_words:"true"`
	SigningAddress       string `yaml:"signingAddress"       split_words:"true"`
	SolanaRpcUrl         string `yaml:"solanaRpcUrl"         envconfig:"LOOTCRATE_SOLANA_RPC_URL"`
	SolanaPayerKey       string `yaml:"solanaPayerKey"       split_words:"true"`
	MintProgram          string `yaml:"mintProgram"          split_words:"true"`
	MetadataBaseUrl      string `yaml:"metadataBaseUrl"      envconfig:"LOOTCRATE_METADATA_BASE_URL"`
	MaxTxAge             string `yaml:"maxTxAge"             envconfig:"LOOTCRATE_MAX_TX_AGE"`
	ShutdownTimeout      string `yaml:"shutdownTimeout"      split_words:"true"`
	Tracing              bool   `yaml:"tracing"`
	TracingStdout        bool   `yaml:"tracingStdout"        split_words:"true"`
}

var globalConfig = &Config{
	ListenAddress:        ":8080",
	MetricsListenAddress: "",
	DatabasePath:         ".lootcrate",
	ShutdownTimeout:      DefaultShutdownTimeout,
}

// LoadConfig loads the service config from an optional YAML file with
// environment variable overrides. When no file is given, well-known
// locations are checked.
func LoadConfig(configFile string) (*Config, error) {
	if configFile == "" {
		// Check for config file in this path: ~/.lootcrate/lootcrate.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(
				homeDir,
				".lootcrate",
				"lootcrate.yaml",
			)
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}
		if configFile == "" {
			systemPath := "/etc/lootcrate/lootcrate.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Environment variables take precedence over the config file
	if err := envconfig.Process("lootcrate", globalConfig); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	return globalConfig, nil
}

// GetConfig returns the global config instance
func GetConfig() *Config {
	return globalConfig
}
