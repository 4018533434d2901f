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

package lootcrate

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	promRegistry prometheus.Registerer
	logger       *slog.Logger
	dataDir      string
	// API listen address, e.g. ":8080"
	listenAddress string
	// Prometheus metrics listen address (empty = disabled)
	metricsListenAddress string
	// Burn-chain (EVM) RPC endpoint used for transaction verification
	chainRpcUrl string
	// Lootbox token contract emitting burn events
	burnContract string
	// Recipient of native fee payments
	feeRecipient string
	// Server signing address expected on claim authorization signatures
	signingAddress string
	// Solana RPC endpoint used for prize delivery
	solanaRpcUrl string
	// Base58 private key funding prize payouts and mints
	solanaPayerKey string
	// Program invoked to mint prize NFTs
	mintProgram string
	// Base URL joined with prize metadata keys to form NFT metadata URIs
	metadataBaseUrl string
	maxTxAge        time.Duration
	shutdownTimeout time.Duration
	tracing         bool
	tracingStdout   bool
}

func (c *Config) validate() error {
	if c.listenAddress == "" {
		return errors.New("no API listen address defined")
	}
	if !common.IsHexAddress(c.signingAddress) {
		return fmt.Errorf(
			"invalid signing address: %q",
			c.signingAddress,
		)
	}
	if !common.IsHexAddress(c.burnContract) {
		return fmt.Errorf(
			"invalid burn contract address: %q",
			c.burnContract,
		)
	}
	if c.feeRecipient != "" && !common.IsHexAddress(c.feeRecipient) {
		return fmt.Errorf(
			"invalid fee recipient address: %q",
			c.feeRecipient,
		)
	}
	if c.chainRpcUrl == "" {
		return errors.New("no chain RPC URL defined")
	}
	if c.solanaPayerKey != "" {
		if _, err := solana.PrivateKeyFromBase58(c.solanaPayerKey); err != nil {
			return fmt.Errorf("invalid Solana payer key: %w", err)
		}
	}
	if c.mintProgram != "" {
		if _, err := solana.PublicKeyFromBase58(c.mintProgram); err != nil {
			return fmt.Errorf("invalid mint program address: %w", err)
		}
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the service config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new lootcrate config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithListenAddress specifies the listen address for the claim API
func WithListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.listenAddress = addr
	}
}

// WithMetricsListenAddress specifies the listen address for the Prometheus
// metrics server. An empty string disables the server. The default is
// empty (disabled).
func WithMetricsListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.metricsListenAddress = addr
	}
}

// WithChainRpcUrl specifies the EVM RPC endpoint used to verify fee and
// burn transactions
func WithChainRpcUrl(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.chainRpcUrl = url
	}
}

// WithBurnContract specifies the lootbox token contract address whose burn
// events back prize claims
func WithBurnContract(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.burnContract = addr
	}
}

// WithFeeRecipient specifies the address receiving native fee payments
func WithFeeRecipient(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.feeRecipient = addr
	}
}

// WithSigningAddress specifies the server signing address that claim
// authorization signatures must recover to
func WithSigningAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.signingAddress = addr
	}
}

// WithSolanaRpcUrl specifies the Solana RPC endpoint used for prize
// delivery
func WithSolanaRpcUrl(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.solanaRpcUrl = url
	}
}

// WithSolanaPayerKey specifies the base58 private key funding prize
// payouts and mints
func WithSolanaPayerKey(key string) ConfigOptionFunc {
	return func(c *Config) {
		c.solanaPayerKey = key
	}
}

// WithMintProgram specifies the on-chain program invoked to mint prize
// NFTs
func WithMintProgram(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.mintProgram = addr
	}
}

// WithMetadataBaseUrl specifies the base URL for prize NFT metadata
func WithMetadataBaseUrl(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataBaseUrl = url
	}
}

// WithMaxTxAge specifies the maximum accepted age of a verified burn or
// fee transaction. The default is 30 minutes
func WithMaxTxAge(age time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.maxTxAge = age
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
