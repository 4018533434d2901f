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

package service

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/lootcrate"
	"github.com/blinklabs-io/lootcrate/internal/config"
	"github.com/prometheus/client_golang/prometheus"
)

// Run builds a lootcrate service from the loaded config and runs it until
// an interrupt/termination signal arrives or the service fails.
func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "service")

	// Parse shutdown timeout
	shutdownTimeout := 30 * time.Second // Default timeout
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	var maxTxAge time.Duration
	if cfg.MaxTxAge != "" {
		var err error
		maxTxAge, err = time.ParseDuration(cfg.MaxTxAge)
		if err != nil {
			return fmt.Errorf("invalid max transaction age: %w", err)
		}
	}

	svc, err := lootcrate.New(
		lootcrate.NewConfig(
			lootcrate.WithLogger(logger),
			lootcrate.WithDataDir(cfg.DatabasePath),
			lootcrate.WithListenAddress(cfg.ListenAddress),
			lootcrate.WithMetricsListenAddress(cfg.MetricsListenAddress),
			lootcrate.WithChainRpcUrl(cfg.ChainRpcUrl),
			lootcrate.WithBurnContract(cfg.BurnContract),
			lootcrate.WithFeeRecipient(cfg.FeeRecipient),
			lootcrate.WithSigningAddress(cfg.SigningAddress),
			lootcrate.WithSolanaRpcUrl(cfg.SolanaRpcUrl),
			lootcrate.WithSolanaPayerKey(cfg.SolanaPayerKey),
			lootcrate.WithMintProgram(cfg.MintProgram),
			lootcrate.WithMetadataBaseUrl(cfg.MetadataBaseUrl),
			lootcrate.WithMaxTxAge(maxTxAge),
			lootcrate.WithShutdownTimeout(shutdownTimeout),
			lootcrate.WithTracing(cfg.Tracing),
			lootcrate.WithTracingStdout(cfg.TracingStdout),
			// Enable metrics with default prometheus registry
			lootcrate.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return err
	}

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run service in goroutine
	errChan := make(chan error, 1)
	go func() {
		err := svc.Run()
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		if err := svc.Stop(); err != nil {
			logger.Error("shutdown error", "error", err)
			return err
		}
		logger.Info("graceful shutdown complete")
		return nil
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("service failed: %w", err)
		}
		return nil
	}
}
