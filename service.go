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
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blinklabs-io/lootcrate/api"
	"github.com/blinklabs-io/lootcrate/claim"
	"github.com/blinklabs-io/lootcrate/database"
	"github.com/blinklabs-io/lootcrate/delivery"
	"github.com/blinklabs-io/lootcrate/event"
	"github.com/blinklabs-io/lootcrate/verify"
)

// Service wires the claim pipeline together: datastore, verifiers,
// resolver, delivery, and the HTTP front ends.
type Service struct {
	eventBus      *event.EventBus
	db            *database.Database
	chainClient   *ethclient.Client
	resolver      *claim.Resolver
	apiServer     *api.Server
	metricsServer *http.Server
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Service, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Service{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry),
		done:     make(chan struct{}),
	}, nil
}

func (s *Service) Run() error {
	// Configure tracing
	if s.config.tracing {
		if err := s.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir: s.config.dataDir,
		Logger:  s.config.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	// Connect to the burn chain
	chainClient, err := ethclient.Dial(s.config.chainRpcUrl)
	if err != nil {
		return fmt.Errorf("failed to connect to chain RPC: %w", err)
	}
	s.chainClient = chainClient
	// Configure verifiers
	sigVerifier := verify.NewSignatureVerifier(
		common.HexToAddress(s.config.signingAddress),
		s.config.logger,
	)
	txVerifier := verify.NewTxVerifier(verify.TxVerifierConfig{
		Logger:   s.config.logger,
		Reader:   chainClient,
		MaxTxAge: s.config.maxTxAge,
	})
	// Configure prize delivery
	var payerKey solana.PrivateKey
	if s.config.solanaPayerKey != "" {
		// Validated in configValidate
		payerKey = solana.MustPrivateKeyFromBase58(s.config.solanaPayerKey)
	}
	var mintProgram solana.PublicKey
	if s.config.mintProgram != "" {
		mintProgram = solana.MustPublicKeyFromBase58(s.config.mintProgram)
	}
	submitter := delivery.NewSolanaSubmitter(delivery.SolanaSubmitterConfig{
		Logger:          s.config.logger,
		Client:          rpc.New(s.config.solanaRpcUrl),
		PayerKey:        payerKey,
		MintProgram:     mintProgram,
		MetadataBaseUrl: s.config.metadataBaseUrl,
	})
	dispatcher := delivery.NewDispatcher(submitter, s.config.logger)
	// Configure claim resolver
	s.resolver = claim.NewResolver(claim.ResolverConfig{
		Logger:          s.config.logger,
		Store:           s.db,
		Audit:           s.db.Audit(),
		Signatures:      sigVerifier,
		Chain:           txVerifier,
		Dispatcher:      dispatcher,
		EventBus:        s.eventBus,
		PromRegistry:    s.config.promRegistry,
		BurnContract:    common.HexToAddress(s.config.burnContract),
		FeeRecipient:    common.HexToAddress(s.config.feeRecipient),
		MetadataBaseUrl: s.config.metadataBaseUrl,
	})
	// Surface rejected claims in the service log
	s.eventBus.SubscribeFunc(
		event.ClaimRejectedEventType,
		s.handleClaimRejectedEvent,
	)
	// Start metrics listener
	if s.config.metricsListenAddress != "" {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		s.metricsServer = &http.Server{
			Addr:    s.config.metricsListenAddress,
			Handler: metricsMux,
		}
		go func() {
			s.config.logger.Info(
				"serving metrics",
				"address", s.config.metricsListenAddress,
			)
			if err := s.metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				s.config.logger.Error(
					"metrics server failed",
					"error", err,
				)
			}
		}()
	}
	// Start API listener
	s.apiServer = api.NewServer(api.ServerConfig{
		Logger:        s.config.logger,
		Resolver:      s.resolver,
		Store:         s.db,
		ListenAddress: s.config.listenAddress,
	})
	apiErr := make(chan error, 1)
	go func() {
		apiErr <- s.apiServer.Start()
	}()

	// Wait for shutdown signal or API server failure
	select {
	case err := <-apiErr:
		if err != nil {
			return fmt.Errorf("API server failed: %w", err)
		}
	case <-s.done:
	}
	return nil
}

func (s *Service) handleClaimRejectedEvent(evt event.Event) {
	rejected, ok := evt.Data.(event.ClaimRejectedEvent)
	if !ok {
		return
	}
	s.config.logger.Warn(
		"claim rejected",
		"wallet", rejected.Wallet,
		"burn_tx", rejected.BurnTxRef,
		"stage", rejected.Stage,
		"reason", rejected.Reason,
	)
}

func (s *Service) Stop() error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.shutdown()
	})
	return err
}

func (s *Service) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if s.config.shutdownTimeout > 0 {
		shutdownTimeout = s.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	s.config.logger.Debug("starting graceful shutdown")

	// Stop accepting new claims
	if s.apiServer != nil {
		if stopErr := s.apiServer.Stop(ctx); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("API server shutdown: %w", stopErr),
			)
		}
	}
	if s.metricsServer != nil {
		if stopErr := s.metricsServer.Shutdown(ctx); stopErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("metrics server shutdown: %w", stopErr),
			)
		}
	}

	// Release chain connections
	if s.chainClient != nil {
		s.chainClient.Close()
	}

	// Flush and close the datastore
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Call registered shutdown functions
	for _, fn := range s.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	s.shutdownFuncs = nil

	if s.eventBus != nil {
		s.eventBus.Stop()
	}

	s.config.logger.Debug("graceful shutdown complete")
	close(s.done)
	return err
}
