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

// Package api exposes the claim pipeline over HTTP.
package api

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/blinklabs-io/lootcrate/claim"
	"github.com/blinklabs-io/lootcrate/database"
	"github.com/blinklabs-io/lootcrate/database/models"
	"github.com/blinklabs-io/lootcrate/prize"
)

// Resolver runs a claim through the pipeline. Satisfied by
// [claim.Resolver].
type Resolver interface {
	Resolve(ctx context.Context, req claim.Request) (*claim.Result, error)
}

// Store is the datastore surface for the shipping-claim flow. Satisfied by
// [database.Database].
type Store interface {
	PurchaseByTxRef(txRef string) (*models.Purchase, error)
	MarkPurchaseShippingClaimed(burnTxRef string) error
}

// ServerConfig configures an API Server.
type ServerConfig struct {
	Logger        *slog.Logger
	Resolver      Resolver
	Store         Store
	ListenAddress string
}

// Server is the HTTP front end for claim and shipping-claim requests.
type Server struct {
	logger   *slog.Logger
	resolver Resolver
	store    Store
	engine   *gin.Engine
	srv      *http.Server
}

func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s := &Server{
		logger:   logger.With("component", "api"),
		resolver: cfg.Resolver,
		store:    cfg.Store,
		engine:   engine,
		srv: &http.Server{
			Addr:    cfg.ListenAddress,
			Handler: engine,
		},
	}
	engine.GET("/health", s.handleHealth)
	engine.POST("/api/claim-prize", s.handleClaimPrize)
	engine.POST("/api/shipping-claim", s.handleShippingClaim)
	return s
}

// Engine returns the underlying gin engine, used in tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start serves HTTP until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("listening for API requests", "address", s.srv.Addr)
	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// claimPrizeRequest is the claim-prize wire shape.
type claimPrizeRequest struct {
	Wallet     string `json:"wallet"     binding:"required"`
	Amount     string `json:"amount"     binding:"required"`
	TxHash     string `json:"txHash"     binding:"required"`
	Signature  string `json:"signature"  binding:"required"`
	ClientSeed string `json:"clientSeed" binding:"required"`
	// FeeTxHash and FeePrice are only present when the box charges a
	// separate native fee
	FeeTxHash string  `json:"bnbFeeTransactionHash"`
	FeePrice  float64 `json:"bnbPrice"`
	Timestamp uint64  `json:"timestamp"  binding:"required"`
	BoxType   int     `json:"boxType"`
}

func failure(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error":   message,
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"healthy": true})
}

func (s *Server) handleClaimPrize(c *gin.Context) {
	var wire claimPrizeRequest
	if err := c.ShouldBindJSON(&wire); err != nil {
		failure(
			c,
			http.StatusBadRequest,
			fmt.Sprintf("invalid request: %s", err),
		)
		return
	}
	req, err := parseClaim(wire)
	if err != nil {
		failure(c, http.StatusBadRequest, err.Error())
		return
	}
	result, err := s.resolver.Resolve(c.Request.Context(), req)
	if err != nil {
		var rejection *claim.RejectionError
		if errors.As(err, &rejection) {
			failure(c, http.StatusBadRequest, rejection.Message)
			return
		}
		s.logger.Error(
			"claim failed",
			"wallet", wire.Wallet,
			"burn_tx", wire.TxHash,
			"error", err,
		)
		failure(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"prizeId":     result.PrizeId,
		"prizeName":   result.PrizeName,
		"prizeType":   result.PrizeType,
		"amount":      result.Amount,
		"txSignature": result.TxSignature,
		"nftMint":     result.NftMint,
		"nftMetadata": result.NftMetadata,
		"randomData":  result.Random,
	})
}

// parseClaim converts the wire shape into a typed claim request. The
// amount is accepted in decimal or scientific notation since it arrives as
// a stringified uint256.
func parseClaim(wire claimPrizeRequest) (claim.Request, error) {
	amount, ok := new(big.Float).SetString(wire.Amount)
	if !ok {
		return claim.Request{}, errors.New("invalid amount")
	}
	amountInt, accuracy := amount.Int(nil)
	if accuracy != big.Exact || amountInt.Sign() <= 0 {
		return claim.Request{}, errors.New("invalid amount")
	}
	signature, err := hex.DecodeString(
		strings.TrimPrefix(wire.Signature, "0x"),
	)
	if err != nil {
		return claim.Request{}, errors.New("invalid signature encoding")
	}
	box := prize.BoxStandard
	if wire.BoxType == int(prize.BoxCrypto) {
		box = prize.BoxCrypto
	}
	return claim.Request{
		Wallet:     wire.Wallet,
		Amount:     amountInt,
		Timestamp:  wire.Timestamp,
		TxHash:     wire.TxHash,
		Signature:  signature,
		ClientSeed: wire.ClientSeed,
		FeeTxHash:  wire.FeeTxHash,
		FeePrice:   wire.FeePrice,
		Box:        box,
	}, nil
}

// shippingClaimRequest is the shipping-claim wire shape. The burn
// transaction reference identifies the purchase being fulfilled.
type shippingClaimRequest struct {
	TxHash string `json:"txHash" binding:"required"`
}

func (s *Server) handleShippingClaim(c *gin.Context) {
	var wire shippingClaimRequest
	if err := c.ShouldBindJSON(&wire); err != nil {
		failure(
			c,
			http.StatusBadRequest,
			fmt.Sprintf("invalid request: %s", err),
		)
		return
	}
	purchase, err := s.store.PurchaseByTxRef(wire.TxHash)
	if err != nil {
		if errors.Is(err, database.ErrPurchaseNotFound) {
			failure(c, http.StatusNotFound, "purchase not found")
			return
		}
		s.logger.Error(
			"shipping claim lookup failed",
			"burn_tx", wire.TxHash,
			"error", err,
		)
		failure(c, http.StatusInternalServerError, "internal error")
		return
	}
	if purchase.PrizeType != prize.CategoryPhysical.String() {
		failure(c, http.StatusBadRequest, "prize is not physical")
		return
	}
	if err := s.store.MarkPurchaseShippingClaimed(wire.TxHash); err != nil {
		if errors.Is(err, database.ErrPurchaseNotFound) {
			failure(c, http.StatusBadRequest, "shipping already claimed")
			return
		}
		s.logger.Error(
			"shipping claim update failed",
			"burn_tx", wire.TxHash,
			"error", err,
		)
		failure(c, http.StatusInternalServerError, "internal error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
