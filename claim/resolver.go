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

package claim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blinklabs-io/lootcrate/database"
	"github.com/blinklabs-io/lootcrate/database/models"
	"github.com/blinklabs-io/lootcrate/delivery"
	"github.com/blinklabs-io/lootcrate/event"
	"github.com/blinklabs-io/lootcrate/fair"
	"github.com/blinklabs-io/lootcrate/prize"
	"github.com/blinklabs-io/lootcrate/verify"
)

// Store is the datastore surface the resolver needs. It is satisfied by
// [database.Database].
type Store interface {
	PurchaseByTxRef(txRef string) (*models.Purchase, error)
	AddPurchase(purchase *models.Purchase) error
	PurchaseCountByWallet(wallet string) (uint64, error)
	PrizeStock(prizeId int) (int, error)
	DecrementPrizeStock(prizeId int) (int, error)
	DecrementBoxStock(category string) error
	AddDeliveryError(deliveryError *models.DeliveryError) error
}

// AuditWriter stores the full draw inputs and outcome per claim so a third
// party can replay the draw. Satisfied by [database.AuditStore].
type AuditWriter interface {
	Put(burnTxRef string, value []byte) error
}

// SignatureVerifier checks the server authorization signature on a claim.
// Satisfied by [verify.SignatureVerifier].
type SignatureVerifier interface {
	Verify(
		wallet common.Address,
		amount *big.Int,
		timestamp uint64,
		signature []byte,
	) bool
}

// ChainVerifier checks fee and burn transactions against the chain.
// Satisfied by [verify.TxVerifier].
type ChainVerifier interface {
	VerifyBurn(ctx context.Context, check verify.BurnCheck) verify.Validation
	VerifyFee(ctx context.Context, check verify.FeeCheck) verify.Validation
}

// Dispatcher delivers a drawn prize. Satisfied by [delivery.Dispatcher].
type Dispatcher interface {
	Dispatch(
		ctx context.Context,
		wallet string,
		won prize.Definition,
	) (delivery.Result, error)
}

// ResolverConfig configures a Resolver.
type ResolverConfig struct {
	Logger       *slog.Logger
	Store        Store
	Audit        AuditWriter
	Signatures   SignatureVerifier
	Chain        ChainVerifier
	Dispatcher   Dispatcher
	EventBus     *event.EventBus
	PromRegistry prometheus.Registerer
	// BurnContract is the lootbox token contract emitting burn events
	BurnContract common.Address
	// FeeRecipient receives native fee payments
	FeeRecipient common.Address
	// MetadataBaseUrl is joined with a prize's metadata key to form the
	// NFT metadata URI reported to the claimant
	MetadataBaseUrl string
	// TableForBox overrides the deploy-time prize tables, used in tests
	TableForBox func(prize.Box) *prize.Table
}

// Resolver drives a claim request through the pipeline stages in strict
// order. Any verification stage may terminate the claim with a
// RejectionError; once the draw has happened the claim always reaches a
// terminal success, with delivery or persistence failures downgraded to
// logs and auditable error records.
type Resolver struct {
	logger          *slog.Logger
	store           Store
	audit           AuditWriter
	signatures      SignatureVerifier
	chain           ChainVerifier
	dispatcher      Dispatcher
	eventBus        *event.EventBus
	metrics         *resolverMetrics
	tracer          trace.Tracer
	tableForBox     func(prize.Box) *prize.Table
	burnContract    common.Address
	feeRecipient    common.Address
	metadataBaseUrl string
}

func NewResolver(cfg ResolverConfig) *Resolver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	tableForBox := cfg.TableForBox
	if tableForBox == nil {
		tableForBox = prize.ForBox
	}
	r := &Resolver{
		logger:          logger.With("component", "claim-resolver"),
		tableForBox:     tableForBox,
		store:           cfg.Store,
		audit:           cfg.Audit,
		signatures:      cfg.Signatures,
		chain:           cfg.Chain,
		dispatcher:      cfg.Dispatcher,
		eventBus:        cfg.EventBus,
		tracer:          otel.Tracer("lootcrate/claim"),
		burnContract:    cfg.BurnContract,
		feeRecipient:    cfg.FeeRecipient,
		metadataBaseUrl: cfg.MetadataBaseUrl,
	}
	r.initMetrics(cfg.PromRegistry)
	return r
}

// Resolve runs one claim through the pipeline. A returned *RejectionError
// means a verification stage refused the claim and its message is safe to
// show the user; any other error is an internal failure before the draw.
func (r *Resolver) Resolve(
	ctx context.Context,
	req Request,
) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "claim.resolve",
		trace.WithAttributes(
			attribute.String("claim.wallet", req.Wallet),
			attribute.String("claim.box", req.Box.String()),
			attribute.String("claim.burn_tx", req.TxHash),
		),
	)
	defer span.End()
	r.publish(event.ClaimReceivedEventType, event.ClaimReceivedEvent{
		Wallet:    req.Wallet,
		BurnTxRef: req.TxHash,
		BoxType:   req.Box.String(),
	})

	wallet := common.HexToAddress(req.Wallet)
	if !r.signatures.Verify(
		wallet,
		req.Amount,
		req.Timestamp,
		req.Signature,
	) {
		return nil, r.reject(
			span,
			req,
			StageSignature,
			"Invalid server signature",
		)
	}
	span.AddEvent("signature verified")

	if r.isReplay(req.TxHash) || r.isReplay(req.FeeTxHash) {
		return nil, r.reject(
			span,
			req,
			StageReplay,
			"replay attack detected",
		)
	}
	span.AddEvent("replay checked")

	if req.FeeTxHash != "" {
		expectedUSD := StandardBoxFeeUSD
		if req.Box.IsCrypto() {
			expectedUSD = CryptoBoxFeeUSD
		}
		validation := r.chain.VerifyFee(ctx, verify.FeeCheck{
			TxHash:      common.HexToHash(req.FeeTxHash),
			Recipient:   r.feeRecipient,
			Sender:      wallet,
			ExpectedUSD: expectedUSD,
			Price:       req.FeePrice,
		})
		if !validation.Valid {
			return nil, r.reject(
				span,
				req,
				StageFee,
				fmt.Sprintf(
					"BNB fee validation failed: %s",
					validation.Error,
				),
			)
		}
		span.AddEvent("fee verified")
	}

	validation := r.chain.VerifyBurn(ctx, verify.BurnCheck{
		TxHash:    common.HexToHash(req.TxHash),
		Contract:  r.burnContract,
		Sender:    wallet,
		Amount:    req.Amount,
		Timestamp: req.Timestamp,
	})
	if !validation.Valid {
		return nil, r.reject(span, req, StageBurn, validation.Error)
	}
	span.AddEvent("burn verified")

	// The burn is final from here on. Every failure below is downgraded
	// to a log plus an auditable record; the claimant always receives
	// their prize outcome.
	won, random, err := r.draw(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "draw failed")
		return nil, err
	}
	span.AddEvent("prize drawn", trace.WithAttributes(
		attribute.Int("prize.id", won.ID),
		attribute.String("prize.category", won.Category.String()),
		attribute.Float64("draw.number", random.Number),
	))

	r.updateStock(req, won)
	delivered := r.deliver(ctx, req, won)
	r.persist(req, won, random, delivered)

	r.metrics.claimsTotal.Inc()
	result := &Result{
		PrizeId:     won.ID,
		PrizeName:   won.Name,
		PrizeType:   won.Category.String(),
		Amount:      won.Amount,
		TxSignature: delivered.TxRef,
		NftMint:     delivered.NftMint,
		Random:      random,
	}
	if won.Category == prize.CategoryNft {
		result.NftMetadata = fmt.Sprintf(
			"%s/%s.json",
			r.metadataBaseUrl,
			won.MetadataKey,
		)
	}
	return result, nil
}

// isReplay reports whether a transaction reference was already consumed by
// an earlier purchase. A failed lookup is treated as "not a replay": the
// unique index on the burn reference still blocks a double spend at
// persistence time, and availability wins over strictness here.
func (r *Resolver) isReplay(txRef string) bool {
	if txRef == "" {
		return false
	}
	_, err := r.store.PurchaseByTxRef(txRef)
	if err != nil {
		if !errors.Is(err, database.ErrPurchaseNotFound) {
			r.logger.Warn(
				"replay lookup failed, allowing claim",
				"tx_ref", txRef,
				"error", err,
			)
		}
		return false
	}
	r.logger.Warn("replay attempt detected", "tx_ref", txRef)
	return true
}

// draw computes the provably-fair number for the wallet's next nonce and
// walks the box's prize table with live stock visibility.
func (r *Resolver) draw(
	req Request,
) (prize.Definition, fair.Result, error) {
	nonce, err := r.store.PurchaseCountByWallet(req.Wallet)
	if err != nil {
		return prize.Definition{}, fair.Result{}, fmt.Errorf(
			"claim: nonce lookup: %w",
			err,
		)
	}
	serverSeed, err := fair.NewServerSeed()
	if err != nil {
		return prize.Definition{}, fair.Result{}, fmt.Errorf(
			"claim: %w",
			err,
		)
	}
	random := fair.Compute(req.ClientSeed, serverSeed, nonce)
	won, err := r.tableForBox(req.Box).Draw(random.Number, r.store.PrizeStock)
	if err != nil {
		return prize.Definition{}, fair.Result{}, fmt.Errorf(
			"claim: %w",
			err,
		)
	}
	r.metrics.prizesDrawnTotal.WithLabelValues(
		won.Category.String(),
	).Inc()
	r.publish(event.PrizeDrawnEventType, event.PrizeDrawnEvent{
		Wallet:       req.Wallet,
		PrizeId:      won.ID,
		PrizeName:    won.Name,
		PrizeType:    won.Category.String(),
		RandomNumber: random.Number,
		Nonce:        nonce,
	})
	return won, random, nil
}

// updateStock decrements the box counter and, for physical prizes, the
// prize's own stock. Both are best-effort: a failed counter update must
// not cost the user their already-drawn prize.
func (r *Resolver) updateStock(req Request, won prize.Definition) {
	if err := r.store.DecrementBoxStock(req.Box.String()); err != nil {
		r.logger.Warn(
			"box stock decrement failed",
			"box", req.Box.String(),
			"error", err,
		)
	}
	if won.Category != prize.CategoryPhysical {
		return
	}
	remaining, err := r.store.DecrementPrizeStock(won.ID)
	if err != nil {
		r.logger.Warn(
			"prize stock decrement failed",
			"prize_id", won.ID,
			"error", err,
		)
		return
	}
	r.logger.Debug(
		"prize stock decremented",
		"prize_id", won.ID,
		"remaining", remaining,
	)
}

// deliver dispatches the prize and records any failure as a delivery error
// for out-of-band retry.
func (r *Resolver) deliver(
	ctx context.Context,
	req Request,
	won prize.Definition,
) delivery.Result {
	delivered, err := r.dispatcher.Dispatch(ctx, req.Wallet, won)
	if err != nil {
		r.metrics.deliveryFailTotal.Inc()
		r.logger.Error(
			"prize delivery failed",
			"wallet", req.Wallet,
			"prize_id", won.ID,
			"error", err,
		)
		if dbErr := r.store.AddDeliveryError(&models.DeliveryError{
			Wallet:    req.Wallet,
			BurnTxRef: req.TxHash,
			PrizeId:   won.ID,
			PrizeName: won.Name,
			Reason:    err.Error(),
		}); dbErr != nil {
			r.logger.Error(
				"failed to record delivery error",
				"wallet", req.Wallet,
				"error", dbErr,
			)
		}
	}
	r.publish(event.PrizeDeliveredEventType, event.PrizeDeliveredEvent{
		Wallet:        req.Wallet,
		PrizeName:     won.Name,
		DeliveryTxRef: delivered.TxRef,
		Failed:        err != nil,
	})
	return delivered
}

// persist writes the purchase record and the audit blob. Both failures are
// logged only: the on-chain burn already happened, so the claimant keeps
// their prize regardless of bookkeeping.
func (r *Resolver) persist(
	req Request,
	won prize.Definition,
	random fair.Result,
	delivered delivery.Result,
) {
	status := models.PurchaseStatusCompleted
	if delivered.TxRef == "" && won.Category != prize.CategoryPhysical {
		status = models.PurchaseStatusDeliveryFailed
	}
	purchase := &models.Purchase{
		Wallet:        req.Wallet,
		PrizeId:       won.ID,
		PrizeName:     won.Name,
		PrizeType:     won.Category.String(),
		Amount:        won.Amount,
		ClientSeed:    random.ClientSeed,
		ServerSeed:    random.ServerSeed,
		RandomHash:    random.Hash,
		RandomNumber:  random.Number,
		Nonce:         random.Nonce,
		BurnTxRef:     req.TxHash,
		FeeTxRef:      req.FeeTxHash,
		DeliveryTxRef: delivered.TxRef,
		NftMint:       delivered.NftMint,
		Status:        status,
	}
	if err := r.store.AddPurchase(purchase); err != nil {
		r.metrics.persistFailTotal.Inc()
		r.logger.Error(
			"failed to persist purchase",
			"wallet", req.Wallet,
			"burn_tx", req.TxHash,
			"error", err,
		)
		return
	}
	r.publish(event.PurchaseStoredEventType, event.PurchaseStoredEvent{
		Wallet:    req.Wallet,
		BurnTxRef: req.TxHash,
		PrizeId:   won.ID,
	})
	r.writeAudit(req, won, random, delivered)
}

// auditRecord is the blob stored per claim for third-party fairness
// replay.
type auditRecord struct {
	Wallet        string      `json:"wallet"`
	BurnTxRef     string      `json:"burnTxRef"`
	FeeTxRef      string      `json:"feeTxRef,omitempty"`
	BoxType       string      `json:"boxType"`
	Random        fair.Result `json:"randomData"`
	PrizeId       int         `json:"prizeId"`
	PrizeName     string      `json:"prizeName"`
	PrizeType     string      `json:"prizeType"`
	DeliveryTxRef string      `json:"deliveryTxRef,omitempty"`
	NftMint       string      `json:"nftMint,omitempty"`
}

func (r *Resolver) writeAudit(
	req Request,
	won prize.Definition,
	random fair.Result,
	delivered delivery.Result,
) {
	if r.audit == nil {
		return
	}
	blob, err := json.Marshal(auditRecord{
		Wallet:        req.Wallet,
		BurnTxRef:     req.TxHash,
		FeeTxRef:      req.FeeTxHash,
		BoxType:       req.Box.String(),
		Random:        random,
		PrizeId:       won.ID,
		PrizeName:     won.Name,
		PrizeType:     won.Category.String(),
		DeliveryTxRef: delivered.TxRef,
		NftMint:       delivered.NftMint,
	})
	if err != nil {
		r.logger.Error("failed to encode audit record", "error", err)
		return
	}
	if err := r.audit.Put(req.TxHash, blob); err != nil {
		r.logger.Error(
			"failed to store audit record",
			"burn_tx", req.TxHash,
			"error", err,
		)
	}
}

func (r *Resolver) reject(
	span trace.Span,
	req Request,
	stage string,
	message string,
) error {
	r.metrics.rejectionsTotal.WithLabelValues(stage).Inc()
	r.logger.Info(
		"claim rejected",
		"wallet", req.Wallet,
		"burn_tx", req.TxHash,
		"stage", stage,
		"reason", message,
	)
	span.SetStatus(codes.Error, message)
	span.SetAttributes(attribute.String("claim.rejected_stage", stage))
	r.publish(event.ClaimRejectedEventType, event.ClaimRejectedEvent{
		Wallet:    req.Wallet,
		BurnTxRef: req.TxHash,
		Stage:     stage,
		Reason:    message,
	})
	return &RejectionError{Stage: stage, Message: message}
}

func (r *Resolver) publish(eventType event.EventType, data any) {
	if r.eventBus == nil {
		return
	}
	r.eventBus.Publish(eventType, event.NewEvent(eventType, data))
}
