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

// Package delivery hands a drawn prize to its winner. Currency prizes are
// paid out as a native transfer, NFT prizes are minted to the winner's
// wallet, and physical prizes take no on-chain action until the winner
// files a shipping claim.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/lootcrate/prize"
)

var ErrUnknownCategory = errors.New("unknown prize category")

// Submitter abstracts the chain operations delivery needs. The production
// implementation is SolanaSubmitter.
type Submitter interface {
	// SendNativeTransfer sends lamports to a recipient wallet and returns
	// the transaction signature.
	SendNativeTransfer(
		ctx context.Context,
		recipient string,
		lamports uint64,
		memo string,
	) (string, error)
	// ConfirmTransaction blocks until the given signature is confirmed on
	// chain or the context expires.
	ConfirmTransaction(ctx context.Context, txRef string) error
	// Mint mints an NFT for the given metadata key to a recipient wallet,
	// returning the new mint address and the transaction signature.
	Mint(
		ctx context.Context,
		recipient string,
		metadataKey string,
	) (string, string, error)
}

// Result describes the on-chain outcome of a delivery. Both fields are
// empty for physical prizes and for failed deliveries.
type Result struct {
	TxRef   string
	NftMint string
}

// Dispatcher routes a drawn prize to the delivery path for its category.
type Dispatcher struct {
	logger    *slog.Logger
	submitter Submitter
}

func NewDispatcher(
	submitter Submitter,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Dispatcher{
		logger:    logger.With("component", "delivery"),
		submitter: submitter,
	}
}

// Dispatch delivers a prize to the winner's wallet. A non-nil error means
// the prize was not (or may not have been) delivered; the caller records it
// as a delivery error and continues, since the burn backing the claim is
// already final.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	wallet string,
	won prize.Definition,
) (Result, error) {
	switch won.Category {
	case prize.CategoryCurrency:
		memo := fmt.Sprintf("lootcrate:%d:%s", won.ID, won.Name)
		txRef, err := d.submitter.SendNativeTransfer(
			ctx,
			wallet,
			won.Amount,
			memo,
		)
		if err != nil {
			return Result{}, fmt.Errorf("native transfer: %w", err)
		}
		if err := d.submitter.ConfirmTransaction(ctx, txRef); err != nil {
			return Result{}, fmt.Errorf(
				"confirm transfer %s: %w",
				txRef,
				err,
			)
		}
		d.logger.Info(
			"delivered currency prize",
			"wallet", wallet,
			"prize_id", won.ID,
			"lamports", won.Amount,
			"tx_ref", txRef,
		)
		return Result{TxRef: txRef}, nil
	case prize.CategoryNft:
		mint, txRef, err := d.submitter.Mint(ctx, wallet, won.MetadataKey)
		if err != nil {
			return Result{}, fmt.Errorf("mint nft: %w", err)
		}
		d.logger.Info(
			"delivered nft prize",
			"wallet", wallet,
			"prize_id", won.ID,
			"nft_mint", mint,
			"tx_ref", txRef,
		)
		return Result{TxRef: txRef, NftMint: mint}, nil
	case prize.CategoryPhysical:
		// Fulfilled later through the shipping-claim flow
		d.logger.Info(
			"recorded physical prize for shipping claim",
			"wallet", wallet,
			"prize_id", won.ID,
		)
		return Result{}, nil
	default:
		return Result{}, fmt.Errorf(
			"%w: %d",
			ErrUnknownCategory,
			int(won.Category),
		)
	}
}
