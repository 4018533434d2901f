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

// Package claim implements the prize claim pipeline: a claim request moves
// through signature verification, replay detection, fee and burn
// verification, the provably-fair draw, stock updates, delivery, and
// persistence. Verification failures reject the claim; failures after the
// draw never do, because the burn backing the claim is already final.
package claim

import (
	"math/big"

	"github.com/blinklabs-io/lootcrate/fair"
	"github.com/blinklabs-io/lootcrate/prize"
)

// Expected fee tiers in USD, selected by box category.
const (
	CryptoBoxFeeUSD   = 1.65
	StandardBoxFeeUSD = 3.30
)

// Pipeline stage names, used in events, metrics, and rejection errors.
const (
	StageSignature   = "signature"
	StageReplay      = "replay"
	StageFee         = "fee"
	StageBurn        = "burn"
	StageDraw        = "draw"
	StageStock       = "stock"
	StageDelivery    = "delivery"
	StagePersistence = "persistence"
)

// RejectionError is a claim rejected by a verification stage. Its message
// is safe to surface verbatim to the end user.
type RejectionError struct {
	Stage   string
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

// Request is a fully parsed claim request.
type Request struct {
	// Wallet is the claimant's address in hex form
	Wallet string
	// Amount is the token amount the claimant reports having burned
	Amount *big.Int
	// Timestamp is the claimant-reported burn timestamp (unix seconds)
	Timestamp uint64
	// TxHash references the burn transaction
	TxHash string
	// Signature is the server authorization signature over
	// (wallet, amount, timestamp)
	Signature []byte
	// ClientSeed is the claimant's contribution to the draw
	ClientSeed string
	// FeeTxHash optionally references the fee payment transaction
	FeeTxHash string
	// FeePrice is the native coin USD price quoted at fee payment time,
	// required when FeeTxHash is set
	FeePrice float64
	// Box selects the prize table
	Box prize.Box
}

// Result is the outcome of a successfully resolved claim. Random carries
// the revealed draw inputs so the claimant can verify fairness.
type Result struct {
	Random      fair.Result
	PrizeName   string
	PrizeType   string
	TxSignature string
	NftMint     string
	NftMetadata string
	Amount      uint64
	PrizeId     int
}
