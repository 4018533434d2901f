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

package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

const (
	// DefaultMaxTxAge is the maximum allowed age of a verified transaction,
	// measured from its block timestamp
	DefaultMaxTxAge = 30 * time.Minute

	// FeeTolerance is the accepted relative deviation between the paid fee
	// and the quoted fee, absorbing price movement between quote and payment
	FeeTolerance = 0.05

	// feeSlack absorbs wei/float rounding when comparing against the
	// tolerance band edges
	feeSlack = 1e-9
)

// Failure reasons surfaced verbatim to the API boundary. They carry no
// sensitive detail.
const (
	ReasonNotFound       = "transaction not found"
	ReasonNotConfirmed   = "transaction not confirmed"
	ReasonFailedOnChain  = "transaction failed on-chain"
	ReasonWrongRecipient = "transaction sent to wrong recipient"
	ReasonWrongSender    = "transaction sender mismatch"
	ReasonBlockNotFound  = "transaction block not found"
	ReasonTooOld         = "transaction too old"
	ReasonNoBurnEvent    = "burn event not found in transaction"
	ReasonBurnPayer      = "burn event payer mismatch"
	ReasonBurnAmount     = "burn amount mismatch"
	ReasonBurnTimestamp  = "burn timestamp mismatch"
	ReasonFeeOutOfRange  = "fee amount outside tolerance"
	ReasonInvalidPrice   = "invalid fee price quote"
	ReasonLookupFailed   = "transaction lookup failed"
)

// BurnEventID is the topic hash of the token burn event emitted by the
// lootbox contract.
var BurnEventID = crypto.Keccak256Hash(
	[]byte("TokensBurned(address,uint256,uint256)"),
)

// burnEventArgs describes the non-indexed burn event data (amount,
// timestamp)
var burnEventArgs = func() abi.Arguments {
	uint256Type, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(fmt.Sprintf("failed to build uint256 ABI type: %s", err))
	}
	return abi.Arguments{
		{Name: "amount", Type: uint256Type},
		{Name: "timestamp", Type: uint256Type},
	}
}()

// Reader is the chain query interface used for transaction verification.
// It is satisfied by [github.com/ethereum/go-ethereum/ethclient.Client].
type Reader interface {
	TransactionByHash(
		ctx context.Context,
		hash common.Hash,
	) (*types.Transaction, bool, error)
	TransactionReceipt(
		ctx context.Context,
		hash common.Hash,
	) (*types.Receipt, error)
	HeaderByNumber(
		ctx context.Context,
		number *big.Int,
	) (*types.Header, error)
}

// Validation is the result of verifying one on-chain transaction. A fresh
// value is produced per verification call and never mutated afterward.
type Validation struct {
	Error     string
	From      common.Address
	Amount    *big.Int
	BlockTime uint64
	Valid     bool
}

func invalid(reason string) Validation {
	return Validation{Error: reason}
}

// BurnCheck carries the expected values for burn-transaction verification.
// Amount and Timestamp must match the decoded burn event exactly.
type BurnCheck struct {
	Amount    *big.Int
	TxHash    common.Hash
	Contract  common.Address
	Sender    common.Address
	Timestamp uint64
}

// FeeCheck carries the expected values for fee-payment verification. The
// paid native value must fall within the tolerance band around
// ExpectedUSD / Price.
type FeeCheck struct {
	ExpectedUSD float64
	Price       float64
	TxHash      common.Hash
	Recipient   common.Address
	Sender      common.Address
}

// TxVerifierConfig configures a TxVerifier.
type TxVerifierConfig struct {
	Logger *slog.Logger
	Reader Reader
	// MaxTxAge overrides DefaultMaxTxAge when non-zero
	MaxTxAge time.Duration
	// NowFunc overrides the clock, used in tests
	NowFunc func() time.Time
}

// TxVerifier verifies fee-payment and token-burn transactions against the
// chain. Each failed precondition short-circuits with a specific reason so
// callers can surface a precise message.
type TxVerifier struct {
	logger  *slog.Logger
	reader  Reader
	nowFunc func() time.Time
	maxAge  time.Duration
}

// NewTxVerifier creates a TxVerifier from the provided config.
func NewTxVerifier(cfg TxVerifierConfig) *TxVerifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	maxAge := cfg.MaxTxAge
	if maxAge == 0 {
		maxAge = DefaultMaxTxAge
	}
	nowFunc := cfg.NowFunc
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &TxVerifier{
		logger:  logger.With("component", "tx-verifier"),
		reader:  cfg.Reader,
		maxAge:  maxAge,
		nowFunc: nowFunc,
	}
}

// fetchVerified runs the shared verification skeleton: the transaction
// exists, is mined, succeeded, targets the expected recipient, originates
// from the expected sender, and is no older than the maximum window.
func (v *TxVerifier) fetchVerified(
	ctx context.Context,
	txHash common.Hash,
	expectedTo common.Address,
	expectedFrom common.Address,
) (*types.Transaction, *types.Receipt, Validation) {
	tx, pending, err := v.reader.TransactionByHash(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil, invalid(ReasonNotFound)
		}
		v.logger.Warn(
			"transaction lookup failed",
			"tx_hash", txHash.Hex(),
			"error", err,
		)
		return nil, nil, invalid(ReasonLookupFailed)
	}
	if tx == nil {
		return nil, nil, invalid(ReasonNotFound)
	}
	if pending {
		return nil, nil, invalid(ReasonNotConfirmed)
	}
	receipt, err := v.reader.TransactionReceipt(ctx, txHash)
	if err != nil || receipt == nil {
		return nil, nil, invalid(ReasonNotConfirmed)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, nil, invalid(ReasonFailedOnChain)
	}
	if tx.To() == nil || *tx.To() != expectedTo {
		return nil, nil, invalid(ReasonWrongRecipient)
	}
	from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx)
	if err != nil || from != expectedFrom {
		return nil, nil, invalid(ReasonWrongSender)
	}
	header, err := v.reader.HeaderByNumber(ctx, receipt.BlockNumber)
	if err != nil || header == nil {
		return nil, nil, invalid(ReasonBlockNotFound)
	}
	age := v.nowFunc().Sub(time.Unix(int64(header.Time), 0)) //nolint:gosec
	if age > v.maxAge {
		return nil, nil, invalid(ReasonTooOld)
	}
	return tx, receipt, Validation{
		Valid:     true,
		From:      from,
		BlockTime: header.Time,
	}
}

// VerifyBurn verifies a token-burn transaction. Beyond the shared skeleton
// it requires the burn event to be present in the receipt logs with a payer
// equal to the expected sender, and the decoded amount and timestamp to
// exactly equal the values claimed in the request.
func (v *TxVerifier) VerifyBurn(
	ctx context.Context,
	check BurnCheck,
) Validation {
	_, receipt, result := v.fetchVerified(
		ctx,
		check.TxHash,
		check.Contract,
		check.Sender,
	)
	if !result.Valid {
		return result
	}
	for _, eventLog := range receipt.Logs {
		if len(eventLog.Topics) < 2 || eventLog.Topics[0] != BurnEventID {
			continue
		}
		payer := common.BytesToAddress(eventLog.Topics[1].Bytes())
		if payer != check.Sender {
			return invalid(ReasonBurnPayer)
		}
		decoded, err := burnEventArgs.Unpack(eventLog.Data)
		if err != nil || len(decoded) != 2 {
			return invalid(ReasonNoBurnEvent)
		}
		amount, ok := decoded[0].(*big.Int)
		if !ok {
			return invalid(ReasonNoBurnEvent)
		}
		timestamp, ok := decoded[1].(*big.Int)
		if !ok {
			return invalid(ReasonNoBurnEvent)
		}
		if check.Amount == nil || amount.Cmp(check.Amount) != 0 {
			return invalid(ReasonBurnAmount)
		}
		if !timestamp.IsUint64() ||
			timestamp.Uint64() != check.Timestamp {
			return invalid(ReasonBurnTimestamp)
		}
		result.Amount = amount
		return result
	}
	return invalid(ReasonNoBurnEvent)
}

// VerifyFee verifies a fee-payment transaction. Beyond the shared skeleton
// it requires the raw transferred value to fall within the tolerance band
// around ExpectedUSD / Price, expressed in native units.
func (v *TxVerifier) VerifyFee(
	ctx context.Context,
	check FeeCheck,
) Validation {
	if check.Price <= 0 || check.ExpectedUSD <= 0 {
		return invalid(ReasonInvalidPrice)
	}
	tx, _, result := v.fetchVerified(
		ctx,
		check.TxHash,
		check.Recipient,
		check.Sender,
	)
	if !result.Valid {
		return result
	}
	expectedNative := check.ExpectedUSD / check.Price
	paidNative, _ := new(big.Float).Quo(
		new(big.Float).SetInt(tx.Value()),
		big.NewFloat(params.Ether),
	).Float64()
	lower := expectedNative * (1 - FeeTolerance) * (1 - feeSlack)
	upper := expectedNative * (1 + FeeTolerance) * (1 + feeSlack)
	if paidNative < lower || paidNative > upper {
		v.logger.Debug(
			"fee outside tolerance",
			"paid", paidNative,
			"expected", expectedNative,
		)
		return invalid(ReasonFeeOutOfRange)
	}
	result.Amount = tx.Value()
	return result
}
