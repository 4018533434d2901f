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

package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
)

const (
	defaultConfirmTimeout  = 60 * time.Second
	defaultConfirmInterval = 2 * time.Second
)

var memoProgramId = solana.MustPublicKeyFromBase58(
	"MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr",
)

var (
	ErrTransactionFailed   = errors.New("transaction failed on chain")
	ErrConfirmationTimeout = errors.New("transaction confirmation timed out")
)

// SolanaSubmitterConfig configures a SolanaSubmitter
type SolanaSubmitterConfig struct {
	Logger *slog.Logger
	// Client is the RPC client used for all chain operations
	Client *rpc.Client
	// PayerKey funds and signs all outgoing transactions
	PayerKey solana.PrivateKey
	// MintProgram is the on-chain program invoked to mint prize NFTs
	MintProgram solana.PublicKey
	// MetadataBaseUrl is joined with a prize's metadata key to form the
	// NFT metadata URI
	MetadataBaseUrl string
	// ConfirmTimeout bounds how long ConfirmTransaction waits
	ConfirmTimeout time.Duration
	// ConfirmInterval is the signature status polling interval
	ConfirmInterval time.Duration
}

// SolanaSubmitter implements Submitter against a Solana RPC endpoint.
type SolanaSubmitter struct {
	logger          *slog.Logger
	client          *rpc.Client
	payerKey        solana.PrivateKey
	mintProgram     solana.PublicKey
	metadataBaseUrl string
	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

func NewSolanaSubmitter(cfg SolanaSubmitterConfig) *SolanaSubmitter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	confirmTimeout := cfg.ConfirmTimeout
	if confirmTimeout == 0 {
		confirmTimeout = defaultConfirmTimeout
	}
	confirmInterval := cfg.ConfirmInterval
	if confirmInterval == 0 {
		confirmInterval = defaultConfirmInterval
	}
	return &SolanaSubmitter{
		logger:          logger.With("component", "solana-submitter"),
		client:          cfg.Client,
		payerKey:        cfg.PayerKey,
		mintProgram:     cfg.MintProgram,
		metadataBaseUrl: cfg.MetadataBaseUrl,
		confirmTimeout:  confirmTimeout,
		confirmInterval: confirmInterval,
	}
}

// SendNativeTransfer sends lamports from the payer to a recipient wallet,
// tagging the transaction with a memo, and returns the signature.
func (s *SolanaSubmitter) SendNativeTransfer(
	ctx context.Context,
	recipient string,
	lamports uint64,
	memo string,
) (string, error) {
	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", fmt.Errorf("parse recipient wallet: %w", err)
	}
	payerKey := s.payerKey.PublicKey()
	instructions := []solana.Instruction{
		system.NewTransferInstruction(
			lamports,
			payerKey,
			recipientKey,
		).Build(),
	}
	if memo != "" {
		instructions = append(instructions, solana.NewInstruction(
			memoProgramId,
			solana.AccountMetaSlice{},
			[]byte(memo),
		))
	}
	return s.signAndSend(ctx, instructions, nil)
}

// ConfirmTransaction polls signature statuses until the transaction is
// confirmed, failed, or the timeout expires.
func (s *SolanaSubmitter) ConfirmTransaction(
	ctx context.Context,
	txRef string,
) error {
	sig, err := solana.SignatureFromBase58(txRef)
	if err != nil {
		return fmt.Errorf("parse transaction signature: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()
	ticker := time.NewTicker(s.confirmInterval)
	defer ticker.Stop()
	for {
		statuses, err := s.client.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			s.logger.Debug(
				"signature status lookup failed",
				"tx_ref", txRef,
				"error", err,
			)
		} else if statuses != nil && len(statuses.Value) > 0 &&
			statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf(
					"%w: %v",
					ErrTransactionFailed,
					status.Err,
				)
			}
			switch status.ConfirmationStatus {
			case rpc.ConfirmationStatusConfirmed,
				rpc.ConfirmationStatusFinalized:
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf(
				"%w: %s",
				ErrConfirmationTimeout,
				txRef,
			)
		case <-ticker.C:
		}
	}
}

// Mint mints a prize NFT to the recipient by invoking the configured mint
// program with a freshly generated mint account. Returns the mint address
// and the transaction signature.
func (s *SolanaSubmitter) Mint(
	ctx context.Context,
	recipient string,
	metadataKey string,
) (string, string, error) {
	recipientKey, err := solana.PublicKeyFromBase58(recipient)
	if err != nil {
		return "", "", fmt.Errorf("parse recipient wallet: %w", err)
	}
	mintWallet := solana.NewWallet()
	mintKey := mintWallet.PublicKey()
	metadataUri := fmt.Sprintf(
		"%s/%s.json",
		s.metadataBaseUrl,
		metadataKey,
	)
	// Mint instruction: discriminator followed by the metadata URI. The
	// mint program derives everything else from the account list.
	data := append([]byte{0}, []byte(metadataUri)...)
	instruction := solana.NewInstruction(
		s.mintProgram,
		solana.AccountMetaSlice{
			{PublicKey: mintKey, IsSigner: true, IsWritable: true},
			{PublicKey: recipientKey, IsSigner: false, IsWritable: true},
			{
				PublicKey:  s.payerKey.PublicKey(),
				IsSigner:   true,
				IsWritable: true,
			},
		},
		data,
	)
	txRef, err := s.signAndSend(
		ctx,
		[]solana.Instruction{instruction},
		&mintWallet.PrivateKey,
	)
	if err != nil {
		return "", "", err
	}
	if err := s.ConfirmTransaction(ctx, txRef); err != nil {
		return "", "", err
	}
	return mintKey.String(), txRef, nil
}

// signAndSend builds a transaction from the given instructions, signs with
// the payer key (and the optional extra key), and broadcasts it.
func (s *SolanaSubmitter) signAndSend(
	ctx context.Context,
	instructions []solana.Instruction,
	extraKey *solana.PrivateKey,
) (string, error) {
	payerKey := s.payerKey.PublicKey()
	blockhash, err := s.client.GetLatestBlockhash(
		ctx,
		rpc.CommitmentFinalized,
	)
	if err != nil {
		return "", fmt.Errorf("get latest blockhash: %w", err)
	}
	tx, err := solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(payerKey),
	)
	if err != nil {
		return "", fmt.Errorf("build transaction: %w", err)
	}
	_, err = tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(payerKey) {
			return &s.payerKey
		}
		if extraKey != nil && pk.Equals(extraKey.PublicKey()) {
			return extraKey
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("sign transaction: %w", err)
	}
	enc, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	sig, err := s.client.SendRawTransaction(ctx, enc)
	if err != nil {
		return "", fmt.Errorf("broadcast transaction: %w", err)
	}
	s.logger.Debug(
		"broadcast transaction",
		"tx_ref", sig.String(),
	)
	return sig.String(), nil
}
