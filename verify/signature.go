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
	"io"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const signatureLength = 65

// SignatureVerifier checks that a claim authorization was signed by the
// server signing key during order placement. It fails closed: any problem
// recovering the signer yields an invalid result.
type SignatureVerifier struct {
	logger *slog.Logger
	signer common.Address
}

// NewSignatureVerifier creates a verifier for the given server signing
// address.
func NewSignatureVerifier(
	signer common.Address,
	logger *slog.Logger,
) *SignatureVerifier {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &SignatureVerifier{
		signer: signer,
		logger: logger.With("component", "signature-verifier"),
	}
}

// AuthMessageHash computes the canonical hash over (wallet, amount,
// timestamp): keccak256 of the packed encoding, then the EIP-191 personal
// message prefix. Both signer and verifier must use this exact encoding.
func AuthMessageHash(
	wallet common.Address,
	amount *big.Int,
	timestamp uint64,
) []byte {
	packed := make([]byte, 0, common.AddressLength+64)
	packed = append(packed, wallet.Bytes()...)
	packed = append(packed, common.LeftPadBytes(amount.Bytes(), 32)...)
	packed = append(
		packed,
		common.LeftPadBytes(new(big.Int).SetUint64(timestamp).Bytes(), 32)...)
	return accounts.TextHash(crypto.Keccak256(packed))
}

// Verify recovers the signer of the authorization signature over (wallet,
// amount, timestamp) and compares it against the server signing address.
func (v *SignatureVerifier) Verify(
	wallet common.Address,
	amount *big.Int,
	timestamp uint64,
	signature []byte,
) bool {
	if len(signature) != signatureLength || amount == nil {
		return false
	}
	// Normalize the recovery id: wallets produce 27/28, crypto expects 0/1
	sig := make([]byte, signatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pubkey, err := crypto.SigToPub(
		AuthMessageHash(wallet, amount, timestamp),
		sig,
	)
	if err != nil {
		v.logger.Debug(
			"signature recovery failed",
			"wallet", wallet.Hex(),
			"error", err,
		)
		return false
	}
	recovered := crypto.PubkeyToAddress(*pubkey)
	return recovered == v.signer
}
