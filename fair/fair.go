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

package fair

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

const serverSeedLength = 32

// Result holds the inputs and output of a single provably-fair draw. All
// fields are returned to the caller so a third party can recompute the
// draw once the server seed is revealed.
type Result struct {
	ClientSeed string  `json:"clientSeed"`
	ServerSeed string  `json:"serverSeed"`
	Hash       string  `json:"hash"`
	Number     float64 `json:"randomNumber"`
	Nonce      uint64  `json:"nonce"`
}

// NewServerSeed generates a fresh 32-byte server seed, hex-encoded. A seed
// must be used for exactly one draw and revealed afterward.
func NewServerSeed() (string, error) {
	seed := make([]byte, serverSeedLength)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("generate server seed: %w", err)
	}
	return hex.EncodeToString(seed), nil
}

// Compute derives a deterministic random number in [0, 1) from the given
// seeds and nonce. The construction is:
//
//	sha256(clientSeed + ":" + serverSeed + ":" + nonce)
//
// with the first four bytes of the digest interpreted as a big-endian
// uint32 and divided by 0xFFFFFFFF. Anyone holding the three inputs can
// reproduce the identical number, which is the fairness guarantee.
func Compute(clientSeed, serverSeed string, nonce uint64) Result {
	input := fmt.Sprintf("%s:%s:%d", clientSeed, serverSeed, nonce)
	digest := sha256.Sum256([]byte(input))
	number := float64(
		binary.BigEndian.Uint32(digest[0:4]),
	) / float64(0xFFFFFFFF)
	return Result{
		ClientSeed: clientSeed,
		ServerSeed: serverSeed,
		Nonce:      nonce,
		Hash:       hex.EncodeToString(digest[:]),
		Number:     number,
	}
}
