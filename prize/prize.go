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

package prize

import "fmt"

// Category identifies how a prize is delivered once won.
type Category int

const (
	CategoryCurrency Category = iota + 1 // native-currency payout
	CategoryNft                          // minted NFT
	CategoryPhysical                     // fulfilled later via shipping claim
)

func (c Category) String() string {
	switch c {
	case CategoryCurrency:
		return "currency"
	case CategoryNft:
		return "nft"
	case CategoryPhysical:
		return "physical"
	default:
		return fmt.Sprintf("unknown (%d)", int(c))
	}
}

// Valid returns true for a known category value.
func (c Category) Valid() bool {
	switch c {
	case CategoryCurrency, CategoryNft, CategoryPhysical:
		return true
	default:
		return false
	}
}

// Definition describes a single prize entry in a table. Definitions are
// fixed at deploy time and read-only at runtime.
type Definition struct {
	Name        string
	MetadataKey string
	ID          int
	Amount      uint64
	Weight      float64
	Category    Category
}

// Box identifies which prize table a claim draws against.
type Box int

const (
	BoxStandard Box = 0
	BoxCrypto   Box = 1
)

// IsCrypto returns true for the crypto-payout box type.
func (b Box) IsCrypto() bool {
	return b == BoxCrypto
}

func (b Box) String() string {
	if b.IsCrypto() {
		return "crypto"
	}
	return "standard"
}
