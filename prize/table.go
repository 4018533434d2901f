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

import (
	"errors"
	"fmt"
	"math"
)

const lamportsPerSol = 1_000_000_000

// weightSumTolerance absorbs float accumulation error when validating that
// table weights sum to 1
const weightSumTolerance = 1e-9

var (
	ErrEmptyTable    = errors.New("prize: table has no entries")
	ErrInvalidWeight = errors.New("prize: weight outside (0, 1]")
	ErrWeightSum     = errors.New("prize: table weights do not sum to 1")
)

// StockFunc reports the remaining stock for a physical prize. It is only
// consulted for physical entries during a draw.
type StockFunc func(prizeID int) (int, error)

// Table is a weighted prize table for one box type.
type Table struct {
	Name   string
	Prizes []Definition
}

// Validate checks table structure: at least one entry, every weight in
// (0, 1], and weights summing to 1.
func (t *Table) Validate() error {
	if len(t.Prizes) == 0 {
		return ErrEmptyTable
	}
	var sum float64
	for _, p := range t.Prizes {
		if p.Weight <= 0 || p.Weight > 1 {
			return fmt.Errorf(
				"%w: prize %d has weight %f",
				ErrInvalidWeight,
				p.ID,
				p.Weight,
			)
		}
		sum += p.Weight
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("%w: sum is %f", ErrWeightSum, sum)
	}
	return nil
}

// Draw walks the table accumulating probability mass and returns the first
// prize whose cumulative upper bound exceeds random. A physical prize with
// zero remaining stock is passed over while its mass still accumulates, so
// a stocked-out entry's share falls through to the entries after it rather
// than redistributing across the whole table. When no entry matches, the
// first currency entry wins, or the table's first entry as a last resort.
//
// A stock lookup failure aborts the draw. The draw cannot be performed
// safely without stock visibility.
func (t *Table) Draw(random float64, stock StockFunc) (Definition, error) {
	if len(t.Prizes) == 0 {
		return Definition{}, ErrEmptyTable
	}
	var cumulative float64
	for _, p := range t.Prizes {
		cumulative += p.Weight
		if cumulative <= random {
			continue
		}
		if p.Category == CategoryPhysical {
			remaining, err := stock(p.ID)
			if err != nil {
				return Definition{}, fmt.Errorf(
					"prize: stock lookup for prize %d: %w",
					p.ID,
					err,
				)
			}
			if remaining <= 0 {
				continue
			}
		}
		return p, nil
	}
	return t.fallback(), nil
}

// fallback selects the designated default prize for draws that fall past
// the end of the table
func (t *Table) fallback() Definition {
	for _, p := range t.Prizes {
		if p.Category == CategoryCurrency {
			return p
		}
	}
	return t.Prizes[0]
}

// ForBox returns the active prize table for the given box type.
func ForBox(box Box) *Table {
	if box.IsCrypto() {
		return &CryptoTable
	}
	return &StandardTable
}

// CryptoTable is the prize table for crypto-type boxes. Payout amounts are
// in lamports.
var CryptoTable = Table{
	Name: "crypto",
	Prizes: []Definition{
		{
			ID:       1,
			Name:     "0.05 SOL",
			Category: CategoryCurrency,
			Weight:   0.40,
			Amount:   lamportsPerSol / 20,
		},
		{
			ID:       2,
			Name:     "0.1 SOL",
			Category: CategoryCurrency,
			Weight:   0.25,
			Amount:   lamportsPerSol / 10,
		},
		{
			ID:       3,
			Name:     "0.25 SOL",
			Category: CategoryCurrency,
			Weight:   0.18,
			Amount:   lamportsPerSol / 4,
		},
		{
			ID:       4,
			Name:     "0.5 SOL",
			Category: CategoryCurrency,
			Weight:   0.10,
			Amount:   lamportsPerSol / 2,
		},
		{
			ID:       5,
			Name:     "1 SOL",
			Category: CategoryCurrency,
			Weight:   0.05,
			Amount:   lamportsPerSol,
		},
		{
			ID:          6,
			Name:        "Gold Crate NFT",
			Category:    CategoryNft,
			Weight:      0.02,
			MetadataKey: "gold-crate",
		},
	},
}

// StandardTable is the prize table for standard boxes.
var StandardTable = Table{
	Name: "standard",
	Prizes: []Definition{
		{
			ID:       101,
			Name:     "0.01 SOL",
			Category: CategoryCurrency,
			Weight:   0.45,
			Amount:   lamportsPerSol / 100,
		},
		{
			ID:       102,
			Name:     "0.05 SOL",
			Category: CategoryCurrency,
			Weight:   0.25,
			Amount:   lamportsPerSol / 20,
		},
		{
			ID:          103,
			Name:        "Silver Crate NFT",
			Category:    CategoryNft,
			Weight:      0.15,
			MetadataKey: "silver-crate",
		},
		{
			ID:          104,
			Name:        "Lootcrate Hoodie",
			Category:    CategoryPhysical,
			Weight:      0.08,
			MetadataKey: "hoodie",
		},
		{
			ID:          105,
			Name:        "Lootcrate Figurine",
			Category:    CategoryPhysical,
			Weight:      0.05,
			MetadataKey: "figurine",
		},
		{
			ID:       106,
			Name:     "0.5 SOL",
			Category: CategoryCurrency,
			Weight:   0.02,
			Amount:   lamportsPerSol / 2,
		},
	},
}
