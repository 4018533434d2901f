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

package models

import "time"

// Purchase status lifecycle values. A purchase row is append-only after
// creation; only Status changes, on separate lifecycle events such as a
// shipping claim.
const (
	PurchaseStatusCompleted       = "completed"
	PurchaseStatusDeliveryFailed  = "delivery_failed"
	PurchaseStatusShippingClaimed = "shipping_claimed"
)

// Purchase represents one resolved claim: the winning prize, the draw
// inputs needed for third-party fairness verification, and the transaction
// references consumed by the claim.
type Purchase struct {
	CreatedAt     time.Time
	Wallet        string `gorm:"index"`
	PrizeName     string
	PrizeType     string
	ClientSeed    string
	ServerSeed    string
	RandomHash    string
	BurnTxRef     string `gorm:"uniqueIndex"`
	FeeTxRef      string `gorm:"index"`
	DeliveryTxRef string
	NftMint       string
	Status        string
	ID            uint `gorm:"primaryKey"`
	PrizeId       int
	Amount        uint64
	Nonce         uint64
	RandomNumber  float64
}

func (Purchase) TableName() string {
	return "purchase"
}
