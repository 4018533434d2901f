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

package event

const (
	ClaimReceivedEventType  EventType = "claim.received"
	ClaimRejectedEventType  EventType = "claim.rejected"
	PrizeDrawnEventType     EventType = "prize.drawn"
	PrizeDeliveredEventType EventType = "prize.delivered"
	PurchaseStoredEventType EventType = "purchase.stored"
)

// ClaimReceivedEvent is published when a claim request enters the pipeline.
type ClaimReceivedEvent struct {
	Wallet    string
	BurnTxRef string
	BoxType   string
}

// ClaimRejectedEvent is published when any verification stage rejects a
// claim.
type ClaimRejectedEvent struct {
	Wallet    string
	BurnTxRef string
	Stage     string
	Reason    string
}

// PrizeDrawnEvent is published after the provably-fair draw selects a
// prize.
type PrizeDrawnEvent struct {
	Wallet       string
	PrizeName    string
	PrizeType    string
	PrizeId      int
	RandomNumber float64
	Nonce        uint64
}

// PrizeDeliveredEvent is published after delivery dispatch, whether or not
// it produced a delivery transaction.
type PrizeDeliveredEvent struct {
	Wallet        string
	PrizeName     string
	DeliveryTxRef string
	Failed        bool
}

// PurchaseStoredEvent is published once the purchase record has been
// persisted.
type PurchaseStoredEvent struct {
	Wallet    string
	BurnTxRef string
	PrizeId   int
}
