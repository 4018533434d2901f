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

// DeliveryError records a failed prize delivery so it can be retried by
// operational tooling. The associated purchase still persists with an
// empty delivery reference.
type DeliveryError struct {
	CreatedAt time.Time
	Wallet    string `gorm:"index"`
	BurnTxRef string `gorm:"index"`
	PrizeName string
	Reason    string
	ID        uint `gorm:"primaryKey"`
	PrizeId   int
}

func (DeliveryError) TableName() string {
	return "delivery_error"
}
