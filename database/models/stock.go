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

// PrizeStock tracks remaining units for a physical prize. CurrentStock
// must never go negative; decrements are conditional on remaining stock at
// the datastore.
type PrizeStock struct {
	ID           uint `gorm:"primaryKey"`
	PrizeId      int  `gorm:"uniqueIndex"`
	CurrentStock int
	InitialStock int
}

func (PrizeStock) TableName() string {
	return "prize_stock"
}

// BoxStock tracks remaining boxes per box category.
type BoxStock struct {
	Category     string `gorm:"uniqueIndex"`
	ID           uint   `gorm:"primaryKey"`
	CurrentStock int
}

func (BoxStock) TableName() string {
	return "box_stock"
}
