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

package database

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/blinklabs-io/lootcrate/database/models"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

// PurchaseByTxRef returns the purchase that consumed the given transaction
// reference as either its burn or fee transaction, or ErrPurchaseNotFound.
func (d *Database) PurchaseByTxRef(txRef string) (*models.Purchase, error) {
	var purchase models.Purchase
	result := d.metadata.DB().
		Where("burn_tx_ref = ? OR fee_tx_ref = ?", txRef, txRef).
		First(&purchase)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, result.Error
	}
	return &purchase, nil
}

// AddPurchase persists a new purchase record. The unique index on the burn
// transaction reference makes concurrent double-inserts for the same burn
// fail at the datastore rather than in application code.
func (d *Database) AddPurchase(purchase *models.Purchase) error {
	if result := d.metadata.DB().Create(purchase); result.Error != nil {
		return fmt.Errorf("add purchase: %w", result.Error)
	}
	return nil
}

// PurchaseCountByWallet returns the number of recorded purchases for a
// wallet. This count serves as the provably-fair nonce for the wallet's
// next draw.
func (d *Database) PurchaseCountByWallet(wallet string) (uint64, error) {
	var count int64
	result := d.metadata.DB().
		Model(&models.Purchase{}).
		Where("wallet = ?", wallet).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return uint64(count), nil //nolint:gosec
}

// MarkPurchaseShippingClaimed transitions a physical prize purchase to the
// shipping-claimed status. This is the only in-place mutation a purchase
// row sees after creation.
func (d *Database) MarkPurchaseShippingClaimed(burnTxRef string) error {
	result := d.metadata.DB().
		Model(&models.Purchase{}).
		Where("burn_tx_ref = ? AND status <> ?",
			burnTxRef,
			models.PurchaseStatusShippingClaimed,
		).
		Update("status", models.PurchaseStatusShippingClaimed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}
