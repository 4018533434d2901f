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
	"fmt"

	"github.com/blinklabs-io/lootcrate/database/models"
)

// AddDeliveryError records a failed prize delivery for out-of-band retry.
func (d *Database) AddDeliveryError(deliveryError *models.DeliveryError) error {
	if result := d.metadata.DB().Create(deliveryError); result.Error != nil {
		return fmt.Errorf("add delivery error: %w", result.Error)
	}
	return nil
}

// DeliveryErrors returns all recorded delivery errors for a wallet.
func (d *Database) DeliveryErrors(
	wallet string,
) ([]models.DeliveryError, error) {
	var ret []models.DeliveryError
	result := d.metadata.DB().
		Where("wallet = ?", wallet).
		Order("created_at").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
