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

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/lootcrate/database/models"
)

// PrizeStock returns the remaining stock for a physical prize. A prize
// with no stock row is treated as unstocked.
func (d *Database) PrizeStock(prizeId int) (int, error) {
	var stock models.PrizeStock
	result := d.metadata.DB().
		Where("prize_id = ?", prizeId).
		First(&stock)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return stock.CurrentStock, nil
}

// SetPrizeStock creates or resets the stock row for a physical prize,
// setting both current and initial counts.
func (d *Database) SetPrizeStock(prizeId int, count int) error {
	stock := models.PrizeStock{
		PrizeId:      prizeId,
		CurrentStock: count,
		InitialStock: count,
	}
	result := d.metadata.DB().
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "prize_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"current_stock": count,
				"initial_stock": count,
			}),
		}).
		Create(&stock)
	return result.Error
}

// IncrementPrizeStock adds one unit back to a physical prize's stock, used
// when a claim is voided out-of-band.
func (d *Database) IncrementPrizeStock(prizeId int) error {
	result := d.metadata.DB().
		Model(&models.PrizeStock{}).
		Where("prize_id = ?", prizeId).
		UpdateColumn("current_stock", gorm.Expr("current_stock + 1"))
	return result.Error
}

// DecrementPrizeStock atomically decrements a physical prize's stock,
// clamped at zero: the decrement only applies while stock remains, pushing
// the last-unit race down into the datastore. Returns the remaining count.
func (d *Database) DecrementPrizeStock(prizeId int) (int, error) {
	result := d.metadata.DB().
		Model(&models.PrizeStock{}).
		Where("prize_id = ? AND current_stock > 0", prizeId).
		UpdateColumn("current_stock", gorm.Expr("current_stock - 1"))
	if result.Error != nil {
		return 0, result.Error
	}
	return d.PrizeStock(prizeId)
}

// BoxStock returns the remaining box count for a box category.
func (d *Database) BoxStock(category string) (int, error) {
	var stock models.BoxStock
	result := d.metadata.DB().
		Where("category = ?", category).
		First(&stock)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, result.Error
	}
	return stock.CurrentStock, nil
}

// SetBoxStock creates or resets the box counter for a category.
func (d *Database) SetBoxStock(category string, count int) error {
	stock := models.BoxStock{
		Category:     category,
		CurrentStock: count,
	}
	result := d.metadata.DB().
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "category"}},
			DoUpdates: clause.Assignments(map[string]any{
				"current_stock": count,
			}),
		}).
		Create(&stock)
	return result.Error
}

// DecrementBoxStock decrements the box counter for a category, clamped at
// zero.
func (d *Database) DecrementBoxStock(category string) error {
	result := d.metadata.DB().
		Model(&models.BoxStock{}).
		Where("category = ? AND current_stock > 0", category).
		UpdateColumn("current_stock", gorm.Expr("current_stock - 1"))
	return result.Error
}
