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

package database_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/lootcrate/database"
	"github.com/blinklabs-io/lootcrate/database/models"
)

var testTxRefSeq int

// testTxRef returns a unique transaction reference per call. The in-memory
// SQLite database is shared within the test binary, so references must not
// collide across tests.
func testTxRef(t *testing.T) string {
	t.Helper()
	testTxRefSeq++
	return fmt.Sprintf("0xtx-%s-%d", t.Name(), testTxRefSeq)
}

func testDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestPurchaseRoundTrip(t *testing.T) {
	db := testDatabase(t)
	burnRef := testTxRef(t)
	feeRef := testTxRef(t)
	purchase := &models.Purchase{
		Wallet:       "0xabc01",
		PrizeId:      3,
		PrizeName:    "0.25 SOL",
		PrizeType:    "currency",
		Amount:       250_000_000,
		ClientSeed:   "client",
		ServerSeed:   "server",
		Nonce:        0,
		RandomNumber: 0.5,
		BurnTxRef:    burnRef,
		FeeTxRef:     feeRef,
		Status:       models.PurchaseStatusCompleted,
	}
	require.NoError(t, db.AddPurchase(purchase))

	// Lookup by either consumed reference finds the purchase
	found, err := db.PurchaseByTxRef(burnRef)
	require.NoError(t, err)
	require.Equal(t, purchase.Wallet, found.Wallet)
	found, err = db.PurchaseByTxRef(feeRef)
	require.NoError(t, err)
	require.Equal(t, purchase.PrizeId, found.PrizeId)

	_, err = db.PurchaseByTxRef("0xunknown")
	require.ErrorIs(t, err, database.ErrPurchaseNotFound)
}

func TestPurchaseBurnRefUnique(t *testing.T) {
	db := testDatabase(t)
	burnRef := testTxRef(t)
	first := &models.Purchase{
		Wallet:    "0xabc01",
		BurnTxRef: burnRef,
		Status:    models.PurchaseStatusCompleted,
	}
	require.NoError(t, db.AddPurchase(first))
	second := &models.Purchase{
		Wallet:    "0xabc02",
		BurnTxRef: burnRef,
		Status:    models.PurchaseStatusCompleted,
	}
	require.Error(t, db.AddPurchase(second))
}

func TestPurchaseCountByWallet(t *testing.T) {
	db := testDatabase(t)
	wallet := "0x" + t.Name()
	count, err := db.PurchaseCountByWallet(wallet)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)
	for i := range 3 {
		require.NoError(t, db.AddPurchase(&models.Purchase{
			Wallet:    wallet,
			Nonce:     uint64(i), //nolint:gosec
			BurnTxRef: testTxRef(t),
			Status:    models.PurchaseStatusCompleted,
		}))
	}
	count, err = db.PurchaseCountByWallet(wallet)
	require.NoError(t, err)
	require.Equal(t, uint64(3), count)
}

func TestMarkPurchaseShippingClaimed(t *testing.T) {
	db := testDatabase(t)
	burnRef := testTxRef(t)
	require.NoError(t, db.AddPurchase(&models.Purchase{
		Wallet:    "0xabc01",
		PrizeType: "physical",
		BurnTxRef: burnRef,
		Status:    models.PurchaseStatusCompleted,
	}))
	require.NoError(t, db.MarkPurchaseShippingClaimed(burnRef))
	found, err := db.PurchaseByTxRef(burnRef)
	require.NoError(t, err)
	require.Equal(t, models.PurchaseStatusShippingClaimed, found.Status)
	// A second claim on the same purchase fails
	require.ErrorIs(
		t,
		db.MarkPurchaseShippingClaimed(burnRef),
		database.ErrPurchaseNotFound,
	)
	require.ErrorIs(
		t,
		db.MarkPurchaseShippingClaimed("0xmissing"),
		database.ErrPurchaseNotFound,
	)
}

func TestPrizeStockFloor(t *testing.T) {
	db := testDatabase(t)
	const prizeId = 104
	require.NoError(t, db.SetPrizeStock(prizeId, 2))

	remaining, err := db.DecrementPrizeStock(prizeId)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
	remaining, err = db.DecrementPrizeStock(prizeId)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)

	// Further decrements clamp at zero, never negative
	for range 3 {
		remaining, err = db.DecrementPrizeStock(prizeId)
		require.NoError(t, err)
		require.Equal(t, 0, remaining)
	}
}

func TestPrizeStockResetAndIncrement(t *testing.T) {
	db := testDatabase(t)
	const prizeId = 105
	require.NoError(t, db.SetPrizeStock(prizeId, 1))
	_, err := db.DecrementPrizeStock(prizeId)
	require.NoError(t, err)
	require.NoError(t, db.IncrementPrizeStock(prizeId))
	remaining, err := db.PrizeStock(prizeId)
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
	// Reset overwrites current and initial counts
	require.NoError(t, db.SetPrizeStock(prizeId, 10))
	remaining, err = db.PrizeStock(prizeId)
	require.NoError(t, err)
	require.Equal(t, 10, remaining)
}

func TestPrizeStockUnknownPrize(t *testing.T) {
	db := testDatabase(t)
	remaining, err := db.PrizeStock(9999)
	require.NoError(t, err)
	require.Equal(t, 0, remaining)
}

func TestBoxStock(t *testing.T) {
	db := testDatabase(t)
	require.NoError(t, db.SetBoxStock("crypto", 2))
	require.NoError(t, db.DecrementBoxStock("crypto"))
	remaining, err := db.BoxStock("crypto")
	require.NoError(t, err)
	require.Equal(t, 1, remaining)
	require.NoError(t, db.DecrementBoxStock("crypto"))
	require.NoError(t, db.DecrementBoxStock("crypto"))
	remaining, err = db.BoxStock("crypto")
	require.NoError(t, err)
	require.Equal(t, 0, remaining)
}

func TestDeliveryErrors(t *testing.T) {
	db := testDatabase(t)
	wallet := "0x" + t.Name()
	require.NoError(t, db.AddDeliveryError(&models.DeliveryError{
		Wallet:    wallet,
		BurnTxRef: testTxRef(t),
		PrizeId:   5,
		PrizeName: "1 SOL",
		Reason:    "rpc unavailable",
	}))
	errs, err := db.DeliveryErrors(wallet)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	require.Equal(t, "rpc unavailable", errs[0].Reason)
}

func TestAuditStore(t *testing.T) {
	db := testDatabase(t)
	ref := testTxRef(t)
	payload := []byte(`{"clientSeed":"abc"}`)
	require.NoError(t, db.Audit().Put(ref, payload))
	value, err := db.Audit().Get(ref)
	require.NoError(t, err)
	require.Equal(t, payload, value)
	_, err = db.Audit().Get("0xmissing")
	require.ErrorIs(t, err, database.ErrAuditRecordNotFound)
}
