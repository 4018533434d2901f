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

package delivery_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/lootcrate/delivery"
	"github.com/blinklabs-io/lootcrate/prize"
)

type mockSubmitter struct {
	transferRecipient string
	transferLamports  uint64
	transferMemo      string
	transferErr       error
	confirmedTxRef    string
	confirmErr        error
	mintRecipient     string
	mintMetadataKey   string
	mintErr           error
	mintCalls         int
	transferCalls     int
}

func (m *mockSubmitter) SendNativeTransfer(
	_ context.Context,
	recipient string,
	lamports uint64,
	memo string,
) (string, error) {
	m.transferCalls++
	m.transferRecipient = recipient
	m.transferLamports = lamports
	m.transferMemo = memo
	if m.transferErr != nil {
		return "", m.transferErr
	}
	return "transfer-sig", nil
}

func (m *mockSubmitter) ConfirmTransaction(
	_ context.Context,
	txRef string,
) error {
	m.confirmedTxRef = txRef
	return m.confirmErr
}

func (m *mockSubmitter) Mint(
	_ context.Context,
	recipient string,
	metadataKey string,
) (string, string, error) {
	m.mintCalls++
	m.mintRecipient = recipient
	m.mintMetadataKey = metadataKey
	if m.mintErr != nil {
		return "", "", m.mintErr
	}
	return "mint-address", "mint-sig", nil
}

func TestDispatchCurrency(t *testing.T) {
	submitter := &mockSubmitter{}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	result, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{
			ID:       3,
			Name:     "0.25 SOL",
			Category: prize.CategoryCurrency,
			Amount:   250_000_000,
		},
	)
	require.NoError(t, err)
	require.Equal(t, "transfer-sig", result.TxRef)
	require.Empty(t, result.NftMint)
	require.Equal(t, "winner-wallet", submitter.transferRecipient)
	require.Equal(t, uint64(250_000_000), submitter.transferLamports)
	require.NotEmpty(t, submitter.transferMemo)
	require.Equal(t, "transfer-sig", submitter.confirmedTxRef)
}

func TestDispatchCurrencyTransferError(t *testing.T) {
	transferErr := errors.New("rpc unavailable")
	submitter := &mockSubmitter{transferErr: transferErr}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	result, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{
			ID:       5,
			Category: prize.CategoryCurrency,
			Amount:   1_000_000_000,
		},
	)
	require.ErrorIs(t, err, transferErr)
	require.Empty(t, result.TxRef)
	// The transfer never broadcast, so nothing to confirm
	require.Empty(t, submitter.confirmedTxRef)
}

func TestDispatchCurrencyConfirmError(t *testing.T) {
	confirmErr := errors.New("confirmation timed out")
	submitter := &mockSubmitter{confirmErr: confirmErr}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	result, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{
			ID:       5,
			Category: prize.CategoryCurrency,
			Amount:   1_000_000_000,
		},
	)
	require.ErrorIs(t, err, confirmErr)
	require.Empty(t, result.TxRef)
}

func TestDispatchNft(t *testing.T) {
	submitter := &mockSubmitter{}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	result, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{
			ID:          6,
			Name:        "Gold Crate NFT",
			Category:    prize.CategoryNft,
			MetadataKey: "gold-crate",
		},
	)
	require.NoError(t, err)
	require.Equal(t, "mint-sig", result.TxRef)
	require.Equal(t, "mint-address", result.NftMint)
	require.Equal(t, "winner-wallet", submitter.mintRecipient)
	require.Equal(t, "gold-crate", submitter.mintMetadataKey)
}

func TestDispatchNftError(t *testing.T) {
	mintErr := errors.New("mint program rejected")
	submitter := &mockSubmitter{mintErr: mintErr}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	result, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{
			ID:          6,
			Category:    prize.CategoryNft,
			MetadataKey: "gold-crate",
		},
	)
	require.ErrorIs(t, err, mintErr)
	require.Empty(t, result.TxRef)
	require.Empty(t, result.NftMint)
}

func TestDispatchPhysicalNoChainAction(t *testing.T) {
	submitter := &mockSubmitter{}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	result, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{
			ID:          104,
			Name:        "Hoodie",
			Category:    prize.CategoryPhysical,
			MetadataKey: "hoodie",
		},
	)
	require.NoError(t, err)
	require.Empty(t, result.TxRef)
	require.Empty(t, result.NftMint)
	require.Equal(t, 0, submitter.transferCalls)
	require.Equal(t, 0, submitter.mintCalls)
}

func TestDispatchUnknownCategory(t *testing.T) {
	submitter := &mockSubmitter{}
	dispatcher := delivery.NewDispatcher(submitter, nil)
	_, err := dispatcher.Dispatch(
		context.Background(),
		"winner-wallet",
		prize.Definition{ID: 1, Category: prize.Category(99)},
	)
	require.ErrorIs(t, err, delivery.ErrUnknownCategory)
}
