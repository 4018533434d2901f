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

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/lootcrate/api"
	"github.com/blinklabs-io/lootcrate/claim"
	"github.com/blinklabs-io/lootcrate/database"
	"github.com/blinklabs-io/lootcrate/database/models"
	"github.com/blinklabs-io/lootcrate/fair"
)

type mockResolver struct {
	result  *claim.Result
	err     error
	lastReq claim.Request
	calls   int
}

func (m *mockResolver) Resolve(
	_ context.Context,
	req claim.Request,
) (*claim.Result, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockApiStore struct {
	purchases map[string]*models.Purchase
	markErr   error
	marked    []string
}

func (m *mockApiStore) PurchaseByTxRef(
	txRef string,
) (*models.Purchase, error) {
	if p, ok := m.purchases[txRef]; ok {
		return p, nil
	}
	return nil, database.ErrPurchaseNotFound
}

func (m *mockApiStore) MarkPurchaseShippingClaimed(burnTxRef string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.marked = append(m.marked, burnTxRef)
	return nil
}

func testServer(
	resolver *mockResolver,
	store *mockApiStore,
) *api.Server {
	if store == nil {
		store = &mockApiStore{}
	}
	return api.NewServer(api.ServerConfig{
		Resolver: resolver,
		Store:    store,
	})
}

func doRequest(
	t *testing.T,
	server *api.Server,
	method string,
	path string,
	body any,
) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	server.Engine().ServeHTTP(recorder, req)
	return recorder
}

func validClaimBody() map[string]any {
	return map[string]any{
		"wallet":     "0x1111111111111111111111111111111111111111",
		"amount":     "8750000000000",
		"timestamp":  1_700_000_000,
		"txHash":     "0xburn",
		"signature":  "0xdeadbeef",
		"clientSeed": "client-seed",
		"boxType":    1,
	}
}

func TestHealthEndpoint(t *testing.T) {
	server := testServer(&mockResolver{}, nil)
	recorder := doRequest(t, server, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestClaimPrizeSuccess(t *testing.T) {
	resolver := &mockResolver{
		result: &claim.Result{
			PrizeId:     3,
			PrizeName:   "0.25 SOL",
			PrizeType:   "currency",
			Amount:      250_000_000,
			TxSignature: "transfer-sig",
			Random: fair.Result{
				ClientSeed: "client-seed",
				ServerSeed: "server-seed",
				Hash:       "hash",
				Number:     0.5,
				Nonce:      4,
			},
		},
	}
	server := testServer(resolver, nil)
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		validClaimBody(),
	)
	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Success    bool   `json:"success"`
		PrizeId    int    `json:"prizeId"`
		PrizeName  string `json:"prizeName"`
		RandomData struct {
			ClientSeed   string  `json:"clientSeed"`
			ServerSeed   string  `json:"serverSeed"`
			RandomNumber float64 `json:"randomNumber"`
			Nonce        uint64  `json:"nonce"`
		} `json:"randomData"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Equal(t, 3, resp.PrizeId)
	require.Equal(t, "0.25 SOL", resp.PrizeName)
	require.Equal(t, "server-seed", resp.RandomData.ServerSeed)
	require.Equal(t, uint64(4), resp.RandomData.Nonce)

	// The wire request was parsed into typed fields
	require.Equal(t, 1, resolver.calls)
	require.Equal(
		t,
		"8750000000000",
		resolver.lastReq.Amount.String(),
	)
	require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, resolver.lastReq.Signature)
	require.True(t, resolver.lastReq.Box.IsCrypto())
}

func TestClaimPrizeMissingField(t *testing.T) {
	resolver := &mockResolver{}
	server := testServer(resolver, nil)
	body := validClaimBody()
	delete(body, "signature")
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		body,
	)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Equal(t, 0, resolver.calls)
}

func TestClaimPrizeInvalidAmount(t *testing.T) {
	server := testServer(&mockResolver{}, nil)
	body := validClaimBody()
	body["amount"] = "not-a-number"
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		body,
	)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestClaimPrizeScientificAmount(t *testing.T) {
	resolver := &mockResolver{result: &claim.Result{}}
	server := testServer(resolver, nil)
	body := validClaimBody()
	body["amount"] = "8.75e12"
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		body,
	)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(
		t,
		"8750000000000",
		resolver.lastReq.Amount.String(),
	)
}

func TestClaimPrizeInvalidSignatureEncoding(t *testing.T) {
	server := testServer(&mockResolver{}, nil)
	body := validClaimBody()
	body["signature"] = "0xzz"
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		body,
	)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestClaimPrizeRejection(t *testing.T) {
	resolver := &mockResolver{
		err: &claim.RejectionError{
			Stage:   claim.StageReplay,
			Message: "replay attack detected",
		},
	}
	server := testServer(resolver, nil)
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		validClaimBody(),
	)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var resp struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	require.False(t, resp.Success)
	require.Equal(t, "replay attack detected", resp.Error)
}

func TestClaimPrizeInternalError(t *testing.T) {
	resolver := &mockResolver{err: errors.New("datastore unavailable")}
	server := testServer(resolver, nil)
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/claim-prize",
		validClaimBody(),
	)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var resp struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
	// Internal details never leak to the caller
	require.Equal(t, "internal error", resp.Error)
}

func TestShippingClaimSuccess(t *testing.T) {
	store := &mockApiStore{
		purchases: map[string]*models.Purchase{
			"0xburn": {
				BurnTxRef: "0xburn",
				PrizeType: "physical",
				Status:    models.PurchaseStatusCompleted,
			},
		},
	}
	server := testServer(&mockResolver{}, store)
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/shipping-claim",
		map[string]any{"txHash": "0xburn"},
	)
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, []string{"0xburn"}, store.marked)
}

func TestShippingClaimUnknownPurchase(t *testing.T) {
	server := testServer(&mockResolver{}, &mockApiStore{})
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/shipping-claim",
		map[string]any{"txHash": "0xmissing"},
	)
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestShippingClaimNonPhysicalPrize(t *testing.T) {
	store := &mockApiStore{
		purchases: map[string]*models.Purchase{
			"0xburn": {
				BurnTxRef: "0xburn",
				PrizeType: "currency",
			},
		},
	}
	server := testServer(&mockResolver{}, store)
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/shipping-claim",
		map[string]any{"txHash": "0xburn"},
	)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	require.Empty(t, store.marked)
}

func TestShippingClaimAlreadyClaimed(t *testing.T) {
	store := &mockApiStore{
		purchases: map[string]*models.Purchase{
			"0xburn": {
				BurnTxRef: "0xburn",
				PrizeType: "physical",
				Status:    models.PurchaseStatusShippingClaimed,
			},
		},
		markErr: database.ErrPurchaseNotFound,
	}
	server := testServer(&mockResolver{}, store)
	recorder := doRequest(
		t,
		server,
		http.MethodPost,
		"/api/shipping-claim",
		map[string]any{"txHash": "0xburn"},
	)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}
