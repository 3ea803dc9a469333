package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/ipfs/go-cid"
	datastore "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage/dsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "0x00000000000000000000000000000000000a11ce"
	bob   = "0x0000000000000000000000000000000000000b0b"
)

func newTestRouter(t *testing.T, apiKeys ...string) *gin.Engine {
	cfg := &configs.MainConfiguration{
		LogLevel:             "warn",
		APIKeys:              apiKeys,
		MaxBatchSize:         100,
		MaxScaleExponent:     36,
		DefaultScaleExponent: 2,
		StorageDriver:        configs.MemoryStorage,
		FetchTimeout:         time.Second,
		FetchConcurrency:     2,
		FetchRetries:         0,
		DocumentCacheSize:    8,
	}
	store := dsstore.New(dssync.MutexWrap(datastore.NewMapDatastore()))
	svc, err := service.New(cfg, store, nil)
	require.NoError(t, err)
	return NewRestService(configs.WithConfig(context.Background(), cfg), svc).Initialize()
}

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Kind   string          `json:"kind"`
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func publishBody() map[string]any {
	return map[string]any{
		"allocations": []map[string]any{
			{"address": alice, "amount": "1.5"},
			{"address": bob, "amount": 3},
		},
		"scaleExponent": 2,
	}
}

func TestPing(t *testing.T) {
	w, env := do(t, newTestRouter(t), http.MethodGet, "/api/ping", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", env.Status)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	id := "5b0f6c56-8d5e-4c39-9f4e-0f7d3f4a5b6c"
	w, _ := do(t, newTestRouter(t), http.MethodGet, "/api/ping", nil, RequestIDHeader, id)
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))
}

func TestPublishLookupVerify(t *testing.T) {
	r := newTestRouter(t)

	w, env := do(t, r, http.MethodPost, "/api/balance-maps", publishBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var published struct {
		Reference  string   `json:"reference"`
		References []string `json:"references"`
		MerkleRoot string   `json:"merkleRoot"`
		TokenTotal string   `json:"tokenTotal"`
		Claims     int      `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &published))
	assert.Equal(t, 2, published.Claims)
	assert.Equal(t, "0x1c2", published.TokenTotal) // 150 + 300
	assert.NotEmpty(t, published.References)

	w, env = do(t, r, http.MethodGet, "/api/balance-maps/"+published.Reference, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stored struct {
		Document json.RawMessage `json:"document"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &stored))
	doc, err := entities.DecodeBalanceMap(stored.Document)
	require.NoError(t, err)
	assert.Equal(t, published.MerkleRoot, doc.MerkleRoot.Hex())

	w, env = do(t, r, http.MethodGet, fmt.Sprintf("/api/claims/%s?ref=%s", alice, published.Reference), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found struct {
		Claims []entities.ClaimRecord `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	require.Len(t, found.Claims, 1)
	claim := found.Claims[0]
	assert.Equal(t, "0x96", claim.Amount.String())

	w, env = do(t, r, http.MethodPost, "/api/verify", map[string]any{
		"index":      claim.Index,
		"address":    alice,
		"amount":     claim.Amount.String(),
		"proof":      claim.Proof,
		"merkleRoot": claim.MerkleRoot,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var verified struct {
		Valid bool `json:"valid"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.True(t, verified.Valid)

	w, env = do(t, r, http.MethodPost, "/api/verify", map[string]any{
		"index":      claim.Index + 1,
		"address":    alice,
		"amount":     claim.Amount.String(),
		"proof":      claim.Proof,
		"merkleRoot": claim.MerkleRoot,
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &verified))
	assert.False(t, verified.Valid)
}

func TestClaimsAcrossAllDocuments(t *testing.T) {
	r := newTestRouter(t)
	w, _ := do(t, r, http.MethodPost, "/api/balance-maps", publishBody())
	require.Equal(t, http.StatusOK, w.Code)

	w, env := do(t, r, http.MethodGet, "/api/claims/"+bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var found struct {
		Source string                 `json:"source"`
		Claims []entities.ClaimRecord `json:"claims"`
		Report *struct {
			Listed int `json:"listed"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, "all", found.Source)
	assert.Len(t, found.Claims, 1)
	require.NotNil(t, found.Report)
	assert.Equal(t, 1, found.Report.Listed)

	w, env = do(t, r, http.MethodGet, "/api/claims/0x0000000000000000000000000000000000000123", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Empty(t, found.Claims)
}

func TestErrorStatuses(t *testing.T) {
	r := newTestRouter(t)
	w, _ := do(t, r, http.MethodPost, "/api/balance-maps", publishBody())
	require.Equal(t, http.StatusOK, w.Code)
	missing, err := storage.NewReference(cid.Raw, []byte("never published"))
	require.NoError(t, err)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		kind   string
	}{
		{"duplicate address", http.MethodPost, "/api/balance-maps", map[string]any{
			"allocations": []map[string]any{{"address": alice, "amount": 1}, {"address": alice, "amount": 2}},
		}, http.StatusBadRequest, "validation"},
		{"malformed amount", http.MethodPost, "/api/balance-maps", map[string]any{
			"allocations": []map[string]any{{"address": alice, "amount": "abc"}},
		}, http.StatusBadRequest, "validation"},
		{"bad reference", http.MethodGet, "/api/balance-maps/nope", nil, http.StatusBadRequest, "reference"},
		{"bad address", http.MethodGet, "/api/claims/0x12", nil, http.StatusBadRequest, "validation"},
		{"unknown document", http.MethodGet, "/api/claims/" + alice + "?ref=" + missing.String(), nil, http.StatusServiceUnavailable, "unavailable"},
		{"verify without amount", http.MethodPost, "/api/verify", map[string]any{"address": alice}, http.StatusBadRequest, "bad_request"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, env := do(t, r, tc.method, tc.path, tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tc.kind, env.Kind)
		})
	}
}

func TestPublishBodyIsBounded(t *testing.T) {
	r := newTestRouter(t)
	// MaxBatchSize 100 allows roughly 115KB
	body := map[string]any{
		"allocations": []map[string]any{{"address": alice, "amount": "1" + strings.Repeat("0", 200<<10)}},
	}
	w, env := do(t, r, http.MethodPost, "/api/balance-maps", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", env.Kind)
	assert.Contains(t, env.Error, "exceeds")
}

func TestClaimsAddressIsNormalised(t *testing.T) {
	r := newTestRouter(t)
	w, _ := do(t, r, http.MethodPost, "/api/balance-maps", publishBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env := do(t, r, http.MethodGet, "/api/claims/0x"+strings.ToUpper(alice[2:]), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found struct {
		Address string                 `json:"address"`
		Claims  []entities.ClaimRecord `json:"claims"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, common.HexToAddress(alice).Hex(), found.Address)
	assert.Len(t, found.Claims, 1)
}

func TestClaimNotInDocument(t *testing.T) {
	r := newTestRouter(t)
	_, env := do(t, r, http.MethodPost, "/api/balance-maps", publishBody())
	var published struct {
		Reference string `json:"reference"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &published))

	w, env := do(t, r, http.MethodGet, "/api/claims/0x0000000000000000000000000000000000000123?ref="+published.Reference, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", env.Kind)
}

func TestAPIKeyGuardsPublish(t *testing.T) {
	r := newTestRouter(t, "s3cret")
	w, env := do(t, r, http.MethodPost, "/api/balance-maps", publishBody())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", env.Kind)

	w, _ = do(t, r, http.MethodPost, "/api/balance-maps", publishBody(), APIKeyHeader, "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)

	// reads stay open
	w, _ = do(t, r, http.MethodGet, "/api/claims/"+alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	w, _ := do(t, newTestRouter(t), http.MethodOptions, "/api/balance-maps", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	w, _ := do(t, newTestRouter(t), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "airdrop_")
}
