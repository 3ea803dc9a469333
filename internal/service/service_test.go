package service

import (
	"context"
	"testing"

	datastore "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage/dsstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *dsstore.Store) {
	store := dsstore.New(dssync.MutexWrap(datastore.NewMapDatastore()))
	svc, err := New(testConfig(), store, nil)
	require.NoError(t, err)
	return svc, store
}

func TestPublishThenLookup(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	published, err := svc.PublishBalanceMap(ctx, allocations(5), 2)
	require.NoError(t, err)
	assert.Equal(t, 5, published.Entries)

	// bypass the cache: the stored bytes must decode to the same document
	data, err := store.Fetch(ctx, published.Reference)
	require.NoError(t, err)
	stored, err := entities.DecodeBalanceMap(data)
	require.NoError(t, err)
	assert.Equal(t, published.Document.MerkleRoot, stored.MerkleRoot)
	assert.Equal(t, "1500", stored.TokenTotal.String())

	records, err := svc.Lookup.FindClaims(ctx, testAddress(3).Hex(), SingleDocument(published.Reference.String()))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "0x190", records[0].Amount.String())

	records, err = svc.Lookup.FindClaims(ctx, testAddress(3).Hex(), AllDocuments())
	require.NoError(t, err)
	require.Len(t, records, 1)

	ref, doc, err := svc.GetBalanceMap(ctx, published.Reference.Key())
	require.NoError(t, err)
	assert.True(t, ref.Equivalent(published.Reference))
	assert.Equal(t, published.Document.MerkleRoot, doc.MerkleRoot)
}

func TestPublishRejectsInvalidBatch(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	allocs := allocations(2)
	allocs[1].Address = allocs[0].Address

	_, err := svc.PublishBalanceMap(ctx, allocs, 0)
	require.True(t, apperror.IsKind(err, apperror.KindValidation))
	for range store.ListPinned(ctx) {
		t.Fatal("nothing may be published for a rejected batch")
	}
}

func TestGetBalanceMapBadReference(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.GetBalanceMap(context.Background(), "bafy-nope")
	assert.True(t, apperror.IsKind(err, apperror.KindReference))
}
