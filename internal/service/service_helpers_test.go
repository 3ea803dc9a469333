package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ipfs/go-cid"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
	"github.com/shopspring/decimal"
)

func testConfig() *configs.MainConfiguration {
	return &configs.MainConfiguration{
		MaxBatchSize:         50000,
		MaxScaleExponent:     36,
		DefaultScaleExponent: 18,
		FetchTimeout:         time.Second,
		FetchConcurrency:     4,
		FetchRetries:         2,
		DocumentCacheSize:    16,
	}
}

func testAddress(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

func allocations(n int) []entities.AllocationEntry {
	out := make([]entities.AllocationEntry, n)
	for i := range out {
		out[i] = entities.AllocationEntry{Address: testAddress(i), Amount: decimal.NewFromInt(int64(i + 1))}
	}
	return out
}

func mustEncode(doc *entities.BalanceMap) []byte {
	data, err := doc.Encode()
	if err != nil {
		panic(err)
	}
	return data
}

// fakeStore is an in-memory storage.Store whose listing and fetch behaviour
// tests can script.
type fakeStore struct {
	mu       sync.Mutex
	docs     map[string][]byte
	listing  []storage.Reference
	listErr  error
	failures map[string]int // remaining failures per key, -1 for always
	fetches  atomic.Int32
	block    chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string][]byte{}, failures: map[string]int{}}
}

func (s *fakeStore) add(data []byte) storage.Reference {
	ref, err := storage.NewReference(cid.Raw, data)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[ref.Key()] = data
	s.listing = append(s.listing, ref)
	return ref
}

func (s *fakeStore) failAlways(ref storage.Reference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[ref.Key()] = -1
}

func (s *fakeStore) failTimes(ref storage.Reference, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[ref.Key()] = n
}

func (s *fakeStore) Publish(ctx context.Context, data []byte) (storage.Reference, error) {
	return s.add(data), nil
}

func (s *fakeStore) Fetch(ctx context.Context, ref storage.Reference) ([]byte, error) {
	s.fetches.Add(1)
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch n := s.failures[ref.Key()]; {
	case n < 0:
		return nil, errors.New("gateway timeout")
	case n > 0:
		s.failures[ref.Key()] = n - 1
		return nil, errors.New("gateway timeout")
	}
	data, ok := s.docs[ref.Key()]
	if !ok {
		return nil, fmt.Errorf("%s not found", ref)
	}
	return data, nil
}

func (s *fakeStore) ListPinned(ctx context.Context) iter.Seq2[storage.Reference, error] {
	return func(yield func(storage.Reference, error) bool) {
		s.mu.Lock()
		listing := append([]storage.Reference(nil), s.listing...)
		listErr := s.listErr
		s.mu.Unlock()
		for _, ref := range listing {
			if !yield(ref, nil) {
				return
			}
		}
		if listErr != nil {
			yield(storage.Reference{}, listErr)
		}
	}
}

func newTestLookup(store storage.Store, enricher Enricher) *ClaimLookup {
	l, err := NewClaimLookup(testConfig(), store, enricher)
	if err != nil {
		panic(err)
	}
	l.backoff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return l
}

type fakeEnricher struct {
	calls atomic.Int32
	err   error
}

func (e *fakeEnricher) Enrich(ctx context.Context, root common.Hash) (*entities.ClaimMetadata, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return &entities.ClaimMetadata{Distributions: []entities.Distribution{{
		ID:         entities.NewHexInt(big.NewInt(1)),
		MerkleRoot: root,
	}}}, nil
}
