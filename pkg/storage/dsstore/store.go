// Package dsstore is a content-addressed document store on top of any
// go-datastore. Documents are addressed by their CIDv1 (raw codec, sha2-256),
// so the references it issues are interchangeable with an IPFS node's raw-leaf adds.
package dsstore

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/ipfs/go-cid"
	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/common/constants"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
)

var logger = &log.Logger

type Store struct {
	ds datastore.Datastore
}

var (
	_ storage.Store    = (*Store)(nil)
	_ storage.Unpinner = (*Store)(nil)
)

func New(ds datastore.Datastore) *Store {
	return &Store{ds: ds}
}

func blockKey(ref storage.Reference) datastore.Key {
	return datastore.NewKey(constants.BlocksNamespace).ChildString(ref.Key())
}

func pinKey(ref storage.Reference) datastore.Key {
	return datastore.NewKey(constants.PinsNamespace).ChildString(ref.Key())
}

// Publish stores data and pins it. Publishing identical bytes twice yields the
// same reference.
func (s *Store) Publish(ctx context.Context, data []byte) (storage.Reference, error) {
	ref, err := storage.NewReference(cid.Raw, data)
	if err != nil {
		return storage.Reference{}, apperror.InternalError("dsstore: compute reference", err)
	}
	if err := s.ds.Put(ctx, blockKey(ref), data); err != nil {
		return storage.Reference{}, apperror.Unavailable("dsstore: write document", err)
	}
	if err := s.ds.Put(ctx, pinKey(ref), []byte{1}); err != nil {
		return storage.Reference{}, apperror.Unavailable("dsstore: pin document", err)
	}
	logger.Debugf("dsstore: published %s (%d bytes)", ref, len(data))
	return ref, nil
}

func (s *Store) Fetch(ctx context.Context, ref storage.Reference) ([]byte, error) {
	if !ref.Defined() {
		return nil, apperror.Reference("dsstore: undefined reference", nil)
	}
	data, err := s.ds.Get(ctx, blockKey(ref))
	if errors.Is(err, datastore.ErrNotFound) {
		return nil, apperror.Unavailable(fmt.Sprintf("dsstore: %s is not stored", ref), err)
	}
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("dsstore: read %s", ref), err)
	}
	return data, nil
}

func (s *Store) ListPinned(ctx context.Context) iter.Seq2[storage.Reference, error] {
	return func(yield func(storage.Reference, error) bool) {
		res, err := s.ds.Query(ctx, query.Query{Prefix: constants.PinsNamespace, KeysOnly: true})
		if err != nil {
			yield(storage.Reference{}, apperror.Unavailable("dsstore: list pins", err))
			return
		}
		defer res.Close()
		for {
			r, ok := res.NextSync()
			if !ok {
				return
			}
			if r.Error != nil {
				yield(storage.Reference{}, apperror.Unavailable("dsstore: list pins", r.Error))
				return
			}
			name := strings.TrimPrefix(datastore.RawKey(r.Key).BaseNamespace(), "/")
			ref, err := storage.ParseReference(name)
			if err != nil {
				logger.Warnf("dsstore: skipping malformed pin key %q", r.Key)
				continue
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

// Unpin drops the pin marker and the document.
func (s *Store) Unpin(ctx context.Context, ref storage.Reference) error {
	has, err := s.ds.Has(ctx, pinKey(ref))
	if err != nil {
		return apperror.Unavailable("dsstore: unpin", err)
	}
	if !has {
		return apperror.NotFound(fmt.Sprintf("dsstore: %s is not pinned", ref))
	}
	if err := s.ds.Delete(ctx, pinKey(ref)); err != nil {
		return apperror.Unavailable("dsstore: unpin", err)
	}
	if err := s.ds.Delete(ctx, blockKey(ref)); err != nil {
		return apperror.Unavailable("dsstore: unpin", err)
	}
	return nil
}
