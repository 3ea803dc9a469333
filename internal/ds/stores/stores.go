package stores

import (
	"context"
	"fmt"
	"io"

	datastore "github.com/ipfs/go-datastore"
	dssync "github.com/ipfs/go-datastore/sync"
	"github.com/mlayerprotocol/go-airdrop/common/constants"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/pkg/core/ds"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage/dsstore"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage/ipfs"
)

var logger = &log.Logger

// InitStores opens the document store selected by cfg.StorageDriver and
// records it in the returned context under constants.DocumentStoreKey. The
// closers must be closed on shutdown.
func InitStores(mainCtx context.Context, cfg *configs.MainConfiguration) (_ctx context.Context, _store storage.Store, _closers []io.Closer, err error) {
	switch cfg.StorageDriver {
	case configs.IPFSStorage:
		client, err := ipfs.New(ipfs.Options{
			APIURL:         cfg.IPFSAPIURL,
			GatewayURL:     cfg.IPFSGatewayURL,
			AuthToken:      cfg.IPFSAuthToken,
			RequestTimeout: cfg.IPFSTimeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		_store = client
		logger.Infof("stores: using IPFS node at %s", cfg.IPFSAPIURL)
	case configs.BadgerStorage:
		documentStore, err := ds.New(cfg, constants.DocumentStore)
		if err != nil {
			return nil, nil, nil, err
		}
		_closers = append(_closers, documentStore)
		_store = dsstore.New(documentStore)
		dir, _ := ds.StoreDir(cfg, constants.DocumentStore)
		logger.Infof("stores: using badger document store at %s", dir)
	case configs.MemoryStorage:
		_store = dsstore.New(dssync.MutexWrap(datastore.NewMapDatastore()))
		logger.Warn("stores: using in-memory document store, documents are lost on exit")
	default:
		return nil, nil, nil, fmt.Errorf("stores: unknown storage driver %q", cfg.StorageDriver)
	}
	return context.WithValue(mainCtx, constants.DocumentStoreKey, _store), _store, _closers, nil
}

// DocumentStore returns the store InitStores put in ctx.
func DocumentStore(ctx context.Context) (storage.Store, bool) {
	s, ok := ctx.Value(constants.DocumentStoreKey).(storage.Store)
	return s, ok
}
