package ds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"
	datastore "github.com/ipfs/go-datastore"
	"github.com/ipfs/go-datastore/query"
	"github.com/mlayerprotocol/go-airdrop/common/constants"
	"github.com/mlayerprotocol/go-airdrop/configs"
)

func Key(key string) datastore.Key {
	return datastore.NewKey(key)
}

// Datastore exposes a badger database through the go-datastore interface.
type Datastore struct {
	DB *badger.DB
}

var _ datastore.Datastore = (*Datastore)(nil)

// StoreDir resolves the directories of a named store under cfg.DataDir.
func StoreDir(cfg *configs.MainConfiguration, keyStore constants.DataStore) (dir string, valueLogDir string) {
	dir = filepath.Join(cfg.DataDir, "store", "kv", string(keyStore))
	valueLogDir = filepath.Join(cfg.DataDir, "store", "kv", "logs", string(keyStore))
	if !strings.HasPrefix(dir, "./") && !strings.HasPrefix(dir, "../") && !filepath.IsAbs(dir) {
		dir = "./" + dir
		valueLogDir = "./" + valueLogDir
	}
	return dir, valueLogDir
}

// New opens (creating if needed) the named badger store under the data directory.
func New(cfg *configs.MainConfiguration, keyStore constants.DataStore) (*Datastore, error) {
	dir, valueLogDir := StoreDir(cfg, keyStore)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("ds.New: %w", err)
	}
	if err := os.MkdirAll(valueLogDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("ds.New: %w", err)
	}
	opts := badger.DefaultOptions(dir).
		WithValueDir(valueLogDir).
		WithNumVersionsToKeep(1).
		WithValueThreshold(1024).
		WithSyncWrites(false).
		WithLogger(nil)
	return Open(opts)
}

// NewInMemory opens a badger store that lives only in memory.
func NewInMemory() (*Datastore, error) {
	return Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
}

func Open(opts badger.Options) (*Datastore, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("ds.Open: %w", err)
	}
	return &Datastore{DB: db}, nil
}

func (d *Datastore) Get(ctx context.Context, key datastore.Key) (value []byte, err error) {
	err = d.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.Bytes())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return datastore.ErrNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

func (d *Datastore) Has(ctx context.Context, key datastore.Key) (bool, error) {
	_, err := d.GetSize(ctx, key)
	if errors.Is(err, datastore.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (d *Datastore) GetSize(ctx context.Context, key datastore.Key) (size int, err error) {
	size = -1
	err = d.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key.Bytes())
		if errors.Is(err, badger.ErrKeyNotFound) {
			return datastore.ErrNotFound
		}
		if err != nil {
			return err
		}
		size = int(item.ValueSize())
		return nil
	})
	return size, err
}

func (d *Datastore) Put(ctx context.Context, key datastore.Key, value []byte) error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return txn.Set(key.Bytes(), value)
	})
}

func (d *Datastore) Delete(ctx context.Context, key datastore.Key) error {
	return d.DB.Update(func(txn *badger.Txn) error {
		return txn.Delete(key.Bytes())
	})
}

// Query walks the keys under q.Prefix; filters, orders, offset and limit are
// applied naively on top.
func (d *Datastore) Query(ctx context.Context, q query.Query) (query.Results, error) {
	prefix := datastore.NewKey(q.Prefix).String()
	if prefix != "/" {
		prefix += "/"
	}
	entries := []query.Entry{}
	err := d.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = !q.KeysOnly
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			entry := query.Entry{Key: string(item.KeyCopy(nil)), Size: int(item.ValueSize())}
			if !q.KeysOnly {
				v, err := item.ValueCopy(nil)
				if err != nil {
					return err
				}
				entry.Value = v
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return query.NaiveQueryApply(q, query.ResultsWithEntries(q, entries)), nil
}

func (d *Datastore) Sync(ctx context.Context, prefix datastore.Key) error {
	return d.DB.Sync()
}

func (d *Datastore) Close() error {
	return d.DB.Close()
}
