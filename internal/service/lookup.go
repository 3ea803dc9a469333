package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/metrics"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
	"golang.org/x/sync/errgroup"
)

const defaultFetchTimeout = 10 * time.Second

// Source selects the documents a lookup searches.
type Source struct {
	ref string
	all bool
}

func SingleDocument(ref string) Source {
	return Source{ref: ref}
}

func AllDocuments() Source {
	return Source{all: true}
}

func (s Source) All() bool {
	return s.all
}

func (s Source) String() string {
	if s.all {
		return "all"
	}
	return s.ref
}

// Enricher annotates a claim with on-chain state for its merkle root.
type Enricher interface {
	Enrich(ctx context.Context, root common.Hash) (*entities.ClaimMetadata, error)
}

type ClaimLookup struct {
	cfg      *configs.MainConfiguration
	store    storage.Store
	cache    *lru.Cache[string, *entities.BalanceMap]
	enricher Enricher

	backoff func() backoff.BackOff
}

func NewClaimLookup(cfg *configs.MainConfiguration, store storage.Store, enricher Enricher) (*ClaimLookup, error) {
	size := cfg.DocumentCacheSize
	if size <= 0 {
		size = 1
	}
	cache, err := lru.New[string, *entities.BalanceMap](size)
	if err != nil {
		return nil, err
	}
	return &ClaimLookup{
		cfg:      cfg,
		store:    store,
		cache:    cache,
		enricher: enricher,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}, nil
}

// FindClaims resolves every claim of address in source. A single document that
// lacks the address is a NotFound error; a scan over all documents that finds
// nothing returns an empty result.
func (l *ClaimLookup) FindClaims(ctx context.Context, address string, source Source) ([]entities.ClaimRecord, error) {
	records, report, err := l.FindClaimsWithReport(ctx, address, source)
	if err != nil {
		return nil, err
	}
	if report != nil && report.Partial() {
		logger.Warnf("lookup: %d of %d documents skipped: %v", len(report.Failed), report.Listed, report.Err())
	}
	return records, nil
}

// FindClaimsWithReport is FindClaims that also returns the scan report. The
// report is nil for single-document lookups.
func (l *ClaimLookup) FindClaimsWithReport(ctx context.Context, address string, source Source) ([]entities.ClaimRecord, *LookupReport, error) {
	addr, err := entities.ParseAddress(address)
	if err != nil {
		return nil, nil, apperror.Validation(err.Error())
	}
	mode := "single"
	if source.all {
		mode = "all"
	}
	start := time.Now()
	defer func() {
		metrics.LookupDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	}()

	var records []entities.ClaimRecord
	var report *LookupReport
	if source.all {
		records, report, err = l.scan(ctx, addr)
	} else {
		records, err = l.single(ctx, addr, source.ref)
	}
	if err != nil {
		return nil, nil, err
	}
	l.enrich(ctx, records)
	return records, report, nil
}

func (l *ClaimLookup) single(ctx context.Context, addr common.Address, rawRef string) ([]entities.ClaimRecord, error) {
	ref, err := storage.ParseReference(rawRef)
	if err != nil {
		return nil, err
	}
	doc, err := l.Document(ctx, ref)
	if err != nil {
		return nil, err
	}
	entry, ok := doc.Claim(addr)
	if !ok {
		return nil, apperror.NotFound(fmt.Sprintf("%s has no claim in %s", addr.Hex(), ref))
	}
	return []entities.ClaimRecord{entities.NewClaimRecord(ref.String(), addr, doc.MerkleRoot, entry)}, nil
}

type scanSlot struct {
	ref    storage.Reference
	record *entities.ClaimRecord
}

func (l *ClaimLookup) scan(ctx context.Context, addr common.Address) ([]entities.ClaimRecord, *LookupReport, error) {
	report := newLookupReport()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(l.cfg.FetchConcurrency, 1))

	var slots []*scanSlot
	seen := map[string]bool{}
	var listErr error
	for ref, err := range l.store.ListPinned(gctx) {
		if err != nil {
			listErr = err
			break
		}
		if seen[ref.Key()] {
			continue
		}
		seen[ref.Key()] = true
		slot := &scanSlot{ref: ref}
		slots = append(slots, slot)
		g.Go(func() error {
			doc, err := l.Document(gctx, slot.ref)
			if err != nil {
				if gctx.Err() == nil {
					report.fail(slot.ref.String(), err)
				}
				return nil
			}
			report.fetched()
			if entry, ok := doc.Claim(addr); ok {
				rec := entities.NewClaimRecord(slot.ref.String(), addr, doc.MerkleRoot, entry)
				slot.record = &rec
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if listErr != nil {
		if len(slots) == 0 {
			return nil, nil, apperror.Unavailable("list published documents", listErr)
		}
		report.fail("<listing>", listErr)
	}

	report.Listed = len(slots)
	records := []entities.ClaimRecord{}
	for _, slot := range slots {
		if slot.record != nil {
			records = append(records, *slot.record)
		}
	}
	report.Matched = len(records)
	return records, report, nil
}

// Document returns the balance map behind ref, from the cache when possible.
// Fetches are bounded by the configured timeout and retry count; a reference
// that is malformed or resolves to something other than a balance map is not
// retried.
func (l *ClaimLookup) Document(ctx context.Context, ref storage.Reference) (*entities.BalanceMap, error) {
	key := ref.Key()
	if doc, ok := l.cache.Get(key); ok {
		metrics.DocumentFetches.WithLabelValues(metrics.FetchHit).Inc()
		return doc, nil
	}
	var b backoff.BackOff = backoff.WithContext(backoff.WithMaxRetries(l.backoff(), l.cfg.FetchRetries), ctx)
	attempt := 0
	doc, err := backoff.RetryWithData(func() (*entities.BalanceMap, error) {
		attempt++
		fctx, cancel := context.WithTimeout(ctx, l.fetchTimeout())
		defer cancel()
		data, err := l.store.Fetch(fctx, ref)
		if err != nil {
			if apperror.IsKind(err, apperror.KindReference) || ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			logger.Debugf("lookup: fetch %s attempt %d: %v", ref, attempt, err)
			return nil, err
		}
		doc, err := entities.DecodeBalanceMap(data)
		if err != nil {
			metrics.DocumentFetches.WithLabelValues(metrics.FetchInvalid).Inc()
			return nil, backoff.Permanent(apperror.Unavailable(fmt.Sprintf("%s is not a balance map", ref), err))
		}
		return doc, nil
	}, b)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		metrics.DocumentFetches.WithLabelValues(metrics.FetchFailed).Inc()
		var appErr *apperror.Error
		if !errors.As(err, &appErr) {
			err = apperror.Unavailable(fmt.Sprintf("fetch %s", ref), err)
		}
		return nil, err
	}
	metrics.DocumentFetches.WithLabelValues(metrics.FetchOK).Inc()
	l.cache.Add(key, doc)
	return doc, nil
}

func (l *ClaimLookup) fetchTimeout() time.Duration {
	if l.cfg.FetchTimeout <= 0 {
		return defaultFetchTimeout
	}
	return l.cfg.FetchTimeout
}

// Put seeds the cache with a document this process just published.
func (l *ClaimLookup) Put(ref storage.Reference, doc *entities.BalanceMap) {
	l.cache.Add(ref.Key(), doc)
}

func (l *ClaimLookup) enrich(ctx context.Context, records []entities.ClaimRecord) {
	if l.enricher == nil || len(records) == 0 {
		return
	}
	// several documents may share a root
	byRoot := map[common.Hash]*entities.ClaimMetadata{}
	failed := map[common.Hash]bool{}
	for i := range records {
		root := records[i].MerkleRoot
		if failed[root] {
			continue
		}
		meta, done := byRoot[root]
		if !done {
			var err error
			meta, err = l.enricher.Enrich(ctx, root)
			if err != nil {
				metrics.EnrichmentFailures.Inc()
				logger.Warnf("lookup: enrichment of root %s failed: %v", root.Hex(), err)
				failed[root] = true
				continue
			}
			byRoot[root] = meta
		}
		records[i].Metadata = meta
	}
}
