package ledger

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/entities"
)

// Enricher resolves the on-chain distributions registered for a merkle root.
type Enricher struct {
	ledger  Ledger
	timeout time.Duration
}

func NewEnricher(l Ledger, timeout time.Duration) *Enricher {
	return &Enricher{ledger: l, timeout: timeout}
}

// Enrich returns nil metadata, without error, when no distribution uses root.
// A token whose decimals cannot be read is reported without them.
func (e *Enricher) Enrich(ctx context.Context, root common.Hash) (*entities.ClaimMetadata, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	ids, err := e.ledger.DistributionIDs(ctx, root)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	meta := &entities.ClaimMetadata{Distributions: make([]entities.Distribution, 0, len(ids))}
	for _, id := range ids {
		d, err := e.ledger.Distribution(ctx, id)
		if err != nil {
			return nil, err
		}
		token, err := d.TokenAddress.Parse()
		if err == nil {
			if dec, err := e.ledger.Decimals(ctx, token); err == nil {
				d.Decimals = &dec
			} else {
				logger.Debugf("ledger: decimals of %s: %v", token.Hex(), err)
			}
		}
		meta.Distributions = append(meta.Distributions, *d)
	}
	return meta, nil
}
