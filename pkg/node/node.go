package node

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/configs"
	dsstores "github.com/mlayerprotocol/go-airdrop/internal/ds/stores"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/mlayerprotocol/go-airdrop/pkg/core/rest"
	"github.com/mlayerprotocol/go-airdrop/pkg/ledger"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
)

var logger = &log.Logger

// Node is an opened document store plus the service built over it.
type Node struct {
	Ctx     context.Context
	Service *service.Service
	closers []io.Closer
}

// Open builds the service described by the configuration in mainCtx. The
// ledger enricher is attached only when an RPC endpoint and a distributor
// factory are configured.
func Open(mainCtx context.Context) (*Node, error) {
	cfg, ok := configs.FromContext(mainCtx)
	if !ok {
		return nil, apperror.Internal("unable to load main config")
	}
	ctx, store, closers, err := dsstores.InitStores(mainCtx, cfg)
	if err != nil {
		return nil, err
	}
	var enricher service.Enricher
	if cfg.LedgerEnabled() {
		client, err := ledger.Dial(ctx, cfg.EVMRPC, common.HexToAddress(cfg.DistributorFactory))
		if err != nil {
			// enrichment is optional, the node still serves claims without it
			logger.Warnf("node: ledger enrichment disabled: %v", err)
		} else {
			enricher = ledger.NewEnricher(client, cfg.LedgerTimeout)
		}
	}
	svc, err := service.New(cfg, store, enricher)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	return &Node{Ctx: ctx, Service: svc, closers: closers}, nil
}

func (n *Node) Close() error {
	return closeAll(n.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start runs the REST service until mainCtx is cancelled.
func Start(mainCtx context.Context) error {
	n, err := Open(mainCtx)
	if err != nil {
		return err
	}
	defer n.Close()

	logger.Println("Starting airdrop service...")
	err = rest.NewRestService(n.Ctx, n.Service).Serve(mainCtx)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Println("airdrop service stopped")
	return nil
}
