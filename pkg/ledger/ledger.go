// Package ledger reads distribution state for a merkle root from an EVM chain.
package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
)

var logger = &log.Logger

const decimalsCacheSize = 512

// Ledger is the read side of the distributor contracts.
type Ledger interface {
	DistributionIDs(ctx context.Context, root common.Hash) ([]*big.Int, error)
	Distribution(ctx context.Context, id *big.Int) (*entities.Distribution, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// ContractCaller is satisfied by *ethclient.Client and by simulated backends.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type Client struct {
	caller   ContractCaller
	factory  common.Address
	decimals *lru.Cache[common.Address, uint8]
}

var _ Ledger = (*Client)(nil)

func NewClient(caller ContractCaller, factory common.Address) (*Client, error) {
	cache, err := lru.New[common.Address, uint8](decimalsCacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{caller: caller, factory: factory, decimals: cache}, nil
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string, factory common.Address) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("ledger: dial %s", rpcURL), err)
	}
	logger.Infof("ledger: connected to %s, distributor factory %s", rpcURL, factory.Hex())
	return NewClient(ec, factory)
}

func (c *Client) call(ctx context.Context, contract abi.ABI, to common.Address, method string, args ...interface{}) ([]interface{}, error) {
	input, err := contract.Pack(method, args...)
	if err != nil {
		return nil, apperror.InternalError(fmt.Sprintf("ledger: pack %s", method), err)
	}
	output, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: input}, nil)
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("ledger: call %s on %s", method, to.Hex()), err)
	}
	values, err := contract.Unpack(method, output)
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("ledger: decode %s from %s", method, to.Hex()), err)
	}
	return values, nil
}

func (c *Client) DistributionIDs(ctx context.Context, root common.Hash) ([]*big.Int, error) {
	values, err := c.call(ctx, DistributorABI, c.factory, "distributionIdsByRoot", [32]byte(root))
	if err != nil {
		return nil, err
	}
	ids, ok := values[0].([]*big.Int)
	if !ok {
		return nil, apperror.Internal(fmt.Sprintf("ledger: unexpected distributionIdsByRoot output %T", values[0]))
	}
	return ids, nil
}

func (c *Client) Distribution(ctx context.Context, id *big.Int) (*entities.Distribution, error) {
	values, err := c.call(ctx, DistributorABI, c.factory, "distributions", id)
	if err != nil {
		return nil, err
	}
	token, ok1 := values[0].(common.Address)
	root, ok2 := values[1].([32]byte)
	total, ok3 := values[2].(*big.Int)
	claimed, ok4 := values[3].(*big.Int)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, apperror.Internal("ledger: unexpected distributions output")
	}
	return &entities.Distribution{
		ID:           entities.NewHexInt(id),
		TokenAddress: entities.ChecksumString(token),
		MerkleRoot:   common.Hash(root),
		TotalAmount:  entities.NewHexInt(total),
		TotalClaimed: entities.NewHexInt(claimed),
	}, nil
}

func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	if d, ok := c.decimals.Get(token); ok {
		return d, nil
	}
	values, err := c.call(ctx, ERC20ABI, token, "decimals")
	if err != nil {
		return 0, err
	}
	d, ok := values[0].(uint8)
	if !ok {
		return 0, apperror.Internal(fmt.Sprintf("ledger: unexpected decimals output %T", values[0]))
	}
	c.decimals.Add(token, d)
	return d, nil
}
