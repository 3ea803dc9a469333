package node

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRequiresConfig(t *testing.T) {
	_, err := Open(context.Background())
	assert.Error(t, err)
}

func TestOpenMemoryNode(t *testing.T) {
	v := viper.New()
	v.Set("storage_driver", "memory")
	cfg, err := configs.Load(v, "")
	require.NoError(t, err)

	n, err := Open(configs.WithConfig(context.Background(), cfg))
	require.NoError(t, err)
	defer n.Close()

	addr := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	published, err := n.Service.PublishBalanceMap(n.Ctx, []entities.AllocationEntry{{Address: addr, Amount: decimal.NewFromInt(1)}}, cfg.DefaultScaleExponent)
	require.NoError(t, err)

	records, err := n.Service.Lookup.FindClaims(n.Ctx, addr.Hex(), service.AllDocuments())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, published.Document.MerkleRoot, records[0].MerkleRoot)
	assert.Equal(t, "0xde0b6b3a7640000", records[0].Amount.String())
}
