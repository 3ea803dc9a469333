package ledger

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// The subset of the distributor factory and ERC-20 interfaces read during enrichment.
const distributorABIJSON = `[
	{"type":"function","name":"distributionIdsByRoot","stateMutability":"view",
	 "inputs":[{"name":"root","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256[]"}]},
	{"type":"function","name":"distributions","stateMutability":"view",
	 "inputs":[{"name":"id","type":"uint256"}],
	 "outputs":[{"name":"token","type":"address"},{"name":"merkleRoot","type":"bytes32"},
	            {"name":"totalAmount","type":"uint256"},{"name":"totalClaimed","type":"uint256"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"uint8"}]}
]`

var (
	DistributorABI = mustParseABI(distributorABIJSON)
	ERC20ABI       = mustParseABI(erc20ABIJSON)
)

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}
