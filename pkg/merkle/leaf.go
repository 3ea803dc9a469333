package merkle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// LeafSize is the length of the packed (uint256 index, address, uint256 amount) tuple.
const LeafSize = 32 + common.AddressLength + 32

// MaxUint256 bounds both the index and the amount committed in a leaf.
var MaxUint256 = math.MaxBig256

type Leaf struct {
	Index   uint64
	Account common.Address
	Amount  *big.Int
}

func (l Leaf) Hash() common.Hash {
	return EncodeLeaf(l.Index, l.Account, l.Amount)
}

// EncodeLeaf returns keccak256(abi.encodePacked(uint256 index, address account, uint256 amount)).
// amount must be non-negative and fit 256 bits; callers validate before encoding.
func EncodeLeaf(index uint64, account common.Address, amount *big.Int) common.Hash {
	var packed [LeafSize]byte
	new(big.Int).SetUint64(index).FillBytes(packed[0:32])
	copy(packed[32:32+common.AddressLength], account.Bytes())
	amount.FillBytes(packed[32+common.AddressLength:])
	return crypto.Keccak256Hash(packed[:])
}

// FitsUint256 reports whether v can be committed as a uint256.
func FitsUint256(v *big.Int) bool {
	if v == nil || v.Sign() < 0 {
		return false
	}
	_, overflow := uint256.FromBig(v)
	return !overflow
}
