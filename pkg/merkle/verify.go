package merkle

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Verify folds leaf with every proof entry in order and compares the result to root.
func Verify(leaf common.Hash, proof []common.Hash, root common.Hash) bool {
	computed := leaf
	for _, sibling := range proof {
		computed = Combine(computed, sibling)
	}
	return computed == root
}

// VerifyClaim checks an (index, account, amount) allocation against root. Amounts
// that cannot be committed as uint256 are never valid.
func VerifyClaim(index uint64, account common.Address, amount *big.Int, proof []common.Hash, root common.Hash) bool {
	if !FitsUint256(amount) {
		return false
	}
	return Verify(EncodeLeaf(index, account, amount), proof, root)
}
