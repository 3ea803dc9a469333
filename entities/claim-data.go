package entities

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ClaimRecord is a resolved claim for one address, with the document it came from.
type ClaimRecord struct {
	Reference  string         `json:"reference,omitempty"`
	Address    AddressString  `json:"address"`
	MerkleRoot common.Hash    `json:"merkleRoot"`
	Index      uint64         `json:"index"`
	Amount     *HexInt        `json:"amount"`
	Proof      []common.Hash  `json:"proof"`
	Metadata   *ClaimMetadata `json:"metadata,omitempty"`
}

func NewClaimRecord(reference string, addr common.Address, root common.Hash, entry ClaimEntry) ClaimRecord {
	proof := entry.Proof
	if proof == nil {
		proof = []common.Hash{}
	}
	return ClaimRecord{
		Reference:  reference,
		Address:    ChecksumString(addr),
		MerkleRoot: root,
		Index:      entry.Index,
		Amount:     NewHexInt(entry.Amount),
		Proof:      proof,
	}
}

// ClaimMetadata is the best-effort on-chain context of a claim's merkle root.
type ClaimMetadata struct {
	Distributions []Distribution `json:"distributions"`
}

// Distribution mirrors one distributor contract entry registered for a root.
type Distribution struct {
	ID           *HexInt       `json:"id"`
	TokenAddress AddressString `json:"tokenAddress"`
	MerkleRoot   common.Hash   `json:"merkleRoot"`
	TotalAmount  *HexInt       `json:"totalAmount"`
	TotalClaimed *HexInt       `json:"totalClaimed"`
	Decimals     *uint8        `json:"decimals,omitempty"`
}

func (d Distribution) Remaining() *big.Int {
	total, claimed := d.TotalAmount.BigInt(), d.TotalClaimed.BigInt()
	if total == nil {
		return nil
	}
	if claimed == nil {
		return total
	}
	return total.Sub(total, claimed)
}
