package entities

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type ClaimEntry struct {
	Index  uint64
	Amount *big.Int
	Proof  []common.Hash
}

// BalanceMap is the document published to content-addressed storage. It is
// immutable once assembled.
type BalanceMap struct {
	MerkleRoot common.Hash
	TokenTotal *big.Int
	Claims     map[common.Address]ClaimEntry
}

type claimEntryJSON struct {
	Index  uint64        `json:"index"`
	Amount *HexInt       `json:"amount"`
	Proof  []common.Hash `json:"proof"`
}

type balanceMapJSON struct {
	MerkleRoot *common.Hash              `json:"merkleRoot"`
	TokenTotal *HexInt                   `json:"tokenTotal"`
	Claims     map[string]claimEntryJSON `json:"claims"`
}

// MarshalJSON keys claims by checksummed address. encoding/json sorts map keys,
// so the same document always serialises to the same bytes.
func (m *BalanceMap) MarshalJSON() ([]byte, error) {
	out := balanceMapJSON{
		MerkleRoot: &m.MerkleRoot,
		TokenTotal: NewHexInt(m.TokenTotal),
		Claims:     make(map[string]claimEntryJSON, len(m.Claims)),
	}
	if out.TokenTotal == nil {
		out.TokenTotal = NewHexInt(new(big.Int))
	}
	for addr, c := range m.Claims {
		proof := c.Proof
		if proof == nil {
			proof = []common.Hash{}
		}
		out.Claims[addr.Hex()] = claimEntryJSON{Index: c.Index, Amount: NewHexInt(c.Amount), Proof: proof}
	}
	return json.Marshal(out)
}

func (m *BalanceMap) UnmarshalJSON(data []byte) error {
	var in balanceMapJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.MerkleRoot == nil {
		return fmt.Errorf("balance map: merkleRoot is required")
	}
	if in.TokenTotal == nil {
		return fmt.Errorf("balance map: tokenTotal is required")
	}
	claims := make(map[common.Address]ClaimEntry, len(in.Claims))
	for key, c := range in.Claims {
		addr, err := ParseAddress(key)
		if err != nil {
			return fmt.Errorf("balance map: claim key: %w", err)
		}
		if c.Amount == nil {
			return fmt.Errorf("balance map: claim %s has no amount", key)
		}
		if _, dup := claims[addr]; dup {
			return fmt.Errorf("balance map: duplicate claim for %s", addr.Hex())
		}
		claims[addr] = ClaimEntry{Index: c.Index, Amount: c.Amount.BigInt(), Proof: c.Proof}
	}
	m.MerkleRoot = *in.MerkleRoot
	m.TokenTotal = in.TokenTotal.BigInt()
	m.Claims = claims
	return nil
}

func DecodeBalanceMap(data []byte) (*BalanceMap, error) {
	m := &BalanceMap{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *BalanceMap) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Claim looks up addr in the document.
func (m *BalanceMap) Claim(addr common.Address) (ClaimEntry, bool) {
	c, ok := m.Claims[addr]
	return c, ok
}
