package service

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/merkle"
	"github.com/mlayerprotocol/go-airdrop/pkg/metrics"
	"github.com/shopspring/decimal"
)

// maxUint256Digits is the decimal length of 2^256-1.
const maxUint256Digits = 78

// Assembler turns an ordered allocation batch into a balance map. It holds no
// state besides the read-only configuration and is safe for concurrent use.
type Assembler struct {
	cfg    *configs.MainConfiguration
	verify func(leaf common.Hash, proof []common.Hash, root common.Hash) bool
}

func NewAssembler(cfg *configs.MainConfiguration) *Assembler {
	return &Assembler{cfg: cfg, verify: merkle.Verify}
}

// Assemble validates the whole batch before hashing anything. Entry i of allocs
// becomes leaf i; no partial document is ever returned.
func (a *Assembler) Assemble(allocs []entities.AllocationEntry, scaleExponent int32) (*entities.BalanceMap, error) {
	doc, err := a.assemble(allocs, scaleExponent)
	if err != nil {
		metrics.AssemblyFailures.WithLabelValues(string(apperror.KindOf(err))).Inc()
		return nil, err
	}
	metrics.DocumentsAssembled.Inc()
	metrics.AssembledLeaves.Observe(float64(len(allocs)))
	return doc, nil
}

func (a *Assembler) assemble(allocs []entities.AllocationEntry, scaleExponent int32) (*entities.BalanceMap, error) {
	if len(allocs) == 0 {
		return nil, apperror.Validation("allocation batch is empty")
	}
	if len(allocs) > a.cfg.MaxBatchSize {
		return nil, apperror.Validationf("allocation batch of %d entries exceeds the limit of %d", len(allocs), a.cfg.MaxBatchSize)
	}
	if scaleExponent < 0 || scaleExponent > a.cfg.MaxScaleExponent {
		return nil, apperror.Validationf("scale exponent %d outside [0, %d]", scaleExponent, a.cfg.MaxScaleExponent)
	}

	seen := make(map[common.Address]int, len(allocs))
	amounts := make([]*big.Int, len(allocs))
	for i, entry := range allocs {
		if prev, ok := seen[entry.Address]; ok {
			return nil, apperror.Validationf("allocation %d (%s): duplicate address, first seen at %d", i, entry.Address.Hex(), prev)
		}
		seen[entry.Address] = i
		if entry.Amount.Sign() < 0 {
			return nil, apperror.Validationf("allocation %d (%s): negative amount %s", i, entry.Address.Hex(), entry.Amount)
		}
		scaled, ok := scaleAmount(entry.Amount, scaleExponent)
		if !ok {
			return nil, apperror.Validationf("allocation %d (%s): scaled amount does not fit in uint256", i, entry.Address.Hex())
		}
		amounts[i] = scaled
	}

	leaves := make([]common.Hash, len(allocs))
	for i, entry := range allocs {
		leaves[i] = merkle.EncodeLeaf(uint64(i), entry.Address, amounts[i])
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, apperror.InternalError("build merkle tree", err)
	}
	root := tree.Root()

	total := new(big.Int)
	claims := make(map[common.Address]entities.ClaimEntry, len(allocs))
	for i, entry := range allocs {
		proof := tree.Proof(i)
		if !a.verify(leaves[i], proof, root) {
			logger.Errorf("assembler: proof of leaf %d (%s) does not fold to root %s", i, entry.Address.Hex(), root.Hex())
			return nil, apperror.Integrity(fmt.Sprintf("proof self-verification failed for leaf %d", i))
		}
		total.Add(total, amounts[i])
		claims[entry.Address] = entities.ClaimEntry{
			Index:  uint64(i),
			Amount: amounts[i],
			Proof:  proof,
		}
	}
	logger.Debugf("assembler: %d leaves, root %s, total %s", len(allocs), root.Hex(), total)
	return &entities.BalanceMap{MerkleRoot: root, TokenTotal: total, Claims: claims}, nil
}

// scaleAmount returns ceil(amount * 10^scaleExponent) for a non-negative amount,
// or false when it does not fit uint256. The order of magnitude is checked on
// the coefficient length and exponent first, so an exponent written as 1e100000000
// never gets expanded into a big integer.
func scaleAmount(amount decimal.Decimal, scaleExponent int32) (*big.Int, bool) {
	if amount.Sign() == 0 {
		return new(big.Int), true
	}
	// amount*10^scale < 10^magnitude
	magnitude := int64(amount.NumDigits()) + int64(amount.Exponent()) + int64(scaleExponent)
	if magnitude > maxUint256Digits {
		return nil, false
	}
	if magnitude <= 0 {
		// strictly between 0 and 1; ceiling never under-allocates
		return big.NewInt(1), true
	}
	scaled := amount.Shift(scaleExponent).Ceil().BigInt()
	return scaled, merkle.FitsUint256(scaled)
}
