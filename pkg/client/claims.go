package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
	"github.com/mlayerprotocol/go-airdrop/pkg/merkle"
)

type ClaimsResult struct {
	Address entities.AddressString `json:"address"`
	Source  string                 `json:"source"`
	Claims  []entities.ClaimRecord `json:"claims"`
	Report  *service.LookupReport  `json:"report,omitempty"`
}

// FindClaims searches ref, or every published document when ref is empty.
func FindClaims(ctx context.Context, svc *service.Service, address string, ref string) (*ClaimsResult, error) {
	addr, err := entities.ParseAddress(address)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	source := service.AllDocuments()
	if ref != "" {
		source = service.SingleDocument(ref)
	}
	records, report, err := svc.Lookup.FindClaimsWithReport(ctx, addr.Hex(), source)
	if err != nil {
		return nil, err
	}
	return &ClaimsResult{
		Address: entities.ChecksumString(addr),
		Source:  source.String(),
		Claims:  records,
		Report:  report,
	}, nil
}

type VerifyClaimPayload struct {
	Index      uint64                 `json:"index"`
	Address    entities.AddressString `json:"address"`
	Amount     *entities.HexInt       `json:"amount"`
	Proof      []common.Hash          `json:"proof"`
	MerkleRoot common.Hash            `json:"merkleRoot"`
}

type VerifyClaimResult struct {
	Valid bool        `json:"valid"`
	Leaf  common.Hash `json:"leaf"`
}

func VerifyClaim(payload VerifyClaimPayload) (*VerifyClaimResult, error) {
	addr, err := payload.Address.Parse()
	if err != nil {
		return nil, apperror.BadRequest(err.Error())
	}
	if payload.Amount == nil {
		return nil, apperror.BadRequest("amount is required")
	}
	amount := payload.Amount.BigInt()
	if !merkle.FitsUint256(amount) {
		return &VerifyClaimResult{Valid: false}, nil
	}
	leaf := merkle.EncodeLeaf(payload.Index, addr, amount)
	return &VerifyClaimResult{
		Valid: merkle.Verify(leaf, payload.Proof, payload.MerkleRoot),
		Leaf:  leaf,
	}, nil
}
