package client

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/internal/service"
)

type PublishBalanceMapPayload struct {
	Allocations entities.AllocationList `json:"allocations"`
	// ScaleExponent defaults to the configured default_scale_exponent when absent.
	ScaleExponent *int32 `json:"scaleExponent,omitempty"`
}

type PublishBalanceMapResult struct {
	Reference  string           `json:"reference"`
	References []string         `json:"references"`
	MerkleRoot common.Hash      `json:"merkleRoot"`
	TokenTotal *entities.HexInt `json:"tokenTotal"`
	Claims     int              `json:"claims"`
}

type BalanceMapResult struct {
	Reference  string               `json:"reference"`
	References []string             `json:"references"`
	Document   *entities.BalanceMap `json:"document"`
}

func PublishBalanceMap(ctx context.Context, svc *service.Service, payload PublishBalanceMapPayload) (*PublishBalanceMapResult, error) {
	scale := svc.Config.DefaultScaleExponent
	if payload.ScaleExponent != nil {
		scale = *payload.ScaleExponent
	}
	published, err := svc.PublishBalanceMap(ctx, payload.Allocations, scale)
	if err != nil {
		return nil, err
	}
	return &PublishBalanceMapResult{
		Reference:  published.Reference.String(),
		References: published.Reference.Encodings(),
		MerkleRoot: published.Document.MerkleRoot,
		TokenTotal: entities.NewHexInt(published.Document.TokenTotal),
		Claims:     published.Entries,
	}, nil
}

func GetBalanceMap(ctx context.Context, svc *service.Service, ref string) (*BalanceMapResult, error) {
	parsed, doc, err := svc.GetBalanceMap(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &BalanceMapResult{
		Reference:  parsed.String(),
		References: parsed.Encodings(),
		Document:   doc,
	}, nil
}
