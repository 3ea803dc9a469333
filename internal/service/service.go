package service

import (
	"context"

	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/entities"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
)

var logger = &log.Logger

// Service wires assembly, publication and lookup over one store.
type Service struct {
	Config    *configs.MainConfiguration
	Store     storage.Store
	Assembler *Assembler
	Lookup    *ClaimLookup
}

func New(cfg *configs.MainConfiguration, store storage.Store, enricher Enricher) (*Service, error) {
	lookup, err := NewClaimLookup(cfg, store, enricher)
	if err != nil {
		return nil, err
	}
	return &Service{
		Config:    cfg,
		Store:     store,
		Assembler: NewAssembler(cfg),
		Lookup:    lookup,
	}, nil
}

// PublishedBalanceMap is the outcome of PublishBalanceMap.
type PublishedBalanceMap struct {
	Reference storage.Reference
	Document  *entities.BalanceMap
	Entries   int
}

// PublishBalanceMap assembles allocs and publishes the resulting document. The
// document is only published once every proof has verified against its root.
func (s *Service) PublishBalanceMap(ctx context.Context, allocs []entities.AllocationEntry, scaleExponent int32) (*PublishedBalanceMap, error) {
	doc, err := s.Assembler.Assemble(allocs, scaleExponent)
	if err != nil {
		return nil, err
	}
	data, err := doc.Encode()
	if err != nil {
		return nil, apperror.InternalError("encode balance map", err)
	}
	ref, err := s.Store.Publish(ctx, data)
	if err != nil {
		return nil, err
	}
	s.Lookup.Put(ref, doc)
	logger.Infof("service: published balance map %s, root %s, %d claims", ref, doc.MerkleRoot.Hex(), len(doc.Claims))
	return &PublishedBalanceMap{Reference: ref, Document: doc, Entries: len(allocs)}, nil
}

// GetBalanceMap returns the document stored under rawRef.
func (s *Service) GetBalanceMap(ctx context.Context, rawRef string) (storage.Reference, *entities.BalanceMap, error) {
	ref, err := storage.ParseReference(rawRef)
	if err != nil {
		return storage.Reference{}, nil, err
	}
	doc, err := s.Lookup.Document(ctx, ref)
	if err != nil {
		return storage.Reference{}, nil, err
	}
	return ref, doc, nil
}
