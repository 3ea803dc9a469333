package client

import (
	"os"

	"github.com/mlayerprotocol/go-airdrop/configs"
)

type NodeInfo struct {
	StorageDriver     configs.StorageDriver `json:"storage_driver"`
	LedgerEnabled     bool                  `json:"ledger_enabled"`
	MaxBatchSize      int                   `json:"max_batch_size"`
	MaxScaleExponent  int32                 `json:"max_scale_exponent"`
	DefaultScale      int32                 `json:"default_scale_exponent"`
	Client            string                `json:"client"`
	ClientVersion     string                `json:"client_version"`
	ClientReleaseDate string                `json:"client_release_date"`
}

func Info(cfg *configs.MainConfiguration) *NodeInfo {
	return &NodeInfo{
		StorageDriver:     cfg.StorageDriver,
		LedgerEnabled:     cfg.LedgerEnabled(),
		MaxBatchSize:      cfg.MaxBatchSize,
		MaxScaleExponent:  cfg.MaxScaleExponent,
		DefaultScale:      cfg.DefaultScaleExponent,
		Client:            "airdrop",
		ClientVersion:     os.Getenv("CLIENT_VERSION"),
		ClientReleaseDate: os.Getenv("RELEASE_DATE"),
	}
}
