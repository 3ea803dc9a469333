// Package cmd implements the airdrop command line: the REST daemon plus offline
// tools to build, inspect and verify balance maps.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
	"github.com/mlayerprotocol/go-airdrop/pkg/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var logger = &log.Logger

type contextKey string

const configKey contextKey = "cmd-config"

// flag name -> configuration key
var persistentFlags = map[string]string{
	"log-level":      "log_level",
	"log-format":     "log_format",
	"data-dir":       "data_dir",
	"storage-driver": "storage_driver",
	"ipfs-api":       "ipfs_api_url",
	"ipfs-gateway":   "ipfs_gateway_url",
	"evm-rpc":        "evm_rpc",
	"distributor":    "distributor_factory",
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "airdrop",
		Short:         "Build, publish and serve merkle airdrop claims",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("config")
			cfg, err := configs.Load(v, file)
			if err != nil {
				return err
			}
			log.Configure(cfg.LogLevel, cfg.LogFormat)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = configs.WithConfig(ctx, cfg)
			cmd.SetContext(context.WithValue(ctx, configKey, cfg))
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "Path to a configuration file (toml, yaml or json)")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")
	pf.String("data-dir", "./data", "Directory of the local document store")
	pf.String("storage-driver", "badger", "Document storage: ipfs, badger or memory")
	pf.String("ipfs-api", "http://127.0.0.1:5001", "Kubo RPC endpoint used by the ipfs driver")
	pf.String("ipfs-gateway", "", "Optional gateway used for fetches by the ipfs driver")
	pf.String("evm-rpc", "", "EVM JSON-RPC endpoint used for claim enrichment")
	pf.String("distributor", "", "Distributor factory contract address")
	for flag, key := range persistentFlags {
		_ = v.BindPFlag(key, pf.Lookup(flag))
	}

	root.AddCommand(
		newDaemonCmd(v),
		newBuildCmd(),
		newClaimsCmd(),
		newVerifyCmd(),
		newPinsCmd(),
	)
	return root
}

func configFrom(cmd *cobra.Command) *configs.MainConfiguration {
	return cmd.Context().Value(configKey).(*configs.MainConfiguration)
}

func openNode(cmd *cobra.Command) (*node.Node, error) {
	return node.Open(cmd.Context())
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
