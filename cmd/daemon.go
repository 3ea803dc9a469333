package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mlayerprotocol/go-airdrop/configs"
	"github.com/mlayerprotocol/go-airdrop/pkg/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newDaemonCmd(v *viper.Viper) *cobra.Command {
	daemon := &cobra.Command{
		Use:   "daemon",
		Short: "Run the REST service",
		Long: `Run the REST service

The service publishes balance maps to the configured storage and answers claim
lookups until it receives SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cfg := configFrom(cmd)
			logger.Infof("daemon: storage %s, ledger enrichment %t", cfg.StorageDriver, cfg.LedgerEnabled())
			return node.Start(configs.WithConfig(ctx, cfg))
		},
	}
	daemon.Flags().String("rest-address", "", "Listen address of the REST API")
	daemon.Flags().StringSlice("api-key", nil, "API keys accepted by the publish endpoint")
	_ = v.BindPFlag("rest_address", daemon.Flags().Lookup("rest-address"))
	_ = v.BindPFlag("api_keys", daemon.Flags().Lookup("api-key"))
	return daemon
}
